package routes

import (
	"errors"

	"skyport-server/models"
	"skyport-server/services"
	"skyport-server/storage"
	"skyport-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errPaymentNotSettled = errors.New("payment not settled")
	errReleaseTimeout    = errors.New("release undetermined")
	errReleaseFailed     = errors.New("release failed")
)

// TrackShipment is the public read path: a composed view of the shipment,
// its flight, the sender, and the carrier. Strictly read-only.
func TrackShipment(ctx iris.Context) {
	trackingCode := ctx.Params().Get("trackingCode")

	var shipment models.Shipment
	if err := storage.DB.
		Where("tracking_code = ?", trackingCode).
		Preload("Flight").
		Preload("Flight.Carrier").
		Preload("Sender").
		First(&shipment).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"trackingCode":    shipment.TrackingCode,
		"status":          shipment.Status,
		"itemWeight":      shipment.ItemWeight,
		"itemDescription": shipment.ItemDescription,
		"acceptorName":    shipment.AcceptorName,
		"flight": iris.Map{
			"from":          shipment.Flight.FromCity,
			"to":            shipment.Flight.ToCity,
			"departureDate": shipment.Flight.DepartureDate,
		},
		"sender": iris.Map{
			"fullName": shipment.Sender.FullName,
			"phone":    shipment.Sender.Phone,
		},
		"carrier": iris.Map{
			"fullName": shipment.Flight.Carrier.FullName,
			"phone":    shipment.Flight.Carrier.Phone,
		},
	})
}

// ConfirmDelivery is the terminal transition. The tracking code is the
// credential: whoever holds it confirms receipt, which releases the escrow,
// marks the shipment DELIVERED, verifies the acceptor, and awards the
// carrier one reward point, all or nothing.
func ConfirmDelivery(ctx iris.Context) {
	settleDelivery(ctx, ctx.Params().Get("trackingCode"))
}

// settleDelivery claims the shipment and its settled payment with guarded
// UPDATEs inside one transaction, then calls the gateway release last. A
// release failure rolls the whole claim back, and a second confirm can never
// double-release funds or double-count points.
func settleDelivery(ctx iris.Context, trackingCode string) {
	var shipment models.Shipment
	if err := storage.DB.
		Preload("Flight").
		Where("tracking_code = ?", trackingCode).
		First(&shipment).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	previousStatus := shipment.Status
	var releasedAmount float64
	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Shipment{}).
			Where("id = ? AND status IN ?", shipment.ID,
				[]models.ShipmentStatus{models.ShipmentPaid, models.ShipmentInTransit}).
			Updates(map[string]interface{}{
				"status":            models.ShipmentDelivered,
				"acceptor_verified": true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errInvalidState
		}

		var payment models.PaymentTransaction
		if err := tx.Where("shipment_id = ? AND status = ?", shipment.ID, models.PaymentSuccess).
			First(&payment).Error; err != nil {
			return errPaymentNotSettled
		}
		claim := tx.Model(&payment).
			Where("status = ?", models.PaymentSuccess).
			Update("status", models.PaymentReleased)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return errPaymentNotSettled
		}

		if err := awardCarrierPoint(tx, shipment.Flight.CarrierID); err != nil {
			return err
		}

		// Gateway call last: any failure rolls back the claims above.
		amount, err := Gateway.Release(payment.Reference)
		if err == services.ErrGatewayTimeout {
			return errReleaseTimeout
		}
		if err != nil {
			return errReleaseFailed
		}
		releasedAmount = amount
		return nil
	})

	switch txErr {
	case nil:
		utils.Audit(ctx, "shipment.deliver", "shipment", shipment.ID,
			iris.Map{"status": previousStatus}, iris.Map{"status": models.ShipmentDelivered})
		ctx.JSON(iris.Map{
			"message":        "Delivery confirmed.",
			"releasedAmount": releasedAmount,
		})
	case errInvalidState:
		if previousStatus == models.ShipmentRequested {
			utils.CreateInvalidState("Shipment has not been paid for.", ctx)
			return
		}
		utils.CreateInvalidState("Shipment is already delivered or cancelled.", ctx)
	case errPaymentNotSettled:
		utils.CreateInvalidState("No settled payment exists for this shipment.", ctx)
	case errReleaseTimeout:
		utils.CreateUpstreamFailure("Escrow release timed out; outcome undetermined, please retry.", ctx)
	case errReleaseFailed:
		utils.CreateUpstreamFailure("Escrow release failed.", ctx)
	default:
		utils.CreateInternalServerError(ctx)
	}
}

// awardCarrierPoint bumps the carrier's reward counter with an atomic SQL
// increment; concurrent deliveries on the same carrier never lose updates.
func awardCarrierPoint(tx *gorm.DB, carrierID uint) error {
	res := tx.Model(&models.CarrierProfile{}).
		Where("user_id = ?", carrierID).
		UpdateColumn("points", gorm.Expr("points + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.CarrierProfile{UserID: carrierID, Points: 1}).Error
	}
	return nil
}
