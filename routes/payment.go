package routes

import (
	"errors"

	"skyport-server/models"
	"skyport-server/services"
	"skyport-server/storage"
	"skyport-server/utils"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type initializePaymentInput struct {
	ShipmentID uint    `json:"shipmentID" validate:"required"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Currency   string  `json:"currency" validate:"required,len=3"`
}

// InitializePayment opens the escrow hold for a REQUESTED shipment. The
// shipment's status does not change here; only a confirmed verification
// moves it to PAID. The PENDING row is claimed before the gateway call, so
// two concurrent initializes can never both open a checkout: the partial
// unique index on payment_transactions rejects the second insert. If a
// previous failed attempt released the shipment's weight, the same
// transaction re-reserves it from the flight's pool.
func InitializePayment(ctx iris.Context) {
	senderID := ctx.Values().Get("userID").(uint)

	var input initializePaymentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var shipment models.Shipment
	if err := storage.DB.First(&shipment, input.ShipmentID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if shipment.SenderID != senderID {
		utils.CreateForbidden(ctx)
		return
	}
	if shipment.Status != models.ShipmentRequested {
		utils.CreateInvalidState("Payment can only be initialized for a requested shipment.", ctx)
		return
	}

	var sender models.User
	if err := storage.DB.First(&sender, senderID).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	payment := models.PaymentTransaction{
		ShipmentID: shipment.ID,
		Amount:     input.Amount,
		Currency:   input.Currency,
		Reference:  uuid.NewString(),
		Status:     models.PaymentPending,
	}
	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		if !shipment.CapacityReserved {
			res := tx.Model(&models.Flight{}).
				Where("id = ? AND status = ? AND available_kg >= ?",
					shipment.FlightID, models.FlightActive, shipment.ItemWeight).
				UpdateColumn("available_kg", gorm.Expr("available_kg - ?", shipment.ItemWeight))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errCapacityExceeded
			}
			claim := tx.Model(&models.Shipment{}).
				Where("id = ? AND capacity_reserved = ?", shipment.ID, false).
				Update("capacity_reserved", true)
			if claim.Error != nil {
				return claim.Error
			}
			if claim.RowsAffected == 0 {
				return errInvalidState // a concurrent initialize re-reserved first
			}
		}
		return tx.Create(&payment).Error
	})
	switch {
	case txErr == nil:
	case txErr == errCapacityExceeded:
		utils.CreateError(iris.StatusBadRequest, "Capacity Exceeded", "The flight no longer has capacity for this shipment.", ctx)
		return
	case txErr == errInvalidState || errors.Is(txErr, gorm.ErrDuplicatedKey):
		utils.CreateInvalidState("A payment is already in progress for this shipment.", ctx)
		return
	default:
		utils.CreateInternalServerError(ctx)
		return
	}

	result, err := Gateway.Initialize(sender.Email, input.Amount, input.Currency, payment.Reference)
	if err != nil {
		// Free the slot so the sender can retry; the reservation stays held.
		storage.DB.Model(&payment).Update("status", models.PaymentFailed)
		if err == services.ErrGatewayTimeout {
			utils.CreateUpstreamFailure("Payment gateway timed out; please retry.", ctx)
			return
		}
		utils.CreateUpstreamFailure("Payment gateway unavailable.", ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{
		"reference":   payment.Reference,
		"checkoutUrl": result.AuthorizationURL,
	})
}

// VerifyPayment polls the gateway for a reference's outcome and applies it:
// success moves transaction SUCCESS + shipment PAID atomically; failure
// marks the transaction FAILED and hands the reserved capacity back to the
// flight. A timeout leaves everything PENDING (undetermined, retryable).
func VerifyPayment(ctx iris.Context) {
	reference := ctx.Params().Get("reference")

	var payment models.PaymentTransaction
	if err := storage.DB.Where("reference = ?", reference).First(&payment).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if payment.Status != models.PaymentPending {
		ctx.JSON(iris.Map{"status": payment.Status})
		return
	}

	gatewayStatus, err := Gateway.Verify(reference)
	if err == services.ErrGatewayTimeout {
		utils.CreateUpstreamFailure("Payment gateway timed out; verification undetermined.", ctx)
		return
	}
	if err != nil {
		utils.CreateUpstreamFailure("Payment gateway unavailable.", ctx)
		return
	}

	switch gatewayStatus {
	case "success":
		txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&payment).Update("status", models.PaymentSuccess).Error; err != nil {
				return err
			}
			res := tx.Model(&models.Shipment{}).
				Where("id = ? AND status = ?", payment.ShipmentID, models.ShipmentRequested).
				Update("status", models.ShipmentPaid)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errInvalidState
			}
			return nil
		})
		if txErr != nil {
			utils.CreateInvalidState("Shipment is no longer awaiting payment.", ctx)
			return
		}
		ctx.JSON(iris.Map{"status": models.PaymentSuccess})

	case "failed":
		txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&payment).Update("status", models.PaymentFailed).Error; err != nil {
				return err
			}
			var shipment models.Shipment
			if err := tx.First(&shipment, payment.ShipmentID).Error; err != nil {
				return err
			}
			return restoreCapacity(tx, shipment.ID, shipment.FlightID, shipment.ItemWeight)
		})
		if txErr != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		ctx.JSON(iris.Map{"status": models.PaymentFailed})

	default:
		// Still pending or abandoned on the gateway side
		ctx.JSON(iris.Map{"status": models.PaymentPending})
	}
}

type releasePaymentInput struct {
	TrackingCode string `json:"trackingCode" validate:"required"`
}

// ReleasePayment is the internal release trigger. It runs the same guarded
// settlement path as the receiver's confirm endpoint.
func ReleasePayment(ctx iris.Context) {
	var input releasePaymentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	settleDelivery(ctx, input.TrackingCode)
}
