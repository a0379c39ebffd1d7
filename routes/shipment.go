package routes

import (
	"errors"
	"strings"

	"skyport-server/models"
	"skyport-server/storage"
	"skyport-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

var errCapacityExceeded = errors.New("capacity exceeded")

type createShipmentInput struct {
	FlightID           uint    `json:"flightID" validate:"required"`
	ItemWeight         float64 `json:"itemWeight" validate:"required,gt=0"`
	ItemDescription    string  `json:"itemDescription"`
	AcceptorName       string  `json:"acceptorName" validate:"required,max=120"`
	AcceptorPhone      string  `json:"acceptorPhone" validate:"required,max=20"`
	AcceptorNationalID string  `json:"acceptorNationalID" validate:"required,max=40"`
}

func newTrackingCode() string {
	return "SKY-" + strings.ToUpper(utils.GenerateShortToken(5))
}

// CreateShipment books weight against a flight's capacity pool. The capacity
// decrement is a guarded UPDATE (available_kg >= weight) inside the same
// transaction as the shipment insert, so concurrent requests can never
// oversell a flight.
func CreateShipment(ctx iris.Context) {
	senderID := ctx.Values().Get("userID").(uint)

	var input createShipmentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var flight models.Flight
	if err := storage.DB.First(&flight, input.FlightID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if flight.Status != models.FlightActive {
		utils.CreateInvalidState("Flight is closed.", ctx)
		return
	}

	shipment := models.Shipment{
		FlightID:           input.FlightID,
		SenderID:           senderID,
		TrackingCode:       newTrackingCode(),
		ItemWeight:         input.ItemWeight,
		ItemDescription:    input.ItemDescription,
		AcceptorName:       input.AcceptorName,
		AcceptorPhone:      utils.NormalizePhoneNumber(input.AcceptorPhone),
		AcceptorNationalID: input.AcceptorNationalID,
		Status:             models.ShipmentRequested,
		CapacityReserved:   true,
	}

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Flight{}).
			Where("id = ? AND status = ? AND available_kg >= ?", input.FlightID, models.FlightActive, input.ItemWeight).
			UpdateColumn("available_kg", gorm.Expr("available_kg - ?", input.ItemWeight))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errCapacityExceeded
		}
		return tx.Create(&shipment).Error
	})
	if err == errCapacityExceeded {
		utils.CreateError(iris.StatusBadRequest, "Capacity Exceeded", "Requested weight exceeds the flight's remaining capacity.", ctx)
		return
	}
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{
		"id":           shipment.ID,
		"trackingCode": shipment.TrackingCode,
		"status":       shipment.Status,
	})
}

// GetSenderShipments lists the caller's shipments, newest first.
func GetSenderShipments(ctx iris.Context) {
	senderID := ctx.Values().Get("userID").(uint)

	var shipments []models.Shipment
	if err := storage.DB.
		Where("sender_id = ?", senderID).
		Preload("Flight").
		Order("created_at DESC").
		Find(&shipments).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(shipments)
}

// restoreCapacity gives a shipment's reserved weight back to its flight, at
// most once per reservation. The guarded claim on capacity_reserved makes a
// second restore (failed payment followed by cancel, or concurrent callers) a
// no-op, so available_kg can never inflate past the flight's original pool.
func restoreCapacity(tx *gorm.DB, shipmentID, flightID uint, weight float64) error {
	claim := tx.Model(&models.Shipment{}).
		Where("id = ? AND capacity_reserved = ?", shipmentID, true).
		Update("capacity_reserved", false)
	if claim.Error != nil {
		return claim.Error
	}
	if claim.RowsAffected == 0 {
		return nil // already restored
	}
	return tx.Model(&models.Flight{}).
		Where("id = ?", flightID).
		UpdateColumn("available_kg", gorm.Expr("available_kg + ?", weight)).Error
}

// CancelShipment moves a non-terminal shipment to CANCELLED and restores the
// flight's capacity. Only the owning sender may cancel.
func CancelShipment(ctx iris.Context) {
	senderID := ctx.Values().Get("userID").(uint)
	shipmentID, err := ctx.Params().GetUint("shipmentID")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid shipment id.", ctx)
		return
	}

	var shipment models.Shipment
	if err := storage.DB.First(&shipment, shipmentID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if shipment.SenderID != senderID {
		utils.CreateForbidden(ctx)
		return
	}

	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		// Guarded claim: loses gracefully if a concurrent transition won
		res := tx.Model(&models.Shipment{}).
			Where("id = ? AND status IN ?", shipment.ID,
				[]models.ShipmentStatus{models.ShipmentRequested, models.ShipmentPaid, models.ShipmentInTransit}).
			Update("status", models.ShipmentCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errInvalidState
		}
		return restoreCapacity(tx, shipment.ID, shipment.FlightID, shipment.ItemWeight)
	})
	switch txErr {
	case nil:
		utils.Audit(ctx, "shipment.cancel", "shipment", shipment.ID,
			iris.Map{"status": shipment.Status}, iris.Map{"status": models.ShipmentCancelled})
		ctx.JSON(iris.Map{"message": "Shipment cancelled."})
	case errInvalidState:
		utils.CreateInvalidState("Shipment can no longer be cancelled.", ctx)
	default:
		utils.CreateInternalServerError(ctx)
	}
}

// MarkInTransit moves a PAID shipment to IN_TRANSIT (carrier only, own
// flights only).
func MarkInTransit(ctx iris.Context) {
	carrierID := ctx.Values().Get("userID").(uint)
	shipmentID, err := ctx.Params().GetUint("shipmentID")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid shipment id.", ctx)
		return
	}

	var shipment models.Shipment
	if err := storage.DB.Preload("Flight").First(&shipment, shipmentID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if shipment.Flight.CarrierID != carrierID {
		utils.CreateForbidden(ctx)
		return
	}
	if !shipment.CanTransitionTo(models.ShipmentInTransit) {
		utils.CreateInvalidState("Shipment is not paid yet.", ctx)
		return
	}

	before := shipment.Status
	if err := storage.DB.Model(&shipment).Update("status", models.ShipmentInTransit).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.Audit(ctx, "shipment.transit", "shipment", shipment.ID,
		iris.Map{"status": before}, iris.Map{"status": models.ShipmentInTransit})
	ctx.JSON(iris.Map{"status": models.ShipmentInTransit})
}

var errInvalidState = errors.New("invalid state")
