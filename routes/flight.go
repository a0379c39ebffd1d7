package routes

import (
	"time"

	"skyport-server/models"
	"skyport-server/storage"
	"skyport-server/utils"

	"github.com/kataras/iris/v12"
)

type addFlightInput struct {
	From          string  `json:"from" validate:"required,max=64"`
	To            string  `json:"to" validate:"required,max=64"`
	DepartureDate string  `json:"departureDate" validate:"required"`
	AvailableKg   float64 `json:"availableKg" validate:"required,gt=0"`
}

// AddFlight announces spare capacity on a carrier's upcoming trip.
func AddFlight(ctx iris.Context) {
	carrierID := ctx.Values().Get("userID").(uint)

	var input addFlightInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	departure, err := time.Parse("2006-01-02", input.DepartureDate)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "departureDate must be YYYY-MM-DD.", ctx)
		return
	}

	flight := models.Flight{
		CarrierID:     carrierID,
		FromCity:      input.From,
		ToCity:        input.To,
		DepartureDate: departure,
		AvailableKg:   input.AvailableKg,
		Status:        models.FlightActive,
	}
	if err := storage.DB.Create(&flight).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(flight)
}

// GetAllFlights lists active flights with remaining capacity, optionally
// filtered by route.
func GetAllFlights(ctx iris.Context) {
	query := storage.DB.Where("status = ?", models.FlightActive).Preload("Carrier")

	if from := ctx.URLParam("from"); from != "" {
		query = query.Where("lower(from_city) = lower(?)", from)
	}
	if to := ctx.URLParam("to"); to != "" {
		query = query.Where("lower(to_city) = lower(?)", to)
	}

	var flights []models.Flight
	if err := query.Order("departure_date ASC").Find(&flights).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(flights)
}

type updateFlightStatusInput struct {
	Status models.FlightStatus `json:"status" validate:"required,oneof=active closed"`
}

// UpdateFlightStatus lets a carrier open or close one of their own flights.
func UpdateFlightStatus(ctx iris.Context) {
	carrierID := ctx.Values().Get("userID").(uint)
	flightID, err := ctx.Params().GetUint("flightID")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid flight id.", ctx)
		return
	}

	var input updateFlightStatusInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var flight models.Flight
	if err := storage.DB.First(&flight, flightID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if flight.CarrierID != carrierID {
		utils.CreateForbidden(ctx)
		return
	}

	if err := storage.DB.Model(&flight).Update("status", input.Status).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(flight)
}

// GetCarrierShipments lists every shipment booked on the caller's flights.
func GetCarrierShipments(ctx iris.Context) {
	carrierID := ctx.Values().Get("userID").(uint)

	var shipments []models.Shipment
	if err := storage.DB.
		Joins("JOIN flights ON flights.id = shipments.flight_id").
		Where("flights.carrier_id = ?", carrierID).
		Preload("Flight").
		Preload("Sender").
		Order("shipments.created_at DESC").
		Find(&shipments).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(shipments)
}
