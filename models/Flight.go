package models

import (
	"time"

	"gorm.io/gorm"
)

type FlightStatus string

const (
	FlightActive FlightStatus = "active"
	FlightClosed FlightStatus = "closed"
)

// Flight is a carrier's announced trip with a spare-kg capacity pool.
// AvailableKg is only ever changed through guarded UPDATEs so it can never
// go negative under concurrent shipment creation.
type Flight struct {
	gorm.Model
	CarrierID uint `json:"carrierID" gorm:"not null;index"`
	Carrier   User `json:"carrier" gorm:"foreignKey:CarrierID"`

	FromCity      string    `json:"from" gorm:"column:from_city;size:64;not null"`
	ToCity        string    `json:"to" gorm:"column:to_city;size:64;not null"`
	DepartureDate time.Time `json:"departureDate" gorm:"not null"`
	AvailableKg   float64   `json:"availableKg" gorm:"not null"`

	Status FlightStatus `json:"status" gorm:"type:varchar(10);default:active;index"`

	Shipments []Shipment `json:"shipments,omitempty"`
}
