package models

import "gorm.io/gorm"

type ShipmentStatus string

const (
	ShipmentRequested ShipmentStatus = "REQUESTED"
	ShipmentPaid      ShipmentStatus = "PAID"
	ShipmentInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentDelivered ShipmentStatus = "DELIVERED"
	ShipmentCancelled ShipmentStatus = "CANCELLED"
)

// Shipment is a sender's package booked against a carrier's flight capacity.
// Rows are never hard-deleted; DELIVERED and CANCELLED are terminal.
type Shipment struct {
	gorm.Model
	FlightID uint   `json:"flightID" gorm:"not null;index"`
	Flight   Flight `json:"flight"`

	SenderID uint `json:"senderID" gorm:"not null;index"`
	Sender   User `json:"sender" gorm:"foreignKey:SenderID"`

	TrackingCode    string  `json:"trackingCode" gorm:"size:24;uniqueIndex;not null"`
	ItemWeight      float64 `json:"itemWeight" gorm:"not null"`
	ItemDescription string  `json:"itemDescription" gorm:"type:text"`

	AcceptorName       string `json:"acceptorName" gorm:"size:120;not null"`
	AcceptorPhone      string `json:"acceptorPhone" gorm:"size:20;not null"`
	AcceptorNationalID string `json:"acceptorNationalID" gorm:"size:40;not null"`
	AcceptorVerified   bool   `json:"acceptorVerified" gorm:"default:false"`

	// CapacityReserved tracks whether this shipment currently holds weight out
	// of its flight's pool. Set at creation, cleared by the one restore a
	// failed payment or cancellation performs, re-set when a new payment
	// attempt re-reserves. Guarded claims on this flag make restore a one-shot
	// event per reservation.
	CapacityReserved bool `json:"capacityReserved" gorm:"default:true"`

	Status ShipmentStatus `json:"status" gorm:"type:varchar(12);default:REQUESTED;index"`
}

var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	ShipmentRequested: {ShipmentPaid, ShipmentCancelled},
	ShipmentPaid:      {ShipmentInTransit, ShipmentDelivered, ShipmentCancelled},
	ShipmentInTransit: {ShipmentDelivered, ShipmentCancelled},
}

// CanTransitionTo reports whether moving from the current status to next is
// legal. Terminal states have no outgoing edges.
func (s *Shipment) CanTransitionTo(next ShipmentStatus) bool {
	for _, allowed := range shipmentTransitions[s.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the shipment can no longer change state.
func (s *Shipment) IsTerminal() bool {
	return s.Status == ShipmentDelivered || s.Status == ShipmentCancelled
}
