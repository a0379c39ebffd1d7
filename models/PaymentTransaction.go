package models

import "gorm.io/gorm"

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentSuccess  PaymentStatus = "SUCCESS"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentReleased PaymentStatus = "RELEASED"
)

// PaymentTransaction is the escrow hold for one shipment. At most one
// non-FAILED row may exist per shipment: the partial unique index rejects a
// second live insert even under concurrent initializes.
type PaymentTransaction struct {
	gorm.Model
	ShipmentID uint     `json:"shipmentID" gorm:"not null;index;uniqueIndex:uniq_live_payment,where:status <> 'FAILED'"`
	Shipment   Shipment `json:"shipment"`

	Amount    float64       `json:"amount" gorm:"not null"`
	Currency  string        `json:"currency" gorm:"size:8;not null"`
	Reference string        `json:"reference" gorm:"size:64;uniqueIndex;not null"`
	Status    PaymentStatus `json:"status" gorm:"type:varchar(10);default:PENDING;index"`
}
