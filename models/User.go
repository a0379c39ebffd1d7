package models

import "gorm.io/gorm"

type Role string

const (
	RoleSender   Role = "sender"
	RoleCarrier  Role = "carrier"
	RoleReceiver Role = "receiver"
	RoleAgent    Role = "agent"
)

// Valid reports whether r is one of the closed set of end-user roles.
// Agents live in their own table and never appear on a User row.
func (r Role) Valid() bool {
	return r == RoleSender || r == RoleCarrier || r == RoleReceiver
}

type User struct {
	gorm.Model
	FullName   string `json:"fullName" gorm:"size:120;not null"`
	Email      string `json:"email" gorm:"size:190;uniqueIndex;not null"`
	Password   string `json:"-" gorm:"size:255;not null"`
	Phone      string `json:"phone" gorm:"size:20;index"`
	NationalID string `json:"nationalID" gorm:"size:40"`
	Role       Role   `json:"role" gorm:"type:varchar(12);index"`

	// Receivers are approved at registration; senders and carriers wait for
	// an agent to approve them and must verify their phone first.
	PhoneVerified      bool `json:"phoneVerified" gorm:"default:false"`
	NationalIDVerified bool `json:"nationalIDVerified" gorm:"default:false"`
	IsApproved         bool `json:"isApproved" gorm:"default:false"`

	Flights   []Flight   `json:"flights,omitempty" gorm:"foreignKey:CarrierID"`
	Shipments []Shipment `json:"shipments,omitempty" gorm:"foreignKey:SenderID"`
}
