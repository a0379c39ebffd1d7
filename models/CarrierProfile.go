package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CarrierProfile carries the reward counter and verification documents for a
// carrier. Points only move through an atomic `points = points + ?` UPDATE
// inside the delivery-confirmation transaction.
type CarrierProfile struct {
	gorm.Model
	UserID uint `json:"userID" gorm:"uniqueIndex;not null"`
	User   User `json:"user"`

	Points int64 `json:"points" gorm:"default:0"`

	Airline       string         `json:"airline" gorm:"size:120"`
	Bio           string         `json:"bio" gorm:"type:text"`
	IDDocumentURL string         `json:"idDocumentURL" gorm:"size:512"`
	SelfieURL     string         `json:"selfieURL" gorm:"size:512"`
	Routes        datatypes.JSON `json:"routes"` // frequently flown city pairs
}
