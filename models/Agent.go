package models

import "gorm.io/gorm"

// Agent is a support/back-office account. Kept in its own table so agent
// credentials never mix with marketplace users.
type Agent struct {
	gorm.Model
	FullName string `json:"fullName" gorm:"size:120;not null"`
	Email    string `json:"email" gorm:"size:190;uniqueIndex;not null"`
	Password string `json:"-" gorm:"size:255;not null"`
}
