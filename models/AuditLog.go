package models

import "gorm.io/gorm"

// AuditLog keeps a trail of sensitive state changes: shipment transitions,
// escrow releases, agent approvals.
type AuditLog struct {
	gorm.Model
	ActorID      uint   `json:"actorID" gorm:"index"`
	Action       string `json:"action" gorm:"size:64;not null;index"`
	ResourceType string `json:"resourceType" gorm:"size:32;index"`
	ResourceID   uint   `json:"resourceID" gorm:"index"`
	BeforeJSON   string `json:"beforeJSON" gorm:"type:text"`
	AfterJSON    string `json:"afterJSON" gorm:"type:text"`
	IPAddress    string `json:"ipAddress" gorm:"size:64"`
}
