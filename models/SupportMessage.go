package models

import "time"

// SupportMessage is one line of a support conversation. The room key is the
// end-user's ID; AgentID stays nil until an agent answers. Rows are
// append-only and ordered by (created_at, id) within a room.
type SupportMessage struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	UserID  uint   `json:"userID" gorm:"not null;index"`
	AgentID *uint  `json:"agentID" gorm:"index"`
	SentBy  string `json:"sentBy" gorm:"type:varchar(8);not null"` // user|agent
	Message string `json:"message" gorm:"type:text;not null"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}
