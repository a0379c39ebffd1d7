package chat

import (
	"skyport-server/models"
	"skyport-server/storage"
)

// ConversationSummary is one row of the agent inbox: the room, who it
// belongs to, the latest message, and a total-message count standing in for
// an unread count (no per-agent read cursor exists).
type ConversationSummary struct {
	UserID        uint   `json:"userId"`
	UserName      string `json:"userName"`
	LastMessage   string `json:"lastMessage"`
	LastCreatedAt string `json:"lastCreatedAt"`
	UnreadCount   int64  `json:"unreadCount"`
}

// ConversationSummaries aggregates every room. When agentID is set, rooms
// assigned to other agents are filtered out; unassigned rooms always show.
func ConversationSummaries(agentID *uint) ([]ConversationSummary, error) {
	query := storage.DB.Model(&models.SupportMessage{})
	if agentID != nil {
		query = query.Where("agent_id IS NULL OR agent_id = ?", *agentID)
	}

	var rooms []struct {
		UserID uint
		Count  int64
	}
	if err := query.
		Select("user_id, COUNT(id) as count").
		Group("user_id").
		Scan(&rooms).Error; err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(rooms))
	for _, room := range rooms {
		var last models.SupportMessage
		if err := storage.DB.
			Where("user_id = ?", room.UserID).
			Order("created_at DESC, id DESC").
			First(&last).Error; err != nil {
			continue
		}

		name := ""
		var user models.User
		if err := storage.DB.Select("id, full_name").First(&user, room.UserID).Error; err == nil {
			name = user.FullName
		}

		summaries = append(summaries, ConversationSummary{
			UserID:        room.UserID,
			UserName:      name,
			LastMessage:   last.Message,
			LastCreatedAt: last.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			UnreadCount:   room.Count,
		})
	}
	return summaries, nil
}
