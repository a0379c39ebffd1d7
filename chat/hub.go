package chat

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"sync"

	"skyport-server/models"
	"skyport-server/storage"
)

// Hub is the in-process room registry. One room per end-user ID; agents are
// additionally tracked globally so every agent connection gets a
// newUserMessage ping regardless of which rooms it joined.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	agents map[*Client]struct{}

	// Serializes persist+broadcast so per-room delivery order always matches
	// insertion order in support_messages.
	sendMu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		agents: make(map[*Client]struct{}),
	}
}

func (h *Hub) Join(roomID string, c *Client) {
	if roomID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
	c.joined[roomID] = struct{}{}
	log.Printf("📩 Connection %s joined room %s", c.ID, roomID)
}

func (h *Hub) Leave(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(roomID, c)
	log.Printf("🚪 Connection %s left room %s", c.ID, roomID)
}

func (h *Hub) leaveLocked(roomID string, c *Client) {
	if members, ok := h.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(c.joined, roomID)
}

// Register adds a connection to the hub; agent connections also enter the
// global agent set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.IsAgent {
		h.agents[c] = struct{}{}
	}
}

// Remove drops the connection from every room and the agent set. Called on
// disconnect; persisted history is untouched.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range c.joined {
		h.leaveLocked(roomID, c)
	}
	delete(h.agents, c)
}

func (h *Hub) broadcastToRoom(roomID string, event string, payload interface{}) {
	data, err := json.Marshal(envelope{Event: event, Data: mustRaw(payload)})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.enqueue(data)
	}
}

func (h *Hub) broadcastToAgents(event string, payload interface{}) {
	data, err := json.Marshal(envelope{Event: event, Data: mustRaw(payload)})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.agents {
		c.enqueue(data)
	}
}

// SaveMessage persists a support message and, only after the insert commits,
// fans it out: receiveMessage to the user's room, newUserMessage to every
// agent connection. A persistence error produces no broadcast at all, so
// recipients never see a message that is missing from history.
func (h *Hub) SaveMessage(userID uint, agentID *uint, sentBy string, message string) (*models.SupportMessage, error) {
	if userID == 0 || message == "" {
		return nil, errors.New("empty message or missing user")
	}

	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	msg := models.SupportMessage{
		UserID:  userID,
		AgentID: agentID,
		SentBy:  sentBy,
		Message: message,
	}
	if err := storage.DB.Create(&msg).Error; err != nil {
		log.Printf("❌ Error saving message for user %d: %v", userID, err)
		return nil, err
	}

	roomID := strconv.FormatUint(uint64(userID), 10)
	h.broadcastToRoom(roomID, "receiveMessage", msg)
	h.broadcastToAgents("newUserMessage", msg)
	return &msg, nil
}

// History returns a room's persisted messages in ascending creation order,
// ties broken by insertion order.
func (h *Hub) History(userID uint) ([]models.SupportMessage, error) {
	var msgs []models.SupportMessage
	err := storage.DB.
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}
