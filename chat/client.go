package chat

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// envelope is the socket.io-style wire frame: {"event": "...", "data": ...}.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func mustRaw(payload interface{}) json.RawMessage {
	b, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

// Client is one websocket connection. joined is owned by the hub and only
// touched under the hub lock.
type Client struct {
	ID      string
	IsAgent bool

	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	joined map[string]struct{}
}

func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		// Slow consumer: drop the frame rather than block the room.
		log.Printf("⚠️  Dropping frame for slow connection %s", c.ID)
	}
}

func (c *Client) emit(event string, payload interface{}) {
	data, err := json.Marshal(envelope{Event: event, Data: mustRaw(payload)})
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Remove(c)
		c.conn.Close()
		close(c.send)
		log.Printf("🔴 Client disconnected: %s", c.ID)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame envelope
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type sendMessageEvent struct {
	UserID  uint   `json:"userId"`
	AgentID *uint  `json:"agentId"`
	SentBy  string `json:"sentBy"`
	Message string `json:"message"`
}

func (c *Client) dispatch(frame envelope) {
	switch frame.Event {
	case "joinRoom":
		var roomID string
		if err := json.Unmarshal(frame.Data, &roomID); err != nil || roomID == "" {
			return
		}
		c.hub.Join(roomID, c)
		c.replayHistory(roomID)

	case "leaveRoom":
		var roomID string
		if err := json.Unmarshal(frame.Data, &roomID); err != nil {
			return
		}
		c.hub.Leave(roomID, c)

	case "sendMessage":
		var input sendMessageEvent
		if err := json.Unmarshal(frame.Data, &input); err != nil {
			return
		}
		trimmed := strings.TrimSpace(input.Message)
		if input.UserID == 0 || trimmed == "" {
			c.emit("errorMessage", iris.Map{"message": "Message cannot be empty."})
			return
		}
		if _, err := c.hub.SaveMessage(input.UserID, input.AgentID, input.SentBy, trimmed); err != nil {
			c.emit("errorMessage", iris.Map{"message": "Failed to save message."})
		}

	case "getUsersWithMessages":
		var agentID *uint
		var id uint
		if err := json.Unmarshal(frame.Data, &id); err == nil && id != 0 {
			agentID = &id
		}
		list, err := ConversationSummaries(agentID)
		if err != nil {
			c.emit("usersList", []ConversationSummary{})
			return
		}
		c.emit("usersList", list)
	}
}

// replayHistory sends the room's persisted messages, oldest first, before
// any live traffic the client will observe for that room.
func (c *Client) replayHistory(roomID string) {
	userID, err := strconv.ParseUint(roomID, 10, 32)
	if err != nil {
		return
	}
	msgs, err := c.hub.History(uint(userID))
	if err != nil {
		log.Printf("❌ Error loading messages for room %s: %v", roomID, err)
		return
	}
	c.emit("loadMessages", msgs)
}

// ServeWS upgrades the request and runs the connection's pumps. Agent
// connections identify themselves with ?role=agent.
func ServeWS(hub *Hub) iris.Handler {
	return func(ctx iris.Context) {
		conn, err := upgrader.Upgrade(ctx.ResponseWriter(), ctx.Request(), nil)
		if err != nil {
			log.Printf("❌ Websocket upgrade failed: %v", err)
			return
		}
		client := &Client{
			ID:      uuid.NewString(),
			IsAgent: ctx.URLParam("role") == "agent",
			hub:     hub,
			conn:    conn,
			send:    make(chan []byte, sendBuffer),
			joined:  make(map[string]struct{}),
		}
		hub.Register(client)
		log.Printf("🟢 New client connected: %s", client.ID)

		go client.writePump()
		go client.readPump()
	}
}
