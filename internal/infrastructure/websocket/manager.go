package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tradelink/internal/domain/entity"
	"tradelink/pkg/logger"
)

// Server-to-client event names. These are the wire contract shared with the
// browser clients.
const (
	EventReceiveMessage = "receive-message"
	EventQuoteUpdated   = "quote-updated"
	EventTyping         = "typing"
	EventError          = "error"
)

// Event is the envelope for every frame the server pushes.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type statusChangeData struct {
	ConversationID string           `json:"conversation_id"`
	Status         entity.RFQStatus `json:"status"`
}

type typingData struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Typing         bool   `json:"typing"`
}

// Manager is the room broadcaster: it tracks live connections and their room
// memberships, keyed by conversation id. It satisfies usecase.RoomBroadcaster.
// Constructed once at process start and passed explicitly to the services.
type Manager struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	Register   chan *Client
	Unregister chan *Client
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the registration loop until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mu.Lock()
				m.clients[client] = struct{}{}
				m.mu.Unlock()
				logger.Info("websocket: client registered for user %s", client.UserID)

			case client := <-m.Unregister:
				m.remove(client)
				logger.Info("websocket: client unregistered for user %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// JoinRoom subscribes a connection to a conversation's room. Authorization
// is re-checked by the caller against the conversation store before this.
// A client already removed (dropped or unregistered) cannot rejoin: its Send
// channel is closed, so admitting it would poison the next broadcast.
func (m *Manager) JoinRoom(conversationID string, client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client.closed {
		return
	}

	room, ok := m.rooms[conversationID]
	if !ok {
		room = make(map[*Client]struct{})
		m.rooms[conversationID] = room
	}
	room[client] = struct{}{}
}

// LeaveRoom drops a connection from a room. No-op when not a member.
func (m *Manager) LeaveRoom(conversationID string, client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[conversationID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(m.rooms, conversationID)
		}
	}
}

// EmitMessage broadcasts a persisted message to every connection in the
// conversation's room, including the sender's other sessions. The server is
// authoritative; clients render only echoed messages.
func (m *Manager) EmitMessage(conversationID string, message *entity.Message) {
	m.broadcast(conversationID, Event{
		Type:      EventReceiveMessage,
		Data:      messagePayload(message),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil)
}

// EmitStatusChange broadcasts a lightweight RFQ status event so clients can
// update badges without re-parsing message content.
func (m *Manager) EmitStatusChange(conversationID string, status entity.RFQStatus) {
	m.broadcast(conversationID, Event{
		Type:      EventQuoteUpdated,
		Data:      statusChangeData{ConversationID: conversationID, Status: status},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil)
}

// EmitTyping relays a typing indicator to the room, excluding the typist's
// own connections. Not persisted.
func (m *Manager) EmitTyping(conversationID, userID string, typing bool) {
	m.broadcast(conversationID, Event{
		Type:      EventTyping,
		Data:      typingData{ConversationID: conversationID, UserID: userID, Typing: typing},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, func(c *Client) bool { return c.UserID == userID })
}

// SendError delivers an error event to a single connection. The underlying
// mutation state is unaffected.
func (m *Manager) SendError(client *Client, message string) {
	event := Event{
		Type:      EventError,
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	m.send(client, raw)
}

func (m *Manager) broadcast(conversationID string, event Event, skip func(*Client) bool) {
	raw, err := json.Marshal(event)
	if err != nil {
		logger.Error("websocket: failed to marshal %s event: %v", event.Type, err)
		return
	}

	m.mu.RLock()
	room := m.rooms[conversationID]
	targets := make([]*Client, 0, len(room))
	for client := range room {
		if skip != nil && skip(client) {
			continue
		}
		targets = append(targets, client)
	}
	m.mu.RUnlock()

	for _, client := range targets {
		m.send(client, raw)
	}
}

// send never blocks: a client whose buffer is full is dropped and must
// reconcile through the REST history fetch after reconnecting. The closed
// check and the channel send happen under the read lock; remove closes the
// channel only while holding the write lock, so a client observed open here
// cannot be closed mid-send.
func (m *Manager) send(client *Client, raw []byte) {
	m.mu.RLock()
	if client.closed {
		m.mu.RUnlock()
		return
	}
	select {
	case client.Send <- raw:
		m.mu.RUnlock()
		return
	default:
	}
	m.mu.RUnlock()

	logger.Warn("websocket: send buffer full for user %s, dropping connection", client.UserID)
	m.remove(client)
}

func (m *Manager) remove(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client.closed {
		return
	}
	client.closed = true
	delete(m.clients, client)
	for conversationID, room := range m.rooms {
		delete(room, client)
		if len(room) == 0 {
			delete(m.rooms, conversationID)
		}
	}
	close(client.Send)
}

// RoomSize reports how many connections are joined to a conversation's room.
func (m *Manager) RoomSize(conversationID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[conversationID])
}

type messageData struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	SenderID       string             `json:"sender_id"`
	Content        string             `json:"content"`
	Type           entity.MessageType `json:"message_type"`
	Body           entity.MessageBody `json:"body"`
	CreatedAt      string             `json:"created_at"`
}

func messagePayload(message *entity.Message) messageData {
	return messageData{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Content:        message.Content,
		Type:           message.Type,
		Body:           message.Body(),
		CreatedAt:      message.CreatedAt.UTC().Format(time.RFC3339),
	}
}
