package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradelink/internal/domain/entity"
)

type stubConn struct{}

func (stubConn) ReadMessage() (int, []byte, error) { select {} }
func (stubConn) WriteMessage(int, []byte) error    { return nil }
func (stubConn) Close() error                      { return nil }

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	manager.Start(ctx)
	return manager
}

func register(t *testing.T, manager *Manager, userID string) *Client {
	t.Helper()
	client := NewClient(userID, stubConn{})
	manager.Register <- client
	return client
}

func receive(t *testing.T, client *Client) Event {
	t.Helper()
	select {
	case raw := <-client.Send:
		var event Event
		require.NoError(t, json.Unmarshal(raw, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("expected an event, got none")
		return Event{}
	}
}

func assertSilent(t *testing.T, client *Client) {
	t.Helper()
	select {
	case raw := <-client.Send:
		t.Fatalf("expected no event, got %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmitMessageReachesRoomOnly(t *testing.T) {
	manager := newTestManager(t)

	buyer := register(t, manager, "buyer-1")
	seller := register(t, manager, "seller-1")
	bystander := register(t, manager, "other-1")

	manager.JoinRoom("conv-1", buyer)
	manager.JoinRoom("conv-1", seller)
	manager.JoinRoom("conv-2", bystander)

	manager.EmitMessage("conv-1", &entity.Message{
		ID:             "msg-1",
		ConversationID: "conv-1",
		SenderID:       "buyer-1",
		Content:        "hello",
		Type:           entity.MessageTypeText,
	})

	for _, client := range []*Client{buyer, seller} {
		event := receive(t, client)
		assert.Equal(t, EventReceiveMessage, event.Type)
	}
	assertSilent(t, bystander)
}

func TestEmitMessageIncludesSenderSessions(t *testing.T) {
	manager := newTestManager(t)

	phone := register(t, manager, "buyer-1")
	laptop := register(t, manager, "buyer-1")
	manager.JoinRoom("conv-1", phone)
	manager.JoinRoom("conv-1", laptop)

	manager.EmitMessage("conv-1", &entity.Message{ID: "msg-1", SenderID: "buyer-1", Content: "hi"})

	// Every session of the sender sees its own message echoed back.
	assert.Equal(t, EventReceiveMessage, receive(t, phone).Type)
	assert.Equal(t, EventReceiveMessage, receive(t, laptop).Type)
}

func TestEmitStatusChange(t *testing.T) {
	manager := newTestManager(t)

	buyer := register(t, manager, "buyer-1")
	manager.JoinRoom("conv-1", buyer)

	manager.EmitStatusChange("conv-1", entity.RFQStatusQuoted)

	event := receive(t, buyer)
	assert.Equal(t, EventQuoteUpdated, event.Type)

	data, ok := event.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "conv-1", data["conversation_id"])
	assert.Equal(t, string(entity.RFQStatusQuoted), data["status"])
}

func TestEmitTypingExcludesTypist(t *testing.T) {
	manager := newTestManager(t)

	typist := register(t, manager, "buyer-1")
	watcher := register(t, manager, "seller-1")
	manager.JoinRoom("conv-1", typist)
	manager.JoinRoom("conv-1", watcher)

	manager.EmitTyping("conv-1", "buyer-1", true)

	assert.Equal(t, EventTyping, receive(t, watcher).Type)
	assertSilent(t, typist)
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	manager := newTestManager(t)

	client := register(t, manager, "buyer-1")
	manager.JoinRoom("conv-1", client)
	manager.LeaveRoom("conv-1", client)

	manager.EmitMessage("conv-1", &entity.Message{ID: "msg-1", Content: "gone"})

	assertSilent(t, client)
	assert.Equal(t, 0, manager.RoomSize("conv-1"))
}

func TestSlowClientIsDropped(t *testing.T) {
	manager := newTestManager(t)

	slow := register(t, manager, "buyer-1")
	manager.JoinRoom("conv-1", slow)

	// Saturate the send buffer; the next broadcast cannot be queued.
	for i := 0; i < cap(slow.Send); i++ {
		slow.Send <- []byte("backlog")
	}

	manager.EmitMessage("conv-1", &entity.Message{ID: "msg-1", Content: "overflow"})

	assert.Equal(t, 0, manager.RoomSize("conv-1"))

	// Drain: the channel must end up closed, which terminates the write pump.
	for range slow.Send {
	}
}

func TestDroppedClientCannotRejoin(t *testing.T) {
	manager := newTestManager(t)

	slow := register(t, manager, "slow-1")
	peer := register(t, manager, "peer-1")
	manager.JoinRoom("conv-1", slow)
	manager.JoinRoom("conv-1", peer)

	for i := 0; i < cap(slow.Send); i++ {
		slow.Send <- []byte("backlog")
	}
	manager.EmitMessage("conv-1", &entity.Message{ID: "msg-1", Content: "overflow"})
	receive(t, peer)

	// The dropped client's read loop is still alive and may deliver a late
	// join-chat. Joining must be refused: its Send channel is closed and a
	// subsequent broadcast would otherwise panic in the emitter's goroutine.
	manager.JoinRoom("conv-1", slow)

	assert.NotPanics(t, func() {
		manager.EmitMessage("conv-1", &entity.Message{ID: "msg-2", Content: "after drop"})
	})

	assert.Equal(t, EventReceiveMessage, receive(t, peer).Type)
	assert.Equal(t, 1, manager.RoomSize("conv-1"))
}

func TestUnregisterAfterDropIsIdempotent(t *testing.T) {
	manager := newTestManager(t)

	slow := register(t, manager, "slow-1")
	manager.JoinRoom("conv-1", slow)

	for i := 0; i < cap(slow.Send); i++ {
		slow.Send <- []byte("backlog")
	}
	manager.EmitMessage("conv-1", &entity.Message{ID: "msg-1", Content: "overflow"})

	// The read loop unregisters on exit even though the drop already removed
	// the client; the second removal must not close the channel twice.
	assert.NotPanics(t, func() {
		manager.Unregister <- slow
		// Synchronize with the run loop before asserting.
		probe := register(t, manager, "probe-1")
		manager.JoinRoom("conv-2", probe)
	})
}
