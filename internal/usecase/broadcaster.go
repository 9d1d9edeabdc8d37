package usecase

import "tradelink/internal/domain/entity"

// RoomBroadcaster fans persisted events out to the live connections joined to
// a conversation's room. Emission is strictly downstream of a successful
// store write; implementations must not block the caller and delivery is
// best-effort (disconnected clients catch up through the REST history fetch).
type RoomBroadcaster interface {
	EmitMessage(conversationID string, message *entity.Message)
	EmitStatusChange(conversationID string, status entity.RFQStatus)
}

// NopBroadcaster discards all events. Used where no live transport exists.
type NopBroadcaster struct{}

func (NopBroadcaster) EmitMessage(string, *entity.Message)       {}
func (NopBroadcaster) EmitStatusChange(string, entity.RFQStatus) {}
