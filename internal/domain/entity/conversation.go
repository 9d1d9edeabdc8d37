package entity

import "time"

type ConversationType string

const (
	ConversationTypeGeneral ConversationType = "general"
	ConversationTypeRFQ     ConversationType = "rfq"
)

// Conversation is a durable thread between two or more users, optionally
// scoped to a product and, for type "rfq", bound 1:1 to an RFQ record.
type Conversation struct {
	ID           string           `json:"id" firestore:"id"`
	Participants []string         `json:"participants" firestore:"participants"`
	ProductID    string           `json:"product_id,omitempty" firestore:"productId,omitempty"`
	RFQID        string           `json:"rfq_id,omitempty" firestore:"rfqId,omitempty"`
	Type         ConversationType `json:"type" firestore:"type"`

	// LastMessage* fields are denormalized for list views. Concurrent appends
	// resolve last-write-wins on these; they are a read optimization, not
	// authoritative state.
	LastMessageID      string    `json:"last_message_id,omitempty" firestore:"lastMessageId,omitempty"`
	LastMessagePreview string    `json:"last_message_preview,omitempty" firestore:"lastMessagePreview,omitempty"`
	LastMessageAt      time.Time `json:"last_message_at" firestore:"lastMessageAt"`

	UnreadCount map[string]int `json:"unread_count" firestore:"unreadCount"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// HasParticipant reports whether userID is a member of the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
