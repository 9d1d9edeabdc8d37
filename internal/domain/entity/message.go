package entity

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeRFQ   MessageType = "rfq"
	MessageTypeQuote MessageType = "quote"
)

// Message is an immutable entry in a conversation's log. Content holds the
// raw payload string; for non-text types it is a serialized structured body
// decoded through Body(). Read is the only mutable field.
type Message struct {
	ID             string      `json:"id" firestore:"id"`
	ConversationID string      `json:"conversation_id" firestore:"conversationId"`
	SenderID       string      `json:"sender_id" firestore:"senderId"`
	Content        string      `json:"content" firestore:"content"`
	Type           MessageType `json:"message_type" firestore:"type"`
	Read           bool        `json:"read" firestore:"read"`
	CreatedAt      time.Time   `json:"created_at" firestore:"createdAt"`
}

// MessageBody is the decoded form of Message.Content. One variant per message
// type; malformed structured payloads decode to TextBody so consumers never
// fail on bad content.
type MessageBody interface {
	MessageType() MessageType
}

type TextBody struct {
	Text string `json:"text"`
}

func (TextBody) MessageType() MessageType { return MessageTypeText }

// RFQRequestBody is the payload of an "rfq" message: a transcript snapshot of
// the request. The RFQ record remains the authoritative state.
type RFQRequestBody struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Message     string `json:"message,omitempty"`
}

func (RFQRequestBody) MessageType() MessageType { return MessageTypeRFQ }

// QuoteBody is the payload of a "quote" message.
type QuoteBody struct {
	ProductID string  `json:"productId"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Note      string  `json:"note,omitempty"`
}

func (QuoteBody) MessageType() MessageType { return MessageTypeQuote }

// EncodeBody serializes a body into the storage content string.
func EncodeBody(body MessageBody) (string, error) {
	if text, ok := body.(TextBody); ok {
		return text.Text, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Body decodes Content according to the message type. A structured payload
// that fails to parse is returned as TextBody carrying the raw content.
func (m *Message) Body() MessageBody {
	switch m.Type {
	case MessageTypeRFQ:
		var body RFQRequestBody
		if err := json.Unmarshal([]byte(m.Content), &body); err == nil {
			return body
		}
	case MessageTypeQuote:
		var body QuoteBody
		if err := json.Unmarshal([]byte(m.Content), &body); err == nil {
			return body
		}
	}
	return TextBody{Text: m.Content}
}
