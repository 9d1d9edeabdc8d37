package entity

import "time"

type RFQStatus string

const (
	RFQStatusPending RFQStatus = "Pending"
	RFQStatusQuoted  RFQStatus = "Quoted"
	RFQStatusClosed  RFQStatus = "Closed"
)

// RFQ is a buyer-initiated quote negotiation. Status moves Pending -> Quoted
// -> Closed, never backwards; transitions are enforced with a conditional
// update at the store. Exactly one RFQ exists per rfq-typed conversation.
type RFQ struct {
	ID             string    `json:"id" firestore:"id"`
	BuyerID        string    `json:"buyer_id" firestore:"buyerId"`
	SellerID       string    `json:"seller_id" firestore:"sellerId"`
	ProductID      string    `json:"product_id" firestore:"productId"`
	ProductName    string    `json:"product_name" firestore:"productName"`
	Quantity       int       `json:"quantity" firestore:"quantity"`
	Message        string    `json:"message,omitempty" firestore:"message,omitempty"`
	Status         RFQStatus `json:"status" firestore:"status"`
	Price          float64   `json:"price,omitempty" firestore:"price,omitempty"`
	QuoteNote      string    `json:"quote_note,omitempty" firestore:"quoteNote,omitempty"`
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt      time.Time `json:"updated_at" firestore:"updatedAt"`
}
