package repository

import (
	"context"

	"tradelink/internal/domain/entity"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	// FindByParticipants returns the conversation whose participant set is
	// exactly the given pair within the same product context and type, or a
	// NOT_FOUND error.
	FindByParticipants(ctx context.Context, userA, userB, productID string, convType entity.ConversationType) (*entity.Conversation, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error)
	Update(ctx context.Context, conversation *entity.Conversation) error

	// Message log. Messages are append-only; MarkMessagesRead is the only
	// permitted mutation and flips read=true on messages not sent by readerID.
	CreateMessage(ctx context.Context, message *entity.Message) error
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error)
	MarkMessagesRead(ctx context.Context, conversationID, readerID string) error
}
