package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"tradelink/internal/domain/entity"
	"tradelink/internal/domain/repository"
	"tradelink/pkg/errors"
	"tradelink/pkg/logger"
)

// ConversationUseCase owns conversation and message creation. AppendMessage
// is the single choke point for every message, human-typed or generated by
// the RFQ workflow, so the persisted log and the room broadcast cannot
// diverge between surfaces.
type ConversationUseCase struct {
	convRepo    repository.ConversationRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	broadcaster RoomBroadcaster
}

func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	broadcaster RoomBroadcaster,
) *ConversationUseCase {
	return &ConversationUseCase{
		convRepo:    convRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		broadcaster: broadcaster,
	}
}

type StartConversationInput struct {
	ReceiverID     string
	ProductID      string
	InitialMessage string
}

type ConversationResponse struct {
	*entity.Conversation
	Product   *entity.Product `json:"product,omitempty"`
	OtherUser *entity.User    `json:"other_user,omitempty"`
	RFQ       *entity.RFQ     `json:"rfq,omitempty"`
}

type MessageResponse struct {
	*entity.Message
	Body   entity.MessageBody `json:"body"`
	Sender *entity.User       `json:"sender,omitempty"`
}

// FindOrCreateConversation returns the conversation whose participant set is
// exactly {userA, userB} in the given product context, creating it on miss.
// Calling it twice with the same arguments yields the same conversation.
func (uc *ConversationUseCase) FindOrCreateConversation(ctx context.Context, userA, userB, productID string, convType entity.ConversationType) (*entity.Conversation, error) {
	if userA == userB {
		return nil, errors.InvalidParticipants("A conversation requires two distinct users")
	}

	existing, err := uc.convRepo.FindByParticipants(ctx, userA, userB, productID, convType)
	if err == nil && existing != nil {
		return existing, nil
	}
	if err != nil && !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}

	conversation := &entity.Conversation{
		Participants: []string{userA, userB},
		ProductID:    productID,
		Type:         convType,
		UnreadCount:  make(map[string]int),
	}

	if err := uc.convRepo.Create(ctx, conversation); err != nil {
		logger.Error("FindOrCreateConversation: failed to create conversation for %s/%s: %v", userA, userB, err)
		return nil, err
	}

	return conversation, nil
}

// StartConversation is the explicit "start chat" action: it resolves the
// receiver, finds or creates the general conversation and optionally appends
// an initial text message. Returns the message when one was sent.
func (uc *ConversationUseCase) StartConversation(ctx context.Context, userID string, input StartConversationInput) (*ConversationResponse, *entity.Message, error) {
	receiver, err := uc.userRepo.GetByID(ctx, input.ReceiverID)
	if err != nil {
		return nil, nil, errors.NotFound("Receiver", err)
	}

	var product *entity.Product
	if input.ProductID != "" {
		product, err = uc.productRepo.GetByID(ctx, input.ProductID)
		if err != nil {
			return nil, nil, errors.NotFound("Product", err)
		}
	}

	conversation, err := uc.FindOrCreateConversation(ctx, userID, input.ReceiverID, input.ProductID, entity.ConversationTypeGeneral)
	if err != nil {
		return nil, nil, err
	}

	var message *entity.Message
	if input.InitialMessage != "" {
		message, err = uc.AppendMessage(ctx, userID, conversation.ID, input.InitialMessage, entity.MessageTypeText)
		if err != nil {
			return nil, nil, err
		}
	}

	return &ConversationResponse{
		Conversation: conversation,
		Product:      product,
		OtherUser:    receiver,
	}, message, nil
}

// ListConversations returns the caller's conversations, most recently
// updated first, with the counterpart and product resolved for list views.
func (uc *ConversationUseCase) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationResponse, int64, error) {
	conversations, total, err := uc.convRepo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		logger.Error("ListConversations: failed for user %s: %v", userID, err)
		return nil, 0, err
	}

	responses := make([]*ConversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		responses = append(responses, uc.resolveConversation(ctx, userID, conversation))
	}

	return responses, total, nil
}

// GetConversation resolves a single conversation for a participant. Fails
// with NOT_FOUND for an unknown id and FORBIDDEN for a non-participant.
func (uc *ConversationUseCase) GetConversation(ctx context.Context, userID, conversationID string) (*ConversationResponse, error) {
	conversation, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !conversation.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	return uc.resolveConversation(ctx, userID, conversation), nil
}

// AuthorizeParticipant re-checks room membership against the store. Used by
// the real-time transport before subscribing a connection to a room.
func (uc *ConversationUseCase) AuthorizeParticipant(ctx context.Context, conversationID, userID string) error {
	conversation, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this conversation", nil)
	}
	return nil
}

// AppendMessage validates, persists and broadcasts one message. Broadcast is
// strictly downstream of persistence: a failed write emits nothing, and a
// failed emission is logged and swallowed since the message is already
// durable and will appear on the next history fetch.
func (uc *ConversationUseCase) AppendMessage(ctx context.Context, senderID, conversationID, content string, messageType entity.MessageType) (*entity.Message, error) {
	if messageType == "" {
		messageType = entity.MessageTypeText
	}
	if messageType == entity.MessageTypeText && strings.TrimSpace(content) == "" {
		return nil, errors.EmptyContent("Message content must not be empty")
	}

	conversation, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !conversation.HasParticipant(senderID) {
		logger.Warn("AppendMessage: user %s is not a participant in conversation %s", senderID, conversationID)
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	message := &entity.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           messageType,
	}

	if err := uc.convRepo.CreateMessage(ctx, message); err != nil {
		logger.Error("AppendMessage: failed to persist message in conversation %s: %v", conversationID, err)
		return nil, err
	}

	conversation.LastMessageID = message.ID
	conversation.LastMessagePreview = previewFor(message)
	conversation.LastMessageAt = message.CreatedAt
	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int)
	}
	for _, participantID := range conversation.Participants {
		if participantID != senderID {
			conversation.UnreadCount[participantID]++
		}
	}

	// The message is durable at this point; a stale pointer only degrades
	// list views until the next append.
	if err := uc.convRepo.Update(ctx, conversation); err != nil {
		logger.Warn("AppendMessage: failed to update last-message pointer on conversation %s: %v", conversationID, err)
	}

	uc.broadcaster.EmitMessage(conversationID, message)

	return message, nil
}

// ListMessages returns a page of the conversation's log, newest first, with
// senders resolved and structured bodies decoded.
func (uc *ConversationUseCase) ListMessages(ctx context.Context, userID, conversationID string, limit, offset int) ([]*MessageResponse, int64, error) {
	conversation, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}

	if !conversation.HasParticipant(userID) {
		return nil, 0, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	messages, total, err := uc.convRepo.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		logger.Error("ListMessages: failed for conversation %s: %v", conversationID, err)
		return nil, 0, err
	}

	responses := make([]*MessageResponse, 0, len(messages))
	for _, message := range messages {
		resp := &MessageResponse{Message: message, Body: message.Body()}
		if sender, err := uc.userRepo.GetByID(ctx, message.SenderID); err == nil {
			resp.Sender = sender
		}
		responses = append(responses, resp)
	}

	return responses, total, nil
}

// MarkRead flips read=true on every message not authored by the reader and
// zeroes the reader's unread counter. Idempotent.
func (uc *ConversationUseCase) MarkRead(ctx context.Context, userID, conversationID string) error {
	conversation, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	if !conversation.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this conversation", nil)
	}

	if err := uc.convRepo.MarkMessagesRead(ctx, conversationID, userID); err != nil {
		logger.Error("MarkRead: failed for conversation %s reader %s: %v", conversationID, userID, err)
		return err
	}

	if conversation.UnreadCount[userID] != 0 {
		conversation.UnreadCount[userID] = 0
		if err := uc.convRepo.Update(ctx, conversation); err != nil {
			logger.Warn("MarkRead: failed to reset unread counter on conversation %s: %v", conversationID, err)
		}
	}

	return nil
}

func (uc *ConversationUseCase) resolveConversation(ctx context.Context, userID string, conversation *entity.Conversation) *ConversationResponse {
	resp := &ConversationResponse{Conversation: conversation}

	if conversation.ProductID != "" {
		if product, err := uc.productRepo.GetByID(ctx, conversation.ProductID); err == nil {
			resp.Product = product
		} else {
			logger.Warn("resolveConversation: product %s not found for conversation %s: %v", conversation.ProductID, conversation.ID, err)
		}
	}

	for _, participantID := range conversation.Participants {
		if participantID != userID {
			if other, err := uc.userRepo.GetByID(ctx, participantID); err == nil {
				resp.OtherUser = other
			} else {
				logger.Warn("resolveConversation: user %s not found for conversation %s: %v", participantID, conversation.ID, err)
			}
			break
		}
	}

	return resp
}

func previewFor(message *entity.Message) string {
	switch body := message.Body().(type) {
	case entity.RFQRequestBody:
		return "Quote requested: " + body.ProductName
	case entity.QuoteBody:
		return "Quote submitted"
	default:
		return truncatePreview(message.Content, 120)
	}
}

// truncatePreview cuts on a rune boundary so a multi-byte character is never
// split into invalid UTF-8.
func truncatePreview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
