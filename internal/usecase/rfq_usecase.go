package usecase

import (
	"context"

	"tradelink/internal/domain/entity"
	"tradelink/internal/domain/repository"
	"tradelink/pkg/errors"
	"tradelink/pkg/logger"
)

// RFQUseCase drives the quote negotiation state machine. It owns RFQ status
// transitions exclusively; message side effects are delegated back to the
// ConversationUseCase so the log keeps a single write path.
type RFQUseCase struct {
	rfqRepo       repository.RFQRepository
	productRepo   repository.ProductRepository
	userRepo      repository.UserRepository
	conversations *ConversationUseCase
	broadcaster   RoomBroadcaster
}

func NewRFQUseCase(
	rfqRepo repository.RFQRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	conversations *ConversationUseCase,
	broadcaster RoomBroadcaster,
) *RFQUseCase {
	return &RFQUseCase{
		rfqRepo:       rfqRepo,
		productRepo:   productRepo,
		userRepo:      userRepo,
		conversations: conversations,
		broadcaster:   broadcaster,
	}
}

type CreateRFQInput struct {
	SellerID  string
	ProductID string
	Quantity  int
	Message   string
}

// CreateRFQ opens a quote negotiation: it finds or creates the rfq-typed
// conversation between buyer and seller scoped to the product, creates the
// RFQ record in Pending and appends an rfq-typed transcript message. If the
// conversation already carries an RFQ the existing record is returned, which
// keeps the one-RFQ-per-conversation invariant and makes the call idempotent.
func (uc *RFQUseCase) CreateRFQ(ctx context.Context, buyerID string, input CreateRFQInput) (*entity.RFQ, error) {
	if input.Quantity <= 0 {
		return nil, errors.InvalidQuantity("Quantity must be a positive integer")
	}
	if buyerID == input.SellerID {
		return nil, errors.InvalidParticipants("Buyer and seller must be distinct users")
	}

	if _, err := uc.userRepo.GetByID(ctx, input.SellerID); err != nil {
		return nil, errors.NotFound("Seller", err)
	}

	product, err := uc.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, errors.NotFound("Product", err)
	}

	conversation, err := uc.conversations.FindOrCreateConversation(ctx, buyerID, input.SellerID, input.ProductID, entity.ConversationTypeRFQ)
	if err != nil {
		return nil, err
	}

	if conversation.RFQID != "" {
		existing, err := uc.rfqRepo.GetByID(ctx, conversation.RFQID)
		if err == nil {
			return existing, nil
		}
		logger.Warn("CreateRFQ: conversation %s references missing RFQ %s: %v", conversation.ID, conversation.RFQID, err)
	}

	rfq := &entity.RFQ{
		BuyerID:        buyerID,
		SellerID:       input.SellerID,
		ProductID:      input.ProductID,
		ProductName:    product.Name,
		Quantity:       input.Quantity,
		Message:        input.Message,
		Status:         entity.RFQStatusPending,
		ConversationID: conversation.ID,
	}

	if err := uc.rfqRepo.Create(ctx, rfq); err != nil {
		logger.Error("CreateRFQ: failed to create RFQ for conversation %s: %v", conversation.ID, err)
		return nil, err
	}

	conversation.RFQID = rfq.ID
	if err := uc.conversations.convRepo.Update(ctx, conversation); err != nil {
		logger.Error("CreateRFQ: failed to bind RFQ %s to conversation %s: %v", rfq.ID, conversation.ID, err)
		return nil, err
	}

	content, err := entity.EncodeBody(entity.RFQRequestBody{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    input.Quantity,
		Message:     input.Message,
	})
	if err != nil {
		return nil, errors.Internal("Failed to encode RFQ message", err)
	}

	// Transcript entry only; the RFQ record stays authoritative.
	if _, err := uc.conversations.AppendMessage(ctx, buyerID, conversation.ID, content, entity.MessageTypeRFQ); err != nil {
		logger.Warn("CreateRFQ: failed to append transcript message for RFQ %s: %v", rfq.ID, err)
	}

	return rfq, nil
}

// SubmitQuote moves the RFQ from Pending to Quoted. Only the RFQ's seller may
// call it; a concurrent loser observes INVALID_TRANSITION from the store's
// conditional update, never a silent overwrite.
func (uc *RFQUseCase) SubmitQuote(ctx context.Context, sellerID, rfqID string, price float64, note string) (*entity.RFQ, error) {
	rfq, err := uc.rfqRepo.GetByID(ctx, rfqID)
	if err != nil {
		return nil, err
	}

	if rfq.SellerID != sellerID {
		return nil, errors.Forbidden("Only the RFQ's seller may submit a quote", nil)
	}

	updated, err := uc.rfqRepo.UpdateStatus(ctx, rfqID, entity.RFQStatusPending, entity.RFQStatusQuoted, func(r *entity.RFQ) {
		r.Price = price
		r.QuoteNote = note
	})
	if err != nil {
		return nil, err
	}

	content, err := entity.EncodeBody(entity.QuoteBody{
		ProductID: updated.ProductID,
		Price:     price,
		Quantity:  updated.Quantity,
		Note:      note,
	})
	if err != nil {
		return nil, errors.Internal("Failed to encode quote message", err)
	}

	if _, err := uc.conversations.AppendMessage(ctx, sellerID, updated.ConversationID, content, entity.MessageTypeQuote); err != nil {
		logger.Warn("SubmitQuote: failed to append quote message for RFQ %s: %v", rfqID, err)
	}

	// Distinct from the message emission so clients can update status badges
	// without re-parsing message content.
	uc.broadcaster.EmitStatusChange(updated.ConversationID, updated.Status)

	return updated, nil
}

// AcceptQuote moves the RFQ from Quoted to its terminal Closed state. Only
// the buyer may call it, and no message is appended: closing is a pure
// status transition.
func (uc *RFQUseCase) AcceptQuote(ctx context.Context, buyerID, rfqID string) (*entity.RFQ, error) {
	rfq, err := uc.rfqRepo.GetByID(ctx, rfqID)
	if err != nil {
		return nil, err
	}

	if rfq.BuyerID != buyerID {
		return nil, errors.Forbidden("Only the RFQ's buyer may accept a quote", nil)
	}

	updated, err := uc.rfqRepo.UpdateStatus(ctx, rfqID, entity.RFQStatusQuoted, entity.RFQStatusClosed, nil)
	if err != nil {
		return nil, err
	}

	uc.broadcaster.EmitStatusChange(updated.ConversationID, updated.Status)

	return updated, nil
}

// ListRFQs returns the caller's RFQs in the given role.
func (uc *RFQUseCase) ListRFQs(ctx context.Context, userID, role string, limit, offset int) ([]*entity.RFQ, int64, error) {
	switch role {
	case "buyer":
		return uc.rfqRepo.ListByBuyer(ctx, userID, limit, offset)
	case "seller":
		return uc.rfqRepo.ListBySeller(ctx, userID, limit, offset)
	default:
		return nil, 0, errors.BadRequest("role must be buyer or seller", nil)
	}
}

// GetRFQ returns one RFQ for either of its parties.
func (uc *RFQUseCase) GetRFQ(ctx context.Context, userID, rfqID string) (*entity.RFQ, error) {
	rfq, err := uc.rfqRepo.GetByID(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	if rfq.BuyerID != userID && rfq.SellerID != userID {
		return nil, errors.Forbidden("User is not a party to this RFQ", nil)
	}
	return rfq, nil
}
