package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tradelink/internal/domain/entity"
	"tradelink/pkg/errors"
)

// testClock hands out strictly increasing timestamps so ordering assertions
// do not depend on wall-clock resolution.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type memConversationRepo struct {
	clock         *testClock
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
	seq           int
}

func newMemConversationRepo(clock *testClock) *memConversationRepo {
	return &memConversationRepo{
		clock:         clock,
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
	}
}

func (r *memConversationRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *memConversationRepo) Create(ctx context.Context, conversation *entity.Conversation) error {
	conversation.ID = r.nextID("conv")
	conversation.CreatedAt = r.clock.next()
	conversation.UpdatedAt = conversation.CreatedAt
	r.conversations[conversation.ID] = conversation
	return nil
}

func (r *memConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	conversation, ok := r.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conversation, nil
}

func (r *memConversationRepo) FindByParticipants(ctx context.Context, userA, userB, productID string, convType entity.ConversationType) (*entity.Conversation, error) {
	for _, conversation := range r.conversations {
		if conversation.Type != convType || conversation.ProductID != productID {
			continue
		}
		if conversation.HasParticipant(userA) && conversation.HasParticipant(userB) && len(conversation.Participants) == 2 {
			return conversation, nil
		}
	}
	return nil, errors.NotFound("Conversation", nil)
}

func (r *memConversationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	var matched []*entity.Conversation
	for _, conversation := range r.conversations {
		if conversation.HasParticipant(userID) {
			matched = append(matched, conversation)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *memConversationRepo) Update(ctx context.Context, conversation *entity.Conversation) error {
	if _, ok := r.conversations[conversation.ID]; !ok {
		return errors.NotFound("Conversation", nil)
	}
	conversation.UpdatedAt = r.clock.next()
	r.conversations[conversation.ID] = conversation
	return nil
}

func (r *memConversationRepo) CreateMessage(ctx context.Context, message *entity.Message) error {
	message.ID = r.nextID("msg")
	message.CreatedAt = r.clock.next()
	r.messages[message.ConversationID] = append(r.messages[message.ConversationID], message)
	return nil
}

func (r *memConversationRepo) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	log := r.messages[conversationID]
	sorted := make([]*entity.Message, len(log))
	copy(sorted, log)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	total := int64(len(sorted))
	if offset >= len(sorted) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], total, nil
}

func (r *memConversationRepo) MarkMessagesRead(ctx context.Context, conversationID, readerID string) error {
	for _, message := range r.messages[conversationID] {
		if message.SenderID != readerID {
			message.Read = true
		}
	}
	return nil
}

type memRFQRepo struct {
	clock *testClock
	rfqs  map[string]*entity.RFQ
	seq   int
}

func newMemRFQRepo(clock *testClock) *memRFQRepo {
	return &memRFQRepo{clock: clock, rfqs: make(map[string]*entity.RFQ)}
}

func (r *memRFQRepo) Create(ctx context.Context, rfq *entity.RFQ) error {
	r.seq++
	rfq.ID = fmt.Sprintf("rfq-%d", r.seq)
	rfq.CreatedAt = r.clock.next()
	rfq.UpdatedAt = rfq.CreatedAt
	r.rfqs[rfq.ID] = rfq
	return nil
}

func (r *memRFQRepo) GetByID(ctx context.Context, id string) (*entity.RFQ, error) {
	rfq, ok := r.rfqs[id]
	if !ok {
		return nil, errors.NotFound("RFQ", nil)
	}
	return rfq, nil
}

func (r *memRFQRepo) listMatching(limit, offset int, match func(*entity.RFQ) bool) ([]*entity.RFQ, int64, error) {
	var matched []*entity.RFQ
	for _, rfq := range r.rfqs {
		if match(rfq) {
			matched = append(matched, rfq)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *memRFQRepo) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*entity.RFQ, int64, error) {
	return r.listMatching(limit, offset, func(rfq *entity.RFQ) bool { return rfq.BuyerID == buyerID })
}

func (r *memRFQRepo) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*entity.RFQ, int64, error) {
	return r.listMatching(limit, offset, func(rfq *entity.RFQ) bool { return rfq.SellerID == sellerID })
}

func (r *memRFQRepo) UpdateStatus(ctx context.Context, id string, expected, next entity.RFQStatus, mutate func(*entity.RFQ)) (*entity.RFQ, error) {
	rfq, ok := r.rfqs[id]
	if !ok {
		return nil, errors.NotFound("RFQ", nil)
	}
	if rfq.Status != expected {
		return nil, errors.InvalidTransition(fmt.Sprintf("RFQ status is %s, expected %s", rfq.Status, expected))
	}
	rfq.Status = next
	rfq.UpdatedAt = r.clock.next()
	if mutate != nil {
		mutate(rfq)
	}
	return rfq, nil
}

type memUserRepo struct {
	users map[string]*entity.User
}

func newMemUserRepo(users ...*entity.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*entity.User)}
	for _, user := range users {
		r.users[user.ID] = user
	}
	return r
}

func (r *memUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

type memProductRepo struct {
	products map[string]*entity.Product
}

func newMemProductRepo(products ...*entity.Product) *memProductRepo {
	r := &memProductRepo{products: make(map[string]*entity.Product)}
	for _, product := range products {
		r.products[product.ID] = product
	}
	return r
}

func (r *memProductRepo) Create(ctx context.Context, product *entity.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *memProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}
	return product, nil
}

type emittedMessage struct {
	ConversationID string
	Message        *entity.Message
}

type emittedStatus struct {
	ConversationID string
	Status         entity.RFQStatus
}

// recordingBroadcaster captures emissions in order so tests can assert on
// what reached the transport and when.
type recordingBroadcaster struct {
	mu       sync.Mutex
	Messages []emittedMessage
	Statuses []emittedStatus
}

func (b *recordingBroadcaster) EmitMessage(conversationID string, message *entity.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Messages = append(b.Messages, emittedMessage{ConversationID: conversationID, Message: message})
}

func (b *recordingBroadcaster) EmitStatusChange(conversationID string, status entity.RFQStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Statuses = append(b.Statuses, emittedStatus{ConversationID: conversationID, Status: status})
}

type fixture struct {
	clock       *testClock
	convRepo    *memConversationRepo
	rfqRepo     *memRFQRepo
	userRepo    *memUserRepo
	productRepo *memProductRepo
	broadcaster *recordingBroadcaster
	convUC      *ConversationUseCase
	rfqUC       *RFQUseCase
}

func newFixture() *fixture {
	clock := newTestClock()
	convRepo := newMemConversationRepo(clock)
	rfqRepo := newMemRFQRepo(clock)
	userRepo := newMemUserRepo(
		&entity.User{ID: "buyer-1", Username: "acme-procurement", Company: "Acme Manufacturing"},
		&entity.User{ID: "seller-1", Username: "globex-sales", Company: "Globex Industrial"},
		&entity.User{ID: "outsider-1", Username: "stranger"},
	)
	productRepo := newMemProductRepo(
		&entity.Product{ID: "prod-1", SellerID: "seller-1", Name: "Hydraulic Pump", Price: 1499.00, MinOrderQty: 10},
	)
	broadcaster := &recordingBroadcaster{}

	convUC := NewConversationUseCase(convRepo, userRepo, productRepo, broadcaster)
	rfqUC := NewRFQUseCase(rfqRepo, productRepo, userRepo, convUC, broadcaster)

	return &fixture{
		clock:       clock,
		convRepo:    convRepo,
		rfqRepo:     rfqRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		broadcaster: broadcaster,
		convUC:      convUC,
		rfqUC:       rfqUC,
	}
}
