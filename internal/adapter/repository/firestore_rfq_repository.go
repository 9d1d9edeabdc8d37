package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tradelink/internal/domain/entity"
	"tradelink/internal/domain/repository"
	"tradelink/pkg/errors"
	"tradelink/pkg/logger"
)

type firestoreRFQRepository struct {
	client *firestore.Client
}

func NewFirestoreRFQRepository(client *firestore.Client) repository.RFQRepository {
	return &firestoreRFQRepository{client: client}
}

func (r *firestoreRFQRepository) Create(ctx context.Context, rfq *entity.RFQ) error {
	if rfq.ID == "" {
		rfq.ID = uuid.New().String()
	}

	now := time.Now()
	rfq.CreatedAt = now
	rfq.UpdatedAt = now

	_, err := r.client.Collection("rfqs").Doc(rfq.ID).Set(ctx, rfq)
	if err != nil {
		return errors.Internal("Failed to create RFQ", err)
	}

	return nil
}

func (r *firestoreRFQRepository) GetByID(ctx context.Context, id string) (*entity.RFQ, error) {
	doc, err := r.client.Collection("rfqs").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("RFQ", err)
		}
		return nil, errors.Internal("Failed to get RFQ", err)
	}

	var rfq entity.RFQ
	if err := doc.DataTo(&rfq); err != nil {
		return nil, errors.Internal("Failed to parse RFQ data", err)
	}

	return &rfq, nil
}

func (r *firestoreRFQRepository) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*entity.RFQ, int64, error) {
	return r.listByField(ctx, "buyerId", buyerID, limit, offset)
}

func (r *firestoreRFQRepository) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*entity.RFQ, int64, error) {
	return r.listByField(ctx, "sellerId", sellerID, limit, offset)
}

func (r *firestoreRFQRepository) listByField(ctx context.Context, field, value string, limit, offset int) ([]*entity.RFQ, int64, error) {
	query := r.client.Collection("rfqs").
		Where(field, "==", value).
		OrderBy("updatedAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("listByField: firestore query failed for %s=%s: %v", field, value, err)
		return nil, 0, errors.Internal("Failed to fetch RFQs", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var rfqs []*entity.RFQ
	for i := start; i < end; i++ {
		var rfq entity.RFQ
		if err := allDocs[i].DataTo(&rfq); err != nil {
			logger.Warn("listByField: skipping malformed RFQ document: %v", err)
			continue
		}
		rfqs = append(rfqs, &rfq)
	}

	return rfqs, total, nil
}

// UpdateStatus performs the conditional transition inside a Firestore
// transaction: read, compare to the expected status, write. A stale
// expectation aborts with INVALID_TRANSITION and leaves the document
// untouched, so concurrent writers race to exactly one winner.
func (r *firestoreRFQRepository) UpdateStatus(ctx context.Context, id string, expected, next entity.RFQStatus, mutate func(*entity.RFQ)) (*entity.RFQ, error) {
	ref := r.client.Collection("rfqs").Doc(id)
	var out entity.RFQ

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("RFQ", err)
			}
			return errors.Internal("Failed to get RFQ", err)
		}

		if err := doc.DataTo(&out); err != nil {
			return errors.Internal("Failed to parse RFQ data", err)
		}

		if out.Status != expected {
			return errors.InvalidTransition(fmt.Sprintf("RFQ status is %s, expected %s", out.Status, expected))
		}

		out.Status = next
		out.UpdatedAt = time.Now()
		if mutate != nil {
			mutate(&out)
		}

		return tx.Set(ref, &out)
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}
