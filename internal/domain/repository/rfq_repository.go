package repository

import (
	"context"

	"tradelink/internal/domain/entity"
)

type RFQRepository interface {
	Create(ctx context.Context, rfq *entity.RFQ) error
	GetByID(ctx context.Context, id string) (*entity.RFQ, error)
	ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*entity.RFQ, int64, error)
	ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*entity.RFQ, int64, error)
	// UpdateStatus transitions the RFQ from the expected status to the next
	// one atomically, applying mutate to the record inside the transaction.
	// When the stored status no longer matches expected it fails with
	// INVALID_TRANSITION and leaves the record unchanged.
	UpdateStatus(ctx context.Context, id string, expected, next entity.RFQStatus, mutate func(*entity.RFQ)) (*entity.RFQ, error)
}
