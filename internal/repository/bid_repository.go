package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/thi-tutors/tutor-api/internal/models"
)

// BidRepository persists tutor bids on help requests.
type BidRepository struct {
	db *sqlx.DB
}

// NewBidRepository constructs the repository.
func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Upsert stores a bid, replacing any previous bid by the same tutor on the
// same request. One active bid per tutor per request.
func (r *BidRepository) Upsert(ctx context.Context, bid *models.Bid) error {
	if bid.ID == "" {
		bid.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if bid.CreatedAt.IsZero() {
		bid.CreatedAt = now
	}
	bid.UpdatedAt = now
	if bid.Status == "" {
		bid.Status = models.BidStatusActive
	}
	const query = `INSERT INTO bids (id, request_id, tutor_id, amount_cents, message, status, created_at, updated_at)
VALUES (:id, :request_id, :tutor_id, :amount_cents, :message, :status, :created_at, :updated_at)
ON CONFLICT (request_id, tutor_id) DO UPDATE
SET amount_cents = EXCLUDED.amount_cents,
    message = EXCLUDED.message,
    status = EXCLUDED.status,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, bid); err != nil {
		return fmt.Errorf("upsert bid: %w", err)
	}
	return nil
}

// GetByID returns a single bid.
func (r *BidRepository) GetByID(ctx context.Context, id string) (*models.Bid, error) {
	const query = `SELECT id, request_id, tutor_id, amount_cents, message, status, created_at, updated_at FROM bids WHERE id = $1`
	var bid models.Bid
	if err := r.db.GetContext(ctx, &bid, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get bid: %w", err)
	}
	return &bid, nil
}

// ListByRequest returns all bids on a request, newest first.
func (r *BidRepository) ListByRequest(ctx context.Context, requestID string) ([]models.Bid, error) {
	const query = `SELECT id, request_id, tutor_id, amount_cents, message, status, created_at, updated_at FROM bids
WHERE request_id = $1 ORDER BY created_at DESC`
	var bids []models.Bid
	if err := r.db.SelectContext(ctx, &bids, query, requestID); err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	return bids, nil
}

// UpdateStatus moves a bid through its lifecycle.
func (r *BidRepository) UpdateStatus(ctx context.Context, id string, status models.BidStatus) error {
	const query = `UPDATE bids SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update bid status: %w", err)
	}
	return nil
}
