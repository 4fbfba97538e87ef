package manualpayment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines manual payment data access
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Payment, error)
	// ListByStatus returns payments newest first. Empty listingType means any.
	ListByStatus(ctx context.Context, status Status, listingType string) ([]*ReviewItem, error)
	// MarkCompleted and MarkRejected only move pending payments.
	// They return false when the payment was no longer pending.
	MarkCompleted(ctx context.Context, id, adminID uuid.UUID, at time.Time) (bool, error)
	MarkRejected(ctx context.Context, id, adminID uuid.UUID, reason string) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates manual payment repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const paymentColumns = `
	mp.id, mp.user_id, mp.amount, mp.currency, mp.sender_phone, mp.transaction_ref,
	mp.listing_type, mp.property_id, mp.status, mp.reviewed_by, mp.rejection_reason,
	mp.created_at, mp.completed_at`

func (r *repository) Create(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO manual_payments (id, user_id, amount, currency, sender_phone, transaction_ref, listing_type, property_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.UserID,
		p.Amount,
		p.Currency,
		p.SenderPhone,
		p.TransactionRef,
		p.ListingType,
		p.PropertyID,
		p.Status,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("manual payment repository create: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM manual_payments mp WHERE mp.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("manual payment repository get: %w", err)
	}
	return &p, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM manual_payments mp WHERE mp.user_id = $1 ORDER BY mp.created_at DESC`
	payments := []*Payment{}
	if err := r.db.SelectContext(ctx, &payments, query, userID); err != nil {
		return nil, fmt.Errorf("manual payment repository list by user: %w", err)
	}
	return payments, nil
}

func (r *repository) ListByStatus(ctx context.Context, status Status, listingType string) ([]*ReviewItem, error) {
	query := `
		SELECT ` + paymentColumns + `,
			u.display_name AS submitter_name, u.email AS submitter_email
		FROM manual_payments mp
		JOIN users u ON u.id = mp.user_id
		WHERE mp.status = $1 AND ($2 = '' OR mp.listing_type = $2)
		ORDER BY mp.created_at DESC
	`
	items := []*ReviewItem{}
	if err := r.db.SelectContext(ctx, &items, query, status, listingType); err != nil {
		return nil, fmt.Errorf("manual payment repository list by status: %w", err)
	}
	return items, nil
}

func (r *repository) MarkCompleted(ctx context.Context, id, adminID uuid.UUID, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE manual_payments
		SET status = 'completed', completed_at = $3, reviewed_by = $2
		WHERE id = $1 AND status = 'pending'
	`, id, adminID, at)
	if err != nil {
		return false, fmt.Errorf("manual payment repository complete: %w", err)
	}
	return affectedOne(result)
}

func (r *repository) MarkRejected(ctx context.Context, id, adminID uuid.UUID, reason string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE manual_payments
		SET status = 'rejected', reviewed_by = $2, rejection_reason = NULLIF($3, '')
		WHERE id = $1 AND status = 'pending'
	`, id, adminID, reason)
	if err != nil {
		return false, fmt.Errorf("manual payment repository reject: %w", err)
	}
	return affectedOne(result)
}

func affectedOne(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
