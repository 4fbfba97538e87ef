package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines listing data access
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error)
	// Activate marks a listing visible. Returns false when it was already active.
	Activate(ctx context.Context, id uuid.UUID) (bool, error)
	// ClaimPublish reserves an inactive listing for one publish attempt.
	// Claims older than staleBefore are considered abandoned and can be taken over.
	ClaimPublish(ctx context.Context, id uuid.UUID, staleBefore time.Time) (bool, error)
	// ReleasePublish drops a claim that did not end in activation.
	ReleasePublish(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates listing repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var l Listing
	err := r.db.GetContext(ctx, &l, `
		SELECT id, owner_id, title, listing_type, is_active, activated_at, created_at
		FROM listings WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("listing repository get: %w", err)
	}
	return &l, nil
}

func (r *repository) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM listings WHERE owner_id = $1 AND is_active`, userID)
	if err != nil {
		return 0, fmt.Errorf("listing repository count active: %w", err)
	}
	return count, nil
}

func (r *repository) Activate(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE listings SET is_active = true, activated_at = NOW(), publish_claimed_at = NULL
		WHERE id = $1 AND NOT is_active
	`, id)
	if err != nil {
		return false, fmt.Errorf("listing repository activate: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *repository) ClaimPublish(ctx context.Context, id uuid.UUID, staleBefore time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE listings SET publish_claimed_at = NOW()
		WHERE id = $1 AND NOT is_active
		  AND (publish_claimed_at IS NULL OR publish_claimed_at < $2)
	`, id, staleBefore)
	if err != nil {
		return false, fmt.Errorf("listing repository claim publish: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *repository) ReleasePublish(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE listings SET publish_claimed_at = NULL WHERE id = $1 AND NOT is_active
	`, id)
	if err != nil {
		return fmt.Errorf("listing repository release publish: %w", err)
	}
	return nil
}
