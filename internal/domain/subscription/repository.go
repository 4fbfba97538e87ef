package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines subscription projection data access
type Repository interface {
	// Upsert replaces the projection unless the stored one expires later.
	Upsert(ctx context.Context, c *Current) error
	// GetByUserID returns nil, nil when the user never subscribed.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Current, error)
	// DeleteByEntry drops the projection only while it still points at entryID.
	DeleteByEntry(ctx context.Context, userID, entryID uuid.UUID) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates subscription repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Upsert(ctx context.Context, c *Current) error {
	query := `
		INSERT INTO user_subscriptions (
			user_id, tier, product_id, ledger_entry_id, original_transaction_id,
			started_at, expires_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			product_id = EXCLUDED.product_id,
			ledger_entry_id = EXCLUDED.ledger_entry_id,
			original_transaction_id = EXCLUDED.original_transaction_id,
			started_at = EXCLUDED.started_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		WHERE user_subscriptions.expires_at <= EXCLUDED.expires_at
	`
	_, err := r.db.ExecContext(ctx, query,
		c.UserID,
		c.Tier,
		c.ProductID,
		c.LedgerEntryID,
		c.OriginalTransactionID,
		c.StartedAt,
		c.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("subscription upsert: %w", err)
	}
	return nil
}

func (r *repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Current, error) {
	query := `
		SELECT user_id, tier, product_id, ledger_entry_id, original_transaction_id,
		       started_at, expires_at, updated_at
		FROM user_subscriptions
		WHERE user_id = $1
	`
	var c Current
	if err := r.db.GetContext(ctx, &c, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) DeleteByEntry(ctx context.Context, userID, entryID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM user_subscriptions WHERE user_id = $1 AND ledger_entry_id = $2
	`, userID, entryID)
	if err != nil {
		return false, fmt.Errorf("subscription delete: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
