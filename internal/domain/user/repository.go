package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines user data access interface
type Repository interface {
	// GetAccountType returns the account type used for free-quota computation.
	GetAccountType(ctx context.Context, id uuid.UUID) (AccountType, error)
}

// repository implements Repository
type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// GetAccountType reads users.account_type; a missing row is ErrUserNotFound
func (r *repository) GetAccountType(ctx context.Context, id uuid.UUID) (AccountType, error) {
	var t AccountType
	err := r.db.GetContext(ctx, &t, `SELECT account_type FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("user repository account type: %w", err)
	}
	return t, nil
}
