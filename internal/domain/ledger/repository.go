package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	queryTimeout = 3 * time.Second

	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	transactionIDConstraint     = "ledger_entries_transaction_id_key"
)

// Repository defines ledger data access
type Repository interface {
	// Insert stores a new entry. Returns ErrDuplicateTransaction when the transaction id exists.
	Insert(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// GetByTransactionID returns nil, nil when no entry matches.
	GetByTransactionID(ctx context.Context, transactionID string) (*Entry, error)
	// ListByUser returns entries in consumption order: purchase date, then insertion order.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Entry, error)
	// ConsumeOne increments credits_used only if it still equals expectedUsed.
	ConsumeOne(ctx context.Context, id uuid.UUID, expectedUsed int) (bool, error)
	// ReleaseOne gives back one consumed credit. Returns false when nothing was consumed.
	ReleaseOne(ctx context.Context, id uuid.UUID) (bool, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates ledger repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const entryColumns = `
	id, seq, user_id, product_id, rail, transaction_id, original_transaction_id,
	credits_amount, credits_used, purchase_date, expiration_date, is_subscription,
	status, created_at, updated_at`

func (r *repository) Insert(ctx context.Context, e *Entry) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowxContext(ctx2, `
		INSERT INTO ledger_entries (
			id, user_id, product_id, rail, transaction_id, original_transaction_id,
			credits_amount, credits_used, purchase_date, expiration_date, is_subscription, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING seq, created_at, updated_at
	`,
		e.ID, e.UserID, e.ProductID, e.Rail, e.TransactionID, e.OriginalTransactionID,
		e.CreditsAmount, e.CreditsUsed, e.PurchaseDate, e.ExpirationDate, e.IsSubscription, e.Status,
	).Scan(&e.Seq, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if isTransactionIDViolation(err) {
			return ErrDuplicateTransaction
		}
		if isForeignKeyViolation(err) {
			return ErrUnknownUser
		}
		return fmt.Errorf("%w: insert entry: %v", ErrStorage, err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var e Entry
	err := r.db.GetContext(ctx2, &e, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("%w: get entry: %v", ErrStorage, err)
	}
	return &e, nil
}

func (r *repository) GetByTransactionID(ctx context.Context, transactionID string) (*Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var e Entry
	err := r.db.GetContext(ctx2, &e, `SELECT `+entryColumns+` FROM ledger_entries WHERE transaction_id = $1`, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get entry by transaction: %v", ErrStorage, err)
	}
	return &e, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	entries := make([]*Entry, 0)
	err := r.db.SelectContext(ctx2, &entries, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY purchase_date ASC, seq ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list entries: %v", ErrStorage, err)
	}
	return entries, nil
}

func (r *repository) ConsumeOne(ctx context.Context, id uuid.UUID, expectedUsed int) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx2, `
		UPDATE ledger_entries
		SET credits_used = credits_used + 1, updated_at = NOW()
		WHERE id = $1
		  AND credits_used = $2
		  AND credits_used < credits_amount
		  AND status = 'active'
		  AND (expiration_date IS NULL OR expiration_date > NOW())
	`, id, expectedUsed)
	if err != nil {
		return false, fmt.Errorf("%w: consume credit: %v", ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %v", ErrStorage, err)
	}
	return rows == 1, nil
}

func (r *repository) ReleaseOne(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx2, `
		UPDATE ledger_entries
		SET credits_used = credits_used - 1, updated_at = NOW()
		WHERE id = $1 AND credits_used > 0
	`, id)
	if err != nil {
		return false, fmt.Errorf("%w: release credit: %v", ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %v", ErrStorage, err)
	}
	return rows == 1, nil
}

func (r *repository) Revoke(ctx context.Context, id uuid.UUID) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx2, `
		UPDATE ledger_entries SET status = 'revoked', updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("%w: revoke entry: %v", ErrStorage, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrStorage, err)
	}
	if rows == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func isTransactionIDViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == sqlStateUniqueViolation && pqErr.Constraint == transactionIDConstraint
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == sqlStateForeignKeyViolation
}
