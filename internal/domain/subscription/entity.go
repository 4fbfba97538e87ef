package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/catalog"
)

// Current is the denormalized "current subscription" projection, one row per user.
// The ledger stays the source of truth; this only speeds up tier lookups.
type Current struct {
	UserID                uuid.UUID    `db:"user_id" json:"user_id"`
	Tier                  catalog.Tier `db:"tier" json:"tier"`
	ProductID             string       `db:"product_id" json:"product_id"`
	LedgerEntryID         uuid.UUID    `db:"ledger_entry_id" json:"ledger_entry_id"`
	OriginalTransactionID *string      `db:"original_transaction_id" json:"original_transaction_id,omitempty"`
	StartedAt             time.Time    `db:"started_at" json:"started_at"`
	ExpiresAt             time.Time    `db:"expires_at" json:"expires_at"`
	UpdatedAt             time.Time    `db:"updated_at" json:"updated_at"`
}

// IsActive checks if the subscription still runs at now
func (c *Current) IsActive(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}

