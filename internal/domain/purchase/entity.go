package purchase

import (
	"time"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/ledger"
)

// ReconcileRequest is a purchase already vouched for by a payment rail.
type ReconcileRequest struct {
	UserID                uuid.UUID
	Rail                  ledger.Rail
	ProductID             string
	TransactionID         string
	OriginalTransactionID *string
	PurchaseDate          *time.Time // defaults to now
	ExpirationDate        *time.Time // server-validated override for subscriptions
	IsRestore             bool
}

// Result of a reconciliation. Created is false when the transaction was already recorded for the caller.
type Result struct {
	Entry   *ledger.Entry `json:"entry"`
	Created bool          `json:"created"`
}

// RestoreItem is the per-transaction outcome of a restore.
type RestoreItem struct {
	TransactionID string        `json:"transaction_id"`
	Entry         *ledger.Entry `json:"entry,omitempty"`
	Created       bool          `json:"created"`
	Error         string        `json:"error,omitempty"`
}
