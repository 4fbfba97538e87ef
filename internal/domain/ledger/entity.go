package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Status of a ledger entry. Expired is derived from ExpirationDate and never stored by the service.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// Rail is the payment channel that produced an entry.
type Rail string

const (
	RailStripe      Rail = "stripe"
	RailAppStore    Rail = "app_store"
	RailMobileMoney Rail = "mobile_money"
)

// Valid reports whether r is a reconciled rail.
func (r Rail) Valid() bool {
	return r == RailStripe || r == RailAppStore || r == RailMobileMoney
}

// Entry is one reconciled purchase and its remaining spend capacity.
type Entry struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	Seq                   int64      `db:"seq" json:"-"`
	UserID                uuid.UUID  `db:"user_id" json:"user_id"`
	ProductID             string     `db:"product_id" json:"product_id"`
	Rail                  Rail       `db:"rail" json:"rail"`
	TransactionID         string     `db:"transaction_id" json:"transaction_id"`
	OriginalTransactionID *string    `db:"original_transaction_id" json:"original_transaction_id,omitempty"`
	CreditsAmount         int        `db:"credits_amount" json:"credits_amount"`
	CreditsUsed           int        `db:"credits_used" json:"credits_used"`
	PurchaseDate          time.Time  `db:"purchase_date" json:"purchase_date"`
	ExpirationDate        *time.Time `db:"expiration_date" json:"expiration_date,omitempty"`
	IsSubscription        bool       `db:"is_subscription" json:"is_subscription"`
	Status                Status     `db:"status" json:"status"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// IsExpired reports whether the entry's expiration date has passed at now.
func (e *Entry) IsExpired(now time.Time) bool {
	return e.ExpirationDate != nil && !now.Before(*e.ExpirationDate)
}

// EffectiveStatus folds the passive time-based expiry into the stored status.
func (e *Entry) EffectiveStatus(now time.Time) Status {
	if e.Status == StatusActive && e.IsExpired(now) {
		return StatusExpired
	}
	return e.Status
}

// Remaining returns unspent credits regardless of status.
func (e *Entry) Remaining() int {
	if r := e.CreditsAmount - e.CreditsUsed; r > 0 {
		return r
	}
	return 0
}

// CanConsume reports whether one credit may be spent from the entry at now.
func (e *Entry) CanConsume(now time.Time) bool {
	return e.EffectiveStatus(now) == StatusActive && e.CreditsUsed < e.CreditsAmount
}

// SubscriptionExpiry is purchaseDate plus one calendar month.
func SubscriptionExpiry(purchaseDate time.Time) time.Time {
	return purchaseDate.AddDate(0, 1, 0)
}
