package entitlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/catalog"
	"github.com/lazone/lazone-api/internal/domain/ledger"
)

// Summary is the read-only entitlement projection shown to the user.
type Summary struct {
	AvailableCredits       int          `json:"available_credits"`
	UsedCredits            int          `json:"used_credits"`
	TotalCredits           int          `json:"total_credits"`
	FreeCreditsLimit       int          `json:"free_credits_limit"`
	FreeCreditsRemaining   int          `json:"free_credits_remaining"`
	ActiveListings         int          `json:"active_listings"`
	ActiveSubscriptionTier catalog.Tier `json:"active_subscription_tier,omitempty"`
}

// Consumption is the outcome of one gate decision. EntryID is set when a paid
// ledger credit was spent rather than free quota.
type Consumption struct {
	Allowed bool
	UserID  uuid.UUID
	EntryID uuid.NullUUID
}

// freeRemaining never goes below zero, even when more listings are active than the limit.
func freeRemaining(limit, active int) int {
	if remaining := limit - active; remaining > 0 {
		return remaining
	}
	return 0
}

// pickEntry returns the first spendable entry in FIFO order, or nil.
// entries must already be ordered by purchase date then insertion order.
func pickEntry(entries []*ledger.Entry, now time.Time) *ledger.Entry {
	for _, e := range entries {
		if e.CanConsume(now) {
			return e
		}
	}
	return nil
}
