package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/catalog"
	"github.com/lazone/lazone-api/internal/domain/ledger"
)

// Service maintains the current-subscription projection
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates subscription service
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// RecordPurchase projects a reconciled subscription ledger entry.
func (s *Service) RecordPurchase(ctx context.Context, entry *ledger.Entry, tier catalog.Tier) error {
	if tier != catalog.TierPro && tier != catalog.TierPremium {
		return ErrInvalidTier
	}

	expiresAt := ledger.SubscriptionExpiry(entry.PurchaseDate)
	if entry.ExpirationDate != nil {
		expiresAt = *entry.ExpirationDate
	}

	return s.repo.Upsert(ctx, &Current{
		UserID:                entry.UserID,
		Tier:                  tier,
		ProductID:             entry.ProductID,
		LedgerEntryID:         entry.ID,
		OriginalTransactionID: entry.OriginalTransactionID,
		StartedAt:             entry.PurchaseDate,
		ExpiresAt:             expiresAt,
	})
}

// ClearEntry removes the projection when it was built from entryID, which
// happens when that ledger entry is revoked. Returns whether anything changed.
func (s *Service) ClearEntry(ctx context.Context, userID, entryID uuid.UUID) (bool, error) {
	return s.repo.DeleteByEntry(ctx, userID, entryID)
}

// ActiveTier returns the user's running tier, or TierNone.
func (s *Service) ActiveTier(ctx context.Context, userID uuid.UUID) (catalog.Tier, error) {
	c, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return catalog.TierNone, err
	}
	if c == nil || !c.IsActive(s.now()) {
		return catalog.TierNone, nil
	}
	return c.Tier, nil
}
