package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/catalog"
	"github.com/lazone/lazone-api/internal/domain/ledger"
	"github.com/lazone/lazone-api/internal/domain/user"
	"github.com/lazone/lazone-api/internal/pkg/logger"
	"github.com/lazone/lazone-api/internal/pkg/metrics"
)

// maxConsumeAttempts bounds retries when a conditional update loses a race.
// Every lost race means another caller spent a credit, so retries make progress.
const maxConsumeAttempts = 10

// ListingCounter counts the user's currently active listings.
type ListingCounter interface {
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// AccountTypeReader resolves the account type behind the free quota.
type AccountTypeReader interface {
	GetAccountType(ctx context.Context, userID uuid.UUID) (user.AccountType, error)
}

// TierReader returns the running subscription tier.
type TierReader interface {
	ActiveTier(ctx context.Context, userID uuid.UUID) (catalog.Tier, error)
}

// Service is the credit consumption gate and entitlement read model.
type Service struct {
	ledger   ledger.Repository
	listings ListingCounter
	accounts AccountTypeReader
	tiers    TierReader
	cache    Cache
	now      func() time.Time
}

// NewService creates entitlement service. cache may be nil.
func NewService(ledgerRepo ledger.Repository, listings ListingCounter, accounts AccountTypeReader, tiers TierReader, cache Cache) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	return &Service{
		ledger:   ledgerRepo,
		listings: listings,
		accounts: accounts,
		tiers:    tiers,
		cache:    cache,
		now:      time.Now,
	}
}

// TryConsumeCredit decides whether userID may publish one more listing.
// Free quota is checked first and never mutated; otherwise one ledger credit
// is spent from the oldest entry with spare capacity.
func (s *Service) TryConsumeCredit(ctx context.Context, userID uuid.UUID) (bool, error) {
	c, err := s.Consume(ctx, userID)
	if err != nil {
		return false, err
	}
	return c.Allowed, nil
}

// Consume is TryConsumeCredit returning where the credit came from, so a
// caller whose follow-up action fails can hand it back with Refund.
func (s *Service) Consume(ctx context.Context, userID uuid.UUID) (Consumption, error) {
	limit, active, err := s.freeQuota(ctx, userID)
	if err != nil {
		return Consumption{}, err
	}
	if freeRemaining(limit, active) > 0 {
		metrics.ObserveConsume(metrics.SourceFree)
		s.cache.Invalidate(ctx, userID)
		return Consumption{Allowed: true, UserID: userID}, nil
	}

	for attempt := 0; attempt < maxConsumeAttempts; attempt++ {
		entries, err := s.ledger.ListByUser(ctx, userID)
		if err != nil {
			return Consumption{}, fmt.Errorf("%w: list entries: %w", ErrStorage, err)
		}

		entry := pickEntry(entries, s.now())
		if entry == nil {
			metrics.ObserveConsume(metrics.SourceDenied)
			return Consumption{UserID: userID}, nil
		}

		ok, err := s.ledger.ConsumeOne(ctx, entry.ID, entry.CreditsUsed)
		if err != nil {
			return Consumption{}, fmt.Errorf("%w: consume: %w", ErrStorage, err)
		}
		if ok {
			metrics.ObserveConsume(metrics.SourceLedger)
			s.cache.Invalidate(ctx, userID)
			logger.FromContext(ctx).Debug().
				Str("user_id", userID.String()).
				Str("entry_id", entry.ID.String()).
				Int("attempt", attempt+1).
				Msg("credit consumed")
			return Consumption{Allowed: true, UserID: userID, EntryID: uuid.NullUUID{UUID: entry.ID, Valid: true}}, nil
		}
	}

	logger.FromContext(ctx).Warn().
		Str("user_id", userID.String()).
		Int("attempts", maxConsumeAttempts).
		Msg("credit consumption gave up after repeated conflicts")
	return Consumption{}, ErrContention
}

// Refund returns a credit taken by Consume. Free-quota grants have nothing to
// give back since the quota is derived from active listings.
func (s *Service) Refund(ctx context.Context, c Consumption) error {
	if !c.Allowed || !c.EntryID.Valid {
		return nil
	}
	released, err := s.ledger.ReleaseOne(ctx, c.EntryID.UUID)
	if err != nil {
		return fmt.Errorf("%w: refund: %w", ErrStorage, err)
	}
	s.cache.Invalidate(ctx, c.UserID)

	logger.FromContext(ctx).Info().
		Str("user_id", c.UserID.String()).
		Str("entry_id", c.EntryID.UUID.String()).
		Bool("released", released).
		Msg("credit refunded")
	return nil
}

// GetEntitlementSummary returns credit totals for display. Expired and revoked
// entries are not counted.
func (s *Service) GetEntitlementSummary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}

	limit, active, err := s.freeQuota(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list entries: %w", ErrStorage, err)
	}

	summary := &Summary{
		FreeCreditsLimit:     limit,
		FreeCreditsRemaining: freeRemaining(limit, active),
		ActiveListings:       active,
	}
	now := s.now()
	for _, e := range entries {
		if e.EffectiveStatus(now) != ledger.StatusActive {
			continue
		}
		summary.TotalCredits += e.CreditsAmount
		summary.UsedCredits += e.CreditsUsed
	}
	summary.AvailableCredits = summary.TotalCredits - summary.UsedCredits

	if s.tiers != nil {
		tier, err := s.tiers.ActiveTier(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: subscription tier: %w", ErrStorage, err)
		}
		summary.ActiveSubscriptionTier = tier
	}

	s.cache.Set(ctx, userID, summary)
	return summary, nil
}

// Invalidate drops the cached summary after an external mutation.
func (s *Service) Invalidate(ctx context.Context, userID uuid.UUID) {
	s.cache.Invalidate(ctx, userID)
}

func (s *Service) freeQuota(ctx context.Context, userID uuid.UUID) (limit, active int, err error) {
	accountType, err := s.accounts.GetAccountType(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return 0, 0, fmt.Errorf("%w: %w", ErrUnknownUser, err)
		}
		return 0, 0, fmt.Errorf("%w: account type: %w", ErrStorage, err)
	}
	active, err = s.listings.CountActiveByUser(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: active listings: %w", ErrStorage, err)
	}
	return user.FreeCreditsLimit(accountType), active, nil
}
