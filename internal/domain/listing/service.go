package listing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/entitlement"
	"github.com/lazone/lazone-api/internal/pkg/logger"
)

// publishClaimTTL bounds how long a crashed publish can block the listing.
const publishClaimTTL = 2 * time.Minute

// CreditGate spends and refunds publishing credits.
type CreditGate interface {
	Consume(ctx context.Context, userID uuid.UUID) (entitlement.Consumption, error)
	Refund(ctx context.Context, c entitlement.Consumption) error
}

// PublishResult reports the outcome of a publish attempt.
type PublishResult struct {
	Listing   *Listing
	Published bool // false when the caller lacks credits
}

// Service publishes listings behind the credit gate
type Service struct {
	repo Repository
	gate CreditGate
	now  func() time.Time
}

// NewService creates listing service
func NewService(repo Repository, gate CreditGate) *Service {
	return &Service{repo: repo, gate: gate, now: time.Now}
}

// Publish activates a listing owned by userID after the gate allows it.
// Already active listings are returned without consuming anything.
//
// The listing is claimed before any credit is spent, so concurrent publishes
// of the same listing spend at most one credit. A credit spent on an
// activation that did not happen is refunded.
func (s *Service) Publish(ctx context.Context, userID, listingID uuid.UUID) (*PublishResult, error) {
	l, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !l.IsOwnedBy(userID) {
		return nil, ErrNotListingOwner
	}
	if l.IsActive {
		return &PublishResult{Listing: l, Published: true}, nil
	}

	claimed, err := s.repo.ClaimPublish(ctx, listingID, s.now().Add(-publishClaimTTL))
	if err != nil {
		return nil, err
	}
	if !claimed {
		return s.afterLostClaim(ctx, listingID)
	}

	c, err := s.gate.Consume(ctx, userID)
	if err != nil {
		s.release(ctx, listingID)
		return nil, err
	}
	if !c.Allowed {
		s.release(ctx, listingID)
		return &PublishResult{Listing: l, Published: false}, nil
	}

	activated, err := s.repo.Activate(ctx, listingID)
	if err != nil {
		s.refund(ctx, c, listingID)
		s.release(ctx, listingID)
		return nil, err
	}
	if !activated {
		// our claim went stale and another request finished the job
		s.refund(ctx, c, listingID)
		return s.afterLostClaim(ctx, listingID)
	}
	l.IsActive = true

	return &PublishResult{Listing: l, Published: true}, nil
}

func (s *Service) afterLostClaim(ctx context.Context, listingID uuid.UUID) (*PublishResult, error) {
	l, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.IsActive {
		return &PublishResult{Listing: l, Published: true}, nil
	}
	return nil, ErrPublishInProgress
}

func (s *Service) refund(ctx context.Context, c entitlement.Consumption, listingID uuid.UUID) {
	if err := s.gate.Refund(ctx, c); err != nil {
		logger.FromContext(ctx).Error().
			Err(err).
			Str("listing_id", listingID.String()).
			Str("user_id", c.UserID.String()).
			Msg("credit refund after failed activation failed")
	}
}

func (s *Service) release(ctx context.Context, listingID uuid.UUID) {
	if err := s.repo.ReleasePublish(ctx, listingID); err != nil {
		logger.FromContext(ctx).Warn().
			Err(err).
			Str("listing_id", listingID.String()).
			Msg("publish claim release failed")
	}
}
