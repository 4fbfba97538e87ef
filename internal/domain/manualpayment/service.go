package manualpayment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/ledger"
	"github.com/lazone/lazone-api/internal/domain/listing"
	"github.com/lazone/lazone-api/internal/domain/notification"
	"github.com/lazone/lazone-api/internal/pkg/logger"
	"github.com/lazone/lazone-api/internal/pkg/metrics"
)

const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// ListingStore is the listing collaborator of the review workflow.
type ListingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error)
	Activate(ctx context.Context, id uuid.UUID) (bool, error)
}

// CreditGranter credits the ledger for approved payments that name no listing.
// Grants must be idempotent per payment id.
type CreditGranter interface {
	GrantMobileMoney(ctx context.Context, userID, paymentID uuid.UUID, amount float64, currency string, paidAt time.Time) (*ledger.Entry, error)
}

// Notifier delivers best-effort user notifications.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType notification.Type, actorID, entityID *uuid.UUID)
}

// CacheInvalidator drops read-side entitlement caches.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// Service runs the mobile-money review workflow.
// Approving a listing-specific payment activates that listing directly and
// writes no ledger entry. A payment without a listing is credited to the ledger.
type Service struct {
	repo        Repository
	listings    ListingStore
	credits     CreditGranter
	notifier    Notifier
	invalidator CacheInvalidator
	now         func() time.Time
}

// NewService creates manual payment service
func NewService(repo Repository, listings ListingStore, credits CreditGranter, notifier Notifier, invalidator CacheInvalidator) *Service {
	return &Service{
		repo:        repo,
		listings:    listings,
		credits:     credits,
		notifier:    notifier,
		invalidator: invalidator,
		now:         time.Now,
	}
}

// Submit records a user's transfer claim as pending.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Payment, error) {
	if in.UserID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	in.SenderPhone = strings.TrimSpace(in.SenderPhone)
	if in.Amount <= 0 || in.SenderPhone == "" || in.Currency == "" {
		return nil, ErrInvalidPayment
	}
	switch in.ListingType {
	case listing.TypeSale, listing.TypeRent, listing.TypeShortStay:
	default:
		return nil, fmt.Errorf("%w: unknown listing type", ErrInvalidPayment)
	}

	p := &Payment{
		ID:             uuid.New(),
		UserID:         in.UserID,
		Amount:         in.Amount,
		Currency:       strings.ToUpper(in.Currency),
		SenderPhone:    in.SenderPhone,
		TransactionRef: strings.TrimSpace(in.TransactionRef),
		ListingType:    in.ListingType,
		Status:         StatusPending,
		CreatedAt:      s.now().UTC(),
	}
	if p.TransactionRef == "" {
		p.TransactionRef = newTransactionRef(p.ID)
	}

	if in.PropertyID != nil {
		l, err := s.listings.GetByID(ctx, *in.PropertyID)
		if err != nil {
			return nil, err
		}
		if !l.IsOwnedBy(in.UserID) {
			return nil, listing.ErrNotListingOwner
		}
		p.PropertyID = uuid.NullUUID{UUID: l.ID, Valid: true}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Str("payment_id", p.ID.String()).
		Str("user_id", p.UserID.String()).
		Float64("amount", p.Amount).
		Str("currency", p.Currency).
		Msg("manual payment submitted")
	return p, nil
}

// ListByStatus returns the admin review queue, newest first.
func (s *Service) ListByStatus(ctx context.Context, status Status, listingType string) ([]*ReviewItem, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status", ErrInvalidPayment)
	}
	return s.repo.ListByStatus(ctx, status, listingType)
}

// ListByUser returns the caller's own payments.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Payment, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Approve completes a pending payment. Approving a completed payment again is
// a no-op, except that a missing ledger credit is granted; approving a rejected
// one is ErrInvalidTransition. Listing activation, crediting and notification
// are best effort and never undo the approval.
func (s *Service) Approve(ctx context.Context, id, adminID uuid.UUID) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case StatusCompleted:
		if !p.PropertyID.Valid {
			s.grantCredits(ctx, p)
		}
		return p, nil
	case StatusRejected:
		return nil, ErrInvalidTransition
	}

	now := s.now().UTC()
	moved, err := s.repo.MarkCompleted(ctx, id, adminID, now)
	if err != nil {
		return nil, err
	}
	if !moved {
		// a concurrent review got there first
		return s.settled(ctx, id, StatusCompleted)
	}
	p.Status = StatusCompleted
	p.CompletedAt.Time, p.CompletedAt.Valid = now, true
	p.ReviewedBy = uuid.NullUUID{UUID: adminID, Valid: true}

	if p.PropertyID.Valid {
		s.activateListing(ctx, p)
	} else {
		s.grantCredits(ctx, p)
	}

	s.notifier.Notify(ctx, p.UserID, notification.TypePaymentApproved, &adminID, &p.ID)
	s.invalidator.Invalidate(ctx, p.UserID)
	metrics.ObserveManualReview(DecisionApproved)

	logger.FromContext(ctx).Info().
		Str("payment_id", p.ID.String()).
		Str("user_id", p.UserID.String()).
		Str("admin_id", adminID.String()).
		Msg("manual payment approved")
	return p, nil
}

func (s *Service) activateListing(ctx context.Context, p *Payment) {
	log := logger.FromContext(ctx)
	activated, err := s.listings.Activate(ctx, p.PropertyID.UUID)
	switch {
	case err != nil:
		log.Warn().
			Err(err).
			Str("payment_id", p.ID.String()).
			Str("listing_id", p.PropertyID.UUID.String()).
			Msg("listing activation after payment approval failed")
	case !activated:
		log.Info().
			Str("listing_id", p.PropertyID.UUID.String()).
			Msg("listing was already active")
	}
}

// grantCredits is keyed by payment id, so approving again retries a failed grant.
func (s *Service) grantCredits(ctx context.Context, p *Payment) {
	paidAt := s.now().UTC()
	if p.CompletedAt.Valid {
		paidAt = p.CompletedAt.Time
	}
	entry, err := s.credits.GrantMobileMoney(ctx, p.UserID, p.ID, p.Amount, p.Currency, paidAt)
	if err != nil {
		logger.FromContext(ctx).Error().
			Err(err).
			Str("payment_id", p.ID.String()).
			Str("user_id", p.UserID.String()).
			Msg("ledger credit for approved payment failed, approve again to retry")
		return
	}
	logger.FromContext(ctx).Info().
		Str("payment_id", p.ID.String()).
		Str("entry_id", entry.ID.String()).
		Int("credits", entry.CreditsAmount).
		Msg("approved payment credited")
}

// Reject closes a pending payment without touching its listing.
func (s *Service) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case StatusRejected:
		return p, nil
	case StatusCompleted:
		return nil, ErrInvalidTransition
	}

	reason = strings.TrimSpace(reason)
	moved, err := s.repo.MarkRejected(ctx, id, adminID, reason)
	if err != nil {
		return nil, err
	}
	if !moved {
		return s.settled(ctx, id, StatusRejected)
	}
	p.Status = StatusRejected
	p.ReviewedBy = uuid.NullUUID{UUID: adminID, Valid: true}
	p.RejectionReason.String, p.RejectionReason.Valid = reason, reason != ""

	s.notifier.Notify(ctx, p.UserID, notification.TypePaymentRejected, &adminID, &p.ID)
	metrics.ObserveManualReview(DecisionRejected)

	logger.FromContext(ctx).Info().
		Str("payment_id", p.ID.String()).
		Str("user_id", p.UserID.String()).
		Str("admin_id", adminID.String()).
		Str("reason", reason).
		Msg("manual payment rejected")
	return p, nil
}

// settled re-reads a payment that left pending under us. Reaching the wanted
// state is a no-op success, the opposite state is a conflict.
func (s *Service) settled(ctx context.Context, id uuid.UUID, want Status) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != want {
		return nil, ErrInvalidTransition
	}
	return p, nil
}

func newTransactionRef(id uuid.UUID) string {
	return "MM-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:12])
}
