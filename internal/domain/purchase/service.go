package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lazone/lazone-api/internal/domain/catalog"
	"github.com/lazone/lazone-api/internal/domain/ledger"
	"github.com/lazone/lazone-api/internal/domain/notification"
	"github.com/lazone/lazone-api/internal/pkg/logger"
	"github.com/lazone/lazone-api/internal/pkg/metrics"
	"github.com/lazone/lazone-api/internal/pkg/stripepay"
)

// SubscriptionRecorder maintains the current-subscription projection.
type SubscriptionRecorder interface {
	RecordPurchase(ctx context.Context, entry *ledger.Entry, tier catalog.Tier) error
	ClearEntry(ctx context.Context, userID, entryID uuid.UUID) (bool, error)
}

// Notifier delivers best-effort user notifications.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType notification.Type, actorID, entityID *uuid.UUID)
}

// CacheInvalidator drops read-side entitlement caches.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// Service reconciles rail-reported purchases into the ledger
type Service struct {
	ledger        ledger.Repository
	catalog       *catalog.Catalog
	subscriptions SubscriptionRecorder
	notifier      Notifier
	invalidator   CacheInvalidator
	now           func() time.Time

	mu       sync.RWMutex
	gateways map[ledger.Rail]PaymentGateway
}

// NewService creates purchase service
func NewService(repo ledger.Repository, cat *catalog.Catalog, subs SubscriptionRecorder, notifier Notifier, invalidator CacheInvalidator) *Service {
	return &Service{
		ledger:        repo,
		catalog:       cat,
		subscriptions: subs,
		notifier:      notifier,
		invalidator:   invalidator,
		now:           time.Now,
		gateways:      make(map[ledger.Rail]PaymentGateway),
	}
}

// RegisterGateway initializes g and makes its rail available.
func (s *Service) RegisterGateway(ctx context.Context, g PaymentGateway) (Capabilities, error) {
	caps, err := g.Initialize(ctx)
	if err != nil {
		return Capabilities{}, err
	}

	s.mu.Lock()
	s.gateways[g.Rail()] = g
	s.mu.Unlock()

	logger.FromContext(ctx).Info().
		Str("rail", string(g.Rail())).
		Bool("checkout", caps.CanCheckout).
		Bool("restore", caps.CanRestore).
		Bool("webhooks", caps.Webhooks).
		Msg("payment gateway ready")
	return caps, nil
}

func (s *Service) gateway(rail ledger.Rail) (PaymentGateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.gateways[rail]
	if !ok {
		return nil, ErrRailDisabled
	}
	return g, nil
}

// Reconcile records a verified purchase exactly once.
//
// A transaction already recorded for the same user is an idempotent success.
// One recorded for another user is a fraud attempt. Concurrent first-time
// calls rely on the transaction_id unique constraint: the loser re-reads the
// winner's row and follows the same rules.
func (s *Service) Reconcile(ctx context.Context, req ReconcileRequest) (*Result, error) {
	if req.UserID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if req.ProductID == "" || req.TransactionID == "" || !req.Rail.Valid() {
		return nil, ErrInvalidRequest
	}

	existing, err := s.ledger.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, s.storageFailure(ctx, req, err)
	}
	if existing != nil {
		return s.resolveExisting(ctx, req, existing)
	}

	entry := s.newEntry(req)
	if err := s.ledger.Insert(ctx, entry); err != nil {
		if errors.Is(err, ledger.ErrUnknownUser) {
			metrics.ObserveReconcile(string(req.Rail), metrics.OutcomeRejected)
			logger.FromContext(ctx).Error().
				Str("user_id", req.UserID.String()).
				Str("transaction_id", req.TransactionID).
				Msg("purchase for an account that does not exist")
			return nil, fmt.Errorf("%w: %w", ErrUnknownAccount, err)
		}
		if !errors.Is(err, ledger.ErrDuplicateTransaction) {
			return nil, s.storageFailure(ctx, req, err)
		}
		existing, err := s.ledger.GetByTransactionID(ctx, req.TransactionID)
		if err != nil {
			return nil, s.storageFailure(ctx, req, err)
		}
		if existing == nil {
			return nil, s.storageFailure(ctx, req, errors.New("duplicate transaction vanished"))
		}
		return s.resolveExisting(ctx, req, existing)
	}

	if entry.IsSubscription {
		s.projectSubscription(ctx, entry)
	}

	notifType := notification.TypePurchaseCompleted
	if entry.IsSubscription {
		notifType = notification.TypeSubscriptionStarted
	}
	s.notifier.Notify(ctx, entry.UserID, notifType, nil, &entry.ID)
	s.invalidator.Invalidate(ctx, entry.UserID)
	metrics.ObserveReconcile(string(req.Rail), metrics.OutcomeCreated)

	logger.FromContext(ctx).Info().
		Str("user_id", entry.UserID.String()).
		Str("product_id", entry.ProductID).
		Str("transaction_id", entry.TransactionID).
		Str("rail", string(entry.Rail)).
		Int("credits", entry.CreditsAmount).
		Bool("restore", req.IsRestore).
		Msg("purchase reconciled")

	return &Result{Entry: entry, Created: true}, nil
}

func (s *Service) newEntry(req ReconcileRequest) *ledger.Entry {
	purchaseDate := s.now().UTC()
	if req.PurchaseDate != nil && !req.PurchaseDate.IsZero() {
		purchaseDate = req.PurchaseDate.UTC()
	}

	isSubscription := s.catalog.IsSubscription(req.ProductID)
	var expiration *time.Time
	switch {
	case req.ExpirationDate != nil:
		exp := req.ExpirationDate.UTC()
		expiration = &exp
	case isSubscription:
		exp := ledger.SubscriptionExpiry(purchaseDate)
		expiration = &exp
	}

	return &ledger.Entry{
		ID:                    uuid.New(),
		UserID:                req.UserID,
		ProductID:             req.ProductID,
		Rail:                  req.Rail,
		TransactionID:         req.TransactionID,
		OriginalTransactionID: req.OriginalTransactionID,
		CreditsAmount:         s.catalog.CreditsFor(req.ProductID),
		CreditsUsed:           0,
		PurchaseDate:          purchaseDate,
		ExpirationDate:        expiration,
		IsSubscription:        isSubscription,
		Status:                ledger.StatusActive,
	}
}

func (s *Service) resolveExisting(ctx context.Context, req ReconcileRequest, existing *ledger.Entry) (*Result, error) {
	if existing.UserID != req.UserID {
		metrics.ObserveReconcile(string(req.Rail), metrics.OutcomeFraud)
		logger.FromContext(ctx).Error().
			Str("user_id", req.UserID.String()).
			Str("transaction_id", req.TransactionID).
			Str("rail", string(req.Rail)).
			Bool("restore", req.IsRestore).
			Msg("transaction already claimed by another account")
		return nil, ErrFraudAttempt
	}

	// a retry after a failed projection write heals it here
	if existing.IsSubscription && existing.Status == ledger.StatusActive {
		s.projectSubscription(ctx, existing)
	}

	metrics.ObserveReconcile(string(req.Rail), metrics.OutcomeIdempotent)
	return &Result{Entry: existing, Created: false}, nil
}

func (s *Service) projectSubscription(ctx context.Context, entry *ledger.Entry) {
	tier := s.catalog.TierFor(entry.ProductID)
	if tier == catalog.TierNone {
		return
	}
	if err := s.subscriptions.RecordPurchase(ctx, entry, tier); err != nil {
		logger.FromContext(ctx).Warn().
			Err(err).
			Str("user_id", entry.UserID.String()).
			Str("entry_id", entry.ID.String()).
			Msg("subscription projection update failed")
	}
}

func (s *Service) storageFailure(ctx context.Context, req ReconcileRequest, err error) error {
	metrics.ObserveReconcile(string(req.Rail), metrics.OutcomeError)
	logger.FromContext(ctx).Error().
		Err(err).
		Str("user_id", req.UserID.String()).
		Str("transaction_id", req.TransactionID).
		Msg("purchase reconciliation storage failure")
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// VerifyAndReconcile checks claim with the rail's gateway before crediting.
// Client-reported success alone never creates a ledger entry.
func (s *Service) VerifyAndReconcile(ctx context.Context, rail ledger.Rail, claim Claim, isRestore bool) (*Result, error) {
	if claim.UserID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	g, err := s.gateway(rail)
	if err != nil {
		return nil, err
	}

	verified, err := g.Verify(ctx, claim)
	if err != nil {
		s.observeVerifyFailure(ctx, rail, claim, err)
		return nil, err
	}

	return s.Reconcile(ctx, reconcileRequestFrom(claim.UserID, rail, verified, isRestore))
}

// Restore re-reconciles every purchase in a receipt. When transactionIDs is
// non-empty only those transactions are considered. Each item succeeds or
// fails on its own.
func (s *Service) Restore(ctx context.Context, userID uuid.UUID, rail ledger.Rail, receiptData string, transactionIDs []string) ([]RestoreItem, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	g, err := s.gateway(rail)
	if err != nil {
		return nil, err
	}
	restorer, ok := g.(Restorer)
	if !ok {
		return nil, ErrRailDisabled
	}

	purchases, err := restorer.VerifyAll(ctx, userID, receiptData)
	if err != nil {
		s.observeVerifyFailure(ctx, rail, Claim{UserID: userID}, err)
		return nil, err
	}

	wanted := make(map[string]bool, len(transactionIDs))
	for _, id := range transactionIDs {
		wanted[id] = true
	}

	items := make([]RestoreItem, 0, len(purchases))
	for i := range purchases {
		vp := purchases[i]
		if len(wanted) > 0 && !wanted[vp.TransactionID] {
			continue
		}

		item := RestoreItem{TransactionID: vp.TransactionID}
		res, err := s.Reconcile(ctx, reconcileRequestFrom(userID, rail, &vp, true))
		switch {
		case err == nil:
			item.Entry, item.Created = res.Entry, res.Created
		case errors.Is(err, ErrStorage):
			return items, err
		default:
			item.Error = err.Error()
		}
		items = append(items, item)
	}
	return items, nil
}

// ReconcileStripeSession credits a paid session delivered by webhook.
// The user is taken from the session's client reference.
func (s *Service) ReconcileStripeSession(ctx context.Context, sess *stripepay.Session) (*Result, error) {
	userID, err := uuid.Parse(sess.ClientReferenceID)
	if err != nil {
		return nil, fmt.Errorf("%w: session has no user reference", ErrInvalidRequest)
	}

	verified, err := verifiedFromSession(sess, userID)
	if err != nil {
		s.observeVerifyFailure(ctx, ledger.RailStripe, Claim{UserID: userID, SessionID: sess.ID}, err)
		return nil, err
	}
	return s.Reconcile(ctx, reconcileRequestFrom(userID, ledger.RailStripe, verified, false))
}

// StartCheckout opens a hosted checkout for productID on the Stripe rail.
func (s *Service) StartCheckout(ctx context.Context, userID uuid.UUID, productID string) (*stripepay.Checkout, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	product, ok := s.catalog.Get(productID)
	if !ok {
		return nil, ErrUnknownProduct
	}

	g, err := s.gateway(ledger.RailStripe)
	if err != nil {
		return nil, err
	}
	starter, ok := g.(CheckoutStarter)
	if !ok {
		return nil, ErrRailDisabled
	}
	return starter.StartCheckout(ctx, userID, product)
}

// GrantMobileMoney credits an admin-approved mobile-money transfer that is not
// tied to a listing. The payment id is the transaction id, so repeated grants
// for the same payment are idempotent.
func (s *Service) GrantMobileMoney(ctx context.Context, userID, paymentID uuid.UUID, amount float64, currency string, paidAt time.Time) (*ledger.Entry, error) {
	product, ok := s.catalog.PackForAmount(catalog.StorefrontMobileMoney, amount, currency)
	if !ok {
		return nil, ErrUnknownProduct
	}
	res, err := s.Reconcile(ctx, ReconcileRequest{
		UserID:        userID,
		Rail:          ledger.RailMobileMoney,
		ProductID:     product.ID,
		TransactionID: MobileMoneyTransactionID(paymentID),
		PurchaseDate:  &paidAt,
	})
	if err != nil {
		return nil, err
	}
	return res.Entry, nil
}

// MobileMoneyTransactionID is the ledger transaction id of a manual payment.
func MobileMoneyTransactionID(paymentID uuid.UUID) string {
	return "mobile_money:" + paymentID.String()
}

// ListEntries returns the user's ledger, newest first.
func (s *Service) ListEntries(ctx context.Context, userID uuid.UUID) ([]*ledger.Entry, error) {
	entries, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Revoke withdraws the remaining credits of an entry. Administrative.
func (s *Service) Revoke(ctx context.Context, entryID, adminID uuid.UUID) (*ledger.Entry, error) {
	if err := s.ledger.Revoke(ctx, entryID); err != nil {
		return nil, err
	}
	entry, err := s.ledger.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.IsSubscription {
		if err := s.reprojectSubscription(ctx, entry); err != nil {
			return nil, err
		}
	}
	s.invalidator.Invalidate(ctx, entry.UserID)

	logger.FromContext(ctx).Warn().
		Str("entry_id", entryID.String()).
		Str("user_id", entry.UserID.String()).
		Str("admin_id", adminID.String()).
		Int("remaining", entry.Remaining()).
		Msg("ledger entry revoked")
	return entry, nil
}

// reprojectSubscription drops the projection built from a revoked entry and
// falls back to the user's longest-running subscription entry still active.
// Revoking again retries a failed attempt.
func (s *Service) reprojectSubscription(ctx context.Context, revoked *ledger.Entry) error {
	cleared, err := s.subscriptions.ClearEntry(ctx, revoked.UserID, revoked.ID)
	if err != nil {
		return fmt.Errorf("%w: clear subscription: %w", ErrStorage, err)
	}
	if !cleared {
		return nil
	}

	entries, err := s.ledger.ListByUser(ctx, revoked.UserID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	now := s.now()
	var next *ledger.Entry
	for _, e := range entries {
		if !e.IsSubscription || e.EffectiveStatus(now) != ledger.StatusActive || e.ExpirationDate == nil {
			continue
		}
		if s.catalog.TierFor(e.ProductID) == catalog.TierNone {
			continue
		}
		if next == nil || e.ExpirationDate.After(*next.ExpirationDate) {
			next = e
		}
	}
	if next != nil {
		if err := s.subscriptions.RecordPurchase(ctx, next, s.catalog.TierFor(next.ProductID)); err != nil {
			return fmt.Errorf("%w: project subscription: %w", ErrStorage, err)
		}
	}
	return nil
}

func (s *Service) observeVerifyFailure(ctx context.Context, rail ledger.Rail, claim Claim, err error) {
	outcome, level := metrics.OutcomeRejected, zerolog.WarnLevel
	switch {
	case errors.Is(err, ErrFraudAttempt):
		outcome, level = metrics.OutcomeFraud, zerolog.ErrorLevel
	case errors.Is(err, ErrGatewayUnavailable):
		outcome = metrics.OutcomeError
	}
	metrics.ObserveReconcile(string(rail), outcome)

	logger.FromContext(ctx).WithLevel(level).
		Err(err).
		Str("user_id", claim.UserID.String()).
		Str("rail", string(rail)).
		Str("transaction_id", claim.TransactionID).
		Msg("purchase verification failed")
}

func reconcileRequestFrom(userID uuid.UUID, rail ledger.Rail, vp *VerifiedPurchase, isRestore bool) ReconcileRequest {
	purchaseDate := vp.PurchaseDate
	return ReconcileRequest{
		UserID:                userID,
		Rail:                  rail,
		ProductID:             vp.ProductID,
		TransactionID:         vp.TransactionID,
		OriginalTransactionID: vp.OriginalTransactionID,
		PurchaseDate:          &purchaseDate,
		ExpirationDate:        vp.ExpirationDate,
		IsRestore:             isRestore,
	}
}
