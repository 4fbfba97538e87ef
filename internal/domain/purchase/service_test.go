package purchase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lazone/lazone-api/internal/domain/catalog"
	"github.com/lazone/lazone-api/internal/domain/ledger"
	"github.com/lazone/lazone-api/internal/domain/ledger/ledgertest"
	"github.com/lazone/lazone-api/internal/domain/notification"
)

var fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

type subsStub struct {
	mu       sync.Mutex
	recorded map[uuid.UUID]catalog.Tier
	entries  map[uuid.UUID]uuid.UUID
	err      error
}

func (s *subsStub) RecordPurchase(_ context.Context, e *ledger.Entry, tier catalog.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.recorded == nil {
		s.recorded = map[uuid.UUID]catalog.Tier{}
		s.entries = map[uuid.UUID]uuid.UUID{}
	}
	s.recorded[e.UserID] = tier
	s.entries[e.UserID] = e.ID
	return nil
}

func (s *subsStub) ClearEntry(_ context.Context, userID, entryID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if projected, ok := s.entries[userID]; !ok || projected != entryID {
		return false, nil
	}
	delete(s.recorded, userID)
	delete(s.entries, userID)
	return true, nil
}

func (s *subsStub) tier(userID uuid.UUID) (catalog.Tier, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.recorded[userID]
	return t, ok
}

type notifierStub struct {
	mu   sync.Mutex
	sent []notification.Type
}

func (n *notifierStub) Notify(_ context.Context, _ uuid.UUID, t notification.Type, _, _ *uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, t)
}

func (n *notifierStub) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type invalidatorStub struct {
	calls atomic.Int32
}

func (i *invalidatorStub) Invalidate(context.Context, uuid.UUID) { i.calls.Add(1) }

type fixture struct {
	svc      *Service
	mem      *ledgertest.Memory
	subs     *subsStub
	notifier *notifierStub
	cache    *invalidatorStub
}

func newFixture(repo ledger.Repository, mem *ledgertest.Memory) *fixture {
	f := &fixture{mem: mem, subs: &subsStub{}, notifier: &notifierStub{}, cache: &invalidatorStub{}}
	if repo == nil {
		repo = mem
	}
	f.svc = NewService(repo, catalog.Default(), f.subs, f.notifier, f.cache)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func newMemoryFixture() *fixture {
	mem := ledgertest.NewMemory()
	mem.Now = func() time.Time { return fixedNow }
	return newFixture(nil, mem)
}

func packRequest(userID uuid.UUID, txID string) ReconcileRequest {
	return ReconcileRequest{UserID: userID, Rail: ledger.RailAppStore, ProductID: "pack5", TransactionID: txID}
}

func TestReconcileIsIdempotentForSameUser(t *testing.T) {
	f := newMemoryFixture()
	userID := uuid.New()

	first, err := f.svc.Reconcile(context.Background(), packRequest(userID, "tx-1"))
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Equal(t, 5, first.Entry.CreditsAmount)
	require.Equal(t, 0, first.Entry.CreditsUsed)

	second, err := f.svc.Reconcile(context.Background(), packRequest(userID, "tx-1"))
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.Entry.ID, second.Entry.ID)

	require.Equal(t, 1, f.mem.Count())
	require.Equal(t, 1, f.notifier.count())
}

func TestReconcileRejectsClaimJacking(t *testing.T) {
	f := newMemoryFixture()
	owner, attacker := uuid.New(), uuid.New()

	original, err := f.svc.Reconcile(context.Background(), packRequest(owner, "tx-shared"))
	require.NoError(t, err)

	_, err = f.svc.Reconcile(context.Background(), packRequest(attacker, "tx-shared"))
	require.ErrorIs(t, err, ErrFraudAttempt)
	require.NotContains(t, err.Error(), owner.String())

	require.Equal(t, 1, f.mem.Count())
	attackerEntries, err := f.mem.ListByUser(context.Background(), attacker)
	require.NoError(t, err)
	require.Empty(t, attackerEntries)

	stored, err := f.mem.GetByID(context.Background(), original.Entry.ID)
	require.NoError(t, err)
	require.Equal(t, owner, stored.UserID)
	require.Equal(t, 0, stored.CreditsUsed)
}

func TestConcurrentReconcileCreatesOneEntry(t *testing.T) {
	f := newMemoryFixture()
	userID := uuid.New()

	// hold every caller until all have passed the lookup, forcing the insert race
	const callers = 16
	var arrived sync.WaitGroup
	arrived.Add(callers)
	f.mem.BeforeInsert = func() {
		arrived.Done()
		arrived.Wait()
	}

	var wg sync.WaitGroup
	var created atomic.Int32
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Reconcile(context.Background(), packRequest(userID, "tx-race"))
			if err != nil {
				errs <- err
				return
			}
			if res.Created {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	require.Equal(t, int32(1), created.Load())
	require.Equal(t, 1, f.mem.Count())
}

// hidingRepo answers the first transaction lookup with "not found", as if
// another instance inserted the row between lookup and insert.
type hidingRepo struct {
	*ledgertest.Memory
	hidden atomic.Bool
}

func (r *hidingRepo) GetByTransactionID(ctx context.Context, id string) (*ledger.Entry, error) {
	if r.hidden.CompareAndSwap(false, true) {
		return nil, nil
	}
	return r.Memory.GetByTransactionID(ctx, id)
}

func TestInsertRaceLoserFollowsOwnershipRules(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name    string
		caller  uuid.UUID
		wantErr error
	}{
		{name: "same user is idempotent", caller: owner},
		{name: "other user is fraud", caller: uuid.New(), wantErr: ErrFraudAttempt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := ledgertest.NewMemory()
			winner := newFixture(nil, mem)
			_, err := winner.svc.Reconcile(context.Background(), packRequest(owner, "tx-late"))
			require.NoError(t, err)

			loser := newFixture(&hidingRepo{Memory: mem}, mem)
			res, err := loser.svc.Reconcile(context.Background(), packRequest(tt.caller, "tx-late"))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.False(t, res.Created)
			}
			require.Equal(t, 1, mem.Count())
			require.Zero(t, loser.notifier.count())
		})
	}
}

func TestSubscriptionExpiresOneCalendarMonthLater(t *testing.T) {
	f := newMemoryFixture()
	userID := uuid.New()
	purchased := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	res, err := f.svc.Reconcile(context.Background(), ReconcileRequest{
		UserID:        userID,
		Rail:          ledger.RailAppStore,
		ProductID:     "subscription.pro.monthly",
		TransactionID: "sub-1",
		PurchaseDate:  &purchased,
	})
	require.NoError(t, err)

	require.True(t, res.Entry.IsSubscription)
	require.NotNil(t, res.Entry.ExpirationDate)
	require.Equal(t, time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC), *res.Entry.ExpirationDate)
	require.Equal(t, catalog.TierPro, f.subs.recorded[userID])
	require.Equal(t, []notification.Type{notification.TypeSubscriptionStarted}, f.notifier.sent)
}

func TestExplicitExpirationWins(t *testing.T) {
	f := newMemoryFixture()
	expires := time.Date(2024, 1, 22, 10, 0, 0, 0, time.UTC)

	res, err := f.svc.Reconcile(context.Background(), ReconcileRequest{
		UserID:         uuid.New(),
		Rail:           ledger.RailAppStore,
		ProductID:      "subscription.premium.monthly",
		TransactionID:  "sub-2",
		ExpirationDate: &expires,
	})
	require.NoError(t, err)
	require.Equal(t, expires, *res.Entry.ExpirationDate)
}

func TestPackHasNoExpiration(t *testing.T) {
	f := newMemoryFixture()

	res, err := f.svc.Reconcile(context.Background(), packRequest(uuid.New(), "tx-pack"))
	require.NoError(t, err)
	require.False(t, res.Entry.IsSubscription)
	require.Nil(t, res.Entry.ExpirationDate)
	require.Equal(t, fixedNow, res.Entry.PurchaseDate)
	require.Empty(t, f.subs.recorded)
}

func TestUnknownProductGrantsDefaultCredit(t *testing.T) {
	f := newMemoryFixture()

	res, err := f.svc.Reconcile(context.Background(), ReconcileRequest{
		UserID: uuid.New(), Rail: ledger.RailStripe, ProductID: "legacy-pack", TransactionID: "tx-legacy",
	})
	require.NoError(t, err)
	require.Equal(t, catalog.DefaultCredits, res.Entry.CreditsAmount)
}

func TestReconcileValidation(t *testing.T) {
	f := newMemoryFixture()

	tests := []struct {
		name string
		req  ReconcileRequest
		want error
	}{
		{name: "anonymous", req: ReconcileRequest{Rail: ledger.RailAppStore, ProductID: "pack1", TransactionID: "t"}, want: ErrUnauthorized},
		{name: "no product", req: ReconcileRequest{UserID: uuid.New(), Rail: ledger.RailAppStore, TransactionID: "t"}, want: ErrInvalidRequest},
		{name: "blank transaction", req: ReconcileRequest{UserID: uuid.New(), Rail: ledger.RailAppStore, ProductID: "pack1", TransactionID: "  "}, want: ErrInvalidRequest},
		{name: "unknown rail", req: ReconcileRequest{UserID: uuid.New(), Rail: "paypal", ProductID: "pack1", TransactionID: "t"}, want: ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Reconcile(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
	require.Zero(t, f.mem.Count())
}

func TestStorageFailureIsRetryable(t *testing.T) {
	f := newMemoryFixture()
	f.mem.InsertErr = errors.New("connection refused")

	_, err := f.svc.Reconcile(context.Background(), packRequest(uuid.New(), "tx-retry"))
	require.ErrorIs(t, err, ErrStorage)

	f.mem.InsertErr = nil
	res, err := f.svc.Reconcile(context.Background(), packRequest(uuid.New(), "tx-retry"))
	require.NoError(t, err)
	require.True(t, res.Created)
}

func TestMissingAccountIsNotRetryable(t *testing.T) {
	f := newMemoryFixture()
	f.mem.InsertErr = ledger.ErrUnknownUser

	_, err := f.svc.Reconcile(context.Background(), packRequest(uuid.New(), "tx-orphan"))
	require.ErrorIs(t, err, ErrUnknownAccount)
	require.NotErrorIs(t, err, ErrStorage)
	require.Zero(t, f.notifier.count())
}

func TestProjectionFailureDoesNotFailReconcile(t *testing.T) {
	f := newMemoryFixture()
	f.subs.err = errors.New("projection down")

	res, err := f.svc.Reconcile(context.Background(), ReconcileRequest{
		UserID: uuid.New(), Rail: ledger.RailAppStore, ProductID: "subscription.pro.monthly", TransactionID: "sub-3",
	})
	require.NoError(t, err)
	require.True(t, res.Created)
}

func TestRevokeInvalidatesCache(t *testing.T) {
	f := newMemoryFixture()
	res, err := f.svc.Reconcile(context.Background(), packRequest(uuid.New(), "tx-revoke"))
	require.NoError(t, err)
	before := f.cache.calls.Load()

	entry, err := f.svc.Revoke(context.Background(), res.Entry.ID, uuid.New())
	require.NoError(t, err)
	require.Equal(t, ledger.StatusRevoked, entry.Status)
	require.Equal(t, before+1, f.cache.calls.Load())

	_, err = f.svc.Revoke(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, ledger.ErrEntryNotFound)
}

func TestRevokeFallsBackToRemainingSubscription(t *testing.T) {
	f := newMemoryFixture()
	userID := uuid.New()
	proBought := fixedNow.AddDate(0, 0, -10)

	pro, err := f.svc.Reconcile(context.Background(), ReconcileRequest{
		UserID: userID, Rail: ledger.RailAppStore, ProductID: "subscription.pro.monthly", TransactionID: "sub-pro", PurchaseDate: &proBought,
	})
	require.NoError(t, err)
	premium, err := f.svc.Reconcile(context.Background(), ReconcileRequest{
		UserID: userID, Rail: ledger.RailAppStore, ProductID: "subscription.premium.monthly", TransactionID: "sub-premium",
	})
	require.NoError(t, err)
	tier, _ := f.subs.tier(userID)
	require.Equal(t, catalog.TierPremium, tier)

	_, err = f.svc.Revoke(context.Background(), premium.Entry.ID, uuid.New())
	require.NoError(t, err)
	tier, ok := f.subs.tier(userID)
	require.True(t, ok)
	require.Equal(t, catalog.TierPro, tier)

	_, err = f.svc.Revoke(context.Background(), pro.Entry.ID, uuid.New())
	require.NoError(t, err)
	_, ok = f.subs.tier(userID)
	require.False(t, ok, "no tier may remain once every subscription is revoked")

	// a client retry of the revoked purchase must not bring the tier back
	_, err = f.svc.Reconcile(context.Background(), ReconcileRequest{
		UserID: userID, Rail: ledger.RailAppStore, ProductID: "subscription.premium.monthly", TransactionID: "sub-premium",
	})
	require.NoError(t, err)
	_, ok = f.subs.tier(userID)
	require.False(t, ok)
}

func TestRevokeOfOtherEntryKeepsSubscription(t *testing.T) {
	f := newMemoryFixture()
	userID := uuid.New()

	_, err := f.svc.Reconcile(context.Background(), ReconcileRequest{
		UserID: userID, Rail: ledger.RailAppStore, ProductID: "subscription.pro.monthly", TransactionID: "sub-keep",
	})
	require.NoError(t, err)
	pack, err := f.svc.Reconcile(context.Background(), packRequest(userID, "tx-pack"))
	require.NoError(t, err)

	_, err = f.svc.Revoke(context.Background(), pack.Entry.ID, uuid.New())
	require.NoError(t, err)
	tier, _ := f.subs.tier(userID)
	require.Equal(t, catalog.TierPro, tier)
}

func TestRevokeReportsProjectionFailure(t *testing.T) {
	f := newMemoryFixture()
	userID := uuid.New()
	res, err := f.svc.Reconcile(context.Background(), ReconcileRequest{
		UserID: userID, Rail: ledger.RailAppStore, ProductID: "subscription.pro.monthly", TransactionID: "sub-fail",
	})
	require.NoError(t, err)
	f.subs.err = errors.New("projection down")

	_, err = f.svc.Revoke(context.Background(), res.Entry.ID, uuid.New())
	require.ErrorIs(t, err, ErrStorage)

	// revoking again once storage is back finishes the job
	f.subs.err = nil
	_, err = f.svc.Revoke(context.Background(), res.Entry.ID, uuid.New())
	require.NoError(t, err)
	_, ok := f.subs.tier(userID)
	require.False(t, ok)
}

func TestGrantMobileMoneyIsIdempotentPerPayment(t *testing.T) {
	f := newMemoryFixture()
	userID, paymentID := uuid.New(), uuid.New()

	entry, err := f.svc.GrantMobileMoney(context.Background(), userID, paymentID, 8000, "XOF", fixedNow)
	require.NoError(t, err)
	require.Equal(t, ledger.RailMobileMoney, entry.Rail)
	require.Equal(t, "pack5", entry.ProductID)
	require.Equal(t, 5, entry.CreditsAmount)
	require.Equal(t, MobileMoneyTransactionID(paymentID), entry.TransactionID)

	again, err := f.svc.GrantMobileMoney(context.Background(), userID, paymentID, 8000, "XOF", fixedNow)
	require.NoError(t, err)
	require.Equal(t, entry.ID, again.ID)
	require.Equal(t, 1, f.mem.Count())

	small, err := f.svc.GrantMobileMoney(context.Background(), userID, uuid.New(), 1000, "XOF", fixedNow)
	require.NoError(t, err)
	require.Equal(t, 1, small.CreditsAmount)
}

func TestListEntriesNewestFirst(t *testing.T) {
	f := newMemoryFixture()
	userID := uuid.New()
	older := fixedNow.Add(-24 * time.Hour)

	_, err := f.svc.Reconcile(context.Background(), packRequest(userID, "tx-new"))
	require.NoError(t, err)
	req := packRequest(userID, "tx-old")
	req.PurchaseDate = &older
	_, err = f.svc.Reconcile(context.Background(), req)
	require.NoError(t, err)

	entries, err := f.svc.ListEntries(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "tx-new", entries[0].TransactionID)
}
