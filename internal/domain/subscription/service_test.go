package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/catalog"
	"github.com/lazone/lazone-api/internal/domain/ledger"
)

type repoStub struct {
	current map[uuid.UUID]*Current
}

func newRepoStub() *repoStub {
	return &repoStub{current: map[uuid.UUID]*Current{}}
}

func (r *repoStub) Upsert(_ context.Context, c *Current) error {
	if existing, ok := r.current[c.UserID]; ok && existing.ExpiresAt.After(c.ExpiresAt) {
		return nil
	}
	cp := *c
	r.current[c.UserID] = &cp
	return nil
}

func (r *repoStub) GetByUserID(_ context.Context, userID uuid.UUID) (*Current, error) {
	return r.current[userID], nil
}

func (r *repoStub) DeleteByEntry(_ context.Context, userID, entryID uuid.UUID) (bool, error) {
	c, ok := r.current[userID]
	if !ok || c.LedgerEntryID != entryID {
		return false, nil
	}
	delete(r.current, userID)
	return true, nil
}

func TestRecordPurchaseDefaultsToOneMonth(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)
	purchased := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	entry := &ledger.Entry{ID: uuid.New(), UserID: uuid.New(), ProductID: "subscription.pro.monthly", PurchaseDate: purchased}

	if err := svc.RecordPurchase(context.Background(), entry, catalog.TierPro); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := repo.current[entry.UserID]
	want := time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)
	if got == nil || !got.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %s, got %+v", want, got)
	}
}

func TestRecordPurchaseRejectsNonSubscriptionTier(t *testing.T) {
	svc := NewService(newRepoStub())
	err := svc.RecordPurchase(context.Background(), &ledger.Entry{UserID: uuid.New()}, catalog.TierNone)
	if !errors.Is(err, ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
}

func TestActiveTier(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	running, lapsed := uuid.New(), uuid.New()
	repo.current[running] = &Current{UserID: running, Tier: catalog.TierPremium, ExpiresAt: now.Add(time.Hour)}
	repo.current[lapsed] = &Current{UserID: lapsed, Tier: catalog.TierPro, ExpiresAt: now}

	tests := []struct {
		userID uuid.UUID
		want   catalog.Tier
	}{
		{running, catalog.TierPremium},
		{lapsed, catalog.TierNone},
		{uuid.New(), catalog.TierNone},
	}
	for _, tt := range tests {
		got, err := svc.ActiveTier(context.Background(), tt.userID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestClearEntryOnlyDropsMatchingProjection(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)
	userID, projected := uuid.New(), uuid.New()
	repo.current[userID] = &Current{UserID: userID, Tier: catalog.TierPremium, LedgerEntryID: projected, ExpiresAt: time.Now().Add(time.Hour)}

	cleared, err := svc.ClearEntry(context.Background(), userID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleared || repo.current[userID] == nil {
		t.Fatal("projection of another entry must stay")
	}

	cleared, err = svc.ClearEntry(context.Background(), userID, projected)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cleared {
		t.Fatal("expected projection to be cleared")
	}
	tier, err := svc.ActiveTier(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tier != catalog.TierNone {
		t.Fatalf("expected no tier after clearing, got %q", tier)
	}
}
