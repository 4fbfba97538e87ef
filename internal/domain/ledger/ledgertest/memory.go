// Package ledgertest provides an in-memory ledger.Repository that enforces the
// same uniqueness and conditional-update rules as the Postgres schema.
package ledgertest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/ledger"
)

// Memory is a concurrency-safe in-memory ledger.
type Memory struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*ledger.Entry
	byTx    map[string]uuid.UUID
	seq     int64

	// Now drives expiry checks in ConsumeOne. Defaults to time.Now.
	Now func() time.Time
	// InsertErr, when set, is returned by Insert instead of storing.
	InsertErr error
	// BeforeInsert runs before the uniqueness check; used to force races.
	BeforeInsert func()
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[uuid.UUID]*ledger.Entry),
		byTx:    make(map[string]uuid.UUID),
		Now:     time.Now,
	}
}

func (m *Memory) Insert(_ context.Context, e *ledger.Entry) error {
	if m.BeforeInsert != nil {
		m.BeforeInsert()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return m.InsertErr
	}
	if _, exists := m.byTx[e.TransactionID]; exists {
		return ledger.ErrDuplicateTransaction
	}

	m.seq++
	e.Seq = m.seq
	now := m.Now()
	e.CreatedAt, e.UpdatedAt = now, now

	stored := *e
	m.entries[e.ID] = &stored
	m.byTx[e.TransactionID] = e.ID
	return nil
}

func (m *Memory) GetByID(_ context.Context, id uuid.UUID) (*ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ledger.ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) GetByTransactionID(_ context.Context, transactionID string) (*ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byTx[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *m.entries[id]
	return &cp, nil
}

func (m *Memory) ListByUser(_ context.Context, userID uuid.UUID) ([]*ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*ledger.Entry, 0)
	for _, e := range m.entries {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PurchaseDate.Equal(out[j].PurchaseDate) {
			return out[i].PurchaseDate.Before(out[j].PurchaseDate)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (m *Memory) ConsumeOne(_ context.Context, id uuid.UUID, expectedUsed int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.CreditsUsed != expectedUsed || !e.CanConsume(m.Now()) {
		return false, nil
	}
	e.CreditsUsed++
	e.UpdatedAt = m.Now()
	return true, nil
}

func (m *Memory) ReleaseOne(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.CreditsUsed == 0 {
		return false, nil
	}
	e.CreditsUsed--
	e.UpdatedAt = m.Now()
	return true, nil
}

func (m *Memory) Revoke(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return ledger.ErrEntryNotFound
	}
	e.Status = ledger.StatusRevoked
	return nil
}

// Count returns the number of stored entries.
func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Seed stores fixture entries through Insert. It panics on a duplicate
// transaction id or a configured InsertErr so broken fixtures fail loudly.
func (m *Memory) Seed(entries ...*ledger.Entry) {
	for _, e := range entries {
		if err := m.Insert(context.Background(), e); err != nil {
			panic(fmt.Sprintf("ledgertest: seed %s: %v", e.TransactionID, err))
		}
	}
}

var _ ledger.Repository = (*Memory)(nil)
