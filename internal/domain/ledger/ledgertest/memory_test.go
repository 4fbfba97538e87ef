package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazone/lazone-api/internal/domain/ledger"
)

func entry(txID string, credits int) *ledger.Entry {
	return &ledger.Entry{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		ProductID:     "pack1",
		Rail:          ledger.RailAppStore,
		TransactionID: txID,
		CreditsAmount: credits,
		PurchaseDate:  time.Now().UTC(),
		Status:        ledger.StatusActive,
	}
}

func TestSeedPanicsOnDuplicateTransaction(t *testing.T) {
	mem := NewMemory()
	mem.Seed(entry("tx-1", 1))

	assert.Panics(t, func() { mem.Seed(entry("tx-1", 1)) })
	assert.Equal(t, 1, mem.Count())
}

func TestReleaseOneUndoesConsume(t *testing.T) {
	mem := NewMemory()
	e := entry("tx-1", 2)
	mem.Seed(e)
	ctx := context.Background()

	ok, err := mem.ConsumeOne(ctx, e.ID, 0)
	require.NoError(t, err)
	require.True(t, ok)

	released, err := mem.ReleaseOne(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, released)

	released, err = mem.ReleaseOne(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, released)

	stored, err := mem.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CreditsUsed)
}
