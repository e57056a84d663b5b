package sqlite

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Wallets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	wallets, err := store.ListWallets(ctx)
	require.NoError(t, err)
	assert.Empty(t, wallets)

	require.NoError(t, store.UpsertWallet(ctx, models.Wallet{Address: "W2", Name: "insider", Category: "Insider"}))
	require.NoError(t, store.UpsertWallet(ctx, models.Wallet{Address: "W1", Name: "kol", Category: "KOL"}))
	require.NoError(t, store.UpsertWallet(ctx, models.Wallet{Address: "W1", Name: "kol two", Category: "KOL"}))

	wallets, err = store.ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, models.Wallet{Address: "W1", Name: "kol two", Category: "KOL"}, wallets[0])

	assert.ErrorIs(t, store.UpsertWallet(ctx, models.Wallet{}), storage.ErrInvalidInput)
	require.NoError(t, store.DeleteWallet(ctx, "W2"))
	assert.ErrorIs(t, store.DeleteWallet(ctx, "W2"), storage.ErrNotFound)
}

func TestStore_RecordAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "W", "M")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	res, err := store.RecordAndCount(ctx, "W", "M")
	require.NoError(t, err)
	assert.Equal(t, models.HistoryResult{ExistedBefore: false, CountAfter: 1}, res)

	res, err = store.RecordAndCount(ctx, "W", "M")
	require.NoError(t, err)
	assert.Equal(t, models.HistoryResult{ExistedBefore: true, CountAfter: 2}, res)

	// Pairs are independent
	res, err = store.RecordAndCount(ctx, "W", "M2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.CountAfter)

	h, err := store.Get(ctx, "W", "M")
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.TxCount)
	assert.Equal(t, "M", h.MintAddress)
	assert.False(t, h.UpdatedAt.IsZero())

	_, err = store.RecordAndCount(ctx, "", "M")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestStore_RecordAndCountConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const n = 64
	counts := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := store.RecordAndCount(ctx, "W", "M")
			assert.NoError(t, err)
			counts[i] = res.CountAfter
		}(i)
	}
	wg.Wait()

	sort.Slice(counts, func(i, j int) bool { return counts[i] < counts[j] })
	for i, c := range counts {
		assert.Equal(t, int64(i+1), c)
	}

	h, err := store.Get(ctx, "W", "M")
	require.NoError(t, err)
	assert.Equal(t, int64(n), h.TxCount)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	ctx := context.Background()

	store, err := NewStore(path)
	require.NoError(t, err)
	_, err = store.RecordAndCount(ctx, "W", "M")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Migrations are a no-op the second time and data survives
	store, err = NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	res, err := store.RecordAndCount(ctx, "W", "M")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.CountAfter)
	assert.True(t, res.ExistedBefore)
}
