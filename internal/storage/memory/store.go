package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
)

type historyKey struct {
	wallet string
	mint   string
}

// Store is an in-memory implementation of storage.Store.
// The ledger increment holds the write lock for the whole read-modify-write,
// so concurrent calls on the same pair observe gap-free counts.
type Store struct {
	mu      sync.RWMutex
	wallets map[string]models.Wallet
	history map[historyKey]*models.WalletTokenHistory
}

// NewStore creates a new in-memory store seeded with the given wallets.
func NewStore(wallets ...models.Wallet) *Store {
	s := &Store{
		wallets: make(map[string]models.Wallet, len(wallets)),
		history: make(map[historyKey]*models.WalletTokenHistory),
	}
	for _, w := range wallets {
		s.wallets[w.Address] = w
	}
	return s
}

// ListWallets returns all wallets ordered by address.
func (s *Store) ListWallets(_ context.Context) ([]models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// UpsertWallet inserts or replaces a wallet.
func (s *Store) UpsertWallet(_ context.Context, w models.Wallet) error {
	if w.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.wallets[w.Address] = w
	return nil
}

// DeleteWallet removes a wallet by address.
func (s *Store) DeleteWallet(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[address]; !ok {
		return storage.ErrNotFound
	}
	delete(s.wallets, address)
	return nil
}

// RecordAndCount creates or increments the (wallet, mint) counter.
func (s *Store) RecordAndCount(ctx context.Context, wallet, mint string) (models.HistoryResult, error) {
	if wallet == "" || mint == "" {
		return models.HistoryResult{}, storage.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return models.HistoryResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := historyKey{wallet: wallet, mint: mint}
	h, ok := s.history[key]
	if !ok {
		s.history[key] = &models.WalletTokenHistory{
			WalletAddress: wallet,
			MintAddress:   mint,
			TxCount:       1,
			UpdatedAt:     time.Now().UTC(),
		}
		return models.HistoryResult{ExistedBefore: false, CountAfter: 1}, nil
	}

	h.TxCount++
	h.UpdatedAt = time.Now().UTC()
	return models.HistoryResult{ExistedBefore: true, CountAfter: h.TxCount}, nil
}

// Get returns a copy of the stored history for a pair.
func (s *Store) Get(_ context.Context, wallet, mint string) (*models.WalletTokenHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.history[historyKey{wallet: wallet, mint: mint}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
