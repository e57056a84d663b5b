package postgres

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
)

// Store is a PostgreSQL implementation of storage.Store.
// Uses two tables:
//   - wallets: tracked addresses with display name and category
//   - wallet_tokens: trade count per (wallet, mint)
type Store struct {
	pool *Pool
}

// NewStore creates a new PostgreSQL store.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// ListWallets returns all tracked wallets ordered by address.
func (s *Store) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT wallet_address, name, category
		FROM wallets
		ORDER BY wallet_address
	`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []models.Wallet
	for rows.Next() {
		var w models.Wallet
		if err := rows.Scan(&w.Address, &w.Name, &w.Category); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}

	return wallets, rows.Err()
}

// UpsertWallet inserts or replaces a wallet by address.
func (s *Store) UpsertWallet(ctx context.Context, w models.Wallet) error {
	if w.Address == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO wallets (wallet_address, name, category)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet_address) DO UPDATE
		SET name = EXCLUDED.name,
		    category = EXCLUDED.category
	`, w.Address, w.Name, w.Category)
	if err != nil {
		return fmt.Errorf("upsert wallet: %w", err)
	}
	return nil
}

// DeleteWallet removes a wallet. History rows are kept.
func (s *Store) DeleteWallet(ctx context.Context, address string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM wallets WHERE wallet_address = $1`, address)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RecordAndCount inserts the pair with count 1 or increments it in a single
// statement. Postgres row locks on the conflicting key serialise concurrent
// callers, so each sees a distinct count.
func (s *Store) RecordAndCount(ctx context.Context, wallet, mint string) (models.HistoryResult, error) {
	if wallet == "" || mint == "" {
		return models.HistoryResult{}, storage.ErrInvalidInput
	}

	var count int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO wallet_tokens (wallet_address, mint_address, tx_count, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (wallet_address, mint_address) DO UPDATE
		SET tx_count = wallet_tokens.tx_count + 1,
		    updated_at = NOW()
		RETURNING tx_count
	`, wallet, mint).Scan(&count)
	if err != nil {
		return models.HistoryResult{}, fmt.Errorf("record token history: %w", err)
	}

	return models.HistoryResult{ExistedBefore: count > 1, CountAfter: count}, nil
}

// Get returns the history for a pair.
func (s *Store) Get(ctx context.Context, wallet, mint string) (*models.WalletTokenHistory, error) {
	var h models.WalletTokenHistory
	err := s.pool.QueryRow(ctx, `
		SELECT wallet_address, mint_address, tx_count, updated_at
		FROM wallet_tokens
		WHERE wallet_address = $1 AND mint_address = $2
	`, wallet, mint).Scan(&h.WalletAddress, &h.MintAddress, &h.TxCount, &h.UpdatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token history: %w", err)
	}
	return &h, nil
}

// Ping checks if the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
