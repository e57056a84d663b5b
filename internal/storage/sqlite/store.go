package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
)

// Store is a single-file SQLite implementation of storage.Store, intended
// for local runs and the admin CLI.
type Store struct {
	db *sql.DB
}

// NewStore opens path, applies migrations and returns a ready store.
func NewStore(path string) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	rows, err := s.db.QueryContext(ctx, `
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

func (s *Store) UpsertWallet(ctx context.Context, w models.Wallet) error {
	if w.Address == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (wallet_address, name, category)
		VALUES (?, ?, ?)
		ON CONFLICT (wallet_address) DO UPDATE
		SET name = excluded.name,
		    category = excluded.category
	`, w.Address, w.Name, w.Category)
	if err != nil {
		return fmt.Errorf("upsert wallet: %w", err)
	}
	return nil
}

func (s *Store) DeleteWallet(ctx context.Context, address string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM wallets WHERE wallet_address = ?`, address)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RecordAndCount upserts the pair and returns the new count in one statement.
func (s *Store) RecordAndCount(ctx context.Context, wallet, mint string) (models.HistoryResult, error) {
	if wallet == "" || mint == "" {
		return models.HistoryResult{}, storage.ErrInvalidInput
	}

	var count int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO wallet_tokens (wallet_address, mint_address, tx_count, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (wallet_address, mint_address) DO UPDATE
		SET tx_count = wallet_tokens.tx_count + 1,
		    updated_at = excluded.updated_at
		RETURNING tx_count
	`, wallet, mint, time.Now().Unix()).Scan(&count)
	if err != nil {
		return models.HistoryResult{}, fmt.Errorf("record token history: %w", err)
	}

	return models.HistoryResult{ExistedBefore: count > 1, CountAfter: count}, nil
}

func (s *Store) Get(ctx context.Context, wallet, mint string) (*models.WalletTokenHistory, error) {
	var (
		h       models.WalletTokenHistory
		updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT wallet_address, mint_address, tx_count, updated_at
		FROM wallet_tokens
		WHERE wallet_address = ? AND mint_address = ?
	`, wallet, mint).Scan(&h.WalletAddress, &h.MintAddress, &h.TxCount, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token history: %w", err)
	}
	h.UpdatedAt = time.Unix(updated, 0).UTC()
	return &h, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
