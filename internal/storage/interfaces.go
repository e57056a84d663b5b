package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
)

// WalletSource is the persistent side of the wallet registry.
type WalletSource interface {
	// ListWallets returns every tracked wallet. An empty registry is not an error.
	ListWallets(ctx context.Context) ([]models.Wallet, error)
}

// WalletRegistry resolves tracked addresses. The core only reads it.
type WalletRegistry interface {
	// ListAddresses returns the set of tracked addresses.
	ListAddresses(ctx context.Context) (map[string]struct{}, error)

	// Lookup returns display details, or models.UnknownWallet when the
	// address is not tracked.
	Lookup(ctx context.Context, address string) (models.WalletDetails, error)
}

// WalletAdmin is used by the admin tooling to maintain the registry.
type WalletAdmin interface {
	WalletSource

	// UpsertWallet inserts or replaces a wallet by address.
	UpsertWallet(ctx context.Context, w models.Wallet) error

	// DeleteWallet removes a wallet. Returns ErrNotFound if it does not exist.
	DeleteWallet(ctx context.Context, address string) error
}

// HistoryLedger counts trade-relevant transactions per (wallet, mint).
type HistoryLedger interface {
	// RecordAndCount atomically creates the pair with count 1 or increments
	// it, and reports whether it existed before and the count after.
	// On failure nothing is applied and an error is returned.
	RecordAndCount(ctx context.Context, wallet, mint string) (models.HistoryResult, error)

	// Get returns the stored history for a pair. Returns ErrNotFound if absent.
	Get(ctx context.Context, wallet, mint string) (*models.WalletTokenHistory, error)
}

// Store is a persistent backend serving both the registry and the ledger.
type Store interface {
	WalletAdmin
	HistoryLedger

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// TradeSink receives every classified trade.
type TradeSink interface {
	PublishTrade(ctx context.Context, trade *models.NormalizedTrade) error
}

// TradeArchive persists classified trades for analytics.
type TradeArchive interface {
	InsertTrade(ctx context.Context, trade *models.NormalizedTrade) error

	// Ping checks if the archive is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// RecentTrades serves the most recent classified trades.
type RecentTrades interface {
	GetRecentTrades(ctx context.Context, limit int64) ([]*models.NormalizedTrade, error)
}
