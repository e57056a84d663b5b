// Package backend opens the configured wallet registry / history ledger store.
package backend

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/config"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage/memory"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage/postgres"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage/sqlite"
)

// Open connects to the store selected by cfg.StoreDriver and applies
// migrations. The caller owns the returned store and must Close it.
func Open(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return postgres.NewStore(pool), nil

	case config.DriverSQLite:
		return sqlite.NewStore(cfg.SQLitePath)

	case config.DriverMemory:
		return memory.NewStore(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
