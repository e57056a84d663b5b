package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage/migrations"
)

// ClickHouseConfig holds the archive connection settings.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore archives classified trades in the wallet_trades table.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

var _ storage.TradeArchive = (*ClickHouseStore)(nil)

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

// Migrate creates the archive table if it does not exist.
func (c *ClickHouseStore) Migrate(ctx context.Context) error {
	scripts, err := migrations.Clickhouse()
	if err != nil {
		return err
	}
	for _, s := range scripts {
		if err := c.conn.Exec(ctx, s.SQL); err != nil {
			return fmt.Errorf("apply clickhouse migration %s: %w", s.Name, err)
		}
	}
	return nil
}

func (c *ClickHouseStore) InsertTrade(ctx context.Context, trade *models.NormalizedTrade) error {
	query := `
		INSERT INTO wallet_trades (
			id, processed_at, signature, wallet, wallet_name, wallet_category,
			type, parsed_type, trade, mint, token_amount,
			repeat_count, has_prior_interaction, degraded, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	amount, _ := trade.TokenAmount.Float64()

	err := c.conn.Exec(ctx, query,
		uuid.New(),
		trade.ProcessedAt,
		trade.Signature,
		trade.Wallet,
		trade.WalletName,
		trade.WalletCategory,
		trade.RawType,
		trade.ParsedType,
		trade.TradeDirection,
		trade.Mint,
		amount,
		uint32(trade.RepeatCount),
		boolToUInt8(trade.HasPriorInteraction),
		boolToUInt8(trade.Degraded),
		trade.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
