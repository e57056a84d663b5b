// ============================================================================
// cache/redis.go - Redis trade feed, recent-trades list and redelivery dedupe
// ============================================================================
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/constants"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
)

// RedisCache publishes classified trades and keeps a bounded list of the
// most recent ones.
type RedisCache struct {
	client  *redis.Client
	logger  *logrus.Logger
	maxKept int64
}

var (
	_ storage.TradeSink    = (*RedisCache)(nil)
	_ storage.RecentTrades = (*RedisCache)(nil)
)

// NewRedisCacheFromClient wraps an existing client; the caller owns it.
func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{
		client:  client,
		logger:  logger,
		maxKept: constants.MaxRecentTrades,
	}
}

// PublishTrade pushes the trade onto the recent list and fans it out to its
// channels in one round trip.
func (r *RedisCache) PublishTrade(ctx context.Context, trade *models.NormalizedTrade) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentTrades, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentTrades, 0, r.maxKept-1)
	for _, channel := range Channels(trade) {
		pipe.Publish(ctx, channel, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish trade: %w", err)
	}
	return nil
}

// GetRecentTrades returns up to limit trades, newest first.
func (r *RedisCache) GetRecentTrades(ctx context.Context, limit int64) ([]*models.NormalizedTrade, error) {
	if limit <= 0 || limit > r.maxKept {
		limit = r.maxKept
	}

	raw, err := r.client.LRange(ctx, constants.RedisKeyRecentTrades, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent trades: %w", err)
	}

	trades := make([]*models.NormalizedTrade, 0, len(raw))
	for _, item := range raw {
		var t models.NormalizedTrade
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			r.logger.WithError(err).Warn("skipping malformed cached trade")
			continue
		}
		trades = append(trades, &t)
	}
	return trades, nil
}

// MarkSeen records a transaction signature and reports whether this is the
// first time it was seen within ttl.
func (r *RedisCache) MarkSeen(ctx context.Context, signature string, ttl time.Duration) (bool, error) {
	if signature == "" {
		return true, nil
	}
	if ttl <= 0 {
		ttl = constants.SeenSignatureTTL
	}

	ok, err := r.client.SetNX(ctx, constants.RedisKeySeenSignature+signature, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark signature seen: %w", err)
	}
	return ok, nil
}

// Forget drops a seen marker so a redelivery of the signature is processed.
func (r *RedisCache) Forget(ctx context.Context, signature string) error {
	err := r.client.Del(ctx, constants.RedisKeySeenSignature+signature).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("forget signature: %w", err)
	}
	return nil
}

// PublishCommand broadcasts a rendered command on the commands channel.
// Used when no Kafka brokers are configured.
func (r *RedisCache) PublishCommand(ctx context.Context, payload []byte) error {
	if err := r.client.Publish(ctx, constants.PubSubChannelCommands, payload).Err(); err != nil {
		return fmt.Errorf("publish command: %w", err)
	}
	return nil
}

// Ping checks if Redis is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
