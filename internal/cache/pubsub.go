// ============================================================================
// cache/pubsub.go - Redis Pub/Sub routing and subscription
// ============================================================================
package cache

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/constants"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
)

// Channels returns every channel a trade is published on: the firehose, the
// wallet channel, one channel per routed category contained in the wallet's
// category, and the degraded channel when history could not be reconciled.
func Channels(trade *models.NormalizedTrade) []string {
	channels := []string{constants.PubSubChannelTrades}

	if trade.Wallet != "" && trade.Wallet != models.NotAvailable {
		channels = append(channels, constants.PubSubChannelWalletPrefix+trade.Wallet)
	}

	for _, category := range constants.RoutedCategories {
		if strings.Contains(trade.WalletCategory, category) {
			channels = append(channels, constants.PubSubChannelCategoryPrefix+strings.ToLower(category))
		}
	}

	if trade.Degraded {
		channels = append(channels, constants.PubSubChannelDegradedTrades)
	}
	return channels
}

// PubSubManager consumes the trade feed.
type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// Subscribe delivers trades from channel to handler until ctx is done.
func (p *PubSubManager) Subscribe(ctx context.Context, channel string, handler func(*models.NormalizedTrade)) error {
	pubsub := p.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Wait for confirmation so a bad connection surfaces here
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	p.logger.WithField("channel", channel).Info("subscribed")
	return p.consume(ctx, pubsub, handler)
}

// PSubscribe delivers trades from channels matching pattern (e.g. "trades:category:*").
func (p *PubSubManager) PSubscribe(ctx context.Context, pattern string, handler func(*models.NormalizedTrade)) error {
	pubsub := p.client.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	p.logger.WithField("pattern", pattern).Info("subscribed to pattern")
	return p.consume(ctx, pubsub, handler)
}

func (p *PubSubManager) consume(ctx context.Context, pubsub *redis.PubSub, handler func(*models.NormalizedTrade)) error {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var trade models.NormalizedTrade
			if err := json.Unmarshal([]byte(msg.Payload), &trade); err != nil {
				p.logger.WithError(err).WithField("channel", msg.Channel).Warn("error unmarshaling trade")
				continue
			}
			handler(&trade)
		}
	}
}
