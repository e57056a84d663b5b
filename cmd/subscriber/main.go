package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/cache"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/commands"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/config"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/constants"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
)

// subscriber is an example downstream consumer of the trade feed and, when
// Kafka is configured, of the trade command topic.
func main() {
	walletFlag := flag.String("wallet", "", "follow a single wallet instead of the whole feed")
	categoriesFlag := flag.Bool("categories", true, "also follow the per-category channels")
	commandsFlag := flag.Bool("commands", true, "also follow trade commands (kafka topic or redis channel)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rclient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rclient.Close()
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	pubsub := cache.NewPubSubManager(rclient, logger)
	g, ctx := errgroup.WithContext(ctx)

	channel := constants.PubSubChannelTrades
	if w := strings.TrimSpace(*walletFlag); w != "" {
		channel = constants.PubSubChannelWalletPrefix + w
	}
	g.Go(func() error {
		return pubsub.Subscribe(ctx, channel, func(t *models.NormalizedTrade) {
			logTrade(logger, "trade", t)
		})
	})

	g.Go(func() error {
		return pubsub.Subscribe(ctx, constants.PubSubChannelDegradedTrades, func(t *models.NormalizedTrade) {
			logger.WithFields(tradeFields(t)).WithField("reason", t.DegradedReason).Warn("degraded trade")
		})
	})

	if *categoriesFlag {
		g.Go(func() error {
			return pubsub.PSubscribe(ctx, constants.PubSubPatternCategoryChannel, func(t *models.NormalizedTrade) {
				logTrade(logger, "category "+t.WalletCategory, t)
			})
		})
	}

	if *commandsFlag {
		g.Go(func() error {
			return followCommands(ctx, cfg, rclient, logger)
		})
	}

	logger.WithField("channel", channel).Info("subscriber running, press Ctrl+C to stop")
	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("subscriber stopped")
	}
	logger.Info("subscriber stopped")
}

func followCommands(ctx context.Context, cfg *config.Config, rclient *redis.Client, logger *logrus.Logger) error {
	handle := func(_ context.Context, msg commands.Message) error {
		logger.WithFields(logrus.Fields{
			"mint":      msg.Mint,
			"wallet":    msg.Wallet,
			"signature": msg.Signature,
		}).Infof("command %s", msg.Text)
		return nil
	}

	if len(cfg.KafkaBrokers) > 0 {
		consumer := commands.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopicCommands)
		defer consumer.Close()
		if err := consumer.Consume(ctx, handle); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	sub := rclient.Subscribe(ctx, constants.PubSubChannelCommands)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	return commands.ConsumeRedis(ctx, sub.Channel(), handle, logger)
}

func tradeFields(t *models.NormalizedTrade) logrus.Fields {
	return logrus.Fields{
		"wallet":    t.Wallet,
		"name":      t.WalletName,
		"direction": t.TradeDirection,
		"mint":      constants.TokenLabel(t.Mint),
		"amount":    t.TokenAmount.String(),
		"tx_no":     t.RepeatCount,
	}
}

func logTrade(logger *logrus.Logger, source string, t *models.NormalizedTrade) {
	logger.WithFields(tradeFields(t)).Info(source)
}
