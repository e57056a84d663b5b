package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/ai"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/cache"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/classifier"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/commands"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/config"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/decision"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/flags"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/registry"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/server"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage/backend"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/tracker"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main wires the webhook pipeline and the query API and serves them until
// SIGINT/SIGTERM.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.DevMode {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Wallet registry + history ledger
	store, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.WithError(err).WithField("driver", cfg.StoreDriver).Fatal("failed to open store")
	}
	defer store.Close()
	logger.WithField("driver", cfg.StoreDriver).Info("store ready")

	wallets := registry.New(store, registry.Config{TTL: cfg.RegistryTTL, Logger: logger})

	clf, err := classifier.New(classifier.Config{
		Registry:     wallets,
		Ledger:       store,
		StoreTimeout: cfg.StoreTimeout,
		Logger:       logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create classifier")
	}

	engine := decision.NewEngine(decision.Policy{BuySize: cfg.BuySize, SellPercent: cfg.SellPercent})

	// Redis: trade feed, dedupe markers and runtime flags
	rclient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rclient.Close()
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	tradeCache := cache.NewRedisCacheFromClient(rclient, logger)

	flagStore, err := flags.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create flags store")
	}
	if err := flagStore.EnsureDefaults(ctx); err != nil {
		logger.WithError(err).Warn("failed to seed default flags")
	}

	checks := map[string]server.Pinger{
		"store": store,
		"redis": tradeCache,
	}
	sinks := []storage.TradeSink{tradeCache}

	// Optional ClickHouse archive
	if cfg.ClickHouseAddr != "" {
		archive, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to ClickHouse")
		}
		defer archive.Close()
		if err := archive.Migrate(ctx); err != nil {
			logger.WithError(err).Fatal("failed to migrate ClickHouse")
		}
		sinks = append(sinks, tracker.ArchiveSink(archive))
		checks["clickhouse"] = archive
	}

	// Command sink: Kafka when brokers are configured, Redis pub/sub otherwise
	var sink commands.Sink
	if len(cfg.KafkaBrokers) > 0 {
		sink = commands.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicCommands)
		logger.WithFields(logrus.Fields{
			"brokers": cfg.KafkaBrokers,
			"topic":   cfg.KafkaTopicCommands,
		}).Info("publishing commands to kafka")
	} else {
		sink = commands.NewRedisSink(tradeCache)
		logger.Info("publishing commands to redis pub/sub")
	}
	defer sink.Close()

	processor, err := tracker.NewProcessor(tracker.Config{
		Classifier:    clf,
		Decider:       engine,
		Commands:      sink,
		Sinks:         sinks,
		Gate:          flagStore,
		Deduper:       tradeCache,
		Workers:       cfg.BatchWorkers,
		StoreTimeout:  cfg.StoreTimeout,
		BatchDeadline: cfg.BatchDeadline,
		Logger:        logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create processor")
	}

	// AI agent over the ClickHouse archive (optional)
	var agent server.Asker
	aiBase := ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              cfg.AIModel,
		Logger:             logger,
	}
	if cfg.OpenRouterAPIKey != "" && cfg.ClickHouseAddr != "" {
		a, err := ai.NewAgent(ctx, aiBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			agent = a
			defer func() {
				_ = a.Close()
			}()
		}
	}

	h := &server.Handlers{
		Processor:    processor,
		Registry:     wallets,
		History:      store,
		Recent:       tradeCache,
		Flags:        flagStore,
		AI:           agent,
		AIBaseConfig: aiBase,
		Checks:       checks,
		DevMode:      cfg.DevMode,
		Logger:       logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:         cfg.APIAddr,
			DevMode:      cfg.DevMode,
			APIKey:       cfg.APIKey,
			WebhookToken: cfg.WebhookAuthToken,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		logger.WithError(err).Warn("server did not close cleanly")
	}
}
