package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/commands"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/constants"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/decision"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
)

// Classifier turns one raw transaction into a trade.
type Classifier interface {
	Classify(ctx context.Context, tx *models.RawTransaction) (*models.NormalizedTrade, error)
}

// Decider derives an optional command from a trade.
type Decider interface {
	Decide(trade *models.NormalizedTrade) (*decision.Command, error)
}

// Gate reads runtime flags.
type Gate interface {
	Enabled(ctx context.Context, key string, def bool) (bool, error)
}

// Deduper remembers processed signatures across webhook redeliveries.
type Deduper interface {
	MarkSeen(ctx context.Context, signature string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, signature string) error
}

// Config wires a Processor. Classifier, Decider and Commands are required.
type Config struct {
	Classifier Classifier
	Decider    Decider
	Commands   commands.Sink
	Sinks      []storage.TradeSink

	// Optional
	Gate    Gate
	Deduper Deduper

	Workers       int
	StoreTimeout  time.Duration
	BatchDeadline time.Duration
	Logger        *logrus.Logger
}

// Processor classifies webhook batches concurrently and fans the results
// out to the trade and command sinks.
type Processor struct {
	classifier Classifier
	decider    Decider
	commands   commands.Sink
	sinks      []storage.TradeSink
	gate       Gate
	deduper    Deduper

	workers       int
	storeTimeout  time.Duration
	batchDeadline time.Duration
	logger        *logrus.Logger
}

func NewProcessor(cfg Config) (*Processor, error) {
	if cfg.Classifier == nil {
		return nil, errors.New("tracker: classifier is required")
	}
	if cfg.Decider == nil {
		return nil, errors.New("tracker: decider is required")
	}
	if cfg.Commands == nil {
		return nil, errors.New("tracker: command sink is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = constants.DefaultBatchWorkers
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = constants.DefaultStoreTimeout
	}
	if cfg.BatchDeadline <= 0 {
		cfg.BatchDeadline = constants.DefaultBatchDeadline
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Processor{
		classifier:    cfg.Classifier,
		decider:       cfg.Decider,
		commands:      cfg.Commands,
		sinks:         cfg.Sinks,
		gate:          cfg.Gate,
		deduper:       cfg.Deduper,
		workers:       cfg.Workers,
		storeTimeout:  cfg.StoreTimeout,
		batchDeadline: cfg.BatchDeadline,
		logger:        cfg.Logger,
	}, nil
}

// Process handles every item of a batch. Items are independent: a failing
// or panicking item is recorded in its ItemResult and never stops the rest.
// Results keep the input order.
func (p *Processor) Process(ctx context.Context, items []json.RawMessage) *BatchResult {
	batch := &BatchResult{
		BatchID:  uuid.NewString(),
		Received: len(items),
		Items:    make([]ItemResult, len(items)),
	}

	ctx, cancel := context.WithTimeout(ctx, p.batchDeadline)
	defer cancel()

	log := p.logger.WithField("batch_id", batch.BatchID)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := range items {
		i := i
		g.Go(func() error {
			batch.Items[i] = p.processItem(ctx, i, items[i], log)
			return nil
		})
	}
	_ = g.Wait()

	batch.tally()

	log.WithFields(logrus.Fields{
		"received":   batch.Received,
		"processed":  batch.Processed,
		"failed":     batch.Failed,
		"duplicates": batch.Duplicates,
		"commands":   batch.Commands,
		"took_ms":    time.Since(start).Milliseconds(),
	}).Info("batch processed")

	return batch
}

func (p *Processor) processItem(ctx context.Context, index int, raw json.RawMessage, log *logrus.Entry) (res ItemResult) {
	res.Index = index
	var dedupe bool

	defer func() {
		if r := recover(); r != nil {
			res.Trade = nil
			res.Command = ""
			res.CommandPublished = false
			res.Error = fmt.Sprintf("panic: %v", r)
			log.WithFields(logrus.Fields{
				"index":     index,
				"signature": res.Signature,
				"panic":     r,
				"stack":     string(debug.Stack()),
			}).Error("transaction processing panicked")
			if dedupe {
				p.forget(ctx, res.Signature, log.WithField("index", index))
			}
		}
	}()

	var tx models.RawTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		res.Error = fmt.Sprintf("decode transaction: %v", err)
		log.WithError(err).WithField("index", index).Warn("undecodable batch item")
		return res
	}
	res.Signature = tx.Signature

	entry := log.WithFields(logrus.Fields{"index": index, "signature": tx.Signature})
	if tx.Signature != "" && !ValidSignature(tx.Signature) {
		entry.Warn("transaction signature is not a valid base58 signature")
	}

	dedupe = p.deduper != nil && ValidSignature(tx.Signature)
	if dedupe {
		first, err := p.markSeen(ctx, tx.Signature)
		if err != nil {
			entry.WithError(err).Warn("signature dedupe unavailable, processing anyway")
		} else if !first {
			res.Duplicate = true
			entry.Debug("duplicate delivery skipped")
			return res
		}
	}

	trade, err := p.classifier.Classify(ctx, &tx)
	if err != nil {
		res.Error = err.Error()
		entry.WithError(err).Error("classification failed")
		if dedupe {
			p.forget(ctx, tx.Signature, entry)
		}
		return res
	}
	res.Trade = trade

	if trade.Degraded {
		entry.WithField("reason", trade.DegradedReason).Warn("trade classified in degraded mode")
		// The ledger increment did not happen; let a redelivery retry it
		if dedupe {
			p.forget(ctx, tx.Signature, entry)
		}
	}

	p.publishTrade(ctx, trade, entry)

	cmd, err := p.decider.Decide(trade)
	if err != nil {
		entry.WithError(err).Warn("decision skipped")
		return res
	}
	if cmd == nil {
		return res
	}

	res.Command = cmd.String()
	res.CommandPublished = p.publishCommand(ctx, cmd, entry)
	return res
}

func (p *Processor) publishTrade(ctx context.Context, trade *models.NormalizedTrade, entry *logrus.Entry) {
	for _, sink := range p.sinks {
		sctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
		err := sink.PublishTrade(sctx, trade)
		cancel()
		if err != nil {
			entry.WithError(err).Warn("trade sink failed")
		}
	}
}

// publishCommand reports whether the command left the process. Commands are
// held back when autotrade is switched off or the switch cannot be read.
func (p *Processor) publishCommand(ctx context.Context, cmd *decision.Command, entry *logrus.Entry) bool {
	entry = entry.WithField("command", cmd.String())

	if p.gate != nil {
		gctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
		enabled, err := p.gate.Enabled(gctx, constants.FlagAutotradeEnabled, true)
		cancel()
		if err != nil {
			entry.WithError(err).Warn("autotrade flag unreadable, command held")
			return false
		}
		if !enabled {
			entry.Info("autotrade disabled, command held")
			return false
		}
	}

	cctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()
	if err := p.commands.Publish(cctx, cmd); err != nil {
		entry.WithError(err).Error("command publish failed")
		return false
	}

	entry.Info("command published")
	return true
}

func (p *Processor) markSeen(ctx context.Context, signature string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()
	return p.deduper.MarkSeen(ctx, signature, constants.SeenSignatureTTL)
}

func (p *Processor) forget(ctx context.Context, signature string, entry *logrus.Entry) {
	ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()
	if err := p.deduper.Forget(ctx, signature); err != nil {
		entry.WithError(err).Warn("failed to clear dedupe marker")
	}
}
