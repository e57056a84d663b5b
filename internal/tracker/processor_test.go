package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/classifier"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/decision"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/registry"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage/memory"
)

const (
	wallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	mint   = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

// --- fakes ---

type commandRecorder struct {
	mu   sync.Mutex
	cmds []string
	err  error
}

func (c *commandRecorder) Publish(_ context.Context, cmd *decision.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.cmds = append(c.cmds, cmd.String())
	return nil
}

func (c *commandRecorder) Close() error { return nil }

func (c *commandRecorder) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.cmds...)
}

type tradeRecorder struct {
	mu     sync.Mutex
	trades []*models.NormalizedTrade
	err    error
}

func (r *tradeRecorder) PublishTrade(_ context.Context, t *models.NormalizedTrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = append(r.trades, t)
	return r.err
}

func (r *tradeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trades)
}

type staticGate struct {
	enabled bool
	err     error
}

func (g staticGate) Enabled(context.Context, string, bool) (bool, error) {
	return g.enabled, g.err
}

type memDeduper struct {
	mu      sync.Mutex
	seen    map[string]bool
	err     error
	forgets int
}

func newMemDeduper() *memDeduper { return &memDeduper{seen: map[string]bool{}} }

func (d *memDeduper) MarkSeen(_ context.Context, sig string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.seen[sig] {
		return false, nil
	}
	d.seen[sig] = true
	return true, nil
}

func (d *memDeduper) Forget(_ context.Context, sig string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, sig)
	d.forgets++
	return nil
}

type panickyClassifier struct {
	next Classifier
}

func (p panickyClassifier) Classify(ctx context.Context, tx *models.RawTransaction) (*models.NormalizedTrade, error) {
	if tx.Type == "BOOM" {
		panic("malformed account data")
	}
	if tx.Type == "FAIL" {
		return nil, errors.New("registry offline")
	}
	return p.next.Classify(ctx, tx)
}

type errDecider struct{}

func (errDecider) Decide(*models.NormalizedTrade) (*decision.Command, error) {
	return nil, decision.ErrMissingField
}

// --- helpers ---

func signature(n int) string {
	return base58.Encode(bytes.Repeat([]byte{byte(n%250 + 1)}, 64))
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func tokenItem(t *testing.T, sig, txType, raw string) json.RawMessage {
	t.Helper()
	tx := map[string]any{
		"type":      txType,
		"signature": sig,
		"accountData": []any{
			map[string]any{
				"account":             "pool",
				"nativeBalanceChange": 0,
				"tokenBalanceChanges": []any{
					map[string]any{
						"userAccount":    wallet,
						"mint":           mint,
						"rawTokenAmount": map[string]any{"tokenAmount": raw, "decimals": 6},
					},
				},
			},
		},
	}
	b, err := json.Marshal(tx)
	require.NoError(t, err)
	return b
}

type fixture struct {
	store   *memory.Store
	cmds    *commandRecorder
	trades  *tradeRecorder
	deduper *memDeduper
	proc    *Processor
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	store := memory.NewStore(models.Wallet{Address: wallet, Name: "whale", Category: "Alpha"})
	c, err := classifier.New(classifier.Config{
		Registry: registry.New(store, registry.Config{TTL: time.Minute}),
		Ledger:   store,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)

	f := &fixture{
		store:   store,
		cmds:    &commandRecorder{},
		trades:  &tradeRecorder{},
		deduper: newMemDeduper(),
	}

	cfg := Config{
		Classifier: panickyClassifier{next: c},
		Decider:    decision.NewEngine(decision.DefaultPolicy()),
		Commands:   f.cmds,
		Sinks:      []storage.TradeSink{f.trades},
		Deduper:    f.deduper,
		Workers:    4,
		Logger:     quietLogger(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	f.proc, err = NewProcessor(cfg)
	require.NoError(t, err)
	return f
}

// --- tests ---

func TestNewProcessor_RequiresDependencies(t *testing.T) {
	_, err := NewProcessor(Config{})
	assert.Error(t, err)

	_, err = NewProcessor(Config{Classifier: panickyClassifier{}, Decider: errDecider{}})
	assert.Error(t, err)
}

func TestProcess_BuyThenSellThenNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first := f.proc.Process(ctx, []json.RawMessage{tokenItem(t, signature(1), "SWAP", "5000000")})
	require.Len(t, first.Items, 1)
	assert.Equal(t, "/buy "+mint+" 0.01", first.Items[0].Command)
	assert.True(t, first.Items[0].CommandPublished)
	assert.Equal(t, int64(1), first.Items[0].Trade.RepeatCount)

	second := f.proc.Process(ctx, []json.RawMessage{tokenItem(t, signature(2), "SWAP", "-2500000")})
	assert.Equal(t, "/sell "+mint+" 100%", second.Items[0].Command)
	assert.Equal(t, int64(2), second.Items[0].Trade.RepeatCount)
	assert.Equal(t, "2.5", second.Items[0].Trade.TokenAmount.String())

	third := f.proc.Process(ctx, []json.RawMessage{tokenItem(t, signature(3), "SWAP", "-1000000")})
	assert.Empty(t, third.Items[0].Command)
	assert.Equal(t, 0, third.Commands)

	assert.Equal(t, []string{"/buy " + mint + " 0.01", "/sell " + mint + " 100%"}, f.cmds.all())
	assert.Equal(t, 3, f.trades.count())
}

func TestProcess_BadItemsDoNotAbortBatch(t *testing.T) {
	f := newFixture(t, nil)

	items := []json.RawMessage{
		json.RawMessage(`{"signature": 12, "accountData": "nope"}`),
		tokenItem(t, signature(10), "BOOM", "1"),
		tokenItem(t, signature(11), "FAIL", "1"),
		tokenItem(t, signature(12), "SWAP", "1000000"),
		json.RawMessage(`{}`),
	}

	res := f.proc.Process(context.Background(), items)

	assert.Equal(t, 5, res.Received)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, 2, res.Processed)
	assert.NotEmpty(t, res.BatchID)

	assert.Contains(t, res.Items[0].Error, "decode transaction")
	assert.Contains(t, res.Items[1].Error, "panic")
	assert.Nil(t, res.Items[1].Trade)
	assert.Contains(t, res.Items[2].Error, "registry offline")
	assert.NotNil(t, res.Items[3].Trade)
	assert.Equal(t, models.DirectionNone, res.Items[4].Trade.TradeDirection)

	// Results keep input order
	for i, it := range res.Items {
		assert.Equal(t, i, it.Index)
	}
}

func TestProcess_DuplicateDeliverySkipped(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	item := tokenItem(t, signature(20), "SWAP", "1000000")

	first := f.proc.Process(ctx, []json.RawMessage{item})
	assert.Equal(t, 1, first.Processed)

	again := f.proc.Process(ctx, []json.RawMessage{item})
	assert.Equal(t, 1, again.Duplicates)
	assert.True(t, again.Items[0].Duplicate)

	h, err := f.store.Get(ctx, wallet, mint)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.TxCount, "redelivery must not increment the ledger")
}

func TestProcess_FailedItemCanBeRedelivered(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.proc.Process(ctx, []json.RawMessage{tokenItem(t, signature(30), "FAIL", "1")})
	assert.Equal(t, 1, f.deduper.forgets)

	res := f.proc.Process(ctx, []json.RawMessage{tokenItem(t, signature(30), "SWAP", "1")})
	assert.False(t, res.Items[0].Duplicate)
	assert.Equal(t, 1, res.Processed)
}

func TestProcess_DedupeErrorProcessesAnyway(t *testing.T) {
	f := newFixture(t, nil)
	f.deduper.err = errors.New("redis down")

	res := f.proc.Process(context.Background(), []json.RawMessage{tokenItem(t, signature(40), "SWAP", "1")})
	assert.Equal(t, 1, res.Processed)
}

func TestProcess_AutotradeDisabledHoldsCommand(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Gate = staticGate{enabled: false} })

	res := f.proc.Process(context.Background(), []json.RawMessage{tokenItem(t, signature(50), "SWAP", "1")})
	assert.Equal(t, "/buy "+mint+" 0.01", res.Items[0].Command)
	assert.False(t, res.Items[0].CommandPublished)
	assert.Empty(t, f.cmds.all())
}

func TestProcess_UnreadableGateHoldsCommand(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Gate = staticGate{enabled: true, err: errors.New("timeout")} })

	res := f.proc.Process(context.Background(), []json.RawMessage{tokenItem(t, signature(51), "SWAP", "1")})
	assert.False(t, res.Items[0].CommandPublished)
	assert.Empty(t, f.cmds.all())
}

func TestProcess_CommandSinkFailureIsContained(t *testing.T) {
	f := newFixture(t, nil)
	f.cmds.err = errors.New("broker unreachable")

	res := f.proc.Process(context.Background(), []json.RawMessage{tokenItem(t, signature(52), "SWAP", "1")})
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.Failed)
	assert.False(t, res.Items[0].CommandPublished)
}

func TestProcess_TradeSinkFailureIsContained(t *testing.T) {
	f := newFixture(t, nil)
	f.trades.err = errors.New("clickhouse down")

	res := f.proc.Process(context.Background(), []json.RawMessage{tokenItem(t, signature(53), "SWAP", "1")})
	assert.Equal(t, 1, res.Processed)
	assert.True(t, res.Items[0].CommandPublished)
}

func TestProcess_DecisionErrorMeansNoCommand(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Decider = errDecider{} })

	res := f.proc.Process(context.Background(), []json.RawMessage{tokenItem(t, signature(54), "SWAP", "1")})
	assert.Equal(t, 1, res.Processed)
	assert.Empty(t, res.Items[0].Command)
	assert.Empty(t, f.cmds.all())
}

func TestProcess_ConcurrentSamePair(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Workers = 16 })

	const n = 40
	items := make([]json.RawMessage, n)
	for i := range items {
		items[i] = tokenItem(t, signature(100+i), "SWAP", "1000000")
	}

	res := f.proc.Process(context.Background(), items)
	require.Equal(t, n, res.Processed)

	counts := make([]int64, 0, n)
	for _, it := range res.Items {
		counts = append(counts, it.Trade.RepeatCount)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i] < counts[j] })
	for i, c := range counts {
		assert.Equal(t, int64(i+1), c)
	}

	// Only the first-ever buy triggers a command
	assert.Equal(t, 1, res.Commands)
	assert.Len(t, f.cmds.all(), 1)
}

func TestProcess_EmptyBatch(t *testing.T) {
	f := newFixture(t, nil)

	res := f.proc.Process(context.Background(), nil)
	assert.Equal(t, 0, res.Received)
	assert.Empty(t, res.Items)
}

func TestValidSignature(t *testing.T) {
	assert.True(t, ValidSignature(signature(1)))
	assert.False(t, ValidSignature(""))
	assert.False(t, ValidSignature("not-a-signature"))
	assert.False(t, ValidSignature(base58.Encode(bytes.Repeat([]byte{1}, 32))))
	assert.False(t, ValidSignature(fmt.Sprintf("%064d", 0)))
}

type brokenLedger struct{}

func (brokenLedger) RecordAndCount(context.Context, string, string) (models.HistoryResult, error) {
	return models.HistoryResult{}, errors.New("connection refused")
}

func (brokenLedger) Get(context.Context, string, string) (*models.WalletTokenHistory, error) {
	return nil, errors.New("connection refused")
}

type panickySink struct{}

func (panickySink) Publish(context.Context, *decision.Command) error { panic("nil producer") }
func (panickySink) Close() error { return nil }

func TestProcess_DegradedTradeCanBeRedelivered(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		store := memory.NewStore(models.Wallet{Address: wallet, Name: "whale", Category: "Alpha"})
		degraded, err := classifier.New(classifier.Config{
			Registry: registry.New(store, registry.Config{TTL: time.Minute}),
			Ledger:   brokenLedger{},
			Logger:   quietLogger(),
		})
		require.NoError(t, err)
		c.Classifier = degraded
	})
	ctx := context.Background()
	sig := signature(60)

	first := f.proc.Process(ctx, []json.RawMessage{tokenItem(t, sig, "SWAP", "1")})
	require.NotNil(t, first.Items[0].Trade)
	assert.True(t, first.Items[0].Trade.Degraded)
	assert.Equal(t, 1, f.deduper.forgets)

	again := f.proc.Process(ctx, []json.RawMessage{tokenItem(t, sig, "SWAP", "1")})
	assert.False(t, again.Items[0].Duplicate)
	assert.Equal(t, 0, again.Duplicates)
}

func TestProcess_PanicClearsCommandAndMarker(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Commands = panickySink{} })
	ctx := context.Background()
	sig := signature(61)

	res := f.proc.Process(ctx, []json.RawMessage{tokenItem(t, sig, "SWAP", "5000000")})
	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.True(t, item.Failed())
	assert.Contains(t, item.Error, "panic")
	assert.Empty(t, item.Command)
	assert.False(t, item.CommandPublished)
	assert.Nil(t, item.Trade)
	assert.Equal(t, 1, f.deduper.forgets)

	again := f.proc.Process(ctx, []json.RawMessage{tokenItem(t, sig, "SWAP", "5000000")})
	assert.False(t, again.Items[0].Duplicate)
}

func TestProcess_ClassifierPanicForgetsMarker(t *testing.T) {
	f := newFixture(t, nil)

	res := f.proc.Process(context.Background(), []json.RawMessage{tokenItem(t, signature(62), "BOOM", "1")})
	assert.True(t, res.Items[0].Failed())
	assert.Equal(t, 1, f.deduper.forgets)
}
