package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/constants"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
)

// NoRelevantData is the only result line of a transaction that touched no
// tracked wallet.
const NoRelevantData = "No relevant transaction data found"

// Config wires the classifier to the registry and the history ledger.
type Config struct {
	Registry storage.WalletRegistry
	Ledger   storage.HistoryLedger

	// StoreTimeout bounds each ledger call.
	StoreTimeout time.Duration

	Logger *logrus.Logger

	// Now is the clock used for ProcessedAt; defaults to time.Now.
	Now func() time.Time
}

// Classifier turns raw enhanced transactions into NormalizedTrades.
type Classifier struct {
	registry     storage.WalletRegistry
	ledger       storage.HistoryLedger
	storeTimeout time.Duration
	logger       *logrus.Logger
	now          func() time.Time
}

// New validates cfg and returns a Classifier.
func New(cfg Config) (*Classifier, error) {
	if cfg.Registry == nil {
		return nil, errors.New("classifier: registry is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("classifier: history ledger is required")
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = constants.DefaultStoreTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Classifier{
		registry:     cfg.Registry,
		ledger:       cfg.Ledger,
		storeTimeout: cfg.StoreTimeout,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}, nil
}

// Classify resolves which tracked wallet the transaction belongs to, the trade
// direction and mint, and reconciles the (wallet, mint) history.
//
// When several tracked wallets or mints appear, the last one encountered wins
// and earlier ones only contribute result lines.
//
// A ledger failure does not fail the call: the trade comes back Degraded with
// a zero repeat count. An error is returned only when the registry is
// unreachable.
func (c *Classifier) Classify(ctx context.Context, tx *models.RawTransaction) (*models.NormalizedTrade, error) {
	if tx == nil {
		return nil, errors.New("classify: nil transaction")
	}

	tracked, err := c.registry.ListAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", tx.Signature, err)
	}

	var (
		wallet     string
		details    = models.UnknownWallet
		parsedType = models.ParsedNativeTransfer
		direction  = models.DirectionNone
		mint       = models.NotAvailable
		amount     = decimal.Zero
		lines      []string
		idleLines  []string // tracked wallets with no SOL movement
	)

	// Native SOL pass
	for _, acc := range tx.AccountData {
		if _, ok := tracked[acc.Account]; !ok {
			continue
		}
		wallet = acc.Account
		if details, err = c.registry.Lookup(ctx, wallet); err != nil {
			return nil, fmt.Errorf("classify %s: %w", tx.Signature, err)
		}

		lamports := acc.NativeBalanceChange.Int64()
		switch {
		case lamports > 0:
			lines = append(lines, fmt.Sprintf("%s got %s SOL", walletLabel(details, wallet), formatSOL(lamports)))
			direction = models.DirectionReceive
		case lamports < 0:
			lines = append(lines, fmt.Sprintf("%s used %s SOL", walletLabel(details, wallet), formatSOL(-lamports)))
			direction = models.DirectionSend
		default:
			idleLines = append(idleLines, fmt.Sprintf("No SOL balance change for %s", walletLabel(details, wallet)))
		}
	}

	// Token pass: balance changes are attributed to their owner, which may
	// differ from the account the entry is listed under.
	for _, acc := range tx.AccountData {
		for _, change := range acc.TokenBalanceChanges {
			if _, ok := tracked[change.UserAccount]; !ok {
				continue
			}
			wallet = change.UserAccount
			if details, err = c.registry.Lookup(ctx, wallet); err != nil {
				return nil, fmt.Errorf("classify %s: %w", tx.Signature, err)
			}

			mint = change.Mint
			if mint == "" {
				mint = models.NotAvailable
			}
			signed := TokenAmount(change.RawTokenAmount)
			switch signed.Sign() {
			case -1:
				lines = append(lines, fmt.Sprintf("%s sold %s %s tokens", walletLabel(details, wallet), signed.Abs().String(), mint))
				direction = models.DirectionSell
			case 1:
				lines = append(lines, fmt.Sprintf("%s bought %s %s tokens", walletLabel(details, wallet), signed.String(), mint))
				direction = models.DirectionBuy
			default:
				lines = append(lines, fmt.Sprintf("No token balance change for %s", walletLabel(details, wallet)))
			}
			parsedType = models.ParsedSwap
			amount = signed.Abs()
		}
	}

	if len(lines) == 0 {
		lines = idleLines
	}
	if len(lines) == 0 {
		lines = []string{NoRelevantData}
	}

	trade := &models.NormalizedTrade{
		Wallet:         orNA(wallet),
		WalletName:     orNA(details.Name),
		WalletCategory: orNA(details.Category),
		RawType:        orNA(tx.Type),
		ParsedType:     parsedType,
		TradeDirection: direction,
		Mint:           orNA(mint),
		TokenAmount:    amount,
		Signature:      tx.Signature,
		Description:    tx.Description,
		Lines:          lines,
		ProcessedAt:    c.now().UTC(),
	}

	if trade.HasMint() && wallet != "" {
		c.reconcile(ctx, trade)
	}

	trade.Summary = Render(trade)
	return trade, nil
}

// reconcile records the trade in the ledger. On failure the trade is marked
// degraded rather than passed off as a first trade.
func (c *Classifier) reconcile(ctx context.Context, trade *models.NormalizedTrade) {
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	res, err := c.ledger.RecordAndCount(ctx, trade.Wallet, trade.Mint)
	if err != nil {
		trade.RepeatCount = 0
		trade.HasPriorInteraction = false
		trade.Degraded = true
		trade.DegradedReason = err.Error()

		c.logger.WithError(err).WithFields(logrus.Fields{
			"signature": trade.Signature,
			"wallet":    trade.Wallet,
			"mint":      trade.Mint,
		}).Warn("history ledger unavailable, trade degraded")
		return
	}

	trade.RepeatCount = res.CountAfter
	trade.HasPriorInteraction = res.ExistedBefore
}

// TokenAmount converts a raw integer token amount to units using its decimals.
// A missing or unparsable amount is zero, and so is one whose decimals or
// exponent exceed what an SPL mint can carry.
func TokenAmount(raw models.RawTokenAmount) decimal.Decimal {
	value, err := decimal.NewFromString(raw.TokenAmount.String())
	if err != nil {
		return decimal.Zero
	}
	if exp := value.Exponent(); exp > constants.MaxTokenDecimals || exp < -constants.MaxTokenDecimals {
		return decimal.Zero
	}
	decimals := raw.Decimals.Int64()
	if decimals < 0 {
		decimals = 0
	}
	if decimals > constants.MaxTokenDecimals {
		return decimal.Zero
	}
	return value.Shift(-int32(decimals))
}

func formatSOL(lamports int64) string {
	return decimal.New(lamports, -9).StringFixed(9)
}

func walletLabel(details models.WalletDetails, wallet string) string {
	return fmt.Sprintf("%s(%s)", orNA(details.Name), wallet)
}

func orNA(s string) string {
	if s == "" {
		return models.NotAvailable
	}
	return s
}
