package decision

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/constants"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
)

// ErrMissingField reports a trade record without the fields the rules need.
// It signals a classifier bug; callers log it and carry on without a command.
var ErrMissingField = errors.New("trade record missing required field")

// Actions
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// Command is an automated trade instruction. It is only published, never executed.
type Command struct {
	Action    string `json:"action"`
	Mint      string `json:"mint"`
	Amount    string `json:"amount"`
	Wallet    string `json:"wallet,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// String renders the command in chat-bot form: "/buy <mint> <size>" or
// "/sell <mint> <pct>%".
func (c Command) String() string {
	if c.Action == ActionSell {
		return fmt.Sprintf("/sell %s %s%%", c.Mint, c.Amount)
	}
	return fmt.Sprintf("/%s %s %s", c.Action, c.Mint, c.Amount)
}

// Policy sizes the commands.
type Policy struct {
	// BuySize is the position size in base currency for a first buy.
	BuySize decimal.Decimal

	// SellPercent is the share of the position liquidated on an early sell.
	SellPercent int
}

// DefaultPolicy buys 0.01 and sells 100%.
func DefaultPolicy() Policy {
	return Policy{
		BuySize:     decimal.RequireFromString(constants.DefaultBuySize),
		SellPercent: constants.DefaultSellPercent,
	}
}

// Engine evaluates the trade rules.
type Engine struct {
	policy Policy
}

// NewEngine returns an engine; out-of-range policy values fall back to defaults.
func NewEngine(p Policy) *Engine {
	def := DefaultPolicy()
	if !p.BuySize.IsPositive() {
		p.BuySize = def.BuySize
	}
	if p.SellPercent <= 0 || p.SellPercent > 100 {
		p.SellPercent = def.SellPercent
	}
	return &Engine{policy: p}
}

// Decide applies the rules in order, first match wins:
//
//   - first ever trade of the pair, a Buy, no prior interaction: buy
//   - one of the first two trades, a Sell, with prior interaction: sell
//   - otherwise no command
//
// A degraded trade never yields a command since its history is unknown.
// A nil command with a nil error is an explicit "no command".
func (e *Engine) Decide(t *models.NormalizedTrade) (*Command, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil trade", ErrMissingField)
	}
	if t.TradeDirection == "" {
		return nil, fmt.Errorf("%w: trade direction", ErrMissingField)
	}
	if t.Mint == "" {
		return nil, fmt.Errorf("%w: mint", ErrMissingField)
	}

	if t.Degraded || t.Mint == models.NotAvailable {
		return nil, nil
	}

	switch {
	case t.RepeatCount == 1 && t.TradeDirection == models.DirectionBuy && !t.HasPriorInteraction:
		return &Command{
			Action:    ActionBuy,
			Mint:      t.Mint,
			Amount:    e.policy.BuySize.String(),
			Wallet:    t.Wallet,
			Signature: t.Signature,
		}, nil

	case t.RepeatCount <= 2 && t.TradeDirection == models.DirectionSell && t.HasPriorInteraction:
		return &Command{
			Action:    ActionSell,
			Mint:      t.Mint,
			Amount:    fmt.Sprintf("%d", e.policy.SellPercent),
			Wallet:    t.Wallet,
			Signature: t.Signature,
		}, nil
	}

	return nil, nil
}
