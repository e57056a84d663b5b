// ============================================================================
// models/trade.go - Normalized per-transaction trade record
// ============================================================================
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sentinels shared by the classifier, the decision rules and the renderers.
// Downstream consumers match on these literals, keep them stable.
const (
	NotAvailable = "N/A"
	Unknown      = "Unknown"
)

// Parsed transaction types
const (
	ParsedNativeTransfer = "Native Transfer"
	ParsedSwap           = "SWAP"
)

// Trade directions
const (
	DirectionReceive = "Receive"
	DirectionSend    = "Send"
	DirectionBuy     = "Buy"
	DirectionSell    = "Sell"
	DirectionNone    = "No trade"
)

// NormalizedTrade is the classifier output for one transaction. It is built
// fresh per transaction and handed to the decision engine and trade sinks.
type NormalizedTrade struct {
	Wallet         string `json:"wallet"`
	WalletName     string `json:"wallet_name"`
	WalletCategory string `json:"wallet_category"`

	RawType        string          `json:"type"`
	ParsedType     string          `json:"parsed_type"`
	TradeDirection string          `json:"trade"`
	Mint           string          `json:"mint"`
	TokenAmount    decimal.Decimal `json:"token_amount"`

	RepeatCount         int64 `json:"repeat_count"`
	HasPriorInteraction bool  `json:"has_prior_interaction"`

	// Degraded is set when the history ledger could not be reconciled; the
	// repeat count and prior-interaction flag are then zero values, not facts.
	Degraded       bool   `json:"degraded"`
	DegradedReason string `json:"degraded_reason,omitempty"`

	Signature   string    `json:"signature"`
	Description string    `json:"description"`
	Lines       []string  `json:"lines"`
	Summary     string    `json:"summary"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Connection renders the prior-interaction flag the way the summary shows it.
func (t *NormalizedTrade) Connection() string {
	if t.HasPriorInteraction {
		return "Yes"
	}
	return "No"
}

// HasMint reports whether a token mint was identified.
func (t *NormalizedTrade) HasMint() bool {
	return t.Mint != "" && t.Mint != NotAvailable
}
