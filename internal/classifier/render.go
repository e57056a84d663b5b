package classifier

import (
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/constants"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
)

// SummaryTimeFormat is the timestamp layout used in rendered summaries.
const SummaryTimeFormat = "2006-01-02 15:04:05"

// Render produces the multi-line human-readable summary of a trade.
func Render(t *models.NormalizedTrade) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Wallet: %s\n", t.Wallet)
	fmt.Fprintf(&b, "Category: %s  Name: %s\n", t.WalletCategory, t.WalletName)
	fmt.Fprintf(&b, "Type: %s Parsed Type: %s\n", t.RawType, t.ParsedType)
	fmt.Fprintf(&b, "Trade: %s Token Amount: %s\n", t.TradeDirection, t.TokenAmount.String())
	fmt.Fprintf(&b, "Mint: %s\n", t.Mint)
	fmt.Fprintf(&b, "GMGN: %s\n", MintLink(t.Mint))
	fmt.Fprintf(&b, "Connection: %s\n", t.Connection())
	fmt.Fprintf(&b, "Tx_no: %d\n", t.RepeatCount)
	if t.Degraded {
		fmt.Fprintf(&b, "History: degraded (%s)\n", t.DegradedReason)
	}
	fmt.Fprintf(&b, "Result: %s\n", strings.Join(t.Lines, " | "))
	fmt.Fprintf(&b, "Description: %s\n", t.Description)
	fmt.Fprintf(&b, "Timestamp: %s\n", t.ProcessedAt.Format(SummaryTimeFormat))
	fmt.Fprintf(&b, "Signature: [Solscan](%s) [Beach](%s) [SolanaFm](%s)",
		expand(constants.LinkTemplateSolscan, "{signature}", t.Signature),
		expand(constants.LinkTemplateBeach, "{signature}", t.Signature),
		expand(constants.LinkTemplateSolanaFM, "{signature}", t.Signature),
	)

	return b.String()
}

// MintLink returns the token page link for mint.
func MintLink(mint string) string {
	return expand(constants.LinkTemplateMint, "{mint}", mint)
}

func expand(template, placeholder, value string) string {
	return strings.ReplaceAll(template, placeholder, value)
}
