package constants

import "time"

// Redis keys
const (
	RedisKeyRecentTrades  = "trades:recent"
	RedisKeySeenSignature = "trades:seen:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelTrades          = "trades:all"
	PubSubChannelCategoryPrefix  = "trades:category:"
	PubSubChannelWalletPrefix    = "trades:wallet:"
	PubSubChannelCommands        = "trades:commands"
	PubSubChannelDegradedTrades  = "trades:degraded"
	PubSubPatternCategoryChannel = "trades:category:*"
)

// Limits
const (
	MaxRecentTrades     = 100
	DefaultBatchWorkers = 8
	MaxBatchSize        = 1000

	// SPL mint decimals are a u8
	MaxTokenDecimals = 255
)

// Timeouts
const (
	DefaultStoreTimeout  = 3 * time.Second
	DefaultRegistryTTL   = 30 * time.Second
	SeenSignatureTTL     = 24 * time.Hour
	DefaultBatchDeadline = 60 * time.Second
)

// Decision defaults
const (
	DefaultBuySize     = "0.01"
	DefaultSellPercent = 100
)

// Feature flags read at runtime
const (
	FlagAutotradeEnabled = "autotrade.enabled"
)

// Link templates used in the rendered summary. {mint} and {signature} are
// substituted at render time.
const (
	LinkTemplateMint     = "https://gmgn.ai/sol/token/{mint}"
	LinkTemplateSolscan  = "https://solscan.io/tx/{signature}"
	LinkTemplateBeach    = "https://solanabeach.io/transaction/{signature}"
	LinkTemplateSolanaFM = "https://solana.fm/tx/{signature}?cluster=mainnet-alpha"
)

// Wallet categories that get their own routing channel, matched by substring
// like the per-category alert webhooks the tracker replaced.
var RoutedCategories = []string{"Insider", "Alpha", "KOL", "Cabal"}

// Token mint addresses to symbols, used for log readability only.
var TokenSymbols = map[string]string{
	"So11111111111111111111111111111111111111112":  "SOL",
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  "mSOL",
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": "BONK",
	"7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr": "POPCAT",
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  "JUP",
	"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R": "RAY",
}

// TokenLabel returns a readable label for a mint: its symbol when known,
// otherwise a shortened address.
func TokenLabel(mint string) string {
	if symbol, ok := TokenSymbols[mint]; ok {
		return symbol
	}
	if len(mint) > 8 {
		return mint[:4] + "..." + mint[len(mint)-4:]
	}
	return mint
}
