package ai

// tradesTable is the archive table the agent may query.
const tradesTable = "wallet_trades"

// tradesSchemaDescription describes wallet_trades for NL→SQL prompting.
// Keep in sync with internal/storage/migrations/clickhouse.
const tradesSchemaDescription = `
Table: wallet_trades (one row per classified transaction of a tracked wallet)

Columns:
  - id                    UUID
  - processed_at          DateTime64(3, 'UTC') -- when the tracker classified the transaction
  - signature             String   -- Solana transaction signature
  - wallet                String   -- tracked wallet address, 'N/A' when none matched
  - wallet_name           String   -- display name from the wallet registry
  - wallet_category       String   -- e.g. 'Insider', 'Alpha', 'KOL', 'Cabal', 'Unknown'
  - type                  String   -- provider transaction type, e.g. 'SWAP', 'TRANSFER'
  - parsed_type           String   -- 'SWAP' or 'Native Transfer'
  - trade                 String   -- 'Buy', 'Sell', 'Receive', 'Send' or 'No trade'
  - mint                  String   -- token mint address, 'N/A' for native transfers
  - token_amount          Float64  -- absolute token amount moved
  - repeat_count          UInt32   -- how many times this wallet has traded this mint, including this trade
  - has_prior_interaction UInt8    -- 1 if the wallet had traded this mint before
  - degraded              UInt8    -- 1 if trade history could not be reconciled (repeat_count is then 0)
  - description           String   -- provider description

Notes:
  - A "first buy" is trade = 'Buy' AND repeat_count = 1.
  - Filter out wallet = 'N/A' when asking about tracked wallets.
  - Time filters should use processed_at, e.g. processed_at >= now() - INTERVAL 24 HOUR.
`
