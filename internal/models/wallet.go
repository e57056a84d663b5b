package models

import "time"

// Wallet is a tracked address maintained by the wallet admin tooling.
type Wallet struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// WalletDetails is the display information resolved for an address.
type WalletDetails struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// UnknownWallet is returned by registry lookups for untracked addresses.
var UnknownWallet = WalletDetails{Name: Unknown, Category: Unknown}

// WalletTokenHistory counts how many trade-relevant transactions were seen
// for one (wallet, mint) pair.
type WalletTokenHistory struct {
	WalletAddress string    `json:"wallet_address"`
	MintAddress   string    `json:"mint_address"`
	TxCount       int64     `json:"tx_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HistoryResult is the outcome of one ledger increment.
type HistoryResult struct {
	ExistedBefore bool  `json:"existed_before"`
	CountAfter    int64 `json:"count_after"`
}
