// ============================================================================
// models/transaction.go - Enhanced transaction payload delivered by the webhook
// ============================================================================
package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RawTransaction is one item of an enhanced-transaction webhook batch.
// Only the fields the tracker reads are modelled; everything else is ignored.
type RawTransaction struct {
	Type        string        `json:"type"`
	Description string        `json:"description"`
	Signature   string        `json:"signature"`
	Source      string        `json:"source"`
	FeePayer    string        `json:"feePayer"`
	Slot        FlexInt       `json:"slot"`
	Timestamp   FlexInt       `json:"timestamp"`
	AccountData []AccountData `json:"accountData"`
}

// AccountData describes the balance effects of a transaction on one account.
type AccountData struct {
	Account             string               `json:"account"`
	NativeBalanceChange FlexInt              `json:"nativeBalanceChange"` // lamports
	TokenBalanceChanges []TokenBalanceChange `json:"tokenBalanceChanges"`
}

// TokenBalanceChange is a token delta attributed to the owner in UserAccount.
type TokenBalanceChange struct {
	UserAccount    string         `json:"userAccount"`
	TokenAccount   string         `json:"tokenAccount"`
	Mint           string         `json:"mint"`
	RawTokenAmount RawTokenAmount `json:"rawTokenAmount"`
}

// RawTokenAmount is the signed integer amount and the mint's decimal precision.
type RawTokenAmount struct {
	TokenAmount FlexString `json:"tokenAmount"`
	Decimals    FlexInt    `json:"decimals"`
}

// FlexInt decodes integers that providers sometimes send as strings or floats.
// Null, missing and unparsable values decode to zero instead of failing the item.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = FlexInt(n)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v >= math.MinInt64 && v < math.MaxInt64 {
		*f = FlexInt(int64(v))
		return nil
	}
	*f = 0
	return nil
}

func (f FlexInt) Int64() int64 { return int64(f) }

// FlexString accepts a JSON string or a bare number and keeps its literal text.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*f = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			*f = ""
			return nil
		}
		*f = FlexString(strings.TrimSpace(str))
	default:
		*f = FlexString(s)
	}
	return nil
}

func (f FlexString) String() string { return string(f) }
