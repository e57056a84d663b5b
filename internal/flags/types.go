package flags

import (
	"errors"
	"time"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/constants"
)

var ErrNotFound = errors.New("flag not found")

// Flag is a runtime switch stored in Redis.
type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Defaults are the values assumed for flags that have never been set.
var Defaults = map[string]bool{
	constants.FlagAutotradeEnabled: true,
}
