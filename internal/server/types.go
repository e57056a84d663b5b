package server

import "github.com/aman-zulfiqar/solana-wallet-tracker/internal/tracker"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse reports overall and per-dependency health
type HealthResponse struct {
	OK         bool              `json:"ok"`
	Components map[string]string `json:"components,omitempty"`
}

// WebhookResponse summarises a processed webhook batch
type WebhookResponse struct {
	Message    string               `json:"message"`
	BatchID    string               `json:"batch_id"`
	Received   int                  `json:"received"`
	Processed  int                  `json:"processed"`
	Failed     int                  `json:"failed"`
	Duplicates int                  `json:"duplicates"`
	Degraded   int                  `json:"degraded"`
	Commands   int                  `json:"commands"`
	Items      []tracker.ItemResult `json:"items,omitempty"` // only with ?verbose=true
}

// WalletResponse describes a registry lookup
type WalletResponse struct {
	Address  string `json:"address"`
	Tracked  bool   `json:"tracked"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value bool `json:"value"` // New flag value
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question string `json:"question"` // Question about tracked wallet activity
	Model    string `json:"model"`    // Optional AI model override
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL    string `json:"sql"`     // Generated SQL query
	Answer string `json:"answer"`  // Natural language answer
	TookMs int64  `json:"took_ms"` // Execution time in milliseconds
}
