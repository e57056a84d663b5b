package tracker

import "github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"

// ItemResult is the outcome of one batch item.
type ItemResult struct {
	Index            int                     `json:"index"`
	Signature        string                  `json:"signature,omitempty"`
	Trade            *models.NormalizedTrade `json:"trade,omitempty"`
	Command          string                  `json:"command,omitempty"`
	CommandPublished bool                    `json:"command_published,omitempty"`
	Duplicate        bool                    `json:"duplicate,omitempty"`
	Error            string                  `json:"error,omitempty"`
}

// Failed reports whether the item produced no trade because of an error.
func (r ItemResult) Failed() bool { return r.Error != "" }

// BatchResult summarises a processed batch.
type BatchResult struct {
	BatchID    string       `json:"batch_id"`
	Received   int          `json:"received"`
	Processed  int          `json:"processed"`
	Failed     int          `json:"failed"`
	Duplicates int          `json:"duplicates"`
	Degraded   int          `json:"degraded"`
	Commands   int          `json:"commands"`
	Items      []ItemResult `json:"items"`
}

func (b *BatchResult) tally() {
	for _, it := range b.Items {
		switch {
		case it.Failed():
			b.Failed++
		case it.Duplicate:
			b.Duplicates++
		default:
			b.Processed++
			if it.Trade != nil && it.Trade.Degraded {
				b.Degraded++
			}
			if it.Command != "" {
				b.Commands++
			}
		}
	}
}
