package tracker

import (
	"context"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
)

type archiveSink struct {
	archive storage.TradeArchive
}

// ArchiveSink adapts a trade archive to the sink interface.
func ArchiveSink(archive storage.TradeArchive) storage.TradeSink {
	return archiveSink{archive: archive}
}

func (a archiveSink) PublishTrade(ctx context.Context, trade *models.NormalizedTrade) error {
	return a.archive.InsertTrade(ctx, trade)
}
