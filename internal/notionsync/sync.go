package notionsync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/extract"
)

// Syncer pushes extraction results into one Notion database.
type Syncer struct {
	service    NotionService
	databaseID string
	log        zerolog.Logger
}

func NewSyncer(service NotionService, databaseID string, log zerolog.Logger) *Syncer {
	return &Syncer{service: service, databaseID: databaseID, log: log}
}

// SyncResult creates one Notion page per transaction. Individual page
// failures are logged and skipped so one bad row doesn't abort the whole
// export; an error is returned only when every page failed.
func (s *Syncer) SyncResult(ctx context.Context, result *extract.Result) (int, error) {
	currency := result.AccountDetails.Currency

	type item struct {
		tx        extract.Transaction
		direction string
	}
	var all []item
	for _, tx := range result.Transactions.Income {
		all = append(all, item{tx, directionIncome})
	}
	for _, tx := range result.Transactions.Expenses {
		all = append(all, item{tx, directionExpense})
	}

	if len(all) == 0 {
		return 0, nil
	}

	synced := 0
	var lastErr error
	for _, it := range all {
		props := TransactionToProperties(it.tx, it.direction, currency)
		if _, err := s.service.CreatePage(ctx, s.databaseID, props); err != nil {
			lastErr = err
			s.log.Warn().Err(err).
				Str("description", it.tx.Description).
				Str("date", it.tx.Date).
				Msg("Failed to sync transaction to Notion")
			continue
		}
		synced++
	}

	if synced == 0 {
		return 0, fmt.Errorf("notionsync: all %d transactions failed: %w", len(all), lastErr)
	}

	s.log.Info().Int("synced", synced).Int("total", len(all)).Msg("Synced transactions to Notion")
	return synced, nil
}
