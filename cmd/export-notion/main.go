// Command export-notion pushes an extraction result JSON into a Notion
// database, one page per transaction.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/dvloznov/statement-ledger/internal/config"
	"github.com/dvloznov/statement-ledger/internal/extract"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/notionsync"
)

func main() {
	var (
		resultPath = flag.String("result", "", "path to an extraction result JSON (or pass it as the first argument)")
		databaseID = flag.String("database", "", "Notion database ID (default NOTION_DATABASE_ID env)")
	)
	flag.Parse()

	_ = config.LoadDotEnv(".env")
	cfg := config.Load()
	log := logger.New()

	path := *resultPath
	if path == "" && flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	if path == "" {
		log.Fatal().Msg("No result file given; use -result or pass a path argument")
	}

	dbID := *databaseID
	if dbID == "" {
		dbID = cfg.NotionDatabaseID
	}
	if dbID == "" {
		log.Fatal().Msg("No Notion database configured; use -database or NOTION_DATABASE_ID")
	}
	if cfg.NotionToken == "" {
		log.Fatal().Msg("NOTION_TOKEN is not set")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read result file")
	}

	var result extract.Result
	if err := json.Unmarshal(data, &result); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Result file is not valid JSON")
	}

	syncer := notionsync.NewSyncer(notionsync.NewNotionClient(cfg.NotionToken), dbID, log)

	synced, err := syncer.SyncResult(context.Background(), &result)
	if err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}

	log.Info().Int("synced", synced).Str("database_id", dbID).Msg("Notion sync complete")
}
