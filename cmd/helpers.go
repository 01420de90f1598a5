package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tribunalwatch/ingest-cli/internal/source"
	"github.com/tribunalwatch/ingest-cli/internal/store"
	"github.com/tribunalwatch/ingest-cli/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "tribunal.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initClassifier builds the two-stage classifier. Without an Anthropic key
// the AI pass is disabled and classification is rule-based only.
func initClassifier() *source.CombinedClassifier {
	var ai source.AIClassifier
	if cfg.Anthropic.Key != "" {
		ai = source.NewClaudeClassifier(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
	}
	return source.NewCombinedClassifier(ai)
}

// sourceSystemByDatabase maps CanLII database ids to the source-system
// identifiers used in stored cases.
var sourceSystemByDatabase = map[string]string{
	"onhrt": "canlii_hrto",
	"chrt":  "canlii_chrt",
	"bchrt": "canlii_bchrt",
	"qctdp": "canlii_qctdp",
}

func sourceSystemFor(databaseID string) string {
	if s, ok := sourceSystemByDatabase[databaseID]; ok {
		return s
	}
	return "canlii_" + databaseID
}
