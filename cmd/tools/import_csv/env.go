package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"assetdb-api/internal"
	"assetdb-api/internal/apperr"
	"assetdb-api/internal/config"
	"assetdb-api/internal/store"
	"assetdb-api/pkg/importer"

	"github.com/sirupsen/logrus"
)

type env struct {
	cfg    *config.Config
	logger *logrus.Logger
	store  store.Store
	db     *sql.DB
}

// openEnv loads configuration and opens the configured store. Logs go to
// stderr so stdout stays clean for CSV output.
func openEnv(ctx context.Context) (*env, error) {
	if _, err := config.LoadEnv(".env", ".env.local"); err != nil {
		return nil, usageError{err}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, usageError{err}
	}
	logger := cfg.Logger()
	logger.SetOutput(os.Stderr)

	st, db, err := internal.OpenStore(ctx, cfg)
	if err != nil {
		return nil, apperr.Infrastructure("open store", err)
	}
	return &env{cfg: cfg, logger: logger, store: st, db: db}, nil
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
}

func parseType(raw string) (importer.EntityType, error) {
	t, ok := importer.ParseType(raw)
	if !ok {
		names := make([]string, 0, len(importer.Types()))
		for _, t := range importer.Types() {
			names = append(names, string(t))
		}
		return "", usageError{apperr.Validation("unsupported type: " + raw + " (want one of " + strings.Join(names, ", ") + ")")}
	}
	return t, nil
}

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}
