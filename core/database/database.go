// Package database opens the embedded SQLite file backing the bot and
// applies schema migrations.
package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gruppenrun/clubbot/core/logger"
)

// Config holds embedded database settings.
type Config struct {
	// File is the path to the SQLite database file.
	File string
	// MigrationsDir contains the golang-migrate SQL files.
	MigrationsDir string
}

// Connect opens the database file and verifies connectivity.
//
// A single writer connection is enforced: SQLite serializes writes anyway,
// and keeping one connection avoids SQLITE_BUSY under concurrent handlers.
func Connect(cfg Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", cfg.File)

	start := time.Now()
	db, err := sqlx.Connect("sqlite3", dsn)
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("driver", "sqlite3"),
			slog.String("file", cfg.File),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(1)

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", "sqlite3"),
		slog.String("file", cfg.File),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	return db, nil
}
