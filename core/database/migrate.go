package database

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/gruppenrun/clubbot/core/logger"
)

// RunMigrations applies all up migrations from the migrations directory.
func RunMigrations(cfg Config) error {
	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	sourceURL := "file://" + dir
	dbURL := fmt.Sprintf("sqlite3://%s?_foreign_keys=on", cfg.File)

	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		logger.MIG.Error("migrate init failed",
			slog.String("event", "db.migrate"),
			slog.String("source", sourceURL),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("migrate init: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.MIG.Warn("migrate close",
				slog.String("event", "db.migrate"),
				slog.Any("source_err", srcErr),
				slog.Any("db_err", dbErr),
			)
		}
	}()

	start := time.Now()
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.Error("migrations failed",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("migrate up: %w", err)
	}

	status := "applied"
	if errors.Is(err, migrate.ErrNoChange) {
		status = "up_to_date"
	}
	logger.MIG.Info("migrations done",
		slog.String("event", "db.migrate"),
		slog.String("status", status),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}
