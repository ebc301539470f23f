package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
)`

// Migrate applies every migration newer than the recorded schema version and
// returns how many ran. Each version commits on its own, so a failure leaves
// the earlier ones in place.
func (db *DB) Migrate(ctx context.Context) (int, error) {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return 0, fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	versions := make([]int, 0, len(migrationsSQL))
	for v := range migrationsSQL {
		versions = append(versions, v)
	}
	sort.Ints(versions)

	applied := 0
	for _, version := range versions {
		if version <= current {
			continue
		}
		err := db.WithTx(ctx, func(tx *Tx) error {
			if _, err := tx.ExecContext(ctx, migrationsSQL[version]); err != nil {
				return fmt.Errorf("execute migration %d: %w", version, err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
				return fmt.Errorf("record migration %d: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return applied, err
		}
		db.logger.Info("migration applied", slog.Int("version", version))
		applied++
	}

	db.logger.Info("schema up to date",
		slog.Int("applied", applied),
		slog.Int("version", max(current, versions[len(versions)-1])),
	)
	return applied, nil
}
