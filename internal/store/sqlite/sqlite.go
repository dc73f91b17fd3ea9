package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/lu-zhengda/courier/internal/store"
)

var _ store.Store = (*DB)(nil)

// DB is the Courier session store on SQLite: session metadata, push tokens
// and per-user inbox state.
type DB struct {
	db *sql.DB
}

// New opens the store at dsn and upgrades its schema to the latest version.
// Use ":memory:" for a throwaway database.
func New(dsn string) (*DB, error) {
	connStr := dsn + "?_journal_mode=WAL&_foreign_keys=on"
	if dsn == ":memory:" {
		connStr = ":memory:?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate(context.Background(), db, len(migrations)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &DB{db: db}, nil
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// migrate applies migrations until the schema is at version target. Each step
// runs in its own transaction together with its version bump.
func migrate(ctx context.Context, db *sql.DB, target int) error {
	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, len(migrations))
	}
	if current >= target {
		log.WithField("version", current).Trace("store_schema_current")
		return nil
	}

	for v := current; v < target; v++ {
		if err := applyMigration(ctx, db, v); err != nil {
			return err
		}
		log.WithField("version", v+1).Debug("store_schema_upgraded")
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, v int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", v+1, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
		return fmt.Errorf("failed to apply migration %d: %w", v+1, err)
	}
	// PRAGMA does not take bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, v+1)); err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", v+1, err)
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (s *DB) Close() error {
	return s.db.Close()
}
