package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresAppender inserts entries into the run_ledger table.
type PostgresAppender struct {
	db *sql.DB
}

func NewPostgresAppender(db *sql.DB) *PostgresAppender {
	if db == nil {
		return nil
	}
	return &PostgresAppender{db: db}
}

// EnsureSchema creates the ledger table when absent.
func (a *PostgresAppender) EnsureSchema(ctx context.Context) error {
	if a == nil || a.db == nil {
		return fmt.Errorf("ledger appender not initialized")
	}
	_, err := a.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS run_ledger (
		run_id     TEXT PRIMARY KEY,
		schema     TEXT NOT NULL,
		version    TEXT NOT NULL,
		backend    TEXT NOT NULL,
		image_ref  TEXT,
		command    JSONB NOT NULL,
		use_gpu    BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("ensure run_ledger schema: %w", err)
	}
	return nil
}

func (a *PostgresAppender) Append(ctx context.Context, entry Entry) error {
	if a == nil || a.db == nil {
		return fmt.Errorf("ledger appender not initialized")
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	commandJSON, err := json.Marshal(entry.Command)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	_, err = a.db.ExecContext(
		ctx,
		`INSERT INTO run_ledger (
			run_id,
			schema,
			version,
			backend,
			image_ref,
			command,
			use_gpu,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		entry.RunID,
		entry.Schema,
		entry.Version,
		entry.Backend,
		nullIfEmpty(entry.ImageRef),
		commandJSON,
		entry.UseGPU,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run_ledger entry: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
