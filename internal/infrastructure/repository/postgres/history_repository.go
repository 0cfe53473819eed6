// Package postgres keeps the durable audit trail of finished sessions. Live
// session state never touches the database; only terminal outcomes land here.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

var _ ports.HistoryRepository = (*HistoryRepository)(nil)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent instance startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS session_history (
	session_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	total_files INTEGER NOT NULL,
	success_count INTEGER NOT NULL,
	failed_count INTEGER NOT NULL,
	message TEXT NOT NULL,
	elapsed_seconds DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session_file_history (
	session_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	filename TEXT NOT NULL,
	outcome TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (session_id, position)
);

CREATE INDEX IF NOT EXISTS idx_session_history_finished_at ON session_history(finished_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveOutcome writes the session summary and one row per processed file in a
// single transaction. Replaying the same session overwrites the previous
// rows, so a redelivered terminal event stays harmless.
func (r *HistoryRepository) SaveOutcome(ctx context.Context, session *domain.Session, terminal domain.ProgressSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outcome tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	successCount := len(session.Records)
	failedCount := len(session.Failures)
	if terminal.SuccessCount != nil {
		successCount = *terminal.SuccessCount
	}
	if terminal.FailedCount != nil {
		failedCount = *terminal.FailedCount
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO session_history (
	session_id, status, total_files, success_count, failed_count, message, elapsed_seconds, created_at, finished_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (session_id) DO UPDATE SET
	status = EXCLUDED.status,
	total_files = EXCLUDED.total_files,
	success_count = EXCLUDED.success_count,
	failed_count = EXCLUDED.failed_count,
	message = EXCLUDED.message,
	elapsed_seconds = EXCLUDED.elapsed_seconds,
	finished_at = EXCLUDED.finished_at
`,
		session.ID, string(session.Status), len(session.Files), successCount, failedCount,
		terminal.Message, terminal.ElapsedTime, session.CreatedAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_file_history WHERE session_id = $1`, session.ID); err != nil {
		return fmt.Errorf("clear file history: %w", err)
	}

	position := 0
	for _, rec := range session.Records {
		_, err := tx.ExecContext(ctx, `
INSERT INTO session_file_history (session_id, position, filename, outcome, error_message)
VALUES ($1,$2,$3,$4,$5)
`, session.ID, position, rec.SourceFile, string(rec.Status), "")
		if err != nil {
			return fmt.Errorf("insert file history: %w", err)
		}
		position++
	}
	for _, f := range session.Failures {
		_, err := tx.ExecContext(ctx, `
INSERT INTO session_file_history (session_id, position, filename, outcome, error_message)
VALUES ($1,$2,$3,$4,$5)
`, session.ID, position, f.Filename, "error", f.Error)
		if err != nil {
			return fmt.Errorf("insert file history: %w", err)
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outcome tx: %w", err)
	}
	return nil
}
