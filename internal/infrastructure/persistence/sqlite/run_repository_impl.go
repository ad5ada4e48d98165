package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/infrastructure/transaction"
)

// dbExecutor is satisfied by both *sql.DB and *sql.Tx
type dbExecutor interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// RunRepositoryImpl implements output.RunRepository with SQLite
type RunRepositoryImpl struct {
	db *sql.DB
	tm *transaction.SQLiteTransactionManager
}

func NewRunRepository(db *sql.DB) *RunRepositoryImpl {
	return &RunRepositoryImpl{db: db, tm: transaction.NewSQLiteTransactionManager(db)}
}

func (r *RunRepositoryImpl) getDB(ctx context.Context) dbExecutor {
	if tx, ok := transaction.GetTxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

const runColumns = `request_id, repository, prompt, status, failed_stage, error_kind, error_message,
	pr_url, branch, provider, edits_applied, duration_ms, started_at, finished_at`

// Save upserts the run and replaces its attempts in one transaction
func (r *RunRepositoryImpl) Save(ctx context.Context, run *output.RunRecord) error {
	return r.tm.InTransaction(ctx, func(ctx context.Context) error {
		db := r.getDB(ctx)
		_, err := db.ExecContext(ctx, `
			INSERT INTO runs (`+runColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(request_id) DO UPDATE SET
				repository = excluded.repository,
				prompt = excluded.prompt,
				status = excluded.status,
				failed_stage = excluded.failed_stage,
				error_kind = excluded.error_kind,
				error_message = excluded.error_message,
				pr_url = excluded.pr_url,
				branch = excluded.branch,
				provider = excluded.provider,
				edits_applied = excluded.edits_applied,
				duration_ms = excluded.duration_ms,
				started_at = excluded.started_at,
				finished_at = excluded.finished_at`,
			run.RequestID, run.Repository, run.Prompt, run.Status,
			run.FailedStage, run.ErrorKind, run.ErrorMessage,
			run.PRURL, run.Branch, run.Provider, run.EditsApplied,
			run.Duration.Milliseconds(),
			formatTime(run.StartedAt), formatTime(run.FinishedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert run %s: %w", run.RequestID, err)
		}

		if _, err := db.ExecContext(ctx, `DELETE FROM provider_attempts WHERE request_id = ?`, run.RequestID); err != nil {
			return fmt.Errorf("clear attempts for %s: %w", run.RequestID, err)
		}
		for _, a := range run.Attempts {
			if _, err := db.ExecContext(ctx, `
				INSERT INTO provider_attempts (request_id, ordinal, provider, outcome, reason, tries)
				VALUES (?, ?, ?, ?, ?, ?)`,
				run.RequestID, a.Ordinal, a.Provider, a.Outcome, a.Reason, a.Tries,
			); err != nil {
				return fmt.Errorf("insert attempt %d for %s: %w", a.Ordinal, run.RequestID, err)
			}
		}
		return nil
	})
}

// FindByID returns nil, nil when the run does not exist
func (r *RunRepositoryImpl) FindByID(ctx context.Context, requestID string) (*output.RunRecord, error) {
	db := r.getDB(ctx)
	run, err := scanRun(db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE request_id = ?`, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find run %s: %w", requestID, err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT ordinal, provider, outcome, reason, tries
		FROM provider_attempts WHERE request_id = ? ORDER BY ordinal`, requestID)
	if err != nil {
		return nil, fmt.Errorf("find attempts for %s: %w", requestID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var a output.AttemptRecord
		if err := rows.Scan(&a.Ordinal, &a.Provider, &a.Outcome, &a.Reason, &a.Tries); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		run.Attempts = append(run.Attempts, a)
	}
	return run, rows.Err()
}

// List returns runs newest first without their attempts. limit <= 0 means 20.
func (r *RunRepositoryImpl) List(ctx context.Context, limit int) ([]*output.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.getDB(ctx).QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, request_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*output.RunRecord, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*output.RunRecord, error) {
	var (
		run               output.RunRecord
		durationMs        int64
		started, finished string
	)
	if err := row.Scan(
		&run.RequestID, &run.Repository, &run.Prompt, &run.Status,
		&run.FailedStage, &run.ErrorKind, &run.ErrorMessage,
		&run.PRURL, &run.Branch, &run.Provider, &run.EditsApplied,
		&durationMs, &started, &finished,
	); err != nil {
		return nil, err
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return &run, nil
}

// Fixed width so that text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
