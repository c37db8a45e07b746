// Package queue implements the persistent, typed job queue described in
// spec.md §4.6: Enqueue with fingerprint dedup, atomic Claim, Complete/Fail
// with bounded retry, and lease recovery.
//
// Grounded directly on the teacher's pkg/queue (pool.go/worker.go/orphan.go/
// types.go): sentinel errors, lease-based orphan recovery run on a ticker,
// the executor/worker split (here: Processor plays SessionExecutor's role).
// Claim uses a plain SQLite transaction (select, update, reload) in place of
// the teacher's Postgres FOR UPDATE SKIP LOCKED — SQLite's single-writer
// model serializes the claims instead.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/engagic/pipeline/pkg/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Config bounds retry/lease/retention behavior (spec.md §6).
type Config struct {
	MaxAttempts     int
	LeaseDuration   time.Duration
	RetentionWindow time.Duration // how long terminal entries survive GarbageCollect
}

// DefaultConfig returns spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		LeaseDuration:   15 * time.Minute,
		RetentionWindow: 7 * 24 * time.Hour,
	}
}

// Queue wraps the queue table with the claim/complete/fail protocol.
type Queue struct {
	db  *sqlx.DB
	cfg Config
}

// New wraps db (typically store.Store.SQLX(), sharing the one SQLite
// connection) with the given config.
func New(db *sqlx.DB, cfg Config) *Queue {
	return &Queue{db: db, cfg: cfg}
}

func fingerprint(jobType models.JobType, payload any) (string, string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("marshaling %s payload: %w", jobType, err)
	}

	switch p := payload.(type) {
	case models.MeetingPayload:
		return string(raw), p.MeetingID, nil
	case models.MatterPayload:
		return string(raw), p.MatterID, nil
	default:
		return "", "", fmt.Errorf("unsupported payload type %T", payload)
	}
}

// Enqueue writes a new job, deduplicating against any non-terminal entry
// sharing the same fingerprint (spec.md §4.6, §8). Returns the existing
// entry's ID, unchanged, when a non-terminal duplicate is found.
func (q *Queue) Enqueue(ctx context.Context, jobType models.JobType, payload any) (string, error) {
	payloadJSON, fp, err := fingerprint(jobType, payload)
	if err != nil {
		return "", err
	}

	tx, err := q.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("enqueueing %s job: %w", jobType, err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID string
	err = tx.GetContext(ctx, &existingID, `
		SELECT id FROM queue
		WHERE fingerprint = ? AND status NOT IN (?, ?)
		LIMIT 1
	`, fp, models.QueueStatusCompleted, models.QueueStatusFailed)
	switch {
	case err == nil:
		return existingID, tx.Commit()
	case err != sql.ErrNoRows:
		return "", fmt.Errorf("checking for existing %s job: %w", jobType, err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO queue (id, job_type, payload, fingerprint, status, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, id, jobType, payloadJSON, fp, models.QueueStatusPending, now)
	if err != nil {
		return "", fmt.Errorf("inserting %s job: %w", jobType, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing %s enqueue: %w", jobType, err)
	}
	return id, nil
}

// Claim atomically transitions up to limit pending rows to claimed, oldest
// first (ties broken by id), and returns them (spec.md §4.6, §5).
func (q *Queue) Claim(ctx context.Context, limit int) ([]models.QueueEntry, error) {
	tx, err := q.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("claiming jobs: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// SQLite has no UPDATE ... RETURNING before 3.35 in all builds, so claim
	// in steps inside one default (deferred) transaction, which takes the
	// write lock at the first write below,
	// serializing concurrent Claim calls the same way Postgres's
	// FOR UPDATE SKIP LOCKED does.
	var ids []string
	if err := tx.SelectContext(ctx, &ids, `
		SELECT id FROM queue WHERE status = ? ORDER BY created_at, id LIMIT ?
	`, models.QueueStatusPending, limit); err != nil {
		return nil, fmt.Errorf("selecting claimable jobs: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoJobsAvailable
	}

	now := time.Now().UTC()
	query, args, err := sqlx.In(`
		UPDATE queue SET status = ?, claimed_at = ? WHERE id IN (?)
	`, models.QueueStatusClaimed, now, ids)
	if err != nil {
		return nil, fmt.Errorf("building claim update: %w", err)
	}
	query = tx.Rebind(query)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("marking jobs claimed: %w", err)
	}

	selectQuery, selectArgs, err := sqlx.In(`
		SELECT id, job_type, payload, fingerprint, status, attempts,
		       COALESCE(last_error, '') AS last_error, claimed_at, created_at
		FROM queue WHERE id IN (?) ORDER BY created_at, id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("building claimed-rows select: %w", err)
	}
	selectQuery = tx.Rebind(selectQuery)

	var entries []models.QueueEntry
	if err := tx.SelectContext(ctx, &entries, selectQuery, selectArgs...); err != nil {
		return nil, fmt.Errorf("loading claimed jobs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}
	return entries, nil
}

// Complete marks a job completed. Idempotent: completing an already-
// completed job is a no-op, not an error (spec.md §8).
func (q *Queue) Complete(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE queue SET status = ? WHERE id = ? AND status != ?
	`, models.QueueStatusCompleted, id, models.QueueStatusCompleted)
	if err != nil {
		return fmt.Errorf("completing job %s: %w", id, err)
	}
	return nil
}

// Fail records a job failure. Retryable failures increment attempts and
// return to pending until max_attempts is reached; then, and for any
// non-retryable failure, the job terminal-fails (spec.md §4.6, §7).
func (q *Queue) Fail(ctx context.Context, id string, cause error, retryable bool) error {
	tx, err := q.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failing job %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	var attempts int
	if err := tx.GetContext(ctx, &attempts, `SELECT attempts FROM queue WHERE id = ?`, id); err != nil {
		if err == sql.ErrNoRows {
			return ErrJobNotFound
		}
		return fmt.Errorf("loading attempts for job %s: %w", id, err)
	}

	attempts++
	nextStatus := models.QueueStatusFailed
	if retryable && attempts < q.cfg.MaxAttempts {
		nextStatus = models.QueueStatusPending
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE queue SET status = ?, attempts = ?, last_error = ?, claimed_at = NULL WHERE id = ?
	`, nextStatus, attempts, cause.Error(), id)
	if err != nil {
		return fmt.Errorf("updating failed job %s: %w", id, err)
	}

	return tx.Commit()
}

// RecoverLeases returns any claimed entry whose lease has exceeded
// cfg.LeaseDuration to pending (spec.md §4.6, §8).
func (q *Queue) RecoverLeases(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-q.cfg.LeaseDuration)
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue SET status = ?, claimed_at = NULL
		WHERE status = ? AND claimed_at < ?
	`, models.QueueStatusPending, models.QueueStatusClaimed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("recovering leases: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking lease recovery result: %w", err)
	}
	return int(n), nil
}

// GarbageCollect deletes terminal entries older than cfg.RetentionWindow
// (spec.md §3: "may be garbage-collected in terminal states after a
// retention window").
func (q *Queue) GarbageCollect(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-q.cfg.RetentionWindow)
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM queue WHERE status IN (?, ?) AND created_at < ?
	`, models.QueueStatusCompleted, models.QueueStatusFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("garbage-collecting queue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking garbage collection result: %w", err)
	}
	return int(n), nil
}

// ResetStatus moves every entry currently in from back to pending with a
// cleared lease and attempt count, for the "queue reset <status>" CLI
// operation spec.md §6 names — an operator's manual unstick lever for jobs
// stuck in claimed or failed.
func (q *Queue) ResetStatus(ctx context.Context, from models.QueueStatus) (int, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue SET status = ?, attempts = 0, claimed_at = NULL, last_error = ''
		WHERE status = ?
	`, models.QueueStatusPending, from)
	if err != nil {
		return 0, fmt.Errorf("resetting %s entries: %w", from, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking reset result: %w", err)
	}
	return int(n), nil
}

// Stats returns counts of entries grouped by status, used by cmd/engagic's
// "queue stats" subcommand.
func (q *Queue) Stats(ctx context.Context) (map[models.QueueStatus]int, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("querying queue stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := make(map[models.QueueStatus]int)
	for rows.Next() {
		var status models.QueueStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning queue stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// DecodePayload unmarshals a claimed entry's payload into the typed shape
// for its job_type, wrapping decode errors and payloads missing their key
// field (meeting_id or matter_id) as CorruptPayloadError so a single
// legacy-format row doesn't crash the whole batch (spec.md §4: "legacy
// queue payload migration tolerance").
func DecodePayload(entry models.QueueEntry) (any, error) {
	switch entry.JobType {
	case models.JobTypeMeeting:
		var p models.MeetingPayload
		if err := json.Unmarshal([]byte(entry.Payload), &p); err != nil {
			return nil, &CorruptPayloadError{EntryID: entry.ID, JobType: string(entry.JobType), Err: err}
		}
		if p.MeetingID == "" {
			return nil, &CorruptPayloadError{EntryID: entry.ID, JobType: string(entry.JobType), Err: fmt.Errorf("payload has no meeting_id")}
		}
		return p, nil
	case models.JobTypeMatter:
		var p models.MatterPayload
		if err := json.Unmarshal([]byte(entry.Payload), &p); err != nil {
			return nil, &CorruptPayloadError{EntryID: entry.ID, JobType: string(entry.JobType), Err: err}
		}
		if p.MatterID == "" {
			return nil, &CorruptPayloadError{EntryID: entry.ID, JobType: string(entry.JobType), Err: fmt.Errorf("payload has no matter_id")}
		}
		return p, nil
	default:
		return nil, &CorruptPayloadError{EntryID: entry.ID, JobType: string(entry.JobType), Err: fmt.Errorf("unknown job_type")}
	}
}
