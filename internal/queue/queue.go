// Package queue implements the durable, priority-ordered, retryable work
// queue backing the asynchronous pipeline stages. Items live in a SQLite
// table and are never deleted: terminal states are part of the audit trail.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Status is the lifecycle state of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRetrying   Status = "retrying"
)

// Well-known task types.
const (
	TypePersistBatch   = "persist_batch"
	TypeTriggerMatch   = "trigger_match"
	TypeSendEmail      = "send_email"
	TypeUserProcessing = "user_processing"
)

// Item is one unit of asynchronous work.
type Item struct {
	ID           string
	Type         string
	Priority     int // 1 (lowest) to 10 (highest)
	Payload      json.RawMessage
	Attempts     int
	MaxAttempts  int
	CreatedAt    time.Time
	ScheduledFor time.Time
	Status       Status
	Error        string
	Result       json.RawMessage
}

// Options tunes retry behavior.
type Options struct {
	BackoffBase        time.Duration  // default 5s
	BackoffCap         time.Duration  // default 5m
	MaxAttemptsByType  map[string]int // per-type override
	DefaultMaxAttempts int            // default 3
}

// DefaultMaxAttempts reflects the cost of each task type: expensive external
// calls (scrape, match) fail fast and get re-triggered by the next scheduled
// run instead of retrying repeatedly.
var DefaultMaxAttempts = map[string]int{
	TypePersistBatch:   2,
	TypeTriggerMatch:   2,
	TypeSendEmail:      3,
	TypeUserProcessing: 3,
}

// Queue is a SQLite-backed durable task queue.
type Queue struct {
	db   *sql.DB
	opts Options
	now  func() time.Time
}

// Open opens (or creates) the queue database at dbPath and ensures the
// queue_items table exists.
func Open(dbPath string, opts Options) (*Queue, error) {
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 5 * time.Second
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = 5 * time.Minute
	}
	if opts.DefaultMaxAttempts <= 0 {
		opts.DefaultMaxAttempts = 3
	}
	if opts.MaxAttemptsByType == nil {
		opts.MaxAttemptsByType = DefaultMaxAttempts
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening queue db: %w", err)
	}
	// Single connection: claim updates then serialize at the pool instead of
	// surfacing SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging queue db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS queue_items (
		id            TEXT PRIMARY KEY,
		type          TEXT NOT NULL,
		priority      INTEGER NOT NULL,
		payload       TEXT NOT NULL,
		attempts      INTEGER NOT NULL DEFAULT 0,
		max_attempts  INTEGER NOT NULL,
		created_at    INTEGER NOT NULL,
		scheduled_for INTEGER NOT NULL,
		status        TEXT NOT NULL,
		error         TEXT NOT NULL DEFAULT '',
		result        TEXT,
		updated_at    INTEGER NOT NULL
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating queue_items table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_queue_claim
		ON queue_items (status, scheduled_for, priority)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating claim index: %w", err)
	}

	return &Queue{db: db, opts: opts, now: time.Now}, nil
}

// Close closes the underlying database.
func (q *Queue) Close() error {
	return q.db.Close()
}

// maxAttemptsFor returns the per-type attempt budget.
func (q *Queue) maxAttemptsFor(taskType string) int {
	if n, ok := q.opts.MaxAttemptsByType[taskType]; ok {
		return n
	}
	return q.opts.DefaultMaxAttempts
}

// Enqueue inserts a new pending item and returns its id. A zero scheduledFor
// means "runnable now".
func (q *Queue) Enqueue(ctx context.Context, taskType string, payload json.RawMessage, priority int, scheduledFor time.Time) (string, error) {
	if taskType == "" {
		return "", fmt.Errorf("enqueue: task type is required")
	}
	if priority < 1 || priority > 10 {
		return "", fmt.Errorf("enqueue: priority must be 1-10, got %d", priority)
	}
	if payload == nil {
		payload = json.RawMessage("{}")
	}

	now := q.now().UTC()
	if scheduledFor.IsZero() {
		scheduledFor = now
	}

	id := uuid.NewString()
	_, err := q.db.ExecContext(ctx, `INSERT INTO queue_items
		(id, type, priority, payload, attempts, max_attempts, created_at, scheduled_for, status, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		id, taskType, priority, string(payload), q.maxAttemptsFor(taskType),
		now.UnixMilli(), scheduledFor.UTC().UnixMilli(), StatusPending, now.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return id, nil
}

// ClaimNext atomically claims the highest-priority due item of the given
// types (all types when none given), moving it to processing. Returns
// (nil, nil) when nothing is due. The conditional UPDATE guarantees an item
// is claimed by at most one worker.
func (q *Queue) ClaimNext(ctx context.Context, types ...string) (*Item, error) {
	now := q.now().UTC()

	query := `UPDATE queue_items SET status = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM queue_items
			WHERE status IN (?, ?) AND scheduled_for <= ?`
	args := []any{StatusProcessing, now.UnixMilli(), StatusPending, StatusRetrying, now.UnixMilli()}

	if len(types) > 0 {
		query += ` AND type IN (` + placeholders(len(types)) + `)`
		for _, t := range types {
			args = append(args, t)
		}
	}
	query += `
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
		) AND status IN (?, ?)
		RETURNING id, type, priority, payload, attempts, max_attempts, created_at, scheduled_for, status, error, result`
	args = append(args, StatusPending, StatusRetrying)

	item, err := scanItem(q.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next: %w", err)
	}
	return item, nil
}

// Complete marks a processing item as completed with its result.
func (q *Queue) Complete(ctx context.Context, id string, result json.RawMessage) error {
	res, err := q.db.ExecContext(ctx, `UPDATE queue_items
		SET status = ?, result = ?, error = '', updated_at = ?
		WHERE id = ? AND status = ?`,
		StatusCompleted, nullableJSON(result), q.now().UTC().UnixMilli(), id, StatusProcessing)
	if err != nil {
		return fmt.Errorf("complete %s: %w", id, err)
	}
	return requireOneRow(res, id, "complete")
}

// Fail records a failure on a processing item and drives the retry/terminal
// transition: below the attempt budget the item becomes retrying with
// scheduled_for pushed forward by exponential backoff; at the budget it goes
// to failed and is never rescheduled. Returns the resulting status.
func (q *Queue) Fail(ctx context.Context, id string, itemErr error) (Status, error) {
	msg := ""
	if itemErr != nil {
		msg = itemErr.Error()
	}

	var attempts, maxAttempts int
	err := q.db.QueryRowContext(ctx,
		`SELECT attempts, max_attempts FROM queue_items WHERE id = ? AND status = ?`,
		id, StatusProcessing).Scan(&attempts, &maxAttempts)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("fail %s: item not in processing state", id)
	}
	if err != nil {
		return "", fmt.Errorf("fail %s: %w", id, err)
	}

	attempts++
	now := q.now().UTC()

	if attempts >= maxAttempts {
		res, err := q.db.ExecContext(ctx, `UPDATE queue_items
			SET status = ?, attempts = ?, error = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			StatusFailed, attempts, msg, now.UnixMilli(), id, StatusProcessing)
		if err != nil {
			return "", fmt.Errorf("fail %s: %w", id, err)
		}
		return StatusFailed, requireOneRow(res, id, "fail")
	}

	delay := q.backoff(attempts)
	res, err := q.db.ExecContext(ctx, `UPDATE queue_items
		SET status = ?, attempts = ?, error = ?, scheduled_for = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		StatusRetrying, attempts, msg, now.Add(delay).UnixMilli(), now.UnixMilli(), id, StatusProcessing)
	if err != nil {
		return "", fmt.Errorf("fail %s: %w", id, err)
	}
	return StatusRetrying, requireOneRow(res, id, "fail")
}

// backoff computes base * 2^attempts, capped.
func (q *Queue) backoff(attempts int) time.Duration {
	delay := q.opts.BackoffBase
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= q.opts.BackoffCap {
			return q.opts.BackoffCap
		}
	}
	return delay
}

// ErrNotFound is returned by Get for an unknown item id.
var ErrNotFound = errors.New("queue item not found")

// Get returns a single item by id.
func (q *Queue) Get(ctx context.Context, id string) (*Item, error) {
	item, err := scanItem(q.db.QueryRowContext(ctx,
		`SELECT id, type, priority, payload, attempts, max_attempts, created_at, scheduled_for, status, error, result
		 FROM queue_items WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return item, nil
}

// Stats aggregates item counts by status and by type over a rolling window
// of item creation time. Used to detect backlog growth and terminal-failure
// spikes.
type Stats struct {
	ByStatus map[Status]int `json:"by_status"`
	ByType   map[string]int `json:"by_type"`
}

// Stats returns aggregate counts for items created within the window.
// A zero window means all items.
func (q *Queue) Stats(ctx context.Context, window time.Duration) (*Stats, error) {
	var cutoff int64
	if window > 0 {
		cutoff = q.now().UTC().Add(-window).UnixMilli()
	}

	stats := &Stats{
		ByStatus: make(map[Status]int),
		ByType:   make(map[string]int),
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT status, type, COUNT(*) FROM queue_items WHERE created_at >= ? GROUP BY status, type`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status Status
		var taskType string
		var count int
		if err := rows.Scan(&status, &taskType, &count); err != nil {
			return nil, fmt.Errorf("queue stats: %w", err)
		}
		stats.ByStatus[status] += count
		stats.ByType[taskType] += count
	}
	return stats, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullableJSON(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}

func requireOneRow(res sql.Result, id, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if n != 1 {
		return fmt.Errorf("%s %s: item not in processing state", op, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var payload string
	var createdAt, scheduledFor int64
	var result sql.NullString
	err := row.Scan(&item.ID, &item.Type, &item.Priority, &payload,
		&item.Attempts, &item.MaxAttempts, &createdAt, &scheduledFor,
		&item.Status, &item.Error, &result)
	if err != nil {
		return nil, err
	}
	item.Payload = json.RawMessage(payload)
	item.CreatedAt = time.UnixMilli(createdAt).UTC()
	item.ScheduledFor = time.UnixMilli(scheduledFor).UTC()
	if result.Valid {
		item.Result = json.RawMessage(result.String)
	}
	return &item, nil
}
