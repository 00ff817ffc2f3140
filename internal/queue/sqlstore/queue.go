package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"agent-gateway/internal/model"
	"agent-gateway/internal/queue"
	pkgLog "agent-gateway/pkg/log"
)

const (
	stateReady    = "ready"
	stateInflight = "inflight"
	stateFailed   = "failed"

	defaultLeaseTimeout   = 5 * time.Minute
	defaultReaperInterval = 30 * time.Second
	defaultPollInterval   = 250 * time.Millisecond
)

// queueMessage is the persisted queue row. Metadata is stored as a JSON
// string so the schema works on both sqlite and postgres.
type queueMessage struct {
	bun.BaseModel `bun:"table:queue_messages,alias:qm"`

	TaskID         string     `bun:"task_id,pk"`
	InstallationID string     `bun:"installation_id,notnull"`
	Provider       string     `bun:"provider,notnull"`
	InputMessage   string     `bun:"input_message,notnull"`
	Priority       int        `bun:"priority,notnull"`
	SourceMetadata string     `bun:"source_metadata"`
	State          string     `bun:"state,notnull"`
	EnqueuedAt     time.Time  `bun:"enqueued_at,notnull"`
	LeaseExpiresAt *time.Time `bun:"lease_expires_at"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
}

// Config tunes lease and polling behavior.
type Config struct {
	LeaseTimeout   time.Duration
	ReaperInterval time.Duration
	PollInterval   time.Duration
}

// Queue is the durable Queue implementation backed by a shared bun store.
// Dequeue claims rows with an optimistic state transition, so multiple
// worker processes may safely share one table.
type Queue struct {
	db   *bun.DB
	l    pkgLog.Logger
	cfg  Config
	done chan struct{}
}

func New(db *bun.DB, l pkgLog.Logger, cfg Config) *Queue {
	if cfg.LeaseTimeout <= 0 {
		cfg.LeaseTimeout = defaultLeaseTimeout
	}
	if cfg.ReaperInterval <= 0 {
		cfg.ReaperInterval = defaultReaperInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	q := &Queue{db: db, l: l, cfg: cfg, done: make(chan struct{})}
	go q.runReaper()
	return q
}

// Close stops the background reaper.
func (q *Queue) Close() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}

// CreateSchema creates the queue table if missing.
func (q *Queue) CreateSchema(ctx context.Context) error {
	_, err := q.db.NewCreateTable().
		Model((*queueMessage)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", queue.ErrUnavailable, err)
	}
	return nil
}

func (q *Queue) Enqueue(ctx context.Context, msg *model.TaskMessage) error {
	metadata, err := json.Marshal(msg.SourceMetadata)
	if err != nil {
		return fmt.Errorf("marshal source metadata: %w", err)
	}

	row := &queueMessage{
		TaskID:         msg.TaskID,
		InstallationID: msg.InstallationID,
		Provider:       msg.Provider,
		InputMessage:   msg.InputMessage,
		Priority:       int(msg.Priority),
		SourceMetadata: string(metadata),
		State:          stateReady,
		EnqueuedAt:     time.Now().UTC(),
		CreatedAt:      msg.CreatedAt,
	}

	if _, err := q.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrUnavailable, err)
	}
	return nil
}

func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*model.TaskMessage, error) {
	deadline := time.Now().Add(timeout)

	for {
		msg, err := q.claim(ctx)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return msg, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		wait := q.cfg.PollInterval
		if wait > remaining {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-q.done:
			timer.Stop()
			return nil, queue.ErrClosed
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// claim attempts one atomic take of the most urgent ready row. A lost race
// against another consumer is retried immediately; an empty queue returns
// (nil, nil).
func (q *Queue) claim(ctx context.Context) (*model.TaskMessage, error) {
	for {
		var row queueMessage
		err := q.db.NewSelect().
			Model(&row).
			Where("state = ?", stateReady).
			OrderExpr("priority ASC, enqueued_at ASC").
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", queue.ErrUnavailable, err)
		}

		lease := time.Now().UTC().Add(q.cfg.LeaseTimeout)
		res, err := q.db.NewUpdate().
			Model((*queueMessage)(nil)).
			Set("state = ?", stateInflight).
			Set("lease_expires_at = ?", lease).
			Where("task_id = ? AND state = ?", row.TaskID, stateReady).
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", queue.ErrUnavailable, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", queue.ErrUnavailable, err)
		}
		if affected == 0 {
			// Another consumer claimed this row first.
			continue
		}

		return rowToMessage(&row)
	}
}

func (q *Queue) Ack(ctx context.Context, taskID string) error {
	res, err := q.db.NewDelete().
		Model((*queueMessage)(nil)).
		Where("task_id = ? AND state = ?", taskID, stateInflight).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", queue.ErrUnavailable, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return queue.ErrUnknownTask
	}
	return nil
}

func (q *Queue) Reject(ctx context.Context, taskID string, requeue bool) error {
	update := q.db.NewUpdate().
		Model((*queueMessage)(nil)).
		Set("lease_expires_at = NULL").
		Where("task_id = ? AND state = ?", taskID, stateInflight)

	if requeue {
		update = update.Set("state = ?", stateReady)
	} else {
		update = update.Set("state = ?", stateFailed)
	}

	res, err := update.Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", queue.ErrUnavailable, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return queue.ErrUnknownTask
	}
	return nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	count, err := q.db.NewSelect().
		Model((*queueMessage)(nil)).
		Where("state = ?", stateReady).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", queue.ErrUnavailable, err)
	}
	return count, nil
}

func (q *Queue) runReaper() {
	ticker := time.NewTicker(q.cfg.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := q.ReapExpired(ctx, time.Now().UTC()); err != nil && q.l != nil {
				q.l.Warnf(ctx, "Queue reaper sweep failed: %v", err)
			}
			cancel()
		}
	}
}

// ReapExpired returns rows with expired leases to the ready state at their
// original priority.
func (q *Queue) ReapExpired(ctx context.Context, now time.Time) error {
	res, err := q.db.NewUpdate().
		Model((*queueMessage)(nil)).
		Set("state = ?", stateReady).
		Set("lease_expires_at = NULL").
		Where("state = ? AND lease_expires_at < ?", stateInflight, now).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", queue.ErrUnavailable, err)
	}
	if affected, _ := res.RowsAffected(); affected > 0 && q.l != nil {
		q.l.Warnf(ctx, "Reaped %d expired queue leases", affected)
	}
	return nil
}

func rowToMessage(row *queueMessage) (*model.TaskMessage, error) {
	metadata := make(map[string]string)
	if row.SourceMetadata != "" {
		if err := json.Unmarshal([]byte(row.SourceMetadata), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal source metadata: %w", err)
		}
	}

	return &model.TaskMessage{
		TaskID:         row.TaskID,
		InstallationID: row.InstallationID,
		Provider:       row.Provider,
		InputMessage:   row.InputMessage,
		Priority:       model.TaskPriority(row.Priority),
		SourceMetadata: metadata,
		CreatedAt:      row.CreatedAt,
	}, nil
}
