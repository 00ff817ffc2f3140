package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"agent-gateway/internal/model"
	"agent-gateway/internal/queue"
	"agent-gateway/internal/queue/sqlstore"
)

func newSQLiteQueue(t *testing.T) *sqlstore.Queue {
	t.Helper()

	dsn := fmt.Sprintf("file:queue-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	q := sqlstore.New(db, nil, sqlstore.Config{
		LeaseTimeout: 100 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
	t.Cleanup(q.Close)

	if err := q.CreateSchema(context.Background()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return q
}

func msg(id string, p model.TaskPriority) *model.TaskMessage {
	return &model.TaskMessage{
		TaskID:         id,
		InstallationID: "inst-1",
		Provider:       "github",
		InputMessage:   "work on " + id,
		Priority:       p,
		SourceMetadata: map[string]string{"pr_number": "42"},
		CreatedAt:      time.Now().UTC(),
	}
}

func TestSQLQueuePriorityOrdering(t *testing.T) {
	q := newSQLiteQueue(t)
	ctx := context.Background()

	for _, m := range []*model.TaskMessage{
		msg("low", model.PriorityLow),
		msg("critical", model.PriorityCritical),
		msg("normal", model.PriorityNormal),
	} {
		if err := q.Enqueue(ctx, m); err != nil {
			t.Fatalf("enqueue %s: %v", m.TaskID, err)
		}
	}

	for _, want := range []string{"critical", "normal", "low"} {
		got, err := q.Dequeue(ctx, time.Second)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if got == nil || got.TaskID != want {
			t.Errorf("dequeued %v, want %s", got, want)
		}
	}
}

func TestSQLQueueRoundTripsMetadata(t *testing.T) {
	q := newSQLiteQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, msg("meta", model.PriorityHigh)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got, err := q.Dequeue(ctx, time.Second)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got.SourceMetadata["pr_number"] != "42" {
		t.Errorf("metadata = %v", got.SourceMetadata)
	}
	if got.Priority != model.PriorityHigh {
		t.Errorf("priority = %s", got.Priority)
	}
	if got.InstallationID != "inst-1" {
		t.Errorf("installation = %q", got.InstallationID)
	}
}

func TestSQLQueueDequeueTimeout(t *testing.T) {
	q := newSQLiteQueue(t)

	got, err := q.Dequeue(context.Background(), 30*time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil on empty queue, got %v", got)
	}
}

func TestSQLQueueAck(t *testing.T) {
	q := newSQLiteQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, msg("a", model.PriorityNormal)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	m, err := q.Dequeue(ctx, time.Second)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	if err := q.Ack(ctx, m.TaskID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if err := q.Ack(ctx, m.TaskID); err != queue.ErrUnknownTask {
		t.Errorf("double ack = %v, want ErrUnknownTask", err)
	}
	if n, _ := q.Len(ctx); n != 0 {
		t.Errorf("len = %d", n)
	}
}

func TestSQLQueueReject(t *testing.T) {
	q := newSQLiteQueue(t)
	ctx := context.Background()

	t.Run("requeue returns message", func(t *testing.T) {
		if err := q.Enqueue(ctx, msg("r1", model.PriorityNormal)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		if _, err := q.Dequeue(ctx, time.Second); err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if err := q.Reject(ctx, "r1", true); err != nil {
			t.Fatalf("reject: %v", err)
		}

		m, err := q.Dequeue(ctx, time.Second)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if m == nil || m.TaskID != "r1" {
			t.Errorf("got %v, want r1", m)
		}
		if err := q.Ack(ctx, "r1"); err != nil {
			t.Fatalf("ack: %v", err)
		}
	})

	t.Run("drop marks failed", func(t *testing.T) {
		if err := q.Enqueue(ctx, msg("r2", model.PriorityNormal)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		if _, err := q.Dequeue(ctx, time.Second); err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if err := q.Reject(ctx, "r2", false); err != nil {
			t.Fatalf("reject: %v", err)
		}

		// A failed row is neither ready nor claimable.
		if n, _ := q.Len(ctx); n != 0 {
			t.Errorf("len = %d", n)
		}
		if m, _ := q.Dequeue(ctx, 30*time.Millisecond); m != nil {
			t.Errorf("failed message resurfaced: %v", m)
		}
	})
}

func TestSQLQueueReapExpiredLeases(t *testing.T) {
	q := newSQLiteQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, msg("stalled", model.PriorityNormal)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Dequeue(ctx, time.Second); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	// Lease is 100ms; sweep as-of a future instant returns the row.
	if err := q.ReapExpired(ctx, time.Now().UTC().Add(time.Second)); err != nil {
		t.Fatalf("reap: %v", err)
	}

	m, err := q.Dequeue(ctx, time.Second)
	if err != nil {
		t.Fatalf("dequeue after reap: %v", err)
	}
	if m == nil || m.TaskID != "stalled" {
		t.Errorf("got %v, want stalled", m)
	}
}
