package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"agent-gateway/internal/model"
	"agent-gateway/internal/queue"
)

func newTestQueue(t *testing.T, cfg Config) *Queue {
	t.Helper()
	q := New(nil, cfg)
	t.Cleanup(q.Close)
	return q
}

func msg(id string, p model.TaskPriority) *model.TaskMessage {
	return &model.TaskMessage{
		TaskID:       id,
		Provider:     "github",
		InputMessage: "work on " + id,
		Priority:     p,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestQueuePriorityOrdering(t *testing.T) {
	q := newTestQueue(t, Config{})
	ctx := context.Background()

	// Enqueue out of priority order.
	if err := q.Enqueue(ctx, msg("low", model.PriorityLow)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, msg("normal", model.PriorityNormal)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, msg("critical", model.PriorityCritical)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, msg("high", model.PriorityHigh)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	for _, want := range []string{"critical", "high", "normal", "low"} {
		got, err := q.Dequeue(ctx, time.Second)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if got.TaskID != want {
			t.Errorf("dequeued %q, want %q", got.TaskID, want)
		}
	}
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := newTestQueue(t, Config{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ctx, msg(fmt.Sprintf("n%d", i), model.PriorityNormal)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	for i := 0; i < 5; i++ {
		got, err := q.Dequeue(ctx, time.Second)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if want := fmt.Sprintf("n%d", i); got.TaskID != want {
			t.Errorf("dequeued %q, want %q", got.TaskID, want)
		}
	}
}

func TestQueueDequeueTimeout(t *testing.T) {
	q := newTestQueue(t, Config{})

	start := time.Now()
	got, err := q.Dequeue(context.Background(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil message on timeout, got %v", got)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("returned too early: %v", elapsed)
	}
}

func TestQueueDequeueWakesOnEnqueue(t *testing.T) {
	q := newTestQueue(t, Config{})
	ctx := context.Background()

	got := make(chan *model.TaskMessage, 1)
	go func() {
		m, _ := q.Dequeue(ctx, 2*time.Second)
		got <- m
	}()

	time.Sleep(20 * time.Millisecond)
	if err := q.Enqueue(ctx, msg("wakeup", model.PriorityNormal)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case m := <-got:
		if m == nil || m.TaskID != "wakeup" {
			t.Errorf("got %v, want wakeup", m)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked consumer was not woken")
	}
}

func TestQueueAckRemovesLease(t *testing.T) {
	q := newTestQueue(t, Config{})
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

	// Even a forced reap must not resurrect an acked message.
	q.reapExpired(time.Now().Add(time.Hour))
	if n, _ := q.Len(ctx); n != 0 {
		t.Errorf("len = %d, want 0", n)
	}

	if err := q.Ack(ctx, m.TaskID); err != queue.ErrUnknownTask {
		t.Errorf("double ack = %v, want ErrUnknownTask", err)
	}
}

func TestQueueRejectRequeuePreservesPosition(t *testing.T) {
	q := newTestQueue(t, Config{})
	ctx := context.Background()

	if err := q.Enqueue(ctx, msg("first", model.PriorityNormal)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := q.Enqueue(ctx, msg("second", model.PriorityNormal)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	m, err := q.Dequeue(ctx, time.Second)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if m.TaskID != "first" {
		t.Fatalf("dequeued %q, want first", m.TaskID)
	}

	// Requeued with its original enqueue time, so it goes back to the front.
	if err := q.Reject(ctx, "first", true); err != nil {
		t.Fatalf("reject: %v", err)
	}

	m, err = q.Dequeue(ctx, time.Second)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if m.TaskID != "first" {
		t.Errorf("dequeued %q, want first again", m.TaskID)
	}
}

func TestQueueRejectDropDiscards(t *testing.T) {
	q := newTestQueue(t, Config{})
	ctx := context.Background()

	if err := q.Enqueue(ctx, msg("doomed", model.PriorityNormal)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Dequeue(ctx, time.Second); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	if err := q.Reject(ctx, "doomed", false); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if n, _ := q.Len(ctx); n != 0 {
		t.Errorf("len = %d, want 0", n)
	}
	if err := q.Reject(ctx, "doomed", false); err != queue.ErrUnknownTask {
		t.Errorf("second reject = %v, want ErrUnknownTask", err)
	}
}

func TestQueueReapsExpiredLeases(t *testing.T) {
	q := newTestQueue(t, Config{LeaseTimeout: 10 * time.Millisecond, ReaperInterval: 5 * time.Millisecond})
	ctx := context.Background()

	if err := q.Enqueue(ctx, msg("stalled", model.PriorityNormal)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Dequeue(ctx, time.Second); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	// Consumer never acks; the reaper must return the message.
	m, err := q.Dequeue(ctx, time.Second)
	if err != nil {
		t.Fatalf("dequeue after reap: %v", err)
	}
	if m == nil || m.TaskID != "stalled" {
		t.Errorf("got %v, want stalled", m)
	}
}

func TestQueueConcurrentConsumers(t *testing.T) {
	q := newTestQueue(t, Config{})
	ctx := context.Background()

	const total = 50
	for i := 0; i < total; i++ {
		if err := q.Enqueue(ctx, msg(fmt.Sprintf("t%d", i), model.TaskPriority(i%4))); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	var mu sync.Mutex
	seen := make(map[string]int)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				m, err := q.Dequeue(ctx, 100*time.Millisecond)
				if err != nil || m == nil {
					return
				}
				mu.Lock()
				seen[m.TaskID]++
				mu.Unlock()
				if err := q.Ack(ctx, m.TaskID); err != nil {
					t.Errorf("ack %s: %v", m.TaskID, err)
				}
			}
		}()
	}
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("consumed %d distinct messages, want %d", len(seen), total)
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("message %s consumed %d times", id, n)
		}
	}
}

func TestQueueClose(t *testing.T) {
	q := New(nil, Config{})
	q.Close()

	if err := q.Enqueue(context.Background(), msg("x", model.PriorityNormal)); err != queue.ErrClosed {
		t.Errorf("enqueue after close = %v, want ErrClosed", err)
	}
	if _, err := q.Dequeue(context.Background(), time.Second); err != queue.ErrClosed {
		t.Errorf("dequeue after close = %v, want ErrClosed", err)
	}
}
