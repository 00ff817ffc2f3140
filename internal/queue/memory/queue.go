package memory

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"agent-gateway/internal/model"
	"agent-gateway/internal/queue"
	pkgLog "agent-gateway/pkg/log"
)

const (
	defaultLeaseTimeout   = 5 * time.Minute
	defaultReaperInterval = 30 * time.Second
)

// Config tunes lease and reaper behavior.
type Config struct {
	LeaseTimeout   time.Duration
	ReaperInterval time.Duration
}

type item struct {
	msg        *model.TaskMessage
	enqueuedAt time.Time
	seq        uint64
	index      int
}

// itemHeap orders by (priority, enqueuedAt, seq), most urgent and oldest
// first. seq breaks ties between messages enqueued in the same instant.
type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority < h[j].msg.Priority
	}
	if !h[i].enqueuedAt.Equal(h[j].enqueuedAt) {
		return h[i].enqueuedAt.Before(h[j].enqueuedAt)
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

type inflightEntry struct {
	item         *item
	leaseExpires time.Time
}

// Queue is the in-memory Queue implementation: a binary heap guarded by one
// mutex, with leases tracked per in-flight task and a background reaper.
type Queue struct {
	mu       sync.Mutex
	items    itemHeap
	inflight map[string]*inflightEntry
	seq      uint64
	closed   bool

	signal chan struct{}
	done   chan struct{}

	leaseTimeout time.Duration
	l            pkgLog.Logger
}

func New(l pkgLog.Logger, cfg Config) *Queue {
	if cfg.LeaseTimeout <= 0 {
		cfg.LeaseTimeout = defaultLeaseTimeout
	}
	if cfg.ReaperInterval <= 0 {
		cfg.ReaperInterval = defaultReaperInterval
	}

	q := &Queue{
		inflight:     make(map[string]*inflightEntry),
		signal:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		leaseTimeout: cfg.LeaseTimeout,
		l:            l,
	}
	go q.runReaper(cfg.ReaperInterval)
	return q
}

// Close stops the reaper and wakes all blocked consumers.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *Queue) Enqueue(ctx context.Context, msg *model.TaskMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return queue.ErrClosed
	}

	q.seq++
	heap.Push(&q.items, &item{
		msg:        msg,
		enqueuedAt: time.Now(),
		seq:        q.seq,
	})
	q.notify()
	return nil
}

func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*model.TaskMessage, error) {
	deadline := time.Now().Add(timeout)

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, queue.ErrClosed
		}
		if q.items.Len() > 0 {
			it := heap.Pop(&q.items).(*item)
			q.inflight[it.msg.TaskID] = &inflightEntry{
				item:         it,
				leaseExpires: time.Now().Add(q.leaseTimeout),
			}
			// Another message may remain; wake the next waiter.
			if q.items.Len() > 0 {
				q.notify()
			}
			q.mu.Unlock()
			return it.msg, nil
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-q.signal:
			timer.Stop()
		case <-timer.C:
			return nil, nil
		case <-q.done:
			timer.Stop()
			return nil, queue.ErrClosed
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

func (q *Queue) Ack(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inflight[taskID]; !ok {
		return queue.ErrUnknownTask
	}
	delete(q.inflight, taskID)
	return nil
}

func (q *Queue) Reject(ctx context.Context, taskID string, requeue bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.inflight[taskID]
	if !ok {
		return queue.ErrUnknownTask
	}
	delete(q.inflight, taskID)

	if requeue {
		// Original enqueue time is kept so the message regains its place.
		heap.Push(&q.items, entry.item)
		q.notify()
	}
	return nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len(), nil
}

// notify wakes one blocked consumer. Callers must hold q.mu.
func (q *Queue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// runReaper periodically returns expired leases to the queue so a crashed
// consumer cannot strand a message.
func (q *Queue) runReaper(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
			q.reapExpired(time.Now())
		}
	}
}

func (q *Queue) reapExpired(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for taskID, entry := range q.inflight {
		if entry.leaseExpires.After(now) {
			continue
		}
		delete(q.inflight, taskID)
		heap.Push(&q.items, entry.item)
		q.notify()
		if q.l != nil {
			q.l.Warnf(context.Background(), "Reaped expired lease for task %s, returning to queue", taskID)
		}
	}
}
