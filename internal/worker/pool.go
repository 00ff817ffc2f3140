package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"agent-gateway/internal/loopguard"
	"agent-gateway/internal/model"
	"agent-gateway/internal/queue"
	"agent-gateway/internal/task"
	pkgLog "agent-gateway/pkg/log"
)

const (
	defaultPoolSize       = 4
	defaultDequeueTimeout = 30 * time.Second

	// Bounded backoff when the queue backend is unreachable.
	backoffInitial = time.Second
	backoffMax     = 30 * time.Second
)

// Pool is a fixed-size set of long-lived consumers pulling from one queue.
// Each worker owns a dequeued message exclusively until it acks or rejects.
type Pool struct {
	q        queue.Queue
	taskUC   task.UseCase
	executor Executor
	poster   ResultPoster
	guard    loopguard.Guard
	l        pkgLog.Logger
	cfg      Config
}

func NewPool(
	q queue.Queue,
	taskUC task.UseCase,
	executor Executor,
	poster ResultPoster,
	guard loopguard.Guard,
	l pkgLog.Logger,
	cfg Config,
) *Pool {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.DequeueTimeout <= 0 {
		cfg.DequeueTimeout = defaultDequeueTimeout
	}
	return &Pool{
		q:        q,
		taskUC:   taskUC,
		executor: executor,
		poster:   poster,
		guard:    guard,
		l:        l,
		cfg:      cfg,
	}
}

// Run blocks until ctx is cancelled and every worker has drained.
func (p *Pool) Run(ctx context.Context) {
	p.l.Infof(ctx, "Starting worker pool (size=%d)", p.cfg.PoolSize)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.PoolSize; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.runWorker(ctx, workerID)
		}(i)
	}
	wg.Wait()

	p.l.Info(ctx, "Worker pool stopped")
}

func (p *Pool) runWorker(ctx context.Context, workerID int) {
	backoff := backoffInitial

	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := p.q.Dequeue(ctx, p.cfg.DequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrClosed) {
				return
			}
			p.l.Warnf(ctx, "Worker %d: dequeue failed, backing off %s: %v", workerID, backoff, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
			if backoff > backoffMax {
				backoff = backoffMax
			}
			continue
		}
		backoff = backoffInitial

		if msg == nil {
			// Timed out empty-handed; poll again.
			continue
		}

		p.process(ctx, workerID, msg)
	}
}

// process runs one task end to end. A panic in the executor rejects the
// message back to the queue rather than killing the worker.
func (p *Pool) process(ctx context.Context, workerID int, msg *model.TaskMessage) {
	defer func() {
		if r := recover(); r != nil {
			p.l.Errorf(ctx, "Worker %d: panic processing task %s: %v", workerID, msg.TaskID, r)
			if err := p.q.Reject(ctx, msg.TaskID, true); err != nil {
				p.l.Errorf(ctx, "Worker %d: reject after panic failed for %s: %v", workerID, msg.TaskID, err)
			}
		}
	}()

	p.l.Infof(ctx, "Worker %d: processing task %s (priority=%s)", workerID, msg.TaskID, msg.Priority)

	if _, err := p.taskUC.Start(ctx, msg.TaskID); err != nil {
		var invalid *task.InvalidTransitionError
		if errors.As(err, &invalid) {
			// A redelivered message finds its task already RUNNING; keep
			// executing. Anything else (cancelled while queued, already
			// terminal) is dropped.
			if invalid.From != model.StatusRunning {
				p.l.Infof(ctx, "Worker %d: task %s not startable (%v), acking", workerID, msg.TaskID, err)
				p.ack(ctx, msg.TaskID)
				return
			}
			p.l.Warnf(ctx, "Worker %d: task %s redelivered while RUNNING, resuming execution", workerID, msg.TaskID)
		} else {
			p.l.Errorf(ctx, "Worker %d: failed to start task %s: %v", workerID, msg.TaskID, err)
			if err := p.q.Reject(ctx, msg.TaskID, true); err != nil {
				p.l.Errorf(ctx, "Worker %d: reject failed for %s: %v", workerID, msg.TaskID, err)
			}
			return
		}
	}

	result, execErr := p.executor.Execute(ctx, msg)
	if execErr != nil {
		p.finishFailed(ctx, msg.TaskID, execErr, result)
		return
	}

	rec, err := p.taskUC.Complete(ctx, msg.TaskID, task.Result{
		Output:     result.Output,
		TokensUsed: result.TokensUsed,
		CostUSD:    result.CostUSD,
	})
	if err != nil {
		p.l.Errorf(ctx, "Worker %d: failed to complete task %s: %v", workerID, msg.TaskID, err)
		p.ack(ctx, msg.TaskID)
		return
	}
	p.ack(ctx, msg.TaskID)

	p.postResult(ctx, rec)
}

func (p *Pool) finishFailed(ctx context.Context, taskID string, execErr error, result *ExecutionResult) {
	failure := task.Result{Error: execErr.Error()}
	if result != nil {
		failure.TokensUsed = result.TokensUsed
		failure.CostUSD = result.CostUSD
	}

	if _, err := p.taskUC.Fail(ctx, taskID, failure); err != nil {
		p.l.Errorf(ctx, "Failed to mark task %s failed: %v", taskID, err)
	}
	p.ack(ctx, taskID)
}

func (p *Pool) ack(ctx context.Context, taskID string) {
	if err := p.q.Ack(ctx, taskID); err != nil {
		p.l.Errorf(ctx, "Ack failed for task %s: %v", taskID, err)
	}
}

// postResult hands the output to the result poster and records whatever id
// it posted so the loop guard suppresses the echo webhook.
func (p *Pool) postResult(ctx context.Context, rec *model.TaskRecord) {
	if p.poster == nil {
		return
	}

	externalID, err := p.poster.Post(ctx, rec)
	if err != nil {
		p.l.Errorf(ctx, "Failed to post result for task %s: %v", rec.TaskID, err)
		return
	}
	if externalID == "" {
		return
	}

	if err := p.guard.RecordSelfPosted(ctx, externalID); err != nil {
		p.l.Errorf(ctx, "Failed to record self-posted id %s: %v", externalID, err)
	}
}
