package webhook

import (
	"agent-gateway/internal/loopguard"
	"agent-gateway/internal/queue"
	"agent-gateway/internal/task"
	"agent-gateway/internal/token"
	pkgLog "agent-gateway/pkg/log"
)

// Config holds webhook delivery settings.
type Config struct {
	RateLimitPerMin int
}

// Delivery is the gin handler orchestrating validate → parse → loop-guard →
// should-process → build-task-request → enqueue for every provider.
type Delivery struct {
	registry *Registry
	tokenSvc token.Service
	guard    loopguard.Guard
	q        queue.Queue
	taskUC   task.UseCase
	limiter  *rateLimiter
	l        pkgLog.Logger
}

func NewDelivery(
	registry *Registry,
	tokenSvc token.Service,
	guard loopguard.Guard,
	q queue.Queue,
	taskUC task.UseCase,
	l pkgLog.Logger,
	cfg Config,
) *Delivery {
	if cfg.RateLimitPerMin <= 0 {
		cfg.RateLimitPerMin = 60
	}
	return &Delivery{
		registry: registry,
		tokenSvc: tokenSvc,
		guard:    guard,
		q:        q,
		taskUC:   taskUC,
		limiter:  newRateLimiter(cfg.RateLimitPerMin),
		l:        l,
	}
}
