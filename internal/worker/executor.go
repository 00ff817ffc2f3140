package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"agent-gateway/internal/model"
	pkgLog "agent-gateway/pkg/log"
)

// StubExecutor acknowledges tasks without doing real work. It stands in
// until an execution engine is attached.
type StubExecutor struct {
	l pkgLog.Logger
}

func NewStubExecutor(l pkgLog.Logger) *StubExecutor {
	return &StubExecutor{l: l}
}

func (e *StubExecutor) Execute(ctx context.Context, msg *model.TaskMessage) (*ExecutionResult, error) {
	e.l.Infof(ctx, "Executing task %s (%s): %s", msg.TaskID, msg.Provider, msg.InputMessage)
	return &ExecutionResult{
		Output: fmt.Sprintf("acknowledged: %s", msg.InputMessage),
	}, nil
}

// LogPoster logs the finished task instead of posting to a provider. The
// external id it returns still feeds the loop guard so the flow stays
// end-to-end correct.
type LogPoster struct {
	l pkgLog.Logger
}

func NewLogPoster(l pkgLog.Logger) *LogPoster {
	return &LogPoster{l: l}
}

func (p *LogPoster) Post(ctx context.Context, rec *model.TaskRecord) (string, error) {
	externalID := fmt.Sprintf("posted-%s", uuid.NewString()[:8])
	p.l.Infof(ctx, "Task %s finished (%s), output: %s", rec.TaskID, rec.Status, rec.Output)
	return externalID, nil
}
