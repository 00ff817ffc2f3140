package usecase

import (
	"time"

	"agent-gateway/internal/task"
	"agent-gateway/internal/task/repository"
	pkgLog "agent-gateway/pkg/log"
)

func New(repo repository.TaskRepository, l pkgLog.Logger) task.UseCase {
	return &usecase{
		repo: repo,
		l:    l,
		now:  func() time.Time { return time.Now().UTC() },
	}
}
