package http

import (
	"agent-gateway/internal/task"
	pkgLog "agent-gateway/pkg/log"
)

// Handler exposes task status over REST.
type Handler struct {
	taskUC task.UseCase
	l      pkgLog.Logger
}

func New(l pkgLog.Logger, taskUC task.UseCase) *Handler {
	return &Handler{
		taskUC: taskUC,
		l:      l,
	}
}
