package token

import (
	"sync"
	"time"

	"agent-gateway/internal/model"
	"agent-gateway/internal/token/repository"
	pkgLog "agent-gateway/pkg/log"
)

func New(
	repo repository.InstallationRepository,
	refreshers map[model.Platform]RefreshFunc,
	l pkgLog.Logger,
) Service {
	if refreshers == nil {
		refreshers = make(map[model.Platform]RefreshFunc)
	}
	return &service{
		repo:         repo,
		refreshers:   refreshers,
		l:            l,
		now:          func() time.Time { return time.Now().UTC() },
		refreshLocks: make(map[string]*sync.Mutex),
	}
}
