package http

import (
	"agent-gateway/internal/token"
	pkgLog "agent-gateway/pkg/log"
)

// Handler exposes installation management over REST.
type Handler struct {
	tokenSvc token.Service
	l        pkgLog.Logger
}

func New(l pkgLog.Logger, tokenSvc token.Service) *Handler {
	return &Handler{
		tokenSvc: tokenSvc,
		l:        l,
	}
}
