package httpserver

import (
	"errors"

	"github.com/gin-gonic/gin"

	taskHTTP "agent-gateway/internal/task/delivery/http"
	tokenHTTP "agent-gateway/internal/token/delivery/http"
	"agent-gateway/internal/webhook"
	"agent-gateway/pkg/log"
)

// HTTPServer holds all dependencies for the HTTP server.
type HTTPServer struct {
	// Server
	gin         *gin.Engine
	l           log.Logger
	port        int
	mode        string
	environment string

	// Webhook intake
	webhookDelivery *webhook.Delivery

	// Management surfaces
	installationHandler *tokenHTTP.Handler
	taskHandler         *taskHTTP.Handler
}

// Config is the dependency bag passed to New().
type Config struct {
	Logger      log.Logger
	Port        int
	Mode        string
	Environment string

	WebhookDelivery     *webhook.Delivery
	InstallationHandler *tokenHTTP.Handler
	TaskHandler         *taskHTTP.Handler
}

// New creates a new HTTPServer instance.
func New(logger log.Logger, cfg Config) (*HTTPServer, error) {
	gin.SetMode(cfg.Mode)

	srv := &HTTPServer{
		l:                   logger,
		gin:                 gin.Default(),
		port:                cfg.Port,
		mode:                cfg.Mode,
		environment:         cfg.Environment,
		webhookDelivery:     cfg.WebhookDelivery,
		installationHandler: cfg.InstallationHandler,
		taskHandler:         cfg.TaskHandler,
	}

	if err := srv.validate(); err != nil {
		return nil, err
	}

	return srv, nil
}

func (srv HTTPServer) validate() error {
	if srv.l == nil {
		return errors.New("logger is required")
	}
	if srv.mode == "" {
		return errors.New("mode is required")
	}
	if srv.port == 0 {
		return errors.New("port is required")
	}
	if srv.webhookDelivery == nil {
		return errors.New("webhook delivery is required")
	}
	return nil
}
