package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/oauth2"

	"agent-gateway/config"
	"agent-gateway/config/database"
	_ "agent-gateway/docs" // Swagger docs
	"agent-gateway/internal/httpserver"
	"agent-gateway/internal/loopguard"
	"agent-gateway/internal/model"
	"agent-gateway/internal/queue"
	queueMemory "agent-gateway/internal/queue/memory"
	queueSQL "agent-gateway/internal/queue/sqlstore"
	taskHTTP "agent-gateway/internal/task/delivery/http"
	taskRepo "agent-gateway/internal/task/repository"
	taskMemory "agent-gateway/internal/task/repository/memory"
	taskSQL "agent-gateway/internal/task/repository/sqlstore"
	taskUC "agent-gateway/internal/task/usecase"
	"agent-gateway/internal/token"
	tokenHTTP "agent-gateway/internal/token/delivery/http"
	tokenRepo "agent-gateway/internal/token/repository"
	tokenMemory "agent-gateway/internal/token/repository/memory"
	tokenSQL "agent-gateway/internal/token/repository/sqlstore"
	"agent-gateway/internal/webhook"
	"agent-gateway/pkg/log"
)

// @title       Agent Gateway API
// @description Webhook intake and task orchestration for coding agents.
// @version     1
// @host        localhost:8080
// @schemes     http
func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config: ", err)
		return
	}

	// 2. Logger
	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting Agent Gateway...")
	logger.Infof(ctx, "Environment: %s", cfg.Environment.Name)
	logger.Infof(ctx, "Database driver: %s", cfg.Database.Driver)

	// 3. Persistence
	var (
		installations tokenRepo.InstallationRepository
		tasks         taskRepo.TaskRepository
		q             queue.Queue
		guard         loopguard.Guard
	)

	if cfg.Database.Driver == "memory" {
		installations = tokenMemory.New()
		tasks = taskMemory.New()
		memQ := queueMemory.New(logger, queueMemory.Config{
			LeaseTimeout:   cfg.Queue.LeaseTimeout,
			ReaperInterval: cfg.Queue.ReaperInterval,
		})
		defer memQ.Close()
		q = memQ
		guard = loopguard.NewMemoryGuard(cfg.LoopGuard.TTL)
	} else {
		db, dbErr := database.Connect(cfg.Database)
		if dbErr != nil {
			logger.Error(ctx, "Failed to connect to database: ", dbErr)
			return
		}
		defer database.Disconnect(db)

		sqlInstallations := tokenSQL.New(db)
		sqlTasks := taskSQL.New(db)
		sqlQueue := queueSQL.New(db, logger, queueSQL.Config{
			LeaseTimeout:   cfg.Queue.LeaseTimeout,
			ReaperInterval: cfg.Queue.ReaperInterval,
			PollInterval:   cfg.Queue.PollInterval,
		})
		defer sqlQueue.Close()
		sqlGuard := loopguard.NewSQLGuard(db, cfg.LoopGuard.TTL)

		for name, create := range map[string]func(context.Context) error{
			"installations": sqlInstallations.CreateSchema,
			"tasks":         sqlTasks.CreateSchema,
			"queue":         sqlQueue.CreateSchema,
			"loop_guard":    sqlGuard.CreateSchema,
		} {
			if schemaErr := create(ctx); schemaErr != nil {
				logger.Errorf(ctx, "Failed to create %s schema: %v", name, schemaErr)
				return
			}
		}

		installations = sqlInstallations
		tasks = sqlTasks
		q = sqlQueue
		guard = sqlGuard
	}

	// 4. Services
	tokenSvc := token.New(installations, buildRefreshers(cfg.OAuth), logger)
	tasksUC := taskUC.New(tasks, logger)

	// 5. Webhook intake
	registry := webhook.NewRegistry()
	policy := &webhook.TriggerPolicy{
		Mention:       cfg.Webhook.Mention,
		AllowedLabels: cfg.Webhook.AllowedLabels,
		DefaultEvents: []string{"pull_request.opened"},
	}
	for _, h := range []webhook.Handler{
		webhook.NewGitHubHandler(policy),
		webhook.NewSlackHandler(&webhook.TriggerPolicy{Mention: cfg.Webhook.Mention}),
		webhook.NewJiraHandler(&webhook.TriggerPolicy{
			Mention:       cfg.Webhook.Mention,
			AllowedLabels: cfg.Webhook.AllowedLabels,
		}),
		webhook.NewSentryHandler(),
	} {
		registry.Register(h.Provider(), h)
	}
	logger.Infof(ctx, "Registered webhook providers: %v", registry.Providers())

	webhookDelivery := webhook.NewDelivery(registry, tokenSvc, guard, q, tasksUC, logger, webhook.Config{
		RateLimitPerMin: cfg.Webhook.RateLimitPerMin,
	})

	// 6. HTTP Server
	httpServer, err := httpserver.New(logger, httpserver.Config{
		Logger:              logger,
		Port:                cfg.HTTPServer.Port,
		Mode:                cfg.HTTPServer.Mode,
		Environment:         cfg.Environment.Name,
		WebhookDelivery:     webhookDelivery,
		InstallationHandler: tokenHTTP.New(logger, tokenSvc),
		TaskHandler:         taskHTTP.New(logger, tasksUC),
	})
	if err != nil {
		logger.Error(ctx, "Failed to initialize HTTP server: ", err)
		return
	}

	// 7. Run
	if err := httpServer.Run(ctx); err != nil {
		logger.Error(ctx, "Failed to run server: ", err)
		return
	}

	logger.Info(ctx, "Server stopped gracefully")
}

// buildRefreshers wires an OAuth refresh flow for every provider whose app
// credentials are configured.
func buildRefreshers(cfg config.OAuthConfig) map[model.Platform]token.RefreshFunc {
	refreshers := make(map[model.Platform]token.RefreshFunc)

	if cfg.GitHub.ClientID != "" {
		refreshers[model.PlatformGitHub] = token.OAuthRefresh(&oauth2.Config{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.GitHub.TokenURL},
		})
	}
	if cfg.Slack.ClientID != "" {
		refreshers[model.PlatformSlack] = token.OAuthRefresh(&oauth2.Config{
			ClientID:     cfg.Slack.ClientID,
			ClientSecret: cfg.Slack.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.Slack.TokenURL},
		})
	}

	return refreshers
}
