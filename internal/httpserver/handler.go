package httpserver

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	taskHTTP "agent-gateway/internal/task/delivery/http"
	tokenHTTP "agent-gateway/internal/token/delivery/http"
)

func (srv HTTPServer) mapHandlers() error {
	srv.registerMiddlewares()
	srv.registerSystemRoutes()

	if err := srv.registerDomainRoutes(); err != nil {
		return err
	}

	return nil
}

func (srv HTTPServer) registerMiddlewares() {
	srv.gin.Use(gin.Recovery())
}

func (srv HTTPServer) registerSystemRoutes() {
	srv.gin.GET("/health", srv.healthCheck)
	srv.gin.GET("/ready", srv.readyCheck)
	srv.gin.GET("/live", srv.liveCheck)

	srv.gin.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))
}

// registerDomainRoutes registers all domain routes.
func (srv HTTPServer) registerDomainRoutes() error {
	ctx := context.Background()

	srv.gin.POST("/webhooks/:provider", srv.webhookDelivery.HandleWebhook)
	srv.gin.GET("/webhooks/health", srv.webhookDelivery.HandleHealth)
	srv.l.Infof(ctx, "Webhook intake registered at POST /webhooks/:provider")

	api := srv.gin.Group("/api/v1")

	if srv.installationHandler != nil {
		tokenHTTP.MapRoutes(api.Group("/installations"), srv.installationHandler)
		srv.l.Infof(ctx, "Installation routes registered at /api/v1/installations")
	} else {
		srv.l.Infof(ctx, "Installation handler not configured, skipping routes")
	}

	if srv.taskHandler != nil {
		taskHTTP.MapRoutes(api.Group("/tasks"), srv.taskHandler)
		srv.l.Infof(ctx, "Task routes registered at /api/v1/tasks")
	} else {
		srv.l.Infof(ctx, "Task handler not configured, skipping routes")
	}

	return nil
}
