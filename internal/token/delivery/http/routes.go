package http

import "github.com/gin-gonic/gin"

func MapRoutes(r *gin.RouterGroup, h *Handler) {
	r.POST("", h.CreateInstallation)
	r.GET("", h.ListInstallations)
	r.DELETE("/:id", h.DeactivateInstallation)
}
