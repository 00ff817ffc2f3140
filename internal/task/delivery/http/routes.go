package http

import "github.com/gin-gonic/gin"

func MapRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/:id", h.GetTask)
	r.POST("/:id/cancel", h.CancelTask)
}
