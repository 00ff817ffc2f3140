package http

import (
	"errors"

	"github.com/gin-gonic/gin"

	"agent-gateway/internal/task"
	"agent-gateway/pkg/response"
)

// GetTask godoc
// @Summary Get a task's current state
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Resp
// @Failure 404 {object} response.Resp
// @Router /api/v1/tasks/{id} [get]
func (h *Handler) GetTask(c *gin.Context) {
	ctx := c.Request.Context()

	rec, err := h.taskUC.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		h.l.Errorf(ctx, "task.delivery.http.GetTask: %v", err)
		response.InternalError(c, err)
		return
	}

	response.OK(c, rec)
}

// CancelTask godoc
// @Summary Cancel a non-terminal task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Resp
// @Failure 404 {object} response.Resp
// @Failure 409 {object} response.Resp
// @Router /api/v1/tasks/{id}/cancel [post]
func (h *Handler) CancelTask(c *gin.Context) {
	ctx := c.Request.Context()

	rec, err := h.taskUC.Cancel(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		var invalid *task.InvalidTransitionError
		if errors.As(err, &invalid) {
			response.Conflict(c, err.Error())
			return
		}
		h.l.Errorf(ctx, "task.delivery.http.CancelTask: %v", err)
		response.InternalError(c, err)
		return
	}

	response.OK(c, rec)
}
