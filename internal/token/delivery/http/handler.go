package http

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"agent-gateway/internal/model"
	"agent-gateway/internal/token"
	"agent-gateway/pkg/response"
)

type createInstallationReq struct {
	Platform         string            `json:"platform" binding:"required"`
	OrganizationID   string            `json:"organization_id" binding:"required"`
	OrganizationName string            `json:"organization_name"`
	AccessToken      string            `json:"access_token" binding:"required"`
	RefreshToken     string            `json:"refresh_token"`
	TokenExpiresAt   *time.Time        `json:"token_expires_at"`
	Scopes           []string          `json:"scopes"`
	WebhookSecret    string            `json:"webhook_secret" binding:"required"`
	InstalledBy      string            `json:"installed_by"`
	Metadata         map[string]string `json:"metadata"`
}

// CreateInstallation godoc
// @Summary Provision a tenant installation
// @Description Registers provider credentials for one (platform, organization) pair
// @Tags installations
// @Accept json
// @Produce json
// @Param body body createInstallationReq true "Installation"
// @Success 200 {object} response.Resp
// @Failure 400 {object} response.Resp
// @Failure 409 {object} response.Resp
// @Router /api/v1/installations [post]
func (h *Handler) CreateInstallation(c *gin.Context) {
	ctx := c.Request.Context()

	var req createInstallationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err, nil)
		return
	}

	inst, err := h.tokenSvc.CreateInstallation(ctx, token.CreateInstallationInput{
		Platform:         model.Platform(req.Platform),
		OrganizationID:   req.OrganizationID,
		OrganizationName: req.OrganizationName,
		AccessToken:      req.AccessToken,
		RefreshToken:     req.RefreshToken,
		TokenExpiresAt:   req.TokenExpiresAt,
		Scopes:           req.Scopes,
		WebhookSecret:    req.WebhookSecret,
		InstalledBy:      req.InstalledBy,
		Metadata:         req.Metadata,
	})
	if err != nil {
		if errors.Is(err, token.ErrDuplicateInstallation) {
			response.Conflict(c, err.Error())
			return
		}
		h.l.Errorf(ctx, "token.delivery.http.CreateInstallation: %v", err)
		response.InternalError(c, err)
		return
	}

	response.OK(c, inst)
}

// DeactivateInstallation godoc
// @Summary Deactivate a tenant installation
// @Tags installations
// @Produce json
// @Param id path string true "Installation ID"
// @Success 200 {object} response.Resp
// @Failure 404 {object} response.Resp
// @Router /api/v1/installations/{id} [delete]
func (h *Handler) DeactivateInstallation(c *gin.Context) {
	ctx := c.Request.Context()

	inst, err := h.tokenSvc.DeactivateInstallation(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, token.ErrInstallationNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		h.l.Errorf(ctx, "token.delivery.http.DeactivateInstallation: %v", err)
		response.InternalError(c, err)
		return
	}

	response.OK(c, inst)
}

// ListInstallations godoc
// @Summary List active installations
// @Tags installations
// @Produce json
// @Param platform query string false "Filter by platform"
// @Success 200 {object} response.Resp
// @Router /api/v1/installations [get]
func (h *Handler) ListInstallations(c *gin.Context) {
	ctx := c.Request.Context()

	insts, err := h.tokenSvc.ListInstallations(ctx, model.Platform(c.Query("platform")))
	if err != nil {
		h.l.Errorf(ctx, "token.delivery.http.ListInstallations: %v", err)
		response.InternalError(c, err)
		return
	}

	response.OK(c, insts)
}
