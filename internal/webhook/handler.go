package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agent-gateway/internal/model"
	"agent-gateway/internal/queue"
	"agent-gateway/internal/token"
	"agent-gateway/pkg/response"
)

const (
	// enqueueAttempts bounds retries against a briefly unavailable queue
	// backend before the webhook is failed back to the provider.
	enqueueAttempts = 3
	enqueueBackoff  = 100 * time.Millisecond
)

// HandleWebhook processes POST /webhooks/:provider.
// @Summary Receive a provider webhook
// @Description Validates, filters and enqueues an inbound webhook as a task
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param provider path string true "Provider name"
// @Success 200 {object} response.Resp "Accepted or skipped"
// @Failure 400 {object} response.Resp "Unparseable payload"
// @Failure 401 {object} response.Resp "Signature failure or unknown tenant"
// @Failure 404 {object} response.Resp "Unregistered provider"
// @Router /webhooks/{provider} [post]
func (d *Delivery) HandleWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	provider := c.Param("provider")

	handler := d.registry.Get(provider)
	if handler == nil {
		d.l.Warnf(ctx, "Webhook for unregistered provider: %s", provider)
		response.NotFound(c, fmt.Sprintf("provider %s not supported", provider))
		return
	}

	if err := d.limiter.Allow(provider); err != nil {
		d.l.Warnf(ctx, "Rate limit exceeded for %s: %v", provider, err)
		response.TooManyRequests(c, "rate limit exceeded")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		d.l.Errorf(ctx, "Failed to read webhook body: %v", err)
		response.Error(c, err, nil)
		return
	}

	orgID, err := handler.OrganizationID(body, c.Request.Header)
	if err != nil {
		d.l.Warnf(ctx, "Failed to resolve tenant for %s webhook: %v", provider, err)
		response.Error(c, ErrPayloadParse, nil)
		return
	}

	inst, err := d.tokenSvc.GetInstallation(ctx, model.Platform(provider), orgID)
	if err != nil {
		if errors.Is(err, token.ErrInstallationNotFound) {
			d.l.Warnf(ctx, "Webhook from unprovisioned tenant %s/%s", provider, orgID)
			response.Unauthorized(c, "unknown or inactive installation")
			return
		}
		d.l.Errorf(ctx, "Installation lookup failed for %s/%s: %v", provider, orgID, err)
		response.InternalError(c, err)
		return
	}

	// Signature check runs against the raw bytes, before any JSON decoding
	// is trusted.
	if err := handler.Validate(body, c.Request.Header, inst.WebhookSecret); err != nil {
		d.l.Warnf(ctx, "Signature validation failed for %s/%s: %v", provider, orgID, err)
		response.Unauthorized(c, "invalid signature")
		return
	}

	event, err := handler.Parse(body, c.Request.Header)
	if err != nil {
		d.l.Warnf(ctx, "Failed to parse %s webhook: %v", provider, err)
		response.Error(c, ErrPayloadParse, nil)
		return
	}
	event.InstallationID = inst.ID

	if externalID := event.Meta("external_id"); externalID != "" {
		selfPosted, guardErr := d.guard.IsSelfPosted(ctx, externalID)
		if guardErr != nil {
			d.l.Errorf(ctx, "Loop guard check failed for %s: %v", externalID, guardErr)
		} else if selfPosted {
			d.l.Infof(ctx, "Skipping self-posted %s event %s", provider, externalID)
			response.OK(c, gin.H{"success": true, "skipped": true, "reason": "self-posted message"})
			return
		}
	}

	ok, detail := handler.ShouldProcess(event)
	if !ok {
		d.l.Infof(ctx, "Skipping %s event %s: %s", provider, event.EventType, detail)
		response.OK(c, gin.H{"success": true, "skipped": true, "reason": detail})
		return
	}

	req, err := handler.BuildTaskRequest(event)
	if err != nil {
		d.l.Errorf(ctx, "Failed to build task request for %s event: %v", provider, err)
		response.InternalError(c, err)
		return
	}

	msg := &model.TaskMessage{
		TaskID:         newTaskID(),
		InstallationID: inst.ID,
		Provider:       provider,
		InputMessage:   req.InputMessage,
		Priority:       req.Priority,
		SourceMetadata: req.SourceMetadata,
		CreatedAt:      time.Now().UTC(),
	}

	if _, err := d.taskUC.Accept(ctx, msg); err != nil {
		d.l.Errorf(ctx, "Failed to create task record for %s: %v", msg.TaskID, err)
		response.InternalError(c, err)
		return
	}

	if err := d.enqueueWithRetry(ctx, msg); err != nil {
		d.l.Errorf(ctx, "Failed to enqueue task %s: %v", msg.TaskID, err)
		if _, cancelErr := d.taskUC.Cancel(ctx, msg.TaskID); cancelErr != nil {
			d.l.Errorf(ctx, "Failed to cancel unenqueued task %s: %v", msg.TaskID, cancelErr)
		}
		response.InternalError(c, err)
		return
	}

	d.l.Infof(ctx, "Webhook accepted: provider=%s event=%s task=%s priority=%s",
		provider, event.EventType, msg.TaskID, msg.Priority)
	response.OK(c, gin.H{"success": true, "task_id": msg.TaskID, "skipped": false})
}

// HandleHealth processes GET /webhooks/health.
// @Summary Webhook subsystem health
// @Tags Webhooks
// @Produce json
// @Success 200 {object} response.Resp
// @Router /webhooks/health [get]
func (d *Delivery) HandleHealth(c *gin.Context) {
	response.OK(c, gin.H{
		"status":    "healthy",
		"providers": d.registry.Providers(),
	})
}

// enqueueWithRetry retries transient queue failures with bounded
// exponential backoff; anything else fails immediately.
func (d *Delivery) enqueueWithRetry(ctx context.Context, msg *model.TaskMessage) error {
	backoff := enqueueBackoff

	var err error
	for attempt := 0; attempt < enqueueAttempts; attempt++ {
		err = d.q.Enqueue(ctx, msg)
		if err == nil {
			return nil
		}
		if !errors.Is(err, queue.ErrUnavailable) {
			return err
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return err
}

func newTaskID() string {
	id := uuid.New()
	return fmt.Sprintf("task-%x", id[:6])
}
