package handler

import (
	"context"
	"net/http"

	"github.com/docta-care/service-payment/internal/application"
	"github.com/docta-care/service-payment/internal/gateway"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Reconciler applies a classified gateway outcome to stored state.
type Reconciler interface {
	Reconcile(ctx context.Context, outcome application.Outcome, payload gateway.WebhookPayload) error
}

// WebhookHandler receives Tranzak webhook callbacks, classifies them, and
// answers with the status code that drives the gateway's redelivery policy:
// 200 for processed or intentional no-op, 400 for anything that should be
// redelivered.
type WebhookHandler struct {
	reconciler Reconciler
	logger     *zap.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(reconciler Reconciler, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, logger: logger}
}

// RegisterRoutes registers the webhook endpoint on the router.
func (h *WebhookHandler) RegisterRoutes(r *gin.Engine) {
	r.POST("/webhook", h.Handle)
}

// Handle processes one webhook delivery.
func (h *WebhookHandler) Handle(c *gin.Context) {
	var payload gateway.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("unparseable webhook payload", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}

	h.logger.Info("webhook received",
		zap.String("event_type", payload.EventType),
		zap.String("resource_status", payload.Resource.Status),
		zap.String("webhook_id", payload.WebhookID),
	)

	switch payload.EventType {
	case gateway.EventRequestCompleted:
		outcome, ok := outcomeForStatus(payload.Resource.Status)
		if !ok {
			// Statuses this service does not act on must not be retried.
			h.logger.Info("ignoring unmapped payment status",
				zap.String("resource_status", payload.Resource.Status),
			)
			c.Status(http.StatusOK)
			return
		}

		if err := h.reconciler.Reconcile(c.Request.Context(), outcome, payload); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)

	case gateway.EventRefundCompleted:
		// Dispatch slot reserved; refund completion does not yet drive any
		// session transition.
		h.logger.Info("refund-completed webhook acknowledged",
			zap.String("webhook_id", payload.WebhookID),
		)
		c.Status(http.StatusOK)

	default:
		h.logger.Info("ignoring unrecognized webhook event type",
			zap.String("event_type", payload.EventType),
		)
		c.Status(http.StatusOK)
	}
}

// outcomeForStatus maps a gateway-reported payment status to an outcome.
func outcomeForStatus(status string) (application.Outcome, bool) {
	switch status {
	case gateway.PaymentStatusSuccessful:
		return application.OutcomeSuccess, true
	case gateway.PaymentStatusCancelled, gateway.PaymentStatusCancelledByPayer:
		return application.OutcomeCancelled, true
	case gateway.PaymentStatusFailed:
		return application.OutcomeFailed, true
	default:
		return "", false
	}
}
