package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/docta-care/service-payment/internal/domain"
	sessionDomain "github.com/docta-care/service-payment/internal/domain/session"
	"github.com/docta-care/service-payment/internal/events"
	"github.com/docta-care/service-payment/internal/gateway"
	"go.uber.org/zap"
)

// GatewayClient is the outbound contract with the payment provider.
type GatewayClient interface {
	CreatePaymentRequest(ctx context.Context, params gateway.CreatePaymentRequestParams) (string, error)
	CreateRefund(ctx context.Context, params gateway.CreateRefundParams) (string, error)
}

// RefundService handles refund-initiation events from the queue. It is
// idempotent: a session whose refund is already processing or completed is
// never refunded again.
type RefundService struct {
	sessions sessionDomain.Repository
	gw       GatewayClient
	producer LifecyclePublisher
	logger   *zap.Logger
}

// NewRefundService creates a RefundService.
func NewRefundService(
	sessions sessionDomain.Repository,
	gw GatewayClient,
	producer LifecyclePublisher,
	logger *zap.Logger,
) *RefundService {
	return &RefundService{
		sessions: sessions,
		gw:       gw,
		producer: producer,
		logger:   logger,
	}
}

// HandleInitiateRefund is the queue handler for refund-initiation messages.
// Errors propagate to the consumer's retry/dead-letter cycle.
func (s *RefundService) HandleInitiateRefund(ctx context.Context, body []byte) error {
	var event events.InitiateRefundEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return domain.NewValidationError("malformed refund-initiation event: " + err.Error())
	}
	return s.InitiateRefund(ctx, event)
}

// InitiateRefund issues a refund at the gateway for the session's captured
// transaction and records the resulting refund state on the session.
func (s *RefundService) InitiateRefund(ctx context.Context, event events.InitiateRefundEvent) error {
	log := s.logger.With(
		zap.String("session_id", event.SessionID.String()),
		zap.String("refund_direction", event.RefundDirection),
	)
	log.Info("refund initiation event received")

	sess, err := s.sessions.FindByID(ctx, event.SessionID)
	if err != nil {
		log.Error("session lookup failed", zap.Error(err))
		return err
	}

	payment := sess.Payment()
	if payment == nil || payment.TransactionID == "" {
		log.Error("session has no captured transaction to refund")
		return domain.NewValidationError("session has no captured transaction to refund")
	}

	if refund := sess.Refund(); refund != nil {
		if refund.Status == sessionDomain.RefundProcessing || refund.Status == sessionDomain.RefundCompleted {
			log.Info("refund already underway, skipping",
				zap.String("refund_status", string(refund.Status)),
			)
			return nil
		}
	}

	status, err := s.gw.CreateRefund(ctx, gateway.CreateRefundParams{
		ReasonCode:            gateway.ReasonCodeMutualAgreement,
		RefundedTransactionID: payment.TransactionID,
		MerchantRefundNumber:  gateway.NewMerchantRef(sess.ID()),
		Note:                  "Refund initiated by " + event.RefundDirection,
	})
	if err != nil {
		log.Error("refund initiation failed at gateway", zap.Error(err))
		sess.FailRefund(event.RefundDirection)
		sess.IncrementVersion()
		if saveErr := s.sessions.Update(ctx, sess); saveErr != nil {
			log.Error("failed to persist refund failure marker", zap.Error(saveErr))
		}
		s.publishRefundState(ctx, events.RefundInitiationFailed, sess, event.RefundDirection)
		return err
	}

	log.Info("refund initiated", zap.String("gateway_status", status))

	sess.StartRefund(event.RefundDirection)
	sess.IncrementVersion()
	if err := s.sessions.Update(ctx, sess); err != nil {
		log.Error("failed to persist refund state", zap.Error(err))
		return err
	}

	s.publishRefundState(ctx, events.RefundInitiated, sess, event.RefundDirection)
	return nil
}

// publishRefundState emits the refund lifecycle event; best effort.
func (s *RefundService) publishRefundState(ctx context.Context, eventType string, sess *sessionDomain.Session, direction string) {
	event := events.RefundStateEvent{
		SessionID:  sess.ID(),
		Direction:  direction,
		OccurredAt: time.Now().UTC(),
	}
	cloudEvent, err := events.NewCloudEvent("service-payment", eventType, event)
	if err != nil {
		s.logger.Error("failed to create refund lifecycle event", zap.Error(err))
		return
	}
	if err := s.producer.PublishEvent(ctx, events.TopicPaymentEvents, []byte(sess.ID().String()), cloudEvent); err != nil {
		s.logger.Error("failed to publish refund lifecycle event", zap.Error(err))
	}
}
