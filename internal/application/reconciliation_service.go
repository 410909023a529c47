package application

import (
	"context"
	"time"

	"github.com/docta-care/service-payment/internal/domain"
	periodDomain "github.com/docta-care/service-payment/internal/domain/period"
	sessionDomain "github.com/docta-care/service-payment/internal/domain/session"
	"github.com/docta-care/service-payment/internal/events"
	"github.com/docta-care/service-payment/internal/gateway"
	"go.uber.org/zap"
)

// Outcome is the normalized classification of a gateway payment result.
type Outcome string

const (
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomeFailed    Outcome = "FAILED"
)

// OutcomeStore persists a reconciled session+period pair atomically.
type OutcomeStore interface {
	SaveOutcome(ctx context.Context, sess *sessionDomain.Session, per *periodDomain.Period) error
}

// LifecyclePublisher publishes outbound payment lifecycle events.
type LifecyclePublisher interface {
	PublishEvent(ctx context.Context, topic string, key []byte, event events.CloudEvent) error
}

// ReconciliationService maps gateway payment outcomes onto session and
// period state. It is idempotent under webhook replay and commits both
// records in one atomic write.
type ReconciliationService struct {
	sessions sessionDomain.Repository
	periods  periodDomain.Repository
	store    OutcomeStore
	producer LifecyclePublisher
	logger   *zap.Logger
}

// NewReconciliationService creates a ReconciliationService.
func NewReconciliationService(
	sessions sessionDomain.Repository,
	periods periodDomain.Repository,
	store OutcomeStore,
	producer LifecyclePublisher,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		sessions: sessions,
		periods:  periods,
		store:    store,
		producer: producer,
		logger:   logger,
	}
}

// Reconcile applies one webhook outcome to the session recovered from the
// payload's merchant reference. A nil return means processed or already
// processed; any error means nothing was written and the caller should
// signal the gateway to redeliver.
func (s *ReconciliationService) Reconcile(ctx context.Context, outcome Outcome, payload gateway.WebhookPayload) error {
	sessionID, err := gateway.ParseMerchantRef(payload.Resource.MchTransactionRef)
	if err != nil {
		s.logger.Warn("webhook carries malformed merchant reference",
			zap.String("mch_transaction_ref", payload.Resource.MchTransactionRef),
			zap.String("webhook_id", payload.WebhookID),
		)
		return err
	}

	log := s.logger.With(
		zap.String("session_id", sessionID.String()),
		zap.String("outcome", string(outcome)),
		zap.String("webhook_id", payload.WebhookID),
	)

	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		log.Error("session lookup failed", zap.Error(err))
		return err
	}

	per, err := s.periods.FindByID(ctx, sess.PeriodID())
	if err != nil {
		log.Error("period lookup failed", zap.Error(err))
		return err
	}

	if alreadyProcessed(sess.Status(), outcome) {
		log.Info("outcome already applied, skipping",
			zap.String("session_status", string(sess.Status())),
		)
		return nil
	}

	snapshot := sessionDomain.PaymentSnapshot{
		TransactionID:   payload.Resource.TransactionID,
		TransactionTime: payload.Resource.TransactionTime,
		WebhookStatus:   payload.Resource.Status,
		WebhookID:       payload.WebhookID,
		Amount:          payload.Resource.Amount,
		Currency:        payload.Resource.CurrencyCode,
	}

	switch outcome {
	case OutcomeSuccess:
		if err := sess.MarkPaid(snapshot); err != nil {
			return err
		}
		per.Occupy()
	case OutcomeCancelled:
		if err := sess.MarkCancelled(snapshot); err != nil {
			return err
		}
		per.Release()
	case OutcomeFailed:
		details := &sessionDomain.GatewayErrorDetails{
			ErrorCode:    payload.Resource.ErrorCode,
			ErrorMessage: payload.Resource.ErrorMessage,
		}
		if err := sess.MarkPaymentFailed(snapshot, details); err != nil {
			return err
		}
		per.Release()
	default:
		return domain.NewValidationError("unknown outcome: " + string(outcome))
	}

	sess.IncrementVersion()
	per.IncrementVersion()

	if err := s.store.SaveOutcome(ctx, sess, per); err != nil {
		log.Error("failed to commit reconciliation", zap.Error(err))
		return err
	}

	log.Info("reconciliation committed",
		zap.String("session_status", string(sess.Status())),
		zap.String("period_status", string(per.Status())),
	)

	s.publishOutcome(ctx, outcome, sess, payload)
	return nil
}

// alreadyProcessed is the idempotency guard: a terminal state compatible
// with or ahead of the incoming outcome means the webhook is a replay or a
// late duplicate and must be acknowledged without writes.
func alreadyProcessed(status sessionDomain.Status, outcome Outcome) bool {
	switch outcome {
	case OutcomeSuccess:
		return status == sessionDomain.StatusPaid
	case OutcomeCancelled, OutcomeFailed:
		return status.IsTerminal()
	default:
		return false
	}
}

// publishOutcome emits the lifecycle event for a committed reconciliation.
// Publishing is best effort; the store is already consistent.
func (s *ReconciliationService) publishOutcome(ctx context.Context, outcome Outcome, sess *sessionDomain.Session, payload gateway.WebhookPayload) {
	eventType := map[Outcome]string{
		OutcomeSuccess:   events.SessionPaid,
		OutcomeCancelled: events.SessionCancelled,
		OutcomeFailed:    events.SessionPaymentFailed,
	}[outcome]

	event := events.SessionOutcomeEvent{
		SessionID:     sess.ID(),
		PeriodID:      sess.PeriodID(),
		TransactionID: payload.Resource.TransactionID,
		Amount:        payload.Resource.Amount,
		Currency:      payload.Resource.CurrencyCode,
		ErrorCode:     payload.Resource.ErrorCode,
		ErrorMessage:  payload.Resource.ErrorMessage,
		OccurredAt:    time.Now().UTC(),
	}

	cloudEvent, err := events.NewCloudEvent("service-payment", eventType, event)
	if err != nil {
		s.logger.Error("failed to create lifecycle event", zap.Error(err))
		return
	}
	if err := s.producer.PublishEvent(ctx, events.TopicPaymentEvents, []byte(sess.ID().String()), cloudEvent); err != nil {
		s.logger.Error("failed to publish lifecycle event", zap.Error(err))
	}
}
