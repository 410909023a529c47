package events

import (
	"time"

	"github.com/google/uuid"
)

// Kafka topic carrying outbound payment lifecycle events for downstream
// notification and analytics services.
const TopicPaymentEvents = "payment-events"

// Outbound lifecycle event types.
const (
	SessionPaid            = "payment.session.paid"
	SessionPaymentFailed   = "payment.session.failed"
	SessionCancelled       = "payment.session.cancelled"
	RefundInitiated        = "payment.refund.initiated"
	RefundInitiationFailed = "payment.refund.initiation_failed"
)

// RabbitMQ routing keys the consumer binds to.
const (
	RoutingKeyInitiateRefund = "payment.refund.initiate"
)

// InitiateRefundEvent is the body of a refund-initiation queue message.
type InitiateRefundEvent struct {
	SessionID       uuid.UUID `json:"sessionId"`
	RefundDirection string    `json:"refundDirection"`
}

// SessionOutcomeEvent reports a session reaching a terminal payment state.
type SessionOutcomeEvent struct {
	SessionID     uuid.UUID `json:"session_id"`
	PeriodID      uuid.UUID `json:"period_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	ErrorCode     int64     `json:"error_code,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// RefundStateEvent reports a refund being initiated or failing to initiate.
type RefundStateEvent struct {
	SessionID  uuid.UUID `json:"session_id"`
	Direction  string    `json:"direction"`
	OccurredAt time.Time `json:"occurred_at"`
}
