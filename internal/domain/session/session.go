package session

import (
	"time"

	"github.com/docta-care/service-payment/internal/domain"
	"github.com/google/uuid"
)

// Status represents the lifecycle state of a booked session.
type Status string

const (
	StatusCreated                     Status = "CREATED"
	StatusAwaitingPaymentConfirmation Status = "AWAITING_PAYMENT_CONFIRMATION"
	StatusPaid                        Status = "PAID"
	StatusPaymentFailed               Status = "PAYMENT_FAILED"
	StatusCancelled                   Status = "CANCELLED"
)

// IsTerminal reports whether no further automatic transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusPaymentFailed || s == StatusCancelled
}

// RefundStatus represents the state of a refund attached to a session.
type RefundStatus string

const (
	RefundProcessing         RefundStatus = "PROCESSING"
	RefundCompleted          RefundStatus = "COMPLETED"
	RefundFailedAtInitiating RefundStatus = "FAILED_AT_INITIATING"
)

// PaymentSnapshot is the last-known payment outcome reported by the gateway.
type PaymentSnapshot struct {
	TransactionID   string
	TransactionTime int64
	WebhookStatus   string
	WebhookID       string
	Amount          float64
	Currency        string
}

// Refund tracks the state of a refund issued for a session.
type Refund struct {
	Status          RefundStatus
	Direction       string
	RefundStartedAt *time.Time
	RefundFailedAt  *time.Time
}

// GatewayErrorDetails is the last gateway-reported failure for a session.
type GatewayErrorDetails struct {
	ErrorCode    int64
	ErrorMessage string
}

// Session is the aggregate root for a booked appointment awaiting or
// having completed payment.
type Session struct {
	id           uuid.UUID
	patientID    uuid.UUID
	periodID     uuid.UUID
	status       Status
	totalPrice   float64
	payment      *PaymentSnapshot
	refund       *Refund
	errorDetails *GatewayErrorDetails
	paidAt       *time.Time
	version      int64
	createdAt    time.Time
	updatedAt    time.Time
}

// New creates a session in CREATED for a patient against a period.
func New(patientID, periodID uuid.UUID, totalPrice float64) *Session {
	now := time.Now().UTC()
	return &Session{
		id:         uuid.New(),
		patientID:  patientID,
		periodID:   periodID,
		status:     StatusCreated,
		totalPrice: totalPrice,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}
}

// --- Getters ---

func (s *Session) ID() uuid.UUID                      { return s.id }
func (s *Session) PatientID() uuid.UUID               { return s.patientID }
func (s *Session) PeriodID() uuid.UUID                { return s.periodID }
func (s *Session) Status() Status                     { return s.status }
func (s *Session) TotalPrice() float64                { return s.totalPrice }
func (s *Session) Payment() *PaymentSnapshot          { return s.payment }
func (s *Session) Refund() *Refund                    { return s.refund }
func (s *Session) ErrorDetails() *GatewayErrorDetails { return s.errorDetails }
func (s *Session) PaidAt() *time.Time                 { return s.paidAt }
func (s *Session) Version() int64                     { return s.version }
func (s *Session) CreatedAt() time.Time               { return s.createdAt }
func (s *Session) UpdatedAt() time.Time               { return s.updatedAt }

// --- State transitions ---

// AwaitPaymentConfirmation moves a freshly created session into the state
// where a gateway payment request is outstanding.
func (s *Session) AwaitPaymentConfirmation() error {
	if s.status != StatusCreated {
		return domain.NewInvalidStateError(string(s.status), string(StatusAwaitingPaymentConfirmation))
	}
	s.status = StatusAwaitingPaymentConfirmation
	s.touch()
	return nil
}

// MarkPaid records a successful payment outcome.
func (s *Session) MarkPaid(snapshot PaymentSnapshot) error {
	if s.status.IsTerminal() {
		return domain.NewInvalidStateError(string(s.status), string(StatusPaid))
	}
	now := time.Now().UTC()
	s.status = StatusPaid
	s.payment = &snapshot
	s.paidAt = &now
	s.touch()
	return nil
}

// MarkCancelled records a payer-initiated cancellation outcome.
func (s *Session) MarkCancelled(snapshot PaymentSnapshot) error {
	if s.status.IsTerminal() {
		return domain.NewInvalidStateError(string(s.status), string(StatusCancelled))
	}
	s.status = StatusCancelled
	s.payment = &snapshot
	s.touch()
	return nil
}

// MarkPaymentFailed records a gateway-reported payment failure.
func (s *Session) MarkPaymentFailed(snapshot PaymentSnapshot, details *GatewayErrorDetails) error {
	if s.status.IsTerminal() {
		return domain.NewInvalidStateError(string(s.status), string(StatusPaymentFailed))
	}
	s.status = StatusPaymentFailed
	s.payment = &snapshot
	s.errorDetails = details
	s.touch()
	return nil
}

// StartRefund records that a refund request was accepted by the gateway.
func (s *Session) StartRefund(direction string) {
	now := time.Now().UTC()
	s.refund = &Refund{
		Status:          RefundProcessing,
		Direction:       direction,
		RefundStartedAt: &now,
	}
	s.touch()
}

// FailRefund records that a refund request was rejected or errored.
func (s *Session) FailRefund(direction string) {
	now := time.Now().UTC()
	s.refund = &Refund{
		Status:         RefundFailedAtInitiating,
		Direction:      direction,
		RefundFailedAt: &now,
	}
	s.touch()
}

// IncrementVersion bumps the version for optimistic locking.
func (s *Session) IncrementVersion() {
	s.version++
	s.touch()
}

func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
}

// Reconstitute rebuilds a Session from persisted data.
func Reconstitute(
	id, patientID, periodID uuid.UUID,
	status Status,
	totalPrice float64,
	payment *PaymentSnapshot,
	refund *Refund,
	errorDetails *GatewayErrorDetails,
	paidAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *Session {
	return &Session{
		id:           id,
		patientID:    patientID,
		periodID:     periodID,
		status:       status,
		totalPrice:   totalPrice,
		payment:      payment,
		refund:       refund,
		errorDetails: errorDetails,
		paidAt:       paidAt,
		version:      version,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}
