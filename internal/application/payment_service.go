package application

import (
	"context"
	"fmt"
	"time"

	"github.com/docta-care/service-payment/internal/domain"
	periodDomain "github.com/docta-care/service-payment/internal/domain/period"
	sessionDomain "github.com/docta-care/service-payment/internal/domain/session"
	"github.com/docta-care/service-payment/internal/gateway"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentURLDTO is the API response for a created payment request.
type PaymentURLDTO struct {
	URL string `json:"url"`
}

// PaymentService creates hosted payment requests at the gateway for
// sessions that are still payable.
type PaymentService struct {
	sessions        sessionDomain.Repository
	periods         periodDomain.Repository
	gw              GatewayClient
	frontendURL     string
	currencyCode    string
	bookingLeadTime time.Duration
	logger          *zap.Logger
}

// NewPaymentService creates a PaymentService. bookingLeadTime is the minimum
// gap required between payment and the period's start.
func NewPaymentService(
	sessions sessionDomain.Repository,
	periods periodDomain.Repository,
	gw GatewayClient,
	frontendURL, currencyCode string,
	bookingLeadTime time.Duration,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		sessions:        sessions,
		periods:         periods,
		gw:              gw,
		frontendURL:     frontendURL,
		currencyCode:    currencyCode,
		bookingLeadTime: bookingLeadTime,
		logger:          logger,
	}
}

// CreatePaymentURL validates that the patient's session is payable, creates
// a payment request at the gateway, and moves the session to
// AWAITING_PAYMENT_CONFIRMATION. The merchant reference embedded in the
// request is what the webhook path later parses back to this session.
func (s *PaymentService) CreatePaymentURL(ctx context.Context, sessionID, patientID uuid.UUID) (*PaymentURLDTO, error) {
	sess, err := s.sessions.FindByIDForPatient(ctx, sessionID, patientID)
	if err != nil {
		return nil, err
	}

	if sess.Status() == sessionDomain.StatusPaid {
		return nil, domain.NewValidationError("session is paid already")
	}
	if sess.Status() != sessionDomain.StatusCreated {
		return nil, domain.NewValidationError("session can no longer be paid")
	}

	per, err := s.periods.FindByID(ctx, sess.PeriodID())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if now.After(per.StartTime()) {
		return nil, domain.NewValidationError("period has already started")
	}
	if now.Add(s.bookingLeadTime).After(per.StartTime()) {
		return nil, domain.NewValidationError("too close to the period start to pay")
	}

	authURL, err := s.gw.CreatePaymentRequest(ctx, gateway.CreatePaymentRequestParams{
		Amount:            sess.TotalPrice(),
		CurrencyCode:      s.currencyCode,
		Description:       fmt.Sprintf("Consultation session %s", sess.ID()),
		MchTransactionRef: gateway.NewMerchantRef(sess.ID()),
		ReturnURL:         fmt.Sprintf("%s/payment/success?session=%s", s.frontendURL, sess.ID()),
		CancelURL:         fmt.Sprintf("%s/payment/failure?session=%s", s.frontendURL, sess.ID()),
	})
	if err != nil {
		s.logger.Error("failed to create payment request",
			zap.String("session_id", sess.ID().String()),
			zap.Error(err),
		)
		return nil, err
	}

	if err := sess.AwaitPaymentConfirmation(); err != nil {
		return nil, err
	}
	sess.IncrementVersion()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("payment request created",
		zap.String("session_id", sess.ID().String()),
	)
	return &PaymentURLDTO{URL: authURL}, nil
}
