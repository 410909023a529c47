package application

import (
	"context"
	"time"

	"github.com/docta-care/service-payment/internal/domain"
	periodDomain "github.com/docta-care/service-payment/internal/domain/period"
	sessionDomain "github.com/docta-care/service-payment/internal/domain/session"
	"github.com/docta-care/service-payment/internal/events"
	"github.com/docta-care/service-payment/internal/gateway"
	"github.com/google/uuid"
)

// --- In-memory fakes for the application-layer ports ---

type fakeSessionRepo struct {
	sessions  map[uuid.UUID]*sessionDomain.Session
	updates   int
	updateErr error
}

func newFakeSessionRepo(sessions ...*sessionDomain.Session) *fakeSessionRepo {
	repo := &fakeSessionRepo{sessions: make(map[uuid.UUID]*sessionDomain.Session)}
	for _, s := range sessions {
		repo.sessions[s.ID()] = s
	}
	return repo
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*sessionDomain.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.NewNotFoundError("Session", id.String())
	}
	return s, nil
}

func (r *fakeSessionRepo) FindByIDForPatient(ctx context.Context, id, patientID uuid.UUID) (*sessionDomain.Session, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.PatientID() != patientID {
		return nil, domain.NewNotFoundError("Session", id.String())
	}
	return s, nil
}

func (r *fakeSessionRepo) Save(_ context.Context, s *sessionDomain.Session) error {
	r.sessions[s.ID()] = s
	return nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *sessionDomain.Session) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.sessions[s.ID()] = s
	r.updates++
	return nil
}

type fakePeriodRepo struct {
	periods map[uuid.UUID]*periodDomain.Period
}

func newFakePeriodRepo(periods ...*periodDomain.Period) *fakePeriodRepo {
	repo := &fakePeriodRepo{periods: make(map[uuid.UUID]*periodDomain.Period)}
	for _, p := range periods {
		repo.periods[p.ID()] = p
	}
	return repo
}

func (r *fakePeriodRepo) FindByID(_ context.Context, id uuid.UUID) (*periodDomain.Period, error) {
	p, ok := r.periods[id]
	if !ok {
		return nil, domain.NewNotFoundError("Period", id.String())
	}
	return p, nil
}

func (r *fakePeriodRepo) Save(_ context.Context, p *periodDomain.Period) error {
	r.periods[p.ID()] = p
	return nil
}

func (r *fakePeriodRepo) Update(_ context.Context, p *periodDomain.Period) error {
	r.periods[p.ID()] = p
	return nil
}

type fakeOutcomeStore struct {
	saves int
	err   error
}

func (s *fakeOutcomeStore) SaveOutcome(_ context.Context, _ *sessionDomain.Session, _ *periodDomain.Period) error {
	if s.err != nil {
		return s.err
	}
	s.saves++
	return nil
}

type fakePublisher struct {
	published []events.CloudEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, _ string, _ []byte, event events.CloudEvent) error {
	p.published = append(p.published, event)
	return nil
}

type fakeGatewayClient struct {
	authURL      string
	requestErr   error
	requestCalls int
	lastRequest  gateway.CreatePaymentRequestParams

	refundStatus string
	refundErr    error
	refundCalls  int
	lastRefund   gateway.CreateRefundParams
}

func (c *fakeGatewayClient) CreatePaymentRequest(_ context.Context, params gateway.CreatePaymentRequestParams) (string, error) {
	c.requestCalls++
	c.lastRequest = params
	if c.requestErr != nil {
		return "", c.requestErr
	}
	return c.authURL, nil
}

func (c *fakeGatewayClient) CreateRefund(_ context.Context, params gateway.CreateRefundParams) (string, error) {
	c.refundCalls++
	c.lastRefund = params
	if c.refundErr != nil {
		return "", c.refundErr
	}
	return c.refundStatus, nil
}

// --- Aggregate builders ---

func sessionInStatus(status sessionDomain.Status, periodID uuid.UUID) *sessionDomain.Session {
	now := time.Now().UTC()
	return sessionDomain.Reconstitute(
		uuid.New(), uuid.New(), periodID,
		status, 5000,
		nil, nil, nil, nil,
		1, now, now,
	)
}

func periodInStatus(status periodDomain.Status) *periodDomain.Period {
	now := time.Now().UTC()
	return periodDomain.Reconstitute(
		uuid.New(), uuid.New(),
		now.Add(2*time.Hour), now.Add(3*time.Hour),
		status,
		1, now, now,
	)
}

func webhookFor(sess *sessionDomain.Session, status string) gateway.WebhookPayload {
	return gateway.WebhookPayload{
		EventType: gateway.EventRequestCompleted,
		WebhookID: "wh-" + uuid.NewString(),
		Resource: gateway.WebhookResource{
			Status:            status,
			TransactionID:     "txn-123",
			TransactionTime:   1700000000000,
			Amount:            5000,
			CurrencyCode:      "XAF",
			MchTransactionRef: gateway.NewMerchantRef(sess.ID()),
		},
	}
}
