package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/docta-care/service-payment/internal/domain"
	sessionDomain "github.com/docta-care/service-payment/internal/domain/session"
	"github.com/docta-care/service-payment/internal/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func paidSession(refund *sessionDomain.Refund) *sessionDomain.Session {
	now := time.Now().UTC()
	return sessionDomain.Reconstitute(
		uuid.New(), uuid.New(), uuid.New(),
		sessionDomain.StatusPaid, 5000,
		&sessionDomain.PaymentSnapshot{TransactionID: "txn-9", Currency: "XAF", Amount: 5000},
		refund,
		nil, &now,
		1, now, now,
	)
}

func TestInitiateRefundSetsProcessingState(t *testing.T) {
	sess := paidSession(nil)
	repo := newFakeSessionRepo(sess)
	gw := &fakeGatewayClient{refundStatus: "PROCESSING"}
	publisher := &fakePublisher{}
	svc := NewRefundService(repo, gw, publisher, zap.NewNop())

	err := svc.InitiateRefund(context.Background(), events.InitiateRefundEvent{
		SessionID:       sess.ID(),
		RefundDirection: "PATIENT",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, gw.refundCalls)
	assert.Equal(t, "txn-9", gw.lastRefund.RefundedTransactionID)
	assert.Equal(t, 1, repo.updates)

	refund := sess.Refund()
	require.NotNil(t, refund)
	assert.Equal(t, sessionDomain.RefundProcessing, refund.Status)
	assert.Equal(t, "PATIENT", refund.Direction)
	require.NotNil(t, refund.RefundStartedAt)
	assert.Nil(t, refund.RefundFailedAt)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, events.RefundInitiated, publisher.published[0].Type)
}

func TestInitiateRefundShortCircuitsWhenAlreadyUnderway(t *testing.T) {
	for _, status := range []sessionDomain.RefundStatus{
		sessionDomain.RefundProcessing,
		sessionDomain.RefundCompleted,
	} {
		t.Run(string(status), func(t *testing.T) {
			sess := paidSession(&sessionDomain.Refund{Status: status, Direction: "PATIENT"})
			repo := newFakeSessionRepo(sess)
			gw := &fakeGatewayClient{}
			svc := NewRefundService(repo, gw, &fakePublisher{}, zap.NewNop())

			err := svc.InitiateRefund(context.Background(), events.InitiateRefundEvent{
				SessionID:       sess.ID(),
				RefundDirection: "PATIENT",
			})

			require.NoError(t, err)
			assert.Zero(t, gw.refundCalls, "no gateway call may be issued")
			assert.Zero(t, repo.updates)
		})
	}
}

func TestInitiateRefundRetriesAfterEarlierFailure(t *testing.T) {
	sess := paidSession(&sessionDomain.Refund{
		Status:    sessionDomain.RefundFailedAtInitiating,
		Direction: "PATIENT",
	})
	repo := newFakeSessionRepo(sess)
	gw := &fakeGatewayClient{refundStatus: "PROCESSING"}
	svc := NewRefundService(repo, gw, &fakePublisher{}, zap.NewNop())

	err := svc.InitiateRefund(context.Background(), events.InitiateRefundEvent{
		SessionID:       sess.ID(),
		RefundDirection: "PATIENT",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, gw.refundCalls)
	assert.Equal(t, sessionDomain.RefundProcessing, sess.Refund().Status)
}

func TestInitiateRefundRecordsGatewayFailure(t *testing.T) {
	sess := paidSession(nil)
	repo := newFakeSessionRepo(sess)
	gw := &fakeGatewayClient{refundErr: domain.NewGatewayError("refund rejected")}
	publisher := &fakePublisher{}
	svc := NewRefundService(repo, gw, publisher, zap.NewNop())

	err := svc.InitiateRefund(context.Background(), events.InitiateRefundEvent{
		SessionID:       sess.ID(),
		RefundDirection: "DOCTOR",
	})

	require.Error(t, err, "gateway failure must propagate so the queue retries")
	assert.ErrorIs(t, err, domain.ErrGateway)

	refund := sess.Refund()
	require.NotNil(t, refund)
	assert.Equal(t, sessionDomain.RefundFailedAtInitiating, refund.Status)
	assert.Equal(t, "DOCTOR", refund.Direction)
	require.NotNil(t, refund.RefundFailedAt)
	assert.Equal(t, 1, repo.updates, "failure marker must be persisted")

	require.Len(t, publisher.published, 1)
	assert.Equal(t, events.RefundInitiationFailed, publisher.published[0].Type)
}

func TestInitiateRefundUnknownSessionFails(t *testing.T) {
	gw := &fakeGatewayClient{}
	svc := NewRefundService(newFakeSessionRepo(), gw, &fakePublisher{}, zap.NewNop())

	err := svc.InitiateRefund(context.Background(), events.InitiateRefundEvent{
		SessionID:       uuid.New(),
		RefundDirection: "PATIENT",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, gw.refundCalls)
}

func TestInitiateRefundWithoutCapturedTransactionFails(t *testing.T) {
	now := time.Now().UTC()
	sess := sessionDomain.Reconstitute(
		uuid.New(), uuid.New(), uuid.New(),
		sessionDomain.StatusPaid, 5000,
		nil, nil, nil, &now,
		1, now, now,
	)
	gw := &fakeGatewayClient{}
	svc := NewRefundService(newFakeSessionRepo(sess), gw, &fakePublisher{}, zap.NewNop())

	err := svc.InitiateRefund(context.Background(), events.InitiateRefundEvent{
		SessionID:       sess.ID(),
		RefundDirection: "PATIENT",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, gw.refundCalls)
}

func TestHandleInitiateRefundParsesQueueMessage(t *testing.T) {
	sess := paidSession(nil)
	gw := &fakeGatewayClient{refundStatus: "PROCESSING"}
	svc := NewRefundService(newFakeSessionRepo(sess), gw, &fakePublisher{}, zap.NewNop())

	body, err := json.Marshal(events.InitiateRefundEvent{
		SessionID:       sess.ID(),
		RefundDirection: "PATIENT",
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleInitiateRefund(context.Background(), body))
	assert.Equal(t, 1, gw.refundCalls)

	err = svc.HandleInitiateRefund(context.Background(), []byte("{not json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
