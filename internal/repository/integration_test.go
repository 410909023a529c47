//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docta-care/service-payment/internal/domain"
	periodDomain "github.com/docta-care/service-payment/internal/domain/period"
	sessionDomain "github.com/docta-care/service-payment/internal/domain/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupDB starts a PostgreSQL container and returns a migrated GORM handle.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_payment",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf(
		"host=%s port=%s user=test password=test dbname=test_payment sslmode=disable",
		host, port.Port(),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error)
	require.NoError(t, db.AutoMigrate(&SessionModel{}, &PeriodModel{}))
	return db
}

func seedPair(t *testing.T, db *gorm.DB, status sessionDomain.Status) (*sessionDomain.Session, *periodDomain.Period) {
	t.Helper()
	ctx := context.Background()

	per := periodDomain.New(uuid.New(), time.Now().Add(24*time.Hour), time.Now().Add(25*time.Hour))
	require.NoError(t, NewPeriodRepository(db).Save(ctx, per))

	sess := sessionDomain.New(uuid.New(), per.ID(), 5000)
	if status != sessionDomain.StatusCreated {
		require.NoError(t, sess.AwaitPaymentConfirmation())
	}
	require.NoError(t, NewSessionRepository(db).Save(ctx, sess))
	return sess, per
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	sess, _ := seedPair(t, db, sessionDomain.StatusAwaitingPaymentConfirmation)

	require.NoError(t, sess.MarkPaid(sessionDomain.PaymentSnapshot{
		TransactionID:   "txn-int-1",
		TransactionTime: 1700000000000,
		WebhookStatus:   "SUCCESSFUL",
		WebhookID:       "wh-int-1",
		Amount:          5000,
		Currency:        "XAF",
	}))
	sess.IncrementVersion()
	require.NoError(t, repo.Update(ctx, sess))

	loaded, err := repo.FindByID(ctx, sess.ID())
	require.NoError(t, err)
	assert.Equal(t, sessionDomain.StatusPaid, loaded.Status())
	assert.Equal(t, sess.Version(), loaded.Version())
	require.NotNil(t, loaded.Payment())
	assert.Equal(t, "txn-int-1", loaded.Payment().TransactionID)
	assert.Equal(t, "XAF", loaded.Payment().Currency)
	require.NotNil(t, loaded.PaidAt())
}

func TestSessionRepositoryFindByIDForPatientScopesOwnership(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	sess, _ := seedPair(t, db, sessionDomain.StatusCreated)

	found, err := repo.FindByIDForPatient(ctx, sess.ID(), sess.PatientID())
	require.NoError(t, err)
	assert.Equal(t, sess.ID(), found.ID())

	_, err = repo.FindByIDForPatient(ctx, sess.ID(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionUpdateDetectsStaleVersion(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	sess, _ := seedPair(t, db, sessionDomain.StatusCreated)

	// First writer wins.
	require.NoError(t, sess.AwaitPaymentConfirmation())
	sess.IncrementVersion()
	require.NoError(t, repo.Update(ctx, sess))

	// A second update from the same stale version must be rejected.
	stale := sessionDomain.Reconstitute(
		sess.ID(), sess.PatientID(), sess.PeriodID(),
		sessionDomain.StatusCancelled, sess.TotalPrice(),
		nil, nil, nil, nil,
		2, sess.CreatedAt(), time.Now().UTC(),
	)
	err := repo.Update(ctx, stale)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSaveOutcomeCommitsSessionAndPeriodTogether(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	store := NewReconciliationStore(db)
	sessions := NewSessionRepository(db)
	periods := NewPeriodRepository(db)

	sess, per := seedPair(t, db, sessionDomain.StatusAwaitingPaymentConfirmation)

	require.NoError(t, sess.MarkPaid(sessionDomain.PaymentSnapshot{TransactionID: "txn-int-2"}))
	per.Occupy()
	sess.IncrementVersion()
	per.IncrementVersion()

	require.NoError(t, store.SaveOutcome(ctx, sess, per))

	loadedSess, err := sessions.FindByID(ctx, sess.ID())
	require.NoError(t, err)
	loadedPer, err := periods.FindByID(ctx, per.ID())
	require.NoError(t, err)
	assert.Equal(t, sessionDomain.StatusPaid, loadedSess.Status())
	assert.Equal(t, periodDomain.StatusOccupied, loadedPer.Status())
}

func TestSaveOutcomeRollsBackBothOnPeriodConflict(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	store := NewReconciliationStore(db)
	sessions := NewSessionRepository(db)
	periods := NewPeriodRepository(db)

	sess, per := seedPair(t, db, sessionDomain.StatusAwaitingPaymentConfirmation)

	require.NoError(t, sess.MarkPaid(sessionDomain.PaymentSnapshot{TransactionID: "txn-int-3"}))
	sess.IncrementVersion()

	// Period built at a version the database never held, so the guarded
	// period update inside the transaction affects zero rows.
	stalePer := periodDomain.Reconstitute(
		per.ID(), per.DoctorID(), per.StartTime(), per.EndTime(),
		periodDomain.StatusOccupied,
		5, per.CreatedAt(), time.Now().UTC(),
	)

	err := store.SaveOutcome(ctx, sess, stalePer)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// The session write inside the same transaction must have rolled back.
	loadedSess, err := sessions.FindByID(ctx, sess.ID())
	require.NoError(t, err)
	assert.Equal(t, sessionDomain.StatusAwaitingPaymentConfirmation, loadedSess.Status())
	assert.Nil(t, loadedSess.Payment())

	loadedPer, err := periods.FindByID(ctx, per.ID())
	require.NoError(t, err)
	assert.Equal(t, periodDomain.StatusAvailable, loadedPer.Status())
}
