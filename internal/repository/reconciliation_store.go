package repository

import (
	"context"

	periodDomain "github.com/docta-care/service-payment/internal/domain/period"
	sessionDomain "github.com/docta-care/service-payment/internal/domain/session"
	"gorm.io/gorm"
)

// ReconciliationStore applies a reconciled session+period pair as one atomic
// write. Either both rows take the new state or neither does; a reader can
// never observe a paid session against an available period.
type ReconciliationStore struct {
	db *gorm.DB
}

// NewReconciliationStore creates a store bound to the given database handle.
func NewReconciliationStore(db *gorm.DB) *ReconciliationStore {
	return &ReconciliationStore{db: db}
}

// SaveOutcome persists both aggregates inside a single database transaction.
// Both updates are version-guarded; any failure rolls the whole pair back.
func (s *ReconciliationStore) SaveOutcome(ctx context.Context, sess *sessionDomain.Session, per *periodDomain.Period) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateSessionTx(tx, sess); err != nil {
			return err
		}
		return updatePeriodTx(tx, per)
	})
}
