package repository

import (
	"context"
	"errors"
	"time"

	"github.com/docta-care/service-payment/internal/domain"
	sessionDomain "github.com/docta-care/service-payment/internal/domain/session"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionModel is the GORM persistence model for the sessions table. The
// payment snapshot, refund record, and gateway error details are flattened
// into nullable columns.
type SessionModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	PatientID  uuid.UUID `gorm:"type:uuid;not null;index"`
	PeriodID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Status     string    `gorm:"type:varchar(40);not null;default:'CREATED'"`
	TotalPrice float64   `gorm:"not null"`

	PaymentTransactionID   *string  `gorm:"type:varchar(255)"`
	PaymentTransactionTime *int64
	PaymentWebhookStatus   *string  `gorm:"type:varchar(40)"`
	PaymentWebhookID       *string  `gorm:"type:varchar(255)"`
	PaymentAmount          *float64
	PaymentCurrency        *string  `gorm:"type:varchar(3)"`

	RefundStatus    *string    `gorm:"type:varchar(40)"`
	RefundDirection *string    `gorm:"type:varchar(40)"`
	RefundStartedAt *time.Time `gorm:"type:timestamptz"`
	RefundFailedAt  *time.Time `gorm:"type:timestamptz"`

	GatewayErrorCode    *int64
	GatewayErrorMessage *string `gorm:"type:text"`

	PaidAt    *time.Time `gorm:"type:timestamptz"`
	Version   int64      `gorm:"not null;default:1"`
	CreatedAt time.Time  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (SessionModel) TableName() string {
	return "sessions"
}

// SessionRepositoryImpl is the GORM-based implementation of session.Repository.
type SessionRepositoryImpl struct {
	db *gorm.DB
}

// NewSessionRepository creates a new GORM-based session repository.
func NewSessionRepository(db *gorm.DB) *SessionRepositoryImpl {
	return &SessionRepositoryImpl{db: db}
}

// FindByID retrieves a session by its unique ID.
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*sessionDomain.Session, error) {
	var model SessionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Session", id.String())
		}
		return nil, err
	}
	return sessionToDomain(&model), nil
}

// FindByIDForPatient retrieves a session owned by the given patient.
func (r *SessionRepositoryImpl) FindByIDForPatient(ctx context.Context, id, patientID uuid.UUID) (*sessionDomain.Session, error) {
	var model SessionModel
	if err := r.db.WithContext(ctx).Where("id = ? AND patient_id = ?", id, patientID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Session", id.String())
		}
		return nil, err
	}
	return sessionToDomain(&model), nil
}

// Save persists a new session aggregate.
func (r *SessionRepositoryImpl) Save(ctx context.Context, s *sessionDomain.Session) error {
	if err := r.db.WithContext(ctx).Create(sessionToModel(s)).Error; err != nil {
		return err
	}
	return nil
}

// Update persists changes to an existing session with optimistic locking.
func (r *SessionRepositoryImpl) Update(ctx context.Context, s *sessionDomain.Session) error {
	return updateSessionTx(r.db.WithContext(ctx), s)
}

// updateSessionTx performs the guarded session update on the given handle so
// the reconciliation store can reuse it inside a transaction.
func updateSessionTx(tx *gorm.DB, s *sessionDomain.Session) error {
	model := sessionToModel(s)
	previousVersion := s.Version() - 1

	result := tx.Model(&SessionModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("session was modified by another transaction")
	}
	return nil
}

// sessionToDomain maps a SessionModel to the domain Session aggregate.
func sessionToDomain(model *SessionModel) *sessionDomain.Session {
	var payment *sessionDomain.PaymentSnapshot
	if model.PaymentTransactionID != nil {
		payment = &sessionDomain.PaymentSnapshot{
			TransactionID:   *model.PaymentTransactionID,
			TransactionTime: derefInt64(model.PaymentTransactionTime),
			WebhookStatus:   derefString(model.PaymentWebhookStatus),
			WebhookID:       derefString(model.PaymentWebhookID),
			Amount:          derefFloat64(model.PaymentAmount),
			Currency:        derefString(model.PaymentCurrency),
		}
	}

	var refund *sessionDomain.Refund
	if model.RefundStatus != nil {
		refund = &sessionDomain.Refund{
			Status:          sessionDomain.RefundStatus(*model.RefundStatus),
			Direction:       derefString(model.RefundDirection),
			RefundStartedAt: model.RefundStartedAt,
			RefundFailedAt:  model.RefundFailedAt,
		}
	}

	var errorDetails *sessionDomain.GatewayErrorDetails
	if model.GatewayErrorCode != nil {
		errorDetails = &sessionDomain.GatewayErrorDetails{
			ErrorCode:    *model.GatewayErrorCode,
			ErrorMessage: derefString(model.GatewayErrorMessage),
		}
	}

	return sessionDomain.Reconstitute(
		model.ID,
		model.PatientID,
		model.PeriodID,
		sessionDomain.Status(model.Status),
		model.TotalPrice,
		payment,
		refund,
		errorDetails,
		model.PaidAt,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

// sessionToModel maps a domain Session aggregate to a SessionModel.
func sessionToModel(s *sessionDomain.Session) *SessionModel {
	model := &SessionModel{
		ID:         s.ID(),
		PatientID:  s.PatientID(),
		PeriodID:   s.PeriodID(),
		Status:     string(s.Status()),
		TotalPrice: s.TotalPrice(),
		PaidAt:     s.PaidAt(),
		Version:    s.Version(),
		CreatedAt:  s.CreatedAt(),
		UpdatedAt:  s.UpdatedAt(),
	}

	if p := s.Payment(); p != nil {
		model.PaymentTransactionID = &p.TransactionID
		model.PaymentTransactionTime = &p.TransactionTime
		model.PaymentWebhookStatus = &p.WebhookStatus
		model.PaymentWebhookID = &p.WebhookID
		model.PaymentAmount = &p.Amount
		model.PaymentCurrency = &p.Currency
	}

	if r := s.Refund(); r != nil {
		status := string(r.Status)
		model.RefundStatus = &status
		model.RefundDirection = &r.Direction
		model.RefundStartedAt = r.RefundStartedAt
		model.RefundFailedAt = r.RefundFailedAt
	}

	if d := s.ErrorDetails(); d != nil {
		model.GatewayErrorCode = &d.ErrorCode
		model.GatewayErrorMessage = &d.ErrorMessage
	}

	return model
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt64(i *int64) int64 {
	if i == nil {
		return 0
	}
	return *i
}

func derefFloat64(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
