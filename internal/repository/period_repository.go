package repository

import (
	"context"
	"errors"
	"time"

	"github.com/docta-care/service-payment/internal/domain"
	periodDomain "github.com/docta-care/service-payment/internal/domain/period"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PeriodModel is the GORM persistence model for the periods table.
type PeriodModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	DoctorID  uuid.UUID `gorm:"type:uuid;not null;index"`
	StartTime time.Time `gorm:"type:timestamptz;not null"`
	EndTime   time.Time `gorm:"type:timestamptz;not null"`
	Status    string    `gorm:"type:varchar(20);not null;default:'AVAILABLE'"`
	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (PeriodModel) TableName() string {
	return "periods"
}

// PeriodRepositoryImpl is the GORM-based implementation of period.Repository.
type PeriodRepositoryImpl struct {
	db *gorm.DB
}

// NewPeriodRepository creates a new GORM-based period repository.
func NewPeriodRepository(db *gorm.DB) *PeriodRepositoryImpl {
	return &PeriodRepositoryImpl{db: db}
}

// FindByID retrieves a period by its unique ID.
func (r *PeriodRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*periodDomain.Period, error) {
	var model PeriodModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Period", id.String())
		}
		return nil, err
	}
	return periodToDomain(&model), nil
}

// Save persists a new period aggregate.
func (r *PeriodRepositoryImpl) Save(ctx context.Context, p *periodDomain.Period) error {
	if err := r.db.WithContext(ctx).Create(periodToModel(p)).Error; err != nil {
		return err
	}
	return nil
}

// Update persists changes to an existing period with optimistic locking.
func (r *PeriodRepositoryImpl) Update(ctx context.Context, p *periodDomain.Period) error {
	return updatePeriodTx(r.db.WithContext(ctx), p)
}

// updatePeriodTx performs the guarded period update on the given handle so
// the reconciliation store can reuse it inside a transaction.
func updatePeriodTx(tx *gorm.DB, p *periodDomain.Period) error {
	model := periodToModel(p)
	previousVersion := p.Version() - 1

	result := tx.Model(&PeriodModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Updates(map[string]any{
			"status":     model.Status,
			"version":    model.Version,
			"updated_at": model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("period was modified by another transaction")
	}
	return nil
}

// periodToDomain maps a PeriodModel to the domain Period aggregate.
func periodToDomain(model *PeriodModel) *periodDomain.Period {
	return periodDomain.Reconstitute(
		model.ID,
		model.DoctorID,
		model.StartTime,
		model.EndTime,
		periodDomain.Status(model.Status),
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

// periodToModel maps a domain Period aggregate to a PeriodModel.
func periodToModel(p *periodDomain.Period) *PeriodModel {
	return &PeriodModel{
		ID:        p.ID(),
		DoctorID:  p.DoctorID(),
		StartTime: p.StartTime(),
		EndTime:   p.EndTime(),
		Status:    string(p.Status()),
		Version:   p.Version(),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}
}
