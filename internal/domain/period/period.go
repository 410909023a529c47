package period

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the availability of a doctor's time slot.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusOccupied  Status = "OCCUPIED"
)

// Period is a doctor's bookable time slot. Its status mirrors the payment
// outcome of its linked session: OCCUPIED once the session is paid,
// AVAILABLE otherwise.
type Period struct {
	id        uuid.UUID
	doctorID  uuid.UUID
	startTime time.Time
	endTime   time.Time
	status    Status
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// New creates an available period for a doctor.
func New(doctorID uuid.UUID, startTime, endTime time.Time) *Period {
	now := time.Now().UTC()
	return &Period{
		id:        uuid.New(),
		doctorID:  doctorID,
		startTime: startTime,
		endTime:   endTime,
		status:    StatusAvailable,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}
}

// --- Getters ---

func (p *Period) ID() uuid.UUID        { return p.id }
func (p *Period) DoctorID() uuid.UUID  { return p.doctorID }
func (p *Period) StartTime() time.Time { return p.startTime }
func (p *Period) EndTime() time.Time   { return p.endTime }
func (p *Period) Status() Status       { return p.status }
func (p *Period) Version() int64       { return p.version }
func (p *Period) CreatedAt() time.Time { return p.createdAt }
func (p *Period) UpdatedAt() time.Time { return p.updatedAt }

// Occupy marks the slot as taken by a paid session. Occupying an already
// occupied slot is a no-op so replayed reconciliations converge.
func (p *Period) Occupy() {
	p.status = StatusOccupied
	p.updatedAt = time.Now().UTC()
}

// Release marks the slot as bookable again.
func (p *Period) Release() {
	p.status = StatusAvailable
	p.updatedAt = time.Now().UTC()
}

// IncrementVersion bumps the version for optimistic locking.
func (p *Period) IncrementVersion() {
	p.version++
	p.updatedAt = time.Now().UTC()
}

// Reconstitute rebuilds a Period from persisted data.
func Reconstitute(
	id, doctorID uuid.UUID,
	startTime, endTime time.Time,
	status Status,
	version int64,
	createdAt, updatedAt time.Time,
) *Period {
	return &Period{
		id:        id,
		doctorID:  doctorID,
		startTime: startTime,
		endTime:   endTime,
		status:    status,
		version:   version,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}
