package staff

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type StaffTypeRepository interface {
	Create(ctx context.Context, t *StaffType) error
	GetByID(ctx context.Context, id uuid.UUID) (*StaffType, error)
	Update(ctx context.Context, t *StaffType) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*StaffType, error)
}

type StaffRepository interface {
	Create(ctx context.Context, s *Staff) error
	GetByID(ctx context.Context, id uuid.UUID) (*Staff, error)
	GetByLicense(ctx context.Context, license string) (*Staff, error)
	Update(ctx context.Context, s *Staff) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Staff, int, error)
	ListActive(ctx context.Context) ([]*Staff, error)
}

type AttendanceRepository interface {
	Create(ctx context.Context, a *Attendance) error
	GetByID(ctx context.Context, id uuid.UUID) (*Attendance, error)
	GetByStaffDate(ctx context.Context, staffID uuid.UUID, date time.Time) (*Attendance, error)
	Update(ctx context.Context, a *Attendance) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByStaff returns rows with from <= date < to, oldest first.
	ListByStaff(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]*Attendance, error)
}

type PerformanceRepository interface {
	Create(ctx context.Context, p *Performance) error
	GetByID(ctx context.Context, id uuid.UUID) (*Performance, error)
	UpdateState(ctx context.Context, id uuid.UUID, state PerformanceState) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByStaff(ctx context.Context, staffID uuid.UUID) ([]*Performance, error)
}
