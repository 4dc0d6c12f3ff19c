package payroll

import (
	"context"

	"github.com/google/uuid"
)

type LevelRepository interface {
	Create(ctx context.Context, l *QualificationLevel) error
	GetByID(ctx context.Context, id uuid.UUID) (*QualificationLevel, error)
	Update(ctx context.Context, l *QualificationLevel) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*QualificationLevel, error)
	ListByType(ctx context.Context, staffTypeID uuid.UUID) ([]*QualificationLevel, error)
}

type AllowanceRepository interface {
	Create(ctx context.Context, a *Allowance) error
	GetByID(ctx context.Context, id uuid.UUID) (*Allowance, error)
	Update(ctx context.Context, a *Allowance) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Allowance, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Allowance, error)
}

type BonusRepository interface {
	Create(ctx context.Context, b *Bonus) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bonus, error)
	Update(ctx context.Context, b *Bonus) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Bonus, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Bonus, error)
}

type DeductionRepository interface {
	Create(ctx context.Context, d *Deduction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Deduction, error)
	Update(ctx context.Context, d *Deduction) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Deduction, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Deduction, error)
}

type SheetRepository interface {
	Create(ctx context.Context, s *Sheet) error
	GetByID(ctx context.Context, id uuid.UUID) (*Sheet, error)
	GetByPeriod(ctx context.Context, month, year int) (*Sheet, error)
	UpdateState(ctx context.Context, id uuid.UUID, state SheetState) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Sheet, int, error)
}

type SalaryRepository interface {
	Create(ctx context.Context, s *Salary) error
	// GetByID fills Month and Year from the sheet.
	GetByID(ctx context.Context, id uuid.UUID) (*Salary, error)
	// Update writes the catalog ids and the breakdown snapshot.
	Update(ctx context.Context, s *Salary) error
	UpdateState(ctx context.Context, id uuid.UUID, state State) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListBySheet(ctx context.Context, sheetID uuid.UUID) ([]*Salary, error)
	// LatestForStaff returns the slip on the most recent sheet, by year then
	// month.
	LatestForStaff(ctx context.Context, staffID uuid.UUID) (*Salary, error)
}
