package payroll

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicops/clinic/internal/domain/staff"
	"github.com/clinicops/clinic/internal/platform/apperr"
)

var (
	// BaseWage is the statutory base multiplied by the qualification factor.
	BaseWage = decimal.NewFromInt(2_340_000)
	// LatePenalty is charged per late day.
	LatePenalty = decimal.NewFromInt(50_000)
	// TaxThreshold is the monthly income free of tax.
	TaxThreshold = decimal.NewFromInt(11_000_000)
	TaxRate      = decimal.New(1, -1)
)

// StandardWorkDays is the number of working days expected per month.
const StandardWorkDays = 26

var hundred = decimal.NewFromInt(100)

// -- Catalogs --

// QualificationLevel maps to the salary_qualification_level table.
type QualificationLevel struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	StaffTypeID  uuid.UUID       `db:"staff_type_id" json:"staff_type_id"`
	Rank         int             `db:"rank" json:"rank"`
	SalaryFactor decimal.Decimal `db:"salary_factor" json:"salary_factor"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Allowance maps to the salary_allowance table.
type Allowance struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Bonus maps to the salary_bonus table.
type Bonus struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Reason    *string         `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// DeductionBase selects the amount a deduction rate applies to.
type DeductionBase string

const (
	BaseSalary  DeductionBase = "base_salary"
	TotalSalary DeductionBase = "total_salary"
)

// Deduction maps to the salary_deduction table. Rate is a percentage.
type Deduction struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	Rate       decimal.Decimal `db:"rate" json:"rate"`
	SalaryType DeductionBase   `db:"salary_type" json:"salary_type"`
	Reason     *string         `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// -- Sheet --

type SheetState string

const (
	SheetDraft     SheetState = "draft"
	SheetConfirmed SheetState = "confirmed"
)

// Sheet is the payroll for one month. Maps to the salary_sheet table.
type Sheet struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Month     int        `db:"month" json:"month"`
	Year      int        `db:"year" json:"year"`
	State     SheetState `db:"state" json:"state"`
	Salaries  []*Salary  `db:"-" json:"salaries,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// -- Salary --

type State string

const (
	StateDraft     State = "draft"
	StateConfirmed State = "confirmed"
	StatePaid      State = "paid"
)

type Action string

const (
	ActionConfirm Action = "confirm"
	ActionPay     Action = "pay"
)

var transitions = map[Action]struct {
	from []State
	to   State
}{
	ActionConfirm: {from: []State{StateDraft}, to: StateConfirmed},
	ActionPay:     {from: []State{StateConfirmed}, to: StatePaid},
}

func Next(from State, action Action) (State, error) {
	t, ok := transitions[action]
	if !ok {
		return "", apperr.Validation("unknown salary action: %s", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s a salary in state %s", action, from)
}

// Breakdown is every figure of one salary computation.
type Breakdown struct {
	Rank           int             `db:"-" json:"rank"`
	SalaryFactor   decimal.Decimal `db:"-" json:"salary_factor"`
	BaseSalary     decimal.Decimal `db:"base_salary" json:"base_salary"`
	TotalAllowance decimal.Decimal `db:"total_allowance" json:"total_allowance"`
	TotalBonus     decimal.Decimal `db:"total_bonus" json:"total_bonus"`
	TotalSalary    decimal.Decimal `db:"total_salary" json:"total_salary"`
	WorkDays       int             `db:"-" json:"work_days"`
	LateDays       int             `db:"-" json:"late_days"`
	AbsentDays     int             `db:"-" json:"absent_days"`
	LatePenalty    decimal.Decimal `db:"-" json:"late_penalty"`
	AbsentPenalty  decimal.Decimal `db:"-" json:"absent_penalty"`
	TotalDeduction decimal.Decimal `db:"total_deduction" json:"total_deduction"`
	AfterDeduction decimal.Decimal `db:"-" json:"total_salary_after_deduction"`
	Tax            decimal.Decimal `db:"tax" json:"tax"`
	NetSalary      decimal.Decimal `db:"net_salary" json:"net_salary"`
}

// Salary is one staff member's pay slip on a sheet. Maps to the
// staff_salary table; the stored breakdown is the snapshot of the last write.
type Salary struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	SheetID      uuid.UUID   `db:"sheet_id" json:"sheet_id"`
	StaffID      uuid.UUID   `db:"staff_id" json:"staff_id"`
	AllowanceIDs []uuid.UUID `db:"allowance_ids" json:"allowance_ids"`
	BonusIDs     []uuid.UUID `db:"bonus_ids" json:"bonus_ids"`
	DeductionIDs []uuid.UUID `db:"deduction_ids" json:"deduction_ids"`
	State        State       `db:"state" json:"state"`
	Month        int         `db:"-" json:"month"`
	Year         int         `db:"-" json:"year"`
	Breakdown
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Input is everything Compute needs. Attendance holds the rows of the
// sheet's month only.
type Input struct {
	StaffTypeID     uuid.UUID
	ExperienceYears int
	Levels          []*QualificationLevel
	Allowances      []*Allowance
	Bonuses         []*Bonus
	Deductions      []*Deduction
	Attendance      []*staff.Attendance
}

func factorFor(levels []*QualificationLevel, staffTypeID uuid.UUID, rank int) (decimal.Decimal, bool) {
	for _, l := range levels {
		if l.StaffTypeID == staffTypeID && l.Rank == rank {
			return l.SalaryFactor, true
		}
	}
	return decimal.Zero, false
}

// Compute runs the salary pipeline. It is deterministic and has no side
// effects; amounts derived by a rate or a division are rounded to two places.
func Compute(in Input) Breakdown {
	var b Breakdown

	b.Rank = staff.QualificationRank(in.ExperienceYears)
	if factor, ok := factorFor(in.Levels, in.StaffTypeID, b.Rank); ok {
		b.SalaryFactor = factor
		b.BaseSalary = BaseWage.Mul(factor).Round(2)
	}

	for _, a := range in.Allowances {
		b.TotalAllowance = b.TotalAllowance.Add(a.Amount)
	}
	for _, bo := range in.Bonuses {
		b.TotalBonus = b.TotalBonus.Add(bo.Amount)
	}
	b.TotalSalary = b.BaseSalary.Add(b.TotalAllowance).Add(b.TotalBonus)

	dates := make(map[string]bool, len(in.Attendance))
	for _, a := range in.Attendance {
		dates[a.Date.Format("2006-01-02")] = true
		switch a.Status {
		case staff.AttendanceLate:
			b.LateDays++
			b.WorkDays++
		case staff.AttendancePresent:
			b.WorkDays++
		}
	}
	if missing := StandardWorkDays - len(dates); missing > 0 {
		b.AbsentDays = missing
	}

	b.LatePenalty = LatePenalty.Mul(decimal.NewFromInt(int64(b.LateDays)))
	b.AbsentPenalty = b.BaseSalary.Div(decimal.NewFromInt(StandardWorkDays)).
		Mul(decimal.NewFromInt(int64(b.AbsentDays))).Round(2)

	deductions := decimal.Zero
	for _, d := range in.Deductions {
		if !d.Rate.IsPositive() {
			continue
		}
		base := b.BaseSalary
		if d.SalaryType == TotalSalary {
			base = b.TotalSalary
		}
		deductions = deductions.Add(base.Mul(d.Rate).Div(hundred).Round(2))
	}
	b.TotalDeduction = deductions.Add(b.LatePenalty).Add(b.AbsentPenalty)

	b.AfterDeduction = b.TotalSalary.Sub(b.TotalDeduction)
	b.Tax = decimal.Max(decimal.Zero, b.AfterDeduction.Sub(TaxThreshold).Mul(TaxRate).Round(2))
	b.NetSalary = b.AfterDeduction.Sub(b.Tax)
	return b
}

// LatestSalary summarises a staff member's most recent pay slip.
type LatestSalary struct {
	Status      string           `json:"status"`
	SalaryID    *uuid.UUID       `json:"salary_id,omitempty"`
	Month       int              `json:"month,omitempty"`
	Year        int              `json:"year,omitempty"`
	State       State            `json:"state,omitempty"`
	TotalSalary *decimal.Decimal `json:"total_salary,omitempty"`
	NetSalary   *decimal.Decimal `json:"net_salary,omitempty"`
}

const (
	LatestCreated    = "created"
	LatestNotCreated = "not_created"
)
