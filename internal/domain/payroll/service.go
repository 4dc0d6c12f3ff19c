package payroll

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinicops/clinic/internal/domain/staff"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/db"
)

// StaffDirectory is the part of the staff service payroll reads from.
type StaffDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*staff.Staff, error)
	ListActive(ctx context.Context) ([]*staff.Staff, error)
	MonthAttendance(ctx context.Context, staffID uuid.UUID, year, month int) ([]*staff.Attendance, error)
}

type Service struct {
	levels     LevelRepository
	allowances AllowanceRepository
	bonuses    BonusRepository
	deductions DeductionRepository
	sheets     SheetRepository
	salaries   SalaryRepository
	staff      StaffDirectory
	tx         db.TxRunner
}

func NewService(levels LevelRepository, allowances AllowanceRepository, bonuses BonusRepository,
	deductions DeductionRepository, sheets SheetRepository, salaries SalaryRepository,
	directory StaffDirectory, tx db.TxRunner) *Service {
	return &Service{
		levels:     levels,
		allowances: allowances,
		bonuses:    bonuses,
		deductions: deductions,
		sheets:     sheets,
		salaries:   salaries,
		staff:      directory,
		tx:         tx,
	}
}

// -- Qualification levels --

func (s *Service) validateLevel(ctx context.Context, l *QualificationLevel) error {
	if l.StaffTypeID == uuid.Nil {
		return apperr.Validation("staff_type_id is required")
	}
	if l.Rank < 1 || l.Rank > staff.MaxRank {
		return apperr.Validation("rank must be between 1 and %d", staff.MaxRank)
	}
	if !l.SalaryFactor.IsPositive() {
		return apperr.Validation("salary_factor must be greater than 0")
	}
	existing, err := s.levels.ListByType(ctx, l.StaffTypeID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Rank == l.Rank && e.ID != l.ID {
			return apperr.Validation("staff type already has a salary factor for rank %d", l.Rank)
		}
	}
	return nil
}

func (s *Service) CreateLevel(ctx context.Context, l *QualificationLevel) error {
	if err := s.validateLevel(ctx, l); err != nil {
		return err
	}
	return s.levels.Create(ctx, l)
}

func (s *Service) GetLevel(ctx context.Context, id uuid.UUID) (*QualificationLevel, error) {
	return s.levels.GetByID(ctx, id)
}

func (s *Service) UpdateLevel(ctx context.Context, l *QualificationLevel) error {
	if err := s.validateLevel(ctx, l); err != nil {
		return err
	}
	return s.levels.Update(ctx, l)
}

func (s *Service) DeleteLevel(ctx context.Context, id uuid.UUID) error {
	return s.levels.Delete(ctx, id)
}

func (s *Service) ListLevels(ctx context.Context) ([]*QualificationLevel, error) {
	return s.levels.List(ctx)
}

// -- Allowances, bonuses, deductions --

func validateAmount(name string, amount decimal.Decimal) error {
	if name == "" {
		return apperr.Validation("name is required")
	}
	if amount.IsNegative() {
		return apperr.Validation("amount cannot be negative")
	}
	return nil
}

func (s *Service) CreateAllowance(ctx context.Context, a *Allowance) error {
	if err := validateAmount(a.Name, a.Amount); err != nil {
		return err
	}
	return s.allowances.Create(ctx, a)
}

func (s *Service) UpdateAllowance(ctx context.Context, a *Allowance) error {
	if err := validateAmount(a.Name, a.Amount); err != nil {
		return err
	}
	return s.allowances.Update(ctx, a)
}

func (s *Service) DeleteAllowance(ctx context.Context, id uuid.UUID) error {
	return s.allowances.Delete(ctx, id)
}

func (s *Service) ListAllowances(ctx context.Context) ([]*Allowance, error) {
	return s.allowances.List(ctx)
}

func (s *Service) CreateBonus(ctx context.Context, b *Bonus) error {
	if err := validateAmount(b.Name, b.Amount); err != nil {
		return err
	}
	return s.bonuses.Create(ctx, b)
}

func (s *Service) UpdateBonus(ctx context.Context, b *Bonus) error {
	if err := validateAmount(b.Name, b.Amount); err != nil {
		return err
	}
	return s.bonuses.Update(ctx, b)
}

func (s *Service) DeleteBonus(ctx context.Context, id uuid.UUID) error {
	return s.bonuses.Delete(ctx, id)
}

func (s *Service) ListBonuses(ctx context.Context) ([]*Bonus, error) {
	return s.bonuses.List(ctx)
}

func validateDeduction(d *Deduction) error {
	if d.Name == "" {
		return apperr.Validation("name is required")
	}
	if d.Rate.IsNegative() || d.Rate.GreaterThan(hundred) {
		return apperr.Validation("rate must be between 0 and 100")
	}
	if d.SalaryType == "" {
		d.SalaryType = BaseSalary
	}
	if d.SalaryType != BaseSalary && d.SalaryType != TotalSalary {
		return apperr.Validation("invalid salary_type: %s", d.SalaryType)
	}
	return nil
}

func (s *Service) CreateDeduction(ctx context.Context, d *Deduction) error {
	if err := validateDeduction(d); err != nil {
		return err
	}
	return s.deductions.Create(ctx, d)
}

func (s *Service) UpdateDeduction(ctx context.Context, d *Deduction) error {
	if err := validateDeduction(d); err != nil {
		return err
	}
	return s.deductions.Update(ctx, d)
}

func (s *Service) DeleteDeduction(ctx context.Context, id uuid.UUID) error {
	return s.deductions.Delete(ctx, id)
}

func (s *Service) ListDeductions(ctx context.Context) ([]*Deduction, error) {
	return s.deductions.List(ctx)
}

// -- Sheets --

func (s *Service) CreateSheet(ctx context.Context, sh *Sheet) error {
	if sh.Month < 1 || sh.Month > 12 {
		return apperr.Validation("month must be between 1 and 12")
	}
	if sh.Year < 2000 || sh.Year > 2100 {
		return apperr.Validation("year %d is out of range", sh.Year)
	}
	sh.State = SheetDraft
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.sheets.GetByPeriod(ctx, sh.Month, sh.Year); err == nil {
			return apperr.Validation("a salary sheet for %02d/%d already exists", sh.Month, sh.Year)
		} else if !apperr.IsNotFound(err) {
			return err
		}
		return s.sheets.Create(ctx, sh)
	})
}

// GetSheet returns the sheet with every salary recomputed.
func (s *Service) GetSheet(ctx context.Context, id uuid.UUID) (*Sheet, error) {
	sh, err := s.sheets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh.Salaries, err = s.salaries.ListBySheet(ctx, id); err != nil {
		return nil, err
	}
	for _, sal := range sh.Salaries {
		if err := s.compute(ctx, sal); err != nil {
			return nil, err
		}
	}
	return sh, nil
}

func (s *Service) ListSheets(ctx context.Context, limit, offset int) ([]*Sheet, int, error) {
	return s.sheets.List(ctx, limit, offset)
}

// DeleteSheet removes the sheet and its salaries unless one has been paid.
func (s *Service) DeleteSheet(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		salaries, err := s.salaries.ListBySheet(ctx, id)
		if err != nil {
			return err
		}
		for _, sal := range salaries {
			if sal.State == StatePaid {
				return apperr.User("cannot delete a salary sheet with paid salaries")
			}
		}
		return s.sheets.Delete(ctx, id)
	})
}

// GenerateSalaries adds a draft salary for every active staff member missing
// from the sheet and marks the sheet confirmed. It returns how many were
// created; a second run creates none.
func (s *Service) GenerateSalaries(ctx context.Context, sheetID uuid.UUID) (int, error) {
	created := 0
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		sh, err := s.sheets.GetByID(ctx, sheetID)
		if err != nil {
			return err
		}
		existing, err := s.salaries.ListBySheet(ctx, sheetID)
		if err != nil {
			return err
		}
		has := make(map[uuid.UUID]bool, len(existing))
		for _, sal := range existing {
			has[sal.StaffID] = true
		}
		active, err := s.staff.ListActive(ctx)
		if err != nil {
			return err
		}
		for _, st := range active {
			if has[st.ID] {
				continue
			}
			sal := &Salary{SheetID: sh.ID, StaffID: st.ID, State: StateDraft, Month: sh.Month, Year: sh.Year}
			if err := s.compute(ctx, sal); err != nil {
				return err
			}
			if err := s.salaries.Create(ctx, sal); err != nil {
				return err
			}
			created++
		}
		return s.sheets.UpdateState(ctx, sheetID, SheetConfirmed)
	})
	if err != nil {
		return 0, err
	}
	zerolog.Ctx(ctx).Info().Str("sheet_id", sheetID.String()).Int("created", created).Msg("salaries generated")
	return created, nil
}

// -- Salaries --

// compute gathers the inputs of sal and replaces its breakdown.
func (s *Service) compute(ctx context.Context, sal *Salary) error {
	st, err := s.staff.Get(ctx, sal.StaffID)
	if err != nil {
		return err
	}
	in := Input{StaffTypeID: st.StaffTypeID, ExperienceYears: st.ExperienceYear}
	if in.Levels, err = s.levels.ListByType(ctx, st.StaffTypeID); err != nil {
		return err
	}
	if len(sal.AllowanceIDs) > 0 {
		if in.Allowances, err = s.allowances.ListByIDs(ctx, sal.AllowanceIDs); err != nil {
			return err
		}
	}
	if len(sal.BonusIDs) > 0 {
		if in.Bonuses, err = s.bonuses.ListByIDs(ctx, sal.BonusIDs); err != nil {
			return err
		}
	}
	if len(sal.DeductionIDs) > 0 {
		if in.Deductions, err = s.deductions.ListByIDs(ctx, sal.DeductionIDs); err != nil {
			return err
		}
	}
	if in.Attendance, err = s.staff.MonthAttendance(ctx, sal.StaffID, sal.Year, sal.Month); err != nil {
		return err
	}
	sal.Breakdown = Compute(in)
	return nil
}

func (s *Service) GetSalary(ctx context.Context, id uuid.UUID) (*Salary, error) {
	sal, err := s.salaries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.compute(ctx, sal); err != nil {
		return nil, err
	}
	return sal, nil
}

func (s *Service) ListSalaries(ctx context.Context, sheetID uuid.UUID) ([]*Salary, error) {
	salaries, err := s.salaries.ListBySheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	for _, sal := range salaries {
		if err := s.compute(ctx, sal); err != nil {
			return nil, err
		}
	}
	return salaries, nil
}

// UpdateSalary changes the applied allowances, bonuses and deductions of a
// draft salary.
func (s *Service) UpdateSalary(ctx context.Context, sal *Salary) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.salaries.GetByID(ctx, sal.ID)
		if err != nil {
			return err
		}
		if current.State != StateDraft {
			return apperr.User("cannot edit a salary in state %s", current.State)
		}
		sal.SheetID = current.SheetID
		sal.StaffID = current.StaffID
		sal.State = current.State
		sal.Month = current.Month
		sal.Year = current.Year
		sal.CreatedAt = current.CreatedAt
		if err := s.checkRefs(ctx, sal); err != nil {
			return err
		}
		if err := s.compute(ctx, sal); err != nil {
			return err
		}
		return s.salaries.Update(ctx, sal)
	})
}

// checkRefs rejects catalog ids that do not exist.
func (s *Service) checkRefs(ctx context.Context, sal *Salary) error {
	sal.AllowanceIDs = dedupe(sal.AllowanceIDs)
	sal.BonusIDs = dedupe(sal.BonusIDs)
	sal.DeductionIDs = dedupe(sal.DeductionIDs)
	if len(sal.AllowanceIDs) > 0 {
		found, err := s.allowances.ListByIDs(ctx, sal.AllowanceIDs)
		if err != nil {
			return err
		}
		if len(found) != len(sal.AllowanceIDs) {
			return apperr.Validation("unknown allowance in allowance_ids")
		}
	}
	if len(sal.BonusIDs) > 0 {
		found, err := s.bonuses.ListByIDs(ctx, sal.BonusIDs)
		if err != nil {
			return err
		}
		if len(found) != len(sal.BonusIDs) {
			return apperr.Validation("unknown bonus in bonus_ids")
		}
	}
	if len(sal.DeductionIDs) > 0 {
		found, err := s.deductions.ListByIDs(ctx, sal.DeductionIDs)
		if err != nil {
			return err
		}
		if len(found) != len(sal.DeductionIDs) {
			return apperr.Validation("unknown deduction in deduction_ids")
		}
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (s *Service) DeleteSalary(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		sal, err := s.salaries.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if sal.State == StatePaid {
			return apperr.User("cannot delete a paid salary")
		}
		return s.salaries.Delete(ctx, id)
	})
}

// ApplySalary moves a salary through its states, refreshing the stored
// breakdown so the snapshot matches what was confirmed or paid.
func (s *Service) ApplySalary(ctx context.Context, id uuid.UUID, action Action) (*Salary, error) {
	var sal *Salary
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		sal, err = s.salaries.GetByID(ctx, id)
		if err != nil {
			return err
		}
		next, err := Next(sal.State, action)
		if err != nil {
			return err
		}
		if err := s.compute(ctx, sal); err != nil {
			return err
		}
		if err := s.salaries.Update(ctx, sal); err != nil {
			return err
		}
		sal.State = next
		return s.salaries.UpdateState(ctx, id, next)
	})
	if err != nil {
		return nil, err
	}
	return sal, nil
}

// LatestForStaff reports the most recent salary of a staff member, or
// not_created when there is none.
func (s *Service) LatestForStaff(ctx context.Context, staffID uuid.UUID) (*LatestSalary, error) {
	sal, err := s.salaries.LatestForStaff(ctx, staffID)
	if apperr.IsNotFound(err) {
		return &LatestSalary{Status: LatestNotCreated}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.compute(ctx, sal); err != nil {
		return nil, err
	}
	return &LatestSalary{
		Status:      LatestCreated,
		SalaryID:    &sal.ID,
		Month:       sal.Month,
		Year:        sal.Year,
		State:       sal.State,
		TotalSalary: &sal.TotalSalary,
		NetSalary:   &sal.NetSalary,
	}, nil
}
