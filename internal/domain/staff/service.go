package staff

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/sequence"
)

type Service struct {
	types       StaffTypeRepository
	staff       StaffRepository
	attendance  AttendanceRepository
	performance PerformanceRepository
	seq         sequence.Generator
	now         clock.Clock
}

func NewService(types StaffTypeRepository, staff StaffRepository, attendance AttendanceRepository,
	performance PerformanceRepository, seq sequence.Generator, now clock.Clock) *Service {
	return &Service{types: types, staff: staff, attendance: attendance, performance: performance, seq: seq, now: now}
}

// -- StaffType --

func (s *Service) CreateType(ctx context.Context, t *StaffType) error {
	if strings.TrimSpace(t.Name) == "" {
		return apperr.Validation("name is required")
	}
	code, err := s.seq.Next(ctx, sequence.StaffType)
	if err != nil {
		return err
	}
	t.TypeCode = code
	return s.types.Create(ctx, t)
}

func (s *Service) GetType(ctx context.Context, id uuid.UUID) (*StaffType, error) {
	return s.types.GetByID(ctx, id)
}

func (s *Service) UpdateType(ctx context.Context, t *StaffType) error {
	if strings.TrimSpace(t.Name) == "" {
		return apperr.Validation("name is required")
	}
	return s.types.Update(ctx, t)
}

func (s *Service) DeleteType(ctx context.Context, id uuid.UUID) error {
	return s.types.Delete(ctx, id)
}

func (s *Service) ListTypes(ctx context.Context) ([]*StaffType, error) {
	return s.types.List(ctx)
}

// -- Staff --

func (s *Service) validateStaff(ctx context.Context, st *Staff) error {
	if strings.TrimSpace(st.Name) == "" {
		return apperr.Validation("name is required")
	}
	if st.StaffTypeID == uuid.Nil {
		return apperr.Validation("staff_type_id is required")
	}
	if _, err := s.types.GetByID(ctx, st.StaffTypeID); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.Validation("staff type %s does not exist", st.StaffTypeID)
		}
		return err
	}
	if st.ExperienceYear < 0 {
		return apperr.Validation("experience_year must not be negative")
	}
	if st.Gender != "" && !validGenders[st.Gender] {
		return apperr.Validation("invalid gender: %s", st.Gender)
	}
	if st.Status == "" {
		st.Status = StatusActive
	}
	if !validStatuses[st.Status] {
		return apperr.Validation("invalid status: %s", st.Status)
	}
	if st.LaborType == "" {
		st.LaborType = LaborFullTime
	}
	if !validLaborTypes[st.LaborType] {
		return apperr.Validation("invalid labor_type: %s", st.LaborType)
	}
	if st.LicenseNumber != nil && *st.LicenseNumber != "" {
		other, err := s.staff.GetByLicense(ctx, *st.LicenseNumber)
		switch {
		case apperr.IsNotFound(err):
		case err != nil:
			return err
		case other.ID != st.ID:
			return apperr.Validation("license number %s is already registered", *st.LicenseNumber)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, st *Staff) error {
	if err := s.validateStaff(ctx, st); err != nil {
		return err
	}
	code, err := s.seq.Next(ctx, sequence.Staff)
	if err != nil {
		return err
	}
	st.StaffCode = code
	return s.staff.Create(ctx, st)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return s.staff.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, st *Staff) error {
	if err := s.validateStaff(ctx, st); err != nil {
		return err
	}
	return s.staff.Update(ctx, st)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.staff.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	return s.staff.List(ctx, limit, offset)
}

func (s *Service) ListActive(ctx context.Context) ([]*Staff, error) {
	return s.staff.ListActive(ctx)
}

// -- Attendance --

func (s *Service) RecordAttendance(ctx context.Context, a *Attendance) error {
	if a.StaffID == uuid.Nil {
		return apperr.Validation("staff_id is required")
	}
	if a.Date.IsZero() {
		return apperr.Validation("date is required")
	}
	a.Date = clock.Date(a.Date)
	if err := a.derive(); err != nil {
		return err
	}
	if _, err := s.staff.GetByID(ctx, a.StaffID); err != nil {
		return err
	}
	existing, err := s.attendance.GetByStaffDate(ctx, a.StaffID, a.Date)
	if err != nil && !apperr.IsNotFound(err) {
		return err
	}
	if existing != nil {
		return apperr.Validation("attendance for %s already recorded", a.Date.Format("2006-01-02"))
	}
	return s.attendance.Create(ctx, a)
}

// UpdateAttendance changes the check times of an existing row.
func (s *Service) UpdateAttendance(ctx context.Context, a *Attendance) error {
	current, err := s.attendance.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	a.StaffID = current.StaffID
	a.Date = current.Date
	if err := a.derive(); err != nil {
		return err
	}
	return s.attendance.Update(ctx, a)
}

func (s *Service) DeleteAttendance(ctx context.Context, id uuid.UUID) error {
	return s.attendance.Delete(ctx, id)
}

// CheckInOut checks the staff member in if they have no row today, out if
// they are checked in, and refuses a third punch.
func (s *Service) CheckInOut(ctx context.Context, staffID uuid.UUID) (*Attendance, error) {
	if _, err := s.staff.GetByID(ctx, staffID); err != nil {
		return nil, err
	}
	now := s.now()
	today := clock.Date(now)
	a, err := s.attendance.GetByStaffDate(ctx, staffID, today)
	switch {
	case apperr.IsNotFound(err):
		a = &Attendance{StaffID: staffID, Date: today, CheckIn: &now}
		if err := s.attendance.Create(ctx, a); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case a.CheckIn == nil:
		a.CheckIn = &now
		if err := s.attendance.Update(ctx, a); err != nil {
			return nil, err
		}
	case a.CheckOut == nil:
		a.CheckOut = &now
		if err := s.attendance.Update(ctx, a); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.User("already checked in and out today")
	}
	if err := a.derive(); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListAttendance(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]*Attendance, error) {
	rows, err := s.attendance.ListByStaff(ctx, staffID, clock.Date(from), clock.Date(to))
	if err != nil {
		return nil, err
	}
	for _, a := range rows {
		// stored rows passed validation; a bad pair only zeroes hours
		_ = a.derive()
	}
	return rows, nil
}

// MonthAttendance returns the staff member's attendance rows for one month.
func (s *Service) MonthAttendance(ctx context.Context, staffID uuid.UUID, year, month int) ([]*Attendance, error) {
	from := clock.NewDate(year, time.Month(month), 1)
	return s.ListAttendance(ctx, staffID, from, from.AddDate(0, 1, 0))
}

// -- Performance --

func (s *Service) CreatePerformance(ctx context.Context, p *Performance) error {
	if p.StaffID == uuid.Nil {
		return apperr.Validation("staff_id is required")
	}
	if p.Month < 1 || p.Month > 12 {
		return apperr.Validation("month must be between 1 and 12")
	}
	if p.Year < 1 {
		return apperr.Validation("year is required")
	}
	if _, err := s.staff.GetByID(ctx, p.StaffID); err != nil {
		return err
	}
	p.State = PerformanceDraft
	if err := s.performance.Create(ctx, p); err != nil {
		return err
	}
	return s.evaluate(ctx, p)
}

func (s *Service) evaluate(ctx context.Context, p *Performance) error {
	rows, err := s.MonthAttendance(ctx, p.StaffID, p.Year, p.Month)
	if err != nil {
		return err
	}
	p.AttendanceScore, p.WorkHours, p.Score = Evaluate(rows)
	return nil
}

func (s *Service) GetPerformance(ctx context.Context, id uuid.UUID) (*Performance, error) {
	p, err := s.performance.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.evaluate(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPerformance(ctx context.Context, staffID uuid.UUID) ([]*Performance, error) {
	items, err := s.performance.ListByStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		if err := s.evaluate(ctx, p); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *Service) ApplyPerformance(ctx context.Context, id uuid.UUID, action string) (*Performance, error) {
	p, err := s.GetPerformance(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := nextPerformanceState(p.State, action)
	if err != nil {
		return nil, err
	}
	if err := s.performance.UpdateState(ctx, id, next); err != nil {
		return nil, err
	}
	p.State = next
	return p, nil
}

func (s *Service) DeletePerformance(ctx context.Context, id uuid.UUID) error {
	return s.performance.Delete(ctx, id)
}
