package staff

import (
	"context"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/sequence"
)

// -- in-memory repositories --

type mockTypeRepo struct{ store map[uuid.UUID]*StaffType }

func (m *mockTypeRepo) Create(_ context.Context, t *StaffType) error {
	t.ID = uuid.New()
	cp := *t
	m.store[t.ID] = &cp
	return nil
}

func (m *mockTypeRepo) GetByID(_ context.Context, id uuid.UUID) (*StaffType, error) {
	t, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("staff type not found")
	}
	cp := *t
	return &cp, nil
}

func (m *mockTypeRepo) Update(_ context.Context, t *StaffType) error {
	cur, ok := m.store[t.ID]
	if !ok {
		return apperr.NotFound("staff type not found")
	}
	cur.Name = t.Name
	t.TypeCode = cur.TypeCode
	return nil
}

func (m *mockTypeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockTypeRepo) List(_ context.Context) ([]*StaffType, error) {
	var out []*StaffType
	for _, t := range m.store {
		out = append(out, t)
	}
	return out, nil
}

type mockStaffRepo struct{ store map[uuid.UUID]*Staff }

func (m *mockStaffRepo) Create(_ context.Context, s *Staff) error {
	s.ID = uuid.New()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *mockStaffRepo) GetByID(_ context.Context, id uuid.UUID) (*Staff, error) {
	s, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("staff not found")
	}
	cp := *s
	return &cp, nil
}

func (m *mockStaffRepo) GetByLicense(_ context.Context, license string) (*Staff, error) {
	for _, s := range m.store {
		if s.LicenseNumber != nil && *s.LicenseNumber == license {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("staff not found")
}

func (m *mockStaffRepo) Update(_ context.Context, s *Staff) error {
	cur, ok := m.store[s.ID]
	if !ok {
		return apperr.NotFound("staff not found")
	}
	s.StaffCode = cur.StaffCode
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *mockStaffRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockStaffRepo) List(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	var out []*Staff
	for _, s := range m.store {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockStaffRepo) ListActive(_ context.Context) ([]*Staff, error) {
	var out []*Staff
	for _, s := range m.store {
		if s.Status == StatusActive {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockAttendanceRepo struct{ store map[uuid.UUID]*Attendance }

func (m *mockAttendanceRepo) Create(_ context.Context, a *Attendance) error {
	a.ID = uuid.New()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id uuid.UUID) (*Attendance, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("attendance not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockAttendanceRepo) GetByStaffDate(_ context.Context, staffID uuid.UUID, date time.Time) (*Attendance, error) {
	for _, a := range m.store {
		if a.StaffID == staffID && a.Date.Equal(date) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("attendance not found")
}

func (m *mockAttendanceRepo) Update(_ context.Context, a *Attendance) error {
	if _, ok := m.store[a.ID]; !ok {
		return apperr.NotFound("attendance not found")
	}
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAttendanceRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockAttendanceRepo) ListByStaff(_ context.Context, staffID uuid.UUID, from, to time.Time) ([]*Attendance, error) {
	var out []*Attendance
	for _, a := range m.store {
		if a.StaffID == staffID && !a.Date.Before(from) && a.Date.Before(to) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type mockPerformanceRepo struct{ store map[uuid.UUID]*Performance }

func (m *mockPerformanceRepo) Create(_ context.Context, p *Performance) error {
	p.ID = uuid.New()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockPerformanceRepo) GetByID(_ context.Context, id uuid.UUID) (*Performance, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("performance review not found")
	}
	cp := *p
	return &cp, nil
}

func (m *mockPerformanceRepo) UpdateState(_ context.Context, id uuid.UUID, state PerformanceState) error {
	p, ok := m.store[id]
	if !ok {
		return apperr.NotFound("performance review not found")
	}
	p.State = state
	return nil
}

func (m *mockPerformanceRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockPerformanceRepo) ListByStaff(_ context.Context, staffID uuid.UUID) ([]*Performance, error) {
	var out []*Performance
	for _, p := range m.store {
		if p.StaffID == staffID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type testEnv struct {
	svc        *Service
	attendance *mockAttendanceRepo
	current    time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		attendance: &mockAttendanceRepo{store: make(map[uuid.UUID]*Attendance)},
		current:    time.Date(2025, 4, 7, 7, 45, 0, 0, time.UTC),
	}
	env.svc = NewService(
		&mockTypeRepo{store: make(map[uuid.UUID]*StaffType)},
		&mockStaffRepo{store: make(map[uuid.UUID]*Staff)},
		env.attendance,
		&mockPerformanceRepo{store: make(map[uuid.UUID]*Performance)},
		sequence.NewMemory(),
		func() time.Time { return env.current },
	)
	return env
}

func (env *testEnv) createStaff(t *testing.T) *Staff {
	t.Helper()
	ctx := context.Background()
	typ := &StaffType{Name: "Doctor"}
	if err := env.svc.CreateType(ctx, typ); err != nil {
		t.Fatalf("create type: %v", err)
	}
	st := &Staff{Name: "Le Van C", StaffTypeID: typ.ID, ExperienceYear: 7}
	if err := env.svc.Create(ctx, st); err != nil {
		t.Fatalf("create staff: %v", err)
	}
	return st
}

func at(y int, m time.Month, d, hh, mm int) *time.Time {
	t := time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
	return &t
}

// -- tests --

func TestQualificationRank(t *testing.T) {
	tests := []struct{ years, want int }{
		{0, 1}, {2, 1}, {3, 2}, {7, 3}, {41, 14}, {42, 15}, {100, 15}, {-1, 1},
	}
	for _, tt := range tests {
		if got := QualificationRank(tt.years); got != tt.want {
			t.Errorf("QualificationRank(%d) = %d, want %d", tt.years, got, tt.want)
		}
	}
}

func TestAttendanceStatusOf(t *testing.T) {
	date := clock.NewDate(2025, 4, 7)
	if got := AttendanceStatusOf(date, nil); got != AttendanceAbsent {
		t.Errorf("expected absent, got %s", got)
	}
	if got := AttendanceStatusOf(date, at(2025, 4, 7, 8, 0)); got != AttendancePresent {
		t.Errorf("expected present at exactly 08:00, got %s", got)
	}
	if got := AttendanceStatusOf(date, at(2025, 4, 7, 8, 1)); got != AttendanceLate {
		t.Errorf("expected late at 08:01, got %s", got)
	}
}

func TestWorkHours(t *testing.T) {
	h, err := WorkHours(at(2025, 4, 7, 8, 0), at(2025, 4, 7, 16, 30))
	if err != nil || h != 8.5 {
		t.Errorf("expected 8.5h, got %v %v", h, err)
	}
	if h, _ := WorkHours(at(2025, 4, 7, 8, 0), nil); h != 0 {
		t.Errorf("expected 0 without check-out, got %v", h)
	}
	if _, err := WorkHours(at(2025, 4, 7, 9, 0), at(2025, 4, 7, 8, 0)); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAttendanceDerive_BadPairKeepsStatus(t *testing.T) {
	a := &Attendance{Date: clock.NewDate(2025, 4, 7), CheckIn: at(2025, 4, 7, 9, 0), CheckOut: at(2025, 4, 7, 8, 0)}
	if err := a.derive(); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if a.Status != AttendanceLate {
		t.Errorf("expected late status despite bad pair, got %q", a.Status)
	}
	if a.WorkHours != 0 {
		t.Errorf("expected zero hours, got %v", a.WorkHours)
	}
}

func TestCreate_AssignsCodes(t *testing.T) {
	env := newTestEnv()
	st := env.createStaff(t)
	if st.StaffCode != "STF000001" {
		t.Errorf("expected STF000001, got %s", st.StaffCode)
	}
	if st.Status != StatusActive || st.LaborType != LaborFullTime {
		t.Errorf("expected defaults active/full_time, got %s/%s", st.Status, st.LaborType)
	}
	if st.Rank() != 3 {
		t.Errorf("expected rank 3, got %d", st.Rank())
	}
}

func TestCreate_DuplicateLicense(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	first := env.createStaff(t)
	lic := "LIC-001"
	first.LicenseNumber = &lic
	if err := env.svc.Update(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other := &Staff{Name: "Other", StaffTypeID: first.StaffTypeID, LicenseNumber: &lic}
	if err := env.svc.Create(ctx, other); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_UnknownType(t *testing.T) {
	env := newTestEnv()
	err := env.svc.Create(context.Background(), &Staff{Name: "x", StaffTypeID: uuid.New()})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckInOut(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	st := env.createStaff(t)

	a, err := env.svc.CheckInOut(ctx, st.ID)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if a.CheckIn == nil || a.CheckOut != nil || a.Status != AttendancePresent {
		t.Fatalf("unexpected row after check in: %+v", a)
	}

	env.current = time.Date(2025, 4, 7, 17, 15, 0, 0, time.UTC)
	a, err = env.svc.CheckInOut(ctx, st.ID)
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	if a.CheckOut == nil || a.WorkHours != 9.5 {
		t.Fatalf("expected 9.5 work hours, got %+v", a)
	}

	if _, err := env.svc.CheckInOut(ctx, st.ID); !apperr.IsUser(err) {
		t.Fatalf("expected user error on third punch, got %v", err)
	}
	if len(env.attendance.store) != 1 {
		t.Errorf("expected a single attendance row, got %d", len(env.attendance.store))
	}
}

func TestRecordAttendance_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	st := env.createStaff(t)

	bad := &Attendance{StaffID: st.ID, Date: clock.NewDate(2025, 4, 1), CheckIn: at(2025, 4, 1, 9, 0), CheckOut: at(2025, 4, 1, 8, 0)}
	if err := env.svc.RecordAttendance(ctx, bad); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for reversed times, got %v", err)
	}

	ok := &Attendance{StaffID: st.ID, Date: clock.NewDate(2025, 4, 1), CheckIn: at(2025, 4, 1, 7, 55)}
	if err := env.svc.RecordAttendance(ctx, ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dup := &Attendance{StaffID: st.ID, Date: clock.NewDate(2025, 4, 1)}
	if err := env.svc.RecordAttendance(ctx, dup); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for duplicate day, got %v", err)
	}
}

func TestPerformance(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	st := env.createStaff(t)

	// present 8h, late 8h, absent, and one row in another month
	rows := []*Attendance{
		{StaffID: st.ID, Date: clock.NewDate(2025, 3, 3), CheckIn: at(2025, 3, 3, 8, 0), CheckOut: at(2025, 3, 3, 16, 0)},
		{StaffID: st.ID, Date: clock.NewDate(2025, 3, 4), CheckIn: at(2025, 3, 4, 9, 0), CheckOut: at(2025, 3, 4, 17, 0)},
		{StaffID: st.ID, Date: clock.NewDate(2025, 3, 5)},
		{StaffID: st.ID, Date: clock.NewDate(2025, 4, 1), CheckIn: at(2025, 4, 1, 8, 0), CheckOut: at(2025, 4, 1, 18, 0)},
	}
	for _, a := range rows {
		if err := env.svc.RecordAttendance(ctx, a); err != nil {
			t.Fatalf("record attendance: %v", err)
		}
	}

	p := &Performance{StaffID: st.ID, Month: 3, Year: 2025}
	if err := env.svc.CreatePerformance(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.AttendanceScore != 0.5 {
		t.Errorf("expected attendance score 0.5, got %v", p.AttendanceScore)
	}
	if p.WorkHours != 16 {
		t.Errorf("expected 16 work hours, got %v", p.WorkHours)
	}
	if math.Abs(p.Score-2.1) > 1e-9 {
		t.Errorf("expected score 2.1, got %v", p.Score)
	}

	if _, err := env.svc.ApplyPerformance(ctx, p.ID, "approve"); !apperr.IsUser(err) {
		t.Errorf("expected user error approving a draft, got %v", err)
	}
	got, err := env.svc.ApplyPerformance(ctx, p.ID, "confirm")
	if err != nil || got.State != PerformanceConfirmed {
		t.Fatalf("confirm: %v %v", got, err)
	}
	got, err = env.svc.ApplyPerformance(ctx, p.ID, "approve")
	if err != nil || got.State != PerformanceApproved {
		t.Fatalf("approve: %v %v", got, err)
	}
}

func TestEvaluate_NoRows(t *testing.T) {
	a, h, s := Evaluate(nil)
	if a != 0 || h != 0 || s != 0 {
		t.Errorf("expected zeros, got %v %v %v", a, h, s)
	}
}
