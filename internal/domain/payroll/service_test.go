package payroll

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/domain/staff"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/db"
)

type mockLevelRepo struct {
	store map[uuid.UUID]*QualificationLevel
}

func (m *mockLevelRepo) Create(_ context.Context, l *QualificationLevel) error {
	l.ID = uuid.New()
	cp := *l
	m.store[l.ID] = &cp
	return nil
}

func (m *mockLevelRepo) GetByID(_ context.Context, id uuid.UUID) (*QualificationLevel, error) {
	l, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("salary factor not found")
	}
	cp := *l
	return &cp, nil
}

func (m *mockLevelRepo) Update(_ context.Context, l *QualificationLevel) error {
	cp := *l
	m.store[l.ID] = &cp
	return nil
}

func (m *mockLevelRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockLevelRepo) List(_ context.Context) ([]*QualificationLevel, error) {
	var out []*QualificationLevel
	for _, l := range m.store {
		out = append(out, l)
	}
	return out, nil
}

func (m *mockLevelRepo) ListByType(_ context.Context, staffTypeID uuid.UUID) ([]*QualificationLevel, error) {
	var out []*QualificationLevel
	for _, l := range m.store {
		if l.StaffTypeID == staffTypeID {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockAllowanceRepo struct{ store map[uuid.UUID]*Allowance }

func (m *mockAllowanceRepo) Create(_ context.Context, a *Allowance) error {
	a.ID = uuid.New()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAllowanceRepo) GetByID(_ context.Context, id uuid.UUID) (*Allowance, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("allowance not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockAllowanceRepo) Update(_ context.Context, a *Allowance) error {
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAllowanceRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockAllowanceRepo) List(_ context.Context) ([]*Allowance, error) {
	var out []*Allowance
	for _, a := range m.store {
		out = append(out, a)
	}
	return out, nil
}

func (m *mockAllowanceRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*Allowance, error) {
	var out []*Allowance
	for _, id := range ids {
		if a, ok := m.store[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockBonusRepo struct{ store map[uuid.UUID]*Bonus }

func (m *mockBonusRepo) Create(_ context.Context, b *Bonus) error {
	b.ID = uuid.New()
	cp := *b
	m.store[b.ID] = &cp
	return nil
}

func (m *mockBonusRepo) GetByID(_ context.Context, id uuid.UUID) (*Bonus, error) {
	b, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("bonus not found")
	}
	cp := *b
	return &cp, nil
}

func (m *mockBonusRepo) Update(_ context.Context, b *Bonus) error {
	cp := *b
	m.store[b.ID] = &cp
	return nil
}

func (m *mockBonusRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockBonusRepo) List(_ context.Context) ([]*Bonus, error) {
	var out []*Bonus
	for _, b := range m.store {
		out = append(out, b)
	}
	return out, nil
}

func (m *mockBonusRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*Bonus, error) {
	var out []*Bonus
	for _, id := range ids {
		if b, ok := m.store[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

type mockDeductionRepo struct{ store map[uuid.UUID]*Deduction }

func (m *mockDeductionRepo) Create(_ context.Context, d *Deduction) error {
	d.ID = uuid.New()
	cp := *d
	m.store[d.ID] = &cp
	return nil
}

func (m *mockDeductionRepo) GetByID(_ context.Context, id uuid.UUID) (*Deduction, error) {
	d, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("deduction not found")
	}
	cp := *d
	return &cp, nil
}

func (m *mockDeductionRepo) Update(_ context.Context, d *Deduction) error {
	cp := *d
	m.store[d.ID] = &cp
	return nil
}

func (m *mockDeductionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockDeductionRepo) List(_ context.Context) ([]*Deduction, error) {
	var out []*Deduction
	for _, d := range m.store {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockDeductionRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*Deduction, error) {
	var out []*Deduction
	for _, id := range ids {
		if d, ok := m.store[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockSheetRepo struct{ store map[uuid.UUID]*Sheet }

func (m *mockSheetRepo) Create(_ context.Context, s *Sheet) error {
	s.ID = uuid.New()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *mockSheetRepo) GetByID(_ context.Context, id uuid.UUID) (*Sheet, error) {
	s, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("salary sheet not found")
	}
	cp := *s
	return &cp, nil
}

func (m *mockSheetRepo) GetByPeriod(_ context.Context, month, year int) (*Sheet, error) {
	for _, s := range m.store {
		if s.Month == month && s.Year == year {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("salary sheet not found")
}

func (m *mockSheetRepo) UpdateState(_ context.Context, id uuid.UUID, state SheetState) error {
	s, ok := m.store[id]
	if !ok {
		return apperr.NotFound("salary sheet not found")
	}
	s.State = state
	return nil
}

func (m *mockSheetRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockSheetRepo) List(_ context.Context, limit, offset int) ([]*Sheet, int, error) {
	var out []*Sheet
	for _, s := range m.store {
		out = append(out, s)
	}
	return out, len(out), nil
}

type mockSalaryRepo struct {
	store  map[uuid.UUID]*Salary
	sheets *mockSheetRepo
}

func (m *mockSalaryRepo) withPeriod(s *Salary) *Salary {
	cp := *s
	if sh, ok := m.sheets.store[s.SheetID]; ok {
		cp.Month, cp.Year = sh.Month, sh.Year
	}
	return &cp
}

func (m *mockSalaryRepo) Create(_ context.Context, s *Salary) error {
	s.ID = uuid.New()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *mockSalaryRepo) GetByID(_ context.Context, id uuid.UUID) (*Salary, error) {
	s, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("salary not found")
	}
	return m.withPeriod(s), nil
}

func (m *mockSalaryRepo) Update(_ context.Context, s *Salary) error {
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *mockSalaryRepo) UpdateState(_ context.Context, id uuid.UUID, state State) error {
	s, ok := m.store[id]
	if !ok {
		return apperr.NotFound("salary not found")
	}
	s.State = state
	return nil
}

func (m *mockSalaryRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockSalaryRepo) ListBySheet(_ context.Context, sheetID uuid.UUID) ([]*Salary, error) {
	var out []*Salary
	for _, s := range m.store {
		if s.SheetID == sheetID {
			out = append(out, m.withPeriod(s))
		}
	}
	return out, nil
}

func (m *mockSalaryRepo) LatestForStaff(_ context.Context, staffID uuid.UUID) (*Salary, error) {
	var best *Salary
	for _, s := range m.store {
		if s.StaffID != staffID {
			continue
		}
		cur := m.withPeriod(s)
		if best == nil || cur.Year*12+cur.Month > best.Year*12+best.Month {
			best = cur
		}
	}
	if best == nil {
		return nil, apperr.NotFound("salary not found")
	}
	return best, nil
}

type fakeDirectory struct {
	staff      map[uuid.UUID]*staff.Staff
	attendance map[uuid.UUID][]*staff.Attendance
}

func (f *fakeDirectory) Get(_ context.Context, id uuid.UUID) (*staff.Staff, error) {
	st, ok := f.staff[id]
	if !ok {
		return nil, apperr.NotFound("staff not found")
	}
	return st, nil
}

func (f *fakeDirectory) ListActive(_ context.Context) ([]*staff.Staff, error) {
	var out []*staff.Staff
	for _, st := range f.staff {
		if st.Status == staff.StatusActive {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeDirectory) MonthAttendance(_ context.Context, staffID uuid.UUID, year, month int) ([]*staff.Attendance, error) {
	var out []*staff.Attendance
	for _, a := range f.attendance[staffID] {
		if a.Date.Year() == year && int(a.Date.Month()) == month {
			out = append(out, a)
		}
	}
	return out, nil
}

type testEnv struct {
	svc      *Service
	levels   *mockLevelRepo
	sheets   *mockSheetRepo
	salaries *mockSalaryRepo
	dir      *fakeDirectory
	typeID   uuid.UUID
}

func newTestEnv() *testEnv {
	sheets := &mockSheetRepo{store: map[uuid.UUID]*Sheet{}}
	env := &testEnv{
		levels:   &mockLevelRepo{store: map[uuid.UUID]*QualificationLevel{}},
		sheets:   sheets,
		salaries: &mockSalaryRepo{store: map[uuid.UUID]*Salary{}, sheets: sheets},
		dir: &fakeDirectory{
			staff:      map[uuid.UUID]*staff.Staff{},
			attendance: map[uuid.UUID][]*staff.Attendance{},
		},
		typeID: uuid.New(),
	}
	env.svc = NewService(env.levels,
		&mockAllowanceRepo{store: map[uuid.UUID]*Allowance{}},
		&mockBonusRepo{store: map[uuid.UUID]*Bonus{}},
		&mockDeductionRepo{store: map[uuid.UUID]*Deduction{}},
		env.sheets, env.salaries, env.dir, db.NoTx{})
	return env
}

func (e *testEnv) addStaff(status staff.Status) *staff.Staff {
	st := &staff.Staff{ID: uuid.New(), StaffTypeID: e.typeID, Name: "Staff", Status: status}
	e.dir.staff[st.ID] = st
	return st
}

func TestCreateLevel_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	if err := env.svc.CreateLevel(ctx, &QualificationLevel{StaffTypeID: env.typeID, Rank: 1, SalaryFactor: dec("1.5")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		name  string
		level QualificationLevel
	}{
		{"missing type", QualificationLevel{Rank: 2, SalaryFactor: dec("1")}},
		{"rank too high", QualificationLevel{StaffTypeID: env.typeID, Rank: 16, SalaryFactor: dec("1")}},
		{"rank zero", QualificationLevel{StaffTypeID: env.typeID, Rank: 0, SalaryFactor: dec("1")}},
		{"zero factor", QualificationLevel{StaffTypeID: env.typeID, Rank: 2, SalaryFactor: dec("0")}},
		{"duplicate rank", QualificationLevel{StaffTypeID: env.typeID, Rank: 1, SalaryFactor: dec("2")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.level
			if err := env.svc.CreateLevel(ctx, &l); !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateDeduction_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	d := &Deduction{Name: "insurance", Rate: dec("8")}
	if err := env.svc.CreateDeduction(ctx, d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.SalaryType != BaseSalary {
		t.Errorf("expected default salary_type base_salary, got %s", d.SalaryType)
	}
	if err := env.svc.CreateDeduction(ctx, &Deduction{Name: "x", Rate: dec("101")}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for rate, got %v", err)
	}
	if err := env.svc.CreateDeduction(ctx, &Deduction{Name: "x", Rate: dec("5"), SalaryType: "net"}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for salary_type, got %v", err)
	}
}

func TestCreateSheet_DuplicatePeriod(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	if err := env.svc.CreateSheet(ctx, &Sheet{Month: 3, Year: 2025}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := env.svc.CreateSheet(ctx, &Sheet{Month: 3, Year: 2025}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := env.svc.CreateSheet(ctx, &Sheet{Month: 13, Year: 2025}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for month, got %v", err)
	}
}

func TestGenerateSalaries_Idempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	_ = env.svc.CreateLevel(ctx, &QualificationLevel{StaffTypeID: env.typeID, Rank: 1, SalaryFactor: dec("1")})
	a := env.addStaff(staff.StatusActive)
	env.addStaff(staff.StatusActive)
	env.addStaff(staff.StatusInactive)
	env.dir.attendance[a.ID] = month(26, 0)

	sh := &Sheet{Month: 3, Year: 2025}
	if err := env.svc.CreateSheet(ctx, sh); err != nil {
		t.Fatalf("create sheet: %v", err)
	}
	n, err := env.svc.GenerateSalaries(ctx, sh.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 salaries, got %d", n)
	}
	if env.sheets.store[sh.ID].State != SheetConfirmed {
		t.Errorf("expected sheet confirmed, got %s", env.sheets.store[sh.ID].State)
	}

	n, err = env.svc.GenerateSalaries(ctx, sh.ID)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no new salaries, got %d", n)
	}

	got, err := env.svc.GetSheet(ctx, sh.ID)
	if err != nil {
		t.Fatalf("get sheet: %v", err)
	}
	if len(got.Salaries) != 2 {
		t.Fatalf("expected 2 salaries on sheet, got %d", len(got.Salaries))
	}
	for _, sal := range got.Salaries {
		if sal.StaffID == a.ID && !sal.NetSalary.Equal(dec("2340000")) {
			t.Errorf("expected full attendance net 2340000, got %s", sal.NetSalary)
		}
	}
}

func TestUpdateSalary(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	_ = env.svc.CreateLevel(ctx, &QualificationLevel{StaffTypeID: env.typeID, Rank: 1, SalaryFactor: dec("1")})
	st := env.addStaff(staff.StatusActive)
	env.dir.attendance[st.ID] = month(26, 0)
	sh := &Sheet{Month: 3, Year: 2025}
	_ = env.svc.CreateSheet(ctx, sh)
	_, _ = env.svc.GenerateSalaries(ctx, sh.ID)

	allowance := &Allowance{Name: "meal", Amount: dec("100000")}
	_ = env.svc.CreateAllowance(ctx, allowance)

	var salaryID uuid.UUID
	for id := range env.salaries.store {
		salaryID = id
	}

	sal := &Salary{ID: salaryID, AllowanceIDs: []uuid.UUID{allowance.ID, allowance.ID}}
	if err := env.svc.UpdateSalary(ctx, sal); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(sal.AllowanceIDs) != 1 {
		t.Errorf("expected duplicate ids removed, got %d", len(sal.AllowanceIDs))
	}
	if !env.salaries.store[salaryID].TotalSalary.Equal(dec("2440000")) {
		t.Errorf("expected stored total 2440000, got %s", env.salaries.store[salaryID].TotalSalary)
	}

	bad := &Salary{ID: salaryID, BonusIDs: []uuid.UUID{uuid.New()}}
	if err := env.svc.UpdateSalary(ctx, bad); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for unknown bonus, got %v", err)
	}

	if _, err := env.svc.ApplySalary(ctx, salaryID, ActionConfirm); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := env.svc.UpdateSalary(ctx, &Salary{ID: salaryID}); !apperr.IsUser(err) {
		t.Errorf("expected user error editing confirmed salary, got %v", err)
	}
}

func TestPaidSalaryBlocksDelete(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.addStaff(staff.StatusActive)
	sh := &Sheet{Month: 4, Year: 2025}
	_ = env.svc.CreateSheet(ctx, sh)
	_, _ = env.svc.GenerateSalaries(ctx, sh.ID)

	var salaryID uuid.UUID
	for id := range env.salaries.store {
		salaryID = id
	}
	if _, err := env.svc.ApplySalary(ctx, salaryID, ActionPay); !apperr.IsUser(err) {
		t.Errorf("expected user error paying a draft, got %v", err)
	}
	_, _ = env.svc.ApplySalary(ctx, salaryID, ActionConfirm)
	if _, err := env.svc.ApplySalary(ctx, salaryID, ActionPay); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if err := env.svc.DeleteSalary(ctx, salaryID); !apperr.IsUser(err) {
		t.Errorf("expected user error deleting paid salary, got %v", err)
	}
	if err := env.svc.DeleteSheet(ctx, sh.ID); !apperr.IsUser(err) {
		t.Errorf("expected user error deleting sheet with paid salary, got %v", err)
	}
}

func TestLatestForStaff(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	st := env.addStaff(staff.StatusActive)

	latest, err := env.svc.LatestForStaff(ctx, st.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Status != LatestNotCreated {
		t.Errorf("expected not_created, got %s", latest.Status)
	}

	for _, m := range []int{2, 5, 3} {
		sh := &Sheet{Month: m, Year: 2025}
		_ = env.svc.CreateSheet(ctx, sh)
		_, _ = env.svc.GenerateSalaries(ctx, sh.ID)
	}
	latest, err = env.svc.LatestForStaff(ctx, st.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Status != LatestCreated || latest.Month != 5 || latest.Year != 2025 {
		t.Errorf("expected created 5/2025, got %s %d/%d", latest.Status, latest.Month, latest.Year)
	}
}
