package payroll

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicops/clinic/internal/domain/staff"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// month builds attendance for March 2025: present days first, then late ones.
func month(present, late int) []*staff.Attendance {
	var rows []*staff.Attendance
	day := 1
	for i := 0; i < present; i++ {
		rows = append(rows, &staff.Attendance{Date: time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC), Status: staff.AttendancePresent})
		day++
	}
	for i := 0; i < late; i++ {
		rows = append(rows, &staff.Attendance{Date: time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC), Status: staff.AttendanceLate})
		day++
	}
	return rows
}

func TestCompute_FullPipeline(t *testing.T) {
	typeID := uuid.New()
	b := Compute(Input{
		StaffTypeID:     typeID,
		ExperienceYears: 6,
		Levels: []*QualificationLevel{
			{StaffTypeID: typeID, Rank: 2, SalaryFactor: dec("1.5")},
			{StaffTypeID: typeID, Rank: 3, SalaryFactor: dec("2")},
		},
		Allowances: []*Allowance{{Name: "meal", Amount: dec("500000")}},
		Bonuses:    []*Bonus{{Name: "holiday", Amount: dec("1000000")}},
		Deductions: []*Deduction{{Name: "insurance", Rate: dec("8"), SalaryType: BaseSalary}},
		Attendance: month(22, 2),
	})

	if b.Rank != 3 {
		t.Errorf("expected rank 3, got %d", b.Rank)
	}
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"base", b.BaseSalary, "4680000"},
		{"total", b.TotalSalary, "6180000"},
		{"late penalty", b.LatePenalty, "100000"},
		{"absent penalty", b.AbsentPenalty, "360000"},
		{"deduction", b.TotalDeduction, "834400"},
		{"after deduction", b.AfterDeduction, "5345600"},
		{"tax", b.Tax, "0"},
		{"net", b.NetSalary, "5345600"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, c.got)
		}
	}
	if b.WorkDays != 24 || b.LateDays != 2 || b.AbsentDays != 2 {
		t.Errorf("unexpected day counts: work=%d late=%d absent=%d", b.WorkDays, b.LateDays, b.AbsentDays)
	}
}

func TestCompute_TaxAboveThreshold(t *testing.T) {
	typeID := uuid.New()
	b := Compute(Input{
		StaffTypeID: typeID,
		Levels:      []*QualificationLevel{{StaffTypeID: typeID, Rank: 1, SalaryFactor: dec("5")}},
		Attendance:  month(26, 0),
	})
	if !b.Tax.Equal(dec("70000")) {
		t.Errorf("expected tax 70000, got %s", b.Tax)
	}
	if !b.NetSalary.Equal(dec("11630000")) {
		t.Errorf("expected net 11630000, got %s", b.NetSalary)
	}
}

func TestCompute_DeductionOnTotalSalary(t *testing.T) {
	typeID := uuid.New()
	b := Compute(Input{
		StaffTypeID: typeID,
		Levels:      []*QualificationLevel{{StaffTypeID: typeID, Rank: 1, SalaryFactor: dec("1")}},
		Allowances:  []*Allowance{{Name: "a", Amount: dec("660000")}},
		Deductions: []*Deduction{
			{Name: "union", Rate: dec("10"), SalaryType: TotalSalary},
			{Name: "zero", Rate: dec("0"), SalaryType: BaseSalary},
		},
		Attendance: month(26, 0),
	})
	if !b.TotalDeduction.Equal(dec("300000")) {
		t.Errorf("expected deduction 300000, got %s", b.TotalDeduction)
	}
}

func TestCompute_NoFactorMeansNoBase(t *testing.T) {
	b := Compute(Input{StaffTypeID: uuid.New(), ExperienceYears: 10})
	if !b.BaseSalary.IsZero() {
		t.Errorf("expected zero base without a factor, got %s", b.BaseSalary)
	}
	if b.AbsentDays != StandardWorkDays {
		t.Errorf("expected %d absent days, got %d", StandardWorkDays, b.AbsentDays)
	}
	if !b.AbsentPenalty.IsZero() {
		t.Errorf("expected zero absent penalty, got %s", b.AbsentPenalty)
	}
}

func TestCompute_DuplicateDatesCountOnce(t *testing.T) {
	rows := month(25, 0)
	rows = append(rows, &staff.Attendance{Date: rows[0].Date, Status: staff.AttendanceAbsent})
	b := Compute(Input{Attendance: rows})
	if b.AbsentDays != 1 {
		t.Errorf("expected 1 absent day, got %d", b.AbsentDays)
	}
}

func TestNext(t *testing.T) {
	if s, err := Next(StateDraft, ActionConfirm); err != nil || s != StateConfirmed {
		t.Errorf("confirm from draft: %v %v", s, err)
	}
	if _, err := Next(StateDraft, ActionPay); err == nil {
		t.Error("expected pay from draft to fail")
	}
	if _, err := Next(StatePaid, "reopen"); err == nil {
		t.Error("expected unknown action to fail")
	}
}
