package feedback

import (
	"testing"
	"time"

	"github.com/clinicops/clinic/internal/platform/clock"
)

func TestDeadlineFor(t *testing.T) {
	filed := clock.NewDate(2025, time.March, 10)
	tests := []struct {
		priority Priority
		want     time.Time
	}{
		{PriorityHigh, clock.NewDate(2025, time.March, 13)},
		{PriorityMedium, clock.NewDate(2025, time.March, 17)},
		{PriorityLow, clock.NewDate(2025, time.March, 24)},
	}
	for _, tt := range tests {
		if got := DeadlineFor(filed, tt.priority); !got.Equal(tt.want) {
			t.Errorf("priority %s: expected %s, got %s", tt.priority, tt.want, got)
		}
	}
}

func TestComplaint_Overdue(t *testing.T) {
	c := &Complaint{ComplaintDate: clock.NewDate(2025, time.March, 10), Priority: PriorityHigh, State: ComplaintNew}
	if c.Overdue(clock.NewDate(2025, time.March, 13)) {
		t.Error("not overdue on the deadline itself")
	}
	if !c.Overdue(clock.NewDate(2025, time.March, 14)) {
		t.Error("expected overdue the day after the deadline")
	}
	c.State = ComplaintResolved
	if c.Overdue(clock.NewDate(2025, time.April, 1)) {
		t.Error("resolved complaints are never overdue")
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		from   State
		action Action
		want   State
		ok     bool
	}{
		{StateNew, ActionNote, StateNoted, true},
		{StateNoted, ActionNote, "", false},
		{StateNoted, ActionCancel, StateCancelled, true},
		{StateCancelled, ActionReset, StateNew, true},
		{StateNew, ActionReset, "", false},
	}
	for _, tt := range tests {
		got, err := Next(tt.from, tt.action)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("%s from %s: expected %s, got %s (%v)", tt.action, tt.from, tt.want, got, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s from %s: expected error", tt.action, tt.from)
		}
	}
}

func TestNextComplaintState(t *testing.T) {
	if s, err := NextComplaintState(ComplaintInProgress, ComplaintResolve); err != nil || s != ComplaintResolved {
		t.Errorf("resolve: %v %v", s, err)
	}
	if _, err := NextComplaintState(ComplaintResolved, ComplaintReset); err == nil {
		t.Error("expected reset of resolved complaint to fail")
	}
}

func strPtr(s string) *string { return &s }

func TestComputeDashboard(t *testing.T) {
	from := clock.NewDate(2025, time.February, 1)
	to := clock.NewDate(2025, time.March, 31)
	rows := []*Feedback{
		{FeedbackDate: clock.NewDate(2025, time.March, 3), FeedbackType: TypeCompliment, SatisfactionRating: "5", Department: strPtr("Cardiology")},
		{FeedbackDate: clock.NewDate(2025, time.March, 4), FeedbackType: TypeComplaint, SatisfactionRating: "2", Department: strPtr("Cardiology")},
		{FeedbackDate: clock.NewDate(2025, time.February, 20), FeedbackType: TypeSuggestion, SatisfactionRating: "", Department: strPtr("Pharmacy")},
		{FeedbackDate: clock.NewDate(2025, time.February, 21), FeedbackType: TypeCompliment, SatisfactionRating: "5"},
		{FeedbackDate: clock.NewDate(2025, time.January, 31), FeedbackType: TypeComplaint, SatisfactionRating: "1"},
	}
	d := ComputeDashboard(rows, from, to)

	if d.Total != 4 {
		t.Fatalf("expected 4 rows in range, got %d", d.Total)
	}
	if d.Compliments != 2 || d.Complaints != 1 || d.Suggestions != 1 {
		t.Errorf("unexpected type counts: %+v", d.TypeCounts)
	}
	if d.AvgSatisfaction != 4 {
		t.Errorf("expected avg 4, got %v", d.AvgSatisfaction)
	}

	if len(d.Departments) != 2 || d.Departments[0].Department != "Cardiology" {
		t.Fatalf("unexpected departments: %+v", d.Departments)
	}
	if d.Departments[0].Total != 2 || d.Departments[0].AvgSatisfaction != 3.5 {
		t.Errorf("unexpected cardiology stats: %+v", d.Departments[0])
	}
	if d.Departments[1].AvgSatisfaction != 0 {
		t.Errorf("expected 0 avg for unrated department, got %v", d.Departments[1].AvgSatisfaction)
	}

	if len(d.ByMonth) != 2 || d.ByMonth[0].Label != "02/2025" || d.ByMonth[1].Label != "03/2025" {
		t.Errorf("unexpected month series: %+v", d.ByMonth)
	}
	if len(d.ByType) != 3 || d.ByType[0].Label != "compliment" || d.ByType[0].Count != 2 {
		t.Errorf("unexpected type series: %+v", d.ByType)
	}
	if len(d.Satisfaction) != 2 || d.Satisfaction[1].Label != "5" || d.Satisfaction[1].Count != 2 {
		t.Errorf("unexpected satisfaction series: %+v", d.Satisfaction)
	}
}

func TestComputeDashboard_Empty(t *testing.T) {
	d := ComputeDashboard(nil, clock.NewDate(2025, time.March, 1), clock.NewDate(2025, time.March, 31))
	if d.Total != 0 || d.AvgSatisfaction != 0 || len(d.ByMonth) != 0 {
		t.Errorf("expected zero dashboard, got %+v", d)
	}
}
