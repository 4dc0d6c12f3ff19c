package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/sequence"
)

type mockFeedbackRepo struct{ store map[uuid.UUID]*Feedback }

func (m *mockFeedbackRepo) Create(_ context.Context, f *Feedback) error {
	f.ID = uuid.New()
	cp := *f
	m.store[f.ID] = &cp
	return nil
}

func (m *mockFeedbackRepo) GetByID(_ context.Context, id uuid.UUID) (*Feedback, error) {
	f, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("feedback not found")
	}
	cp := *f
	return &cp, nil
}

func (m *mockFeedbackRepo) Update(_ context.Context, f *Feedback) error {
	cp := *f
	m.store[f.ID] = &cp
	return nil
}

func (m *mockFeedbackRepo) UpdateState(_ context.Context, id uuid.UUID, state State) error {
	f, ok := m.store[id]
	if !ok {
		return apperr.NotFound("feedback not found")
	}
	f.State = state
	return nil
}

func (m *mockFeedbackRepo) SetComplaint(_ context.Context, id, complaintID uuid.UUID) error {
	f, ok := m.store[id]
	if !ok {
		return apperr.NotFound("feedback not found")
	}
	f.ComplaintID = &complaintID
	return nil
}

func (m *mockFeedbackRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockFeedbackRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Feedback, int, error) {
	var out []*Feedback
	for _, fb := range m.store {
		if f.State != "" && fb.State != f.State {
			continue
		}
		out = append(out, fb)
	}
	return out, len(out), nil
}

func (m *mockFeedbackRepo) ListBetween(_ context.Context, from, to time.Time) ([]*Feedback, error) {
	var out []*Feedback
	for _, fb := range m.store {
		if !fb.FeedbackDate.Before(from) && !fb.FeedbackDate.After(to) {
			out = append(out, fb)
		}
	}
	return out, nil
}

type mockComplaintRepo struct{ store map[uuid.UUID]*Complaint }

func (m *mockComplaintRepo) Create(_ context.Context, c *Complaint) error {
	c.ID = uuid.New()
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *mockComplaintRepo) GetByID(_ context.Context, id uuid.UUID) (*Complaint, error) {
	c, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("complaint not found")
	}
	cp := *c
	return &cp, nil
}

func (m *mockComplaintRepo) Update(_ context.Context, c *Complaint) error {
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *mockComplaintRepo) UpdateState(_ context.Context, c *Complaint) error {
	cur, ok := m.store[c.ID]
	if !ok {
		return apperr.NotFound("complaint not found")
	}
	cur.State = c.State
	cur.ResolvedDate = c.ResolvedDate
	return nil
}

func (m *mockComplaintRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockComplaintRepo) List(_ context.Context, f ComplaintFilter, limit, offset int) ([]*Complaint, int, error) {
	var out []*Complaint
	for _, c := range m.store {
		cp := *c
		out = append(out, &cp)
	}
	return out, len(out), nil
}

var testNow = time.Date(2025, time.March, 20, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	svc        *Service
	feedback   *mockFeedbackRepo
	complaints *mockComplaintRepo
}

func newTestEnv() *testEnv {
	env := &testEnv{
		feedback:   &mockFeedbackRepo{store: map[uuid.UUID]*Feedback{}},
		complaints: &mockComplaintRepo{store: map[uuid.UUID]*Complaint{}},
	}
	env.svc = NewService(env.feedback, env.complaints, sequence.NewMemory(), db.NoTx{}, clock.Fixed(testNow))
	return env
}

func TestCreateFeedback(t *testing.T) {
	env := newTestEnv()
	f := &Feedback{Description: "Friendly nurses", FeedbackType: TypeCompliment, SatisfactionRating: "5"}
	if err := env.svc.CreateFeedback(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Code != "FB000001" {
		t.Errorf("expected FB000001, got %s", f.Code)
	}
	if f.State != StateNew {
		t.Errorf("expected new, got %s", f.State)
	}
	if !f.FeedbackDate.Equal(clock.Date(testNow)) {
		t.Errorf("expected today, got %s", f.FeedbackDate)
	}
}

func TestCreateFeedback_Validation(t *testing.T) {
	env := newTestEnv()
	tests := []struct {
		name string
		f    Feedback
	}{
		{"missing description", Feedback{FeedbackType: TypeOther}},
		{"bad type", Feedback{Description: "x", FeedbackType: "rant"}},
		{"bad rating", Feedback{Description: "x", SatisfactionRating: "6"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.f
			if err := env.svc.CreateFeedback(context.Background(), &f); !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateComplaint_FromFeedback(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	patientID := uuid.New()
	f := &Feedback{PatientID: &patientID, Description: "Waited two hours", FeedbackType: TypeComplaint}
	_ = env.svc.CreateFeedback(ctx, f)

	c, err := env.svc.CreateComplaint(ctx, f.ID, "service", PriorityHigh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Code != "CMP000001" {
		t.Errorf("expected CMP000001, got %s", c.Code)
	}
	if c.PatientID == nil || *c.PatientID != patientID || c.Description != f.Description {
		t.Errorf("expected patient and description carried over: %+v", c)
	}
	if c.FeedbackID == nil || *c.FeedbackID != f.ID {
		t.Error("expected complaint linked to feedback")
	}
	stored := env.feedback.store[f.ID]
	if stored.ComplaintID == nil || *stored.ComplaintID != c.ID {
		t.Error("expected feedback linked back to complaint")
	}
	if !c.Deadline.Equal(clock.NewDate(2025, time.March, 23)) {
		t.Errorf("expected deadline 2025-03-23, got %s", c.Deadline)
	}

	if _, err := env.svc.CreateComplaint(ctx, f.ID, "service", PriorityLow); !apperr.IsUser(err) {
		t.Errorf("expected user error for second complaint, got %v", err)
	}
	if _, err := env.svc.CreateComplaint(ctx, uuid.New(), "service", PriorityLow); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestApplyComplaint_ResolveAndReset(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := &Complaint{Description: "Billing error", Category: "billing", Priority: PriorityLow,
		ComplaintDate: clock.NewDate(2025, time.March, 1)}
	if err := env.svc.CreateStandaloneComplaint(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !c.IsOverdue {
		t.Error("expected complaint filed 19 days ago with low priority to be overdue")
	}

	resolved, err := env.svc.ApplyComplaint(ctx, c.ID, ComplaintResolve)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ResolvedDate == nil || !resolved.ResolvedDate.Equal(clock.Date(testNow)) {
		t.Errorf("expected resolved today, got %v", resolved.ResolvedDate)
	}
	if resolved.IsOverdue {
		t.Error("resolved complaint should not be overdue")
	}
	if _, err := env.svc.ApplyComplaint(ctx, c.ID, ComplaintCancel); !apperr.IsUser(err) {
		t.Errorf("expected user error cancelling resolved complaint, got %v", err)
	}
}

func TestCreateComplaint_InvalidPriority(t *testing.T) {
	env := newTestEnv()
	c := &Complaint{Description: "x", Priority: "9"}
	if err := env.svc.CreateStandaloneComplaint(context.Background(), c); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDashboard_DefaultRange(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	_ = env.svc.CreateFeedback(ctx, &Feedback{Description: "a", FeedbackType: TypeQuestion,
		FeedbackDate: clock.NewDate(2025, time.March, 1)})
	_ = env.svc.CreateFeedback(ctx, &Feedback{Description: "b", FeedbackType: TypeQuestion,
		FeedbackDate: clock.NewDate(2025, time.January, 1)})

	d, err := env.svc.Dashboard(ctx, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Total != 1 || d.Questions != 1 {
		t.Errorf("expected one question in the last 30 days, got %+v", d.TypeCounts)
	}
	if !d.From.Equal(clock.NewDate(2025, time.February, 18)) {
		t.Errorf("expected window from 2025-02-18, got %s", d.From)
	}

	from := clock.NewDate(2025, time.April, 1)
	if _, err := env.svc.Dashboard(ctx, &from, nil); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for inverted range, got %v", err)
	}
}
