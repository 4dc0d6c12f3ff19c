package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
)

type mockRegulationRepo struct{ store map[uuid.UUID]*Regulation }

func (m *mockRegulationRepo) Create(_ context.Context, r *Regulation) error {
	r.ID = uuid.New()
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *mockRegulationRepo) GetByID(_ context.Context, id uuid.UUID) (*Regulation, error) {
	r, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("regulation not found")
	}
	cp := *r
	return &cp, nil
}

func (m *mockRegulationRepo) Update(_ context.Context, r *Regulation) error {
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *mockRegulationRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockRegulationRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Regulation, int, error) {
	var out []*Regulation
	for _, r := range m.store {
		if !activeOnly || r.Active {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

type mockAssessmentRepo struct{ store map[uuid.UUID]*Assessment }

func (m *mockAssessmentRepo) Create(_ context.Context, a *Assessment) error {
	a.ID = uuid.New()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAssessmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Assessment, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("assessment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockAssessmentRepo) Update(_ context.Context, a *Assessment) error {
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAssessmentRepo) UpdateState(_ context.Context, id uuid.UUID, state State) error {
	a, ok := m.store[id]
	if !ok {
		return apperr.NotFound("assessment not found")
	}
	a.State = state
	return nil
}

func (m *mockAssessmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockAssessmentRepo) List(_ context.Context, regulationID *uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	var out []*Assessment
	for _, a := range m.store {
		if regulationID == nil || a.RegulationID == *regulationID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

type mockActionRepo struct {
	store map[uuid.UUID]*CorrectiveAction
}

func (m *mockActionRepo) Create(_ context.Context, a *CorrectiveAction) error {
	a.ID = uuid.New()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockActionRepo) GetByID(_ context.Context, id uuid.UUID) (*CorrectiveAction, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("corrective action not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockActionRepo) Update(_ context.Context, a *CorrectiveAction) error {
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockActionRepo) UpdateState(_ context.Context, a *CorrectiveAction) error {
	cur, ok := m.store[a.ID]
	if !ok {
		return apperr.NotFound("corrective action not found")
	}
	cur.State = a.State
	cur.CompletionDate = a.CompletionDate
	return nil
}

func (m *mockActionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockActionRepo) ListByAssessment(_ context.Context, assessmentID uuid.UUID) ([]*CorrectiveAction, error) {
	var out []*CorrectiveAction
	for _, a := range m.store {
		if a.AssessmentID == assessmentID {
			out = append(out, a)
		}
	}
	return out, nil
}

var testNow = time.Date(2025, time.July, 15, 9, 0, 0, 0, time.UTC)

func newTestService() (*Service, *mockActionRepo) {
	actions := &mockActionRepo{store: map[uuid.UUID]*CorrectiveAction{}}
	svc := NewService(
		&mockRegulationRepo{store: map[uuid.UUID]*Regulation{}},
		&mockAssessmentRepo{store: map[uuid.UUID]*Assessment{}},
		actions,
		clock.Fixed(testNow),
	)
	return svc, actions
}

func TestCreateRegulation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	r := &Regulation{Name: "Infection control", Code: "IC-01"}
	if err := svc.CreateRegulation(ctx, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Scope != "national" || !r.Active {
		t.Errorf("expected national active regulation, got %s/%v", r.Scope, r.Active)
	}
	if err := svc.CreateRegulation(ctx, &Regulation{Name: "x", Code: "y", Scope: "galactic"}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for scope, got %v", err)
	}
}

func TestCreateAssessment_Defaults(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	r := &Regulation{Name: "Infection control", Code: "IC-01"}
	_ = svc.CreateRegulation(ctx, r)

	a := &Assessment{RegulationID: r.ID}
	if err := svc.CreateAssessment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.DateAssessment.Equal(clock.NewDate(2025, time.July, 15)) {
		t.Errorf("expected today, got %s", a.DateAssessment)
	}
	if !a.NextAssessment.Equal(clock.NewDate(2025, time.October, 13)) {
		t.Errorf("expected next assessment 90 days later, got %s", a.NextAssessment)
	}
	if a.Name != "Compliance assessment - Infection control" || a.State != StateDraft {
		t.Errorf("unexpected assessment: %s/%s", a.Name, a.State)
	}

	if err := svc.CreateAssessment(ctx, &Assessment{RegulationID: uuid.New()}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for unknown regulation, got %v", err)
	}
}

func TestApplyAssessment(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	r := &Regulation{Name: "Waste", Code: "W-1"}
	_ = svc.CreateRegulation(ctx, r)
	a := &Assessment{RegulationID: r.ID}
	_ = svc.CreateAssessment(ctx, a)

	if _, err := svc.ApplyAssessment(ctx, a.ID, ActionCompliant); !apperr.IsUser(err) {
		t.Errorf("expected user error concluding a draft, got %v", err)
	}
	if _, err := svc.ApplyAssessment(ctx, a.ID, ActionStart); err != nil {
		t.Fatalf("start: %v", err)
	}
	got, err := svc.ApplyAssessment(ctx, a.ID, ActionPartly)
	if err != nil {
		t.Fatalf("conclude: %v", err)
	}
	if got.State != StatePartlyCompliant {
		t.Errorf("expected partly_compliant, got %s", got.State)
	}
}

func TestCorrectiveAction_CompletionDate(t *testing.T) {
	svc, actions := newTestService()
	ctx := context.Background()
	r := &Regulation{Name: "Waste", Code: "W-1"}
	_ = svc.CreateRegulation(ctx, r)
	a := &Assessment{RegulationID: r.ID}
	_ = svc.CreateAssessment(ctx, a)

	ca := &CorrectiveAction{AssessmentID: a.ID, Name: "Label bins"}
	if err := svc.CreateAction(ctx, ca); err != nil {
		t.Fatalf("create: %v", err)
	}
	done, err := svc.ApplyAction(ctx, ca.ID, StepDone)
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	if done.CompletionDate == nil || !done.CompletionDate.Equal(clock.Date(testNow)) {
		t.Errorf("expected completion today, got %v", done.CompletionDate)
	}
	if _, err := svc.ApplyAction(ctx, ca.ID, StepReset); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if actions.store[ca.ID].CompletionDate != nil {
		t.Error("expected completion date cleared on reset")
	}

	got, err := svc.GetAssessment(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Actions) != 1 {
		t.Errorf("expected 1 corrective action, got %d", len(got.Actions))
	}

	if err := svc.CreateAction(ctx, &CorrectiveAction{AssessmentID: uuid.New(), Name: "x"}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for unknown assessment, got %v", err)
	}
}
