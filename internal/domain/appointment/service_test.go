package appointment

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

type mockAppointmentRepo struct {
	store map[uuid.UUID]*Appointment
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{store: make(map[uuid.UUID]*Appointment)}
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.store[a.ID]; !ok {
		return apperr.NotFound("appointment not found")
	}
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) UpdateState(_ context.Context, id uuid.UUID, state State) error {
	a, ok := m.store[id]
	if !ok {
		return apperr.NotFound("appointment not found")
	}
	a.State = state
	return nil
}

func (m *mockAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockAppointmentRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.store {
		if f.State == "" || a.State == f.State {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockAppointmentRepo) ListAt(_ context.Context, t time.Time) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.store {
		if a.AppointmentDate.Equal(t) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockActivity struct{ touched []uuid.UUID }

func (m *mockActivity) RecordActivity(_ context.Context, patientID uuid.UUID) error {
	m.touched = append(m.touched, patientID)
	return nil
}

var now = time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

func newTestService() (*Service, *mockAppointmentRepo, *mockActivity) {
	repo := newMockAppointmentRepo()
	act := &mockActivity{}
	return NewService(repo, act, sequence.NewMemory(), db.NoTx{}, clock.Fixed(now)), repo, act
}

func TestCheckConflicts(t *testing.T) {
	slot := now.Add(24 * time.Hour)
	staff := uuid.New()
	room := uuid.New()
	other := []*Appointment{{ID: uuid.New(), Code: "APT000001", StaffID: staff, RoomID: &room, AppointmentDate: slot, State: StateConfirmed}}

	tests := []struct {
		name    string
		cand    *Appointment
		wantErr bool
	}{
		{"same staff same time", &Appointment{ID: uuid.New(), StaffID: staff, AppointmentDate: slot, State: StateDraft}, true},
		{"same room same time", &Appointment{ID: uuid.New(), StaffID: uuid.New(), RoomID: &room, AppointmentDate: slot, State: StateDraft}, true},
		{"one minute later", &Appointment{ID: uuid.New(), StaffID: staff, RoomID: &room, AppointmentDate: slot.Add(time.Minute), State: StateDraft}, false},
		{"candidate cancelled", &Appointment{ID: uuid.New(), StaffID: staff, AppointmentDate: slot, State: StateCancelled}, false},
		{"itself", &Appointment{ID: other[0].ID, StaffID: staff, AppointmentDate: slot, State: StateDraft}, false},
		{"no room on candidate", &Appointment{ID: uuid.New(), StaffID: uuid.New(), AppointmentDate: slot, State: StateDraft}, false},
	}
	for _, tt := range tests {
		err := CheckConflicts(tt.cand, other)
		if tt.wantErr && !apperr.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tt.name, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
		}
	}

	other[0].State = StateCancelled
	if err := CheckConflicts(&Appointment{ID: uuid.New(), StaffID: staff, AppointmentDate: slot}, other); err != nil {
		t.Errorf("cancelled appointments should not conflict: %v", err)
	}
}

func TestCreate(t *testing.T) {
	svc, _, act := newTestService()
	a := &Appointment{PatientID: uuid.New(), StaffID: uuid.New(), AppointmentDate: now.Add(2 * time.Hour)}
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Code != "APT000001" {
		t.Errorf("expected APT000001, got %s", a.Code)
	}
	if a.State != StateDraft {
		t.Errorf("expected draft, got %s", a.State)
	}
	if len(act.touched) != 1 || act.touched[0] != a.PatientID {
		t.Error("expected patient activity recorded")
	}
}

func TestCreate_InPast(t *testing.T) {
	svc, _, _ := newTestService()
	a := &Appointment{PatientID: uuid.New(), StaffID: uuid.New(), AppointmentDate: now.Add(-time.Minute)}
	if err := svc.Create(context.Background(), a); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_StaffConflict(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	staff := uuid.New()
	slot := now.Add(48 * time.Hour)
	if err := svc.Create(ctx, &Appointment{PatientID: uuid.New(), StaffID: staff, AppointmentDate: slot}); err != nil {
		t.Fatalf("first: %v", err)
	}
	err := svc.Create(ctx, &Appointment{PatientID: uuid.New(), StaffID: staff, AppointmentDate: slot})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdate_MoveIntoConflict(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	staff := uuid.New()
	a := &Appointment{PatientID: uuid.New(), StaffID: staff, AppointmentDate: now.Add(time.Hour)}
	b := &Appointment{PatientID: uuid.New(), StaffID: staff, AppointmentDate: now.Add(2 * time.Hour)}
	svc.Create(ctx, a)
	svc.Create(ctx, b)

	moved := *b
	moved.AppointmentDate = a.AppointmentDate
	if err := svc.Update(ctx, &moved); !apperr.IsValidation(err) {
		t.Fatalf("expected conflict, got %v", err)
	}

	note := "bring x-ray"
	same := *b
	same.Note = &note
	if err := svc.Update(ctx, &same); err != nil {
		t.Fatalf("unchanged slot should not be rechecked: %v", err)
	}
}

func TestUpdate_MoveIntoPast(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	a := &Appointment{PatientID: uuid.New(), StaffID: uuid.New(), AppointmentDate: now.Add(time.Hour)}
	svc.Create(ctx, a)
	a.AppointmentDate = now.Add(-time.Hour)
	if err := svc.Update(ctx, a); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApply_Lifecycle(t *testing.T) {
	svc, _, act := newTestService()
	ctx := context.Background()
	a := &Appointment{PatientID: uuid.New(), StaffID: uuid.New(), AppointmentDate: now.Add(time.Hour)}
	svc.Create(ctx, a)

	if _, err := svc.Apply(ctx, a.ID, ActionDone); !apperr.IsUser(err) {
		t.Errorf("expected user error completing a draft, got %v", err)
	}
	for _, step := range []struct {
		action Action
		want   State
	}{
		{ActionConfirm, StateConfirmed},
		{ActionDone, StateDone},
	} {
		got, err := svc.Apply(ctx, a.ID, step.action)
		if err != nil || got.State != step.want {
			t.Fatalf("%s: expected %s, got %v %v", step.action, step.want, got, err)
		}
	}
	if len(act.touched) != 2 {
		t.Errorf("expected activity on create and done, got %d", len(act.touched))
	}
	if _, err := svc.Apply(ctx, a.ID, ActionCancel); !apperr.IsUser(err) {
		t.Errorf("expected user error cancelling a done appointment, got %v", err)
	}
}

func TestApply_RedraftRechecksConflicts(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	staff := uuid.New()
	slot := now.Add(3 * time.Hour)
	a := &Appointment{PatientID: uuid.New(), StaffID: staff, AppointmentDate: slot}
	svc.Create(ctx, a)
	if _, err := svc.Apply(ctx, a.ID, ActionCancel); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	b := &Appointment{PatientID: uuid.New(), StaffID: staff, AppointmentDate: slot}
	if err := svc.Create(ctx, b); err != nil {
		t.Fatalf("slot freed by cancellation should be bookable: %v", err)
	}
	if _, err := svc.Apply(ctx, a.ID, ActionDraft); !apperr.IsValidation(err) {
		t.Fatalf("expected conflict when redrafting, got %v", err)
	}
}
