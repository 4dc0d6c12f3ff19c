package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/sequence"
)

// ActivityRecorder marks a patient as active. Booking and completing an
// appointment both count as activity.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, patientID uuid.UUID) error
}

type Service struct {
	appointments Repository
	activity     ActivityRecorder
	seq          sequence.Generator
	tx           db.TxRunner
	now          clock.Clock
}

func NewService(appointments Repository, activity ActivityRecorder, seq sequence.Generator, tx db.TxRunner, now clock.Clock) *Service {
	return &Service{appointments: appointments, activity: activity, seq: seq, tx: tx, now: now}
}

func (s *Service) checkConflicts(ctx context.Context, a *Appointment) error {
	others, err := s.appointments.ListAt(ctx, a.AppointmentDate)
	if err != nil {
		return err
	}
	return CheckConflicts(a, others)
}

func validate(a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if a.StaffID == uuid.Nil {
		return apperr.Validation("staff_id is required")
	}
	if a.AppointmentDate.IsZero() {
		return apperr.Validation("appointment_date is required")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if err := validate(a); err != nil {
		return err
	}
	if a.AppointmentDate.Before(s.now()) {
		return apperr.Validation("appointment_date cannot be in the past")
	}
	a.State = StateDraft
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkConflicts(ctx, a); err != nil {
			return err
		}
		code, err := s.seq.Next(ctx, sequence.Appointment)
		if err != nil {
			return err
		}
		a.Code = code
		if err := s.appointments.Create(ctx, a); err != nil {
			return err
		}
		return s.activity.RecordActivity(ctx, a.PatientID)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// Update reruns the conflict check when the date, staff or room changes.
// A moved appointment may not land in the past.
func (s *Service) Update(ctx context.Context, a *Appointment) error {
	if err := validate(a); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.appointments.GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		a.Code = current.Code
		a.State = current.State
		a.CreatedAt = current.CreatedAt

		dateChanged := !a.AppointmentDate.Equal(current.AppointmentDate)
		if dateChanged && a.AppointmentDate.Before(s.now()) {
			return apperr.Validation("appointment_date cannot be in the past")
		}
		if dateChanged || a.StaffID != current.StaffID || !sameRoom(a.RoomID, current.RoomID) {
			if err := s.checkConflicts(ctx, a); err != nil {
				return err
			}
		}
		return s.appointments.Update(ctx, a)
	})
}

func sameRoom(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.appointments.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.List(ctx, f, limit, offset)
}

// Apply moves the appointment through its state machine. Returning a
// cancelled appointment to draft makes it live again, so it is checked for
// conflicts.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, action Action) (*Appointment, error) {
	var a *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		next, err := Next(a.State, action)
		if err != nil {
			return err
		}
		a.State = next
		if action == ActionDraft {
			if err := s.checkConflicts(ctx, a); err != nil {
				return err
			}
		}
		if err := s.appointments.UpdateState(ctx, id, next); err != nil {
			return err
		}
		if next == StateDone {
			return s.activity.RecordActivity(ctx, a.PatientID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}
