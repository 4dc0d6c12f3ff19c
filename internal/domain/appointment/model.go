package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

type State string

const (
	StateDraft     State = "draft"
	StateConfirmed State = "confirmed"
	StateDone      State = "done"
	StateCancelled State = "cancelled"
)

type Action string

const (
	ActionConfirm Action = "confirm"
	ActionDone    Action = "done"
	ActionCancel  Action = "cancel"
	ActionDraft   Action = "draft"
)

var transitions = map[Action]struct {
	from []State
	to   State
}{
	ActionConfirm: {from: []State{StateDraft}, to: StateConfirmed},
	ActionDone:    {from: []State{StateConfirmed}, to: StateDone},
	ActionCancel:  {from: []State{StateDraft, StateConfirmed}, to: StateCancelled},
	ActionDraft:   {from: []State{StateCancelled}, to: StateDraft},
}

func Next(from State, action Action) (State, error) {
	t, ok := transitions[action]
	if !ok {
		return "", apperr.Validation("unknown appointment action: %s", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s an appointment in state %s", action, from)
}

// Appointment maps to the appointment table.
type Appointment struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Code            string     `db:"code" json:"code"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	StaffID         uuid.UUID  `db:"staff_id" json:"staff_id"`
	RoomID          *uuid.UUID `db:"room_id" json:"room_id,omitempty"`
	AppointmentDate time.Time  `db:"appointment_date" json:"appointment_date"`
	State           State      `db:"state" json:"state"`
	Note            *string    `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// CheckConflicts rejects candidate when another live appointment books the
// same staff member, or the same room, at exactly the same instant.
// Cancelled appointments never conflict.
func CheckConflicts(candidate *Appointment, others []*Appointment) error {
	if candidate.State == StateCancelled {
		return nil
	}
	for _, o := range others {
		if o.ID == candidate.ID || o.State == StateCancelled {
			continue
		}
		if !o.AppointmentDate.Equal(candidate.AppointmentDate) {
			continue
		}
		if o.StaffID == candidate.StaffID {
			return apperr.Validation("staff member already has appointment %s at %s",
				o.Code, o.AppointmentDate.Format(time.RFC3339))
		}
		if candidate.RoomID != nil && o.RoomID != nil && *o.RoomID == *candidate.RoomID {
			return apperr.Validation("room is already booked by appointment %s at %s",
				o.Code, o.AppointmentDate.Format(time.RFC3339))
		}
	}
	return nil
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	PatientID *uuid.UUID
	StaffID   *uuid.UUID
	State     State
	From      *time.Time
	To        *time.Time
}
