package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type Type string

const (
	TypeOutpatient Type = "outpatient"
	TypeInpatient  Type = "inpatient"
)

type State string

const (
	StateUnderTreatment State = "under_treatment"
	StateTreated        State = "treated"
	StateDeceased       State = "deceased"
)

type Action string

const (
	ActionTreat   Action = "treat"
	ActionDecease Action = "decease"
	ActionReadmit Action = "readmit"
)

var transitions = map[Action]struct {
	from []State
	to   State
}{
	ActionTreat:   {from: []State{StateUnderTreatment}, to: StateTreated},
	ActionDecease: {from: []State{StateUnderTreatment, StateTreated}, to: StateDeceased},
	ActionReadmit: {from: []State{StateTreated}, to: StateUnderTreatment},
}

// Next returns the state reached by applying action to from.
func Next(from State, action Action) (State, error) {
	t, ok := transitions[action]
	if !ok {
		return "", apperr.Validation("unknown patient action: %s", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s a patient in state %s", action, from)
}

// AbandonAfter is how long an outpatient under treatment may go without
// activity before the sweep marks them treated.
const AbandonAfter = 24 * time.Hour

const abandonNote = "Automatically marked treated after 24h without activity."

// Patient maps to the patient table.
type Patient struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	DateOfBirth       *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender            Gender     `db:"gender" json:"gender"`
	Phone             *string    `db:"phone" json:"phone,omitempty"`
	Address           *string    `db:"address" json:"address,omitempty"`
	PatientType       Type       `db:"patient_type" json:"patient_type"`
	State             State      `db:"state" json:"state"`
	LastActivityAt    time.Time  `db:"last_activity_at" json:"last_activity_at"`
	Note              string     `db:"note" json:"note,omitempty"`
	InsurancePolicyID *uuid.UUID `db:"insurance_policy_id" json:"insurance_policy_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Age returns full years since birth on today, or 0 without a birth date.
func (p *Patient) Age(today time.Time) int {
	if p.DateOfBirth == nil {
		return 0
	}
	dob := *p.DateOfBirth
	years := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func appendNote(note, line string) string {
	if note == "" {
		return line
	}
	return note + "\n" + line
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	State State
	Type  Type
}
