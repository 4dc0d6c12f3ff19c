package treatment

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

// Plan maps to the treatment_plan table. Processes are loaded in sequence order.
type Plan struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Code      string     `db:"code" json:"code"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`
	Processes []*Process `db:"-" json:"processes,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

type ProcessState string

const (
	ProcessPending    ProcessState = "pending"
	ProcessInProgress ProcessState = "in_progress"
	ProcessCompleted  ProcessState = "completed"
)

type Action string

const (
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionReset    Action = "reset"
)

var transitions = map[Action]struct {
	from []ProcessState
	to   ProcessState
}{
	ActionStart:    {from: []ProcessState{ProcessPending}, to: ProcessInProgress},
	ActionComplete: {from: []ProcessState{ProcessInProgress}, to: ProcessCompleted},
	ActionReset:    {from: []ProcessState{ProcessInProgress, ProcessCompleted}, to: ProcessPending},
}

func Next(from ProcessState, action Action) (ProcessState, error) {
	t, ok := transitions[action]
	if !ok {
		return "", apperr.Validation("unknown treatment action: %s", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s a treatment step in state %s", action, from)
}

// Process maps to the treatment_process table.
type Process struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	Code           string       `db:"code" json:"code"`
	PlanID         uuid.UUID    `db:"plan_id" json:"plan_id"`
	Sequence       int          `db:"sequence" json:"sequence"`
	Name           *string      `db:"name" json:"name,omitempty"`
	ExecutorID     *uuid.UUID   `db:"executor_id" json:"executor_id"`
	State          ProcessState `db:"state" json:"state"`
	ExecutionTime  *time.Time   `db:"execution_time" json:"execution_time,omitempty"`
	PrescriptionID *uuid.UUID   `db:"prescription_id" json:"prescription_id,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}
