package compliance

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

// ReassessmentDays is the default gap before the next assessment.
const ReassessmentDays = 90

type Scope string

var validScopes = map[Scope]bool{"national": true, "international": true, "local": true}

// Regulation maps to the health_regulation table.
type Regulation struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Code          string     `db:"code" json:"code"`
	Description   *string    `db:"description" json:"description,omitempty"`
	IssueDate     *time.Time `db:"issue_date" json:"issue_date,omitempty"`
	EffectiveDate *time.Time `db:"effective_date" json:"effective_date,omitempty"`
	Authority     *string    `db:"authority" json:"authority,omitempty"`
	Scope         Scope      `db:"scope" json:"scope"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// -- Assessment --

type State string

const (
	StateDraft           State = "draft"
	StateInProgress      State = "in_progress"
	StateCompliant       State = "compliant"
	StateNonCompliant    State = "non_compliant"
	StatePartlyCompliant State = "partly_compliant"
)

type Action string

const (
	ActionStart     Action = "start"
	ActionCompliant Action = "compliant"
	ActionNonComp   Action = "non_compliant"
	ActionPartly    Action = "partly_compliant"
	ActionReset     Action = "reset"
)

var concluded = []State{StateCompliant, StateNonCompliant, StatePartlyCompliant}

var transitions = map[Action]struct {
	from []State
	to   State
}{
	ActionStart:     {from: []State{StateDraft}, to: StateInProgress},
	ActionCompliant: {from: []State{StateInProgress}, to: StateCompliant},
	ActionNonComp:   {from: []State{StateInProgress}, to: StateNonCompliant},
	ActionPartly:    {from: []State{StateInProgress}, to: StatePartlyCompliant},
	ActionReset:     {from: append([]State{StateInProgress}, concluded...), to: StateDraft},
}

func Next(from State, action Action) (State, error) {
	t, ok := transitions[action]
	if !ok {
		return "", apperr.Validation("unknown assessment action: %s", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s an assessment in state %s", action, from)
}

// Assessment maps to the compliance_assessment table.
type Assessment struct {
	ID             uuid.UUID           `db:"id" json:"id"`
	Name           string              `db:"name" json:"name"`
	RegulationID   uuid.UUID           `db:"regulation_id" json:"regulation_id"`
	Department     *string             `db:"department" json:"department,omitempty"`
	DateAssessment time.Time           `db:"date_assessment" json:"date_assessment"`
	NextAssessment time.Time           `db:"next_assessment" json:"next_assessment"`
	State          State               `db:"state" json:"state"`
	Notes          *string             `db:"notes" json:"notes,omitempty"`
	Actions        []*CorrectiveAction `db:"-" json:"actions,omitempty"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}

// -- Corrective action --

type ActionState string

const (
	ActionTodo       ActionState = "todo"
	ActionInProgress ActionState = "in_progress"
	ActionDone       ActionState = "done"
	ActionCancelled  ActionState = "cancelled"
)

type Step string

const (
	StepStart  Step = "start"
	StepDone   Step = "done"
	StepCancel Step = "cancel"
	StepReset  Step = "reset"
)

var stepTransitions = map[Step]struct {
	from []ActionState
	to   ActionState
}{
	StepStart:  {from: []ActionState{ActionTodo}, to: ActionInProgress},
	StepDone:   {from: []ActionState{ActionTodo, ActionInProgress}, to: ActionDone},
	StepCancel: {from: []ActionState{ActionTodo, ActionInProgress}, to: ActionCancelled},
	StepReset:  {from: []ActionState{ActionDone, ActionCancelled}, to: ActionTodo},
}

func NextActionState(from ActionState, step Step) (ActionState, error) {
	t, ok := stepTransitions[step]
	if !ok {
		return "", apperr.Validation("unknown corrective action step: %s", step)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s a corrective action in state %s", step, from)
}

// CorrectiveAction maps to the compliance_action table.
type CorrectiveAction struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	AssessmentID   uuid.UUID   `db:"assessment_id" json:"assessment_id"`
	Name           string      `db:"name" json:"name"`
	Description    *string     `db:"description" json:"description,omitempty"`
	Deadline       *time.Time  `db:"deadline" json:"deadline,omitempty"`
	State          ActionState `db:"state" json:"state"`
	CompletionDate *time.Time  `db:"completion_date" json:"completion_date,omitempty"`
	Notes          *string     `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}
