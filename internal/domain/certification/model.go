package certification

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
)

// ExpiringWindowDays is how close to expiry a valid certification becomes
// expiring.
const ExpiringWindowDays = 30

// DefaultReminderDays is the reminder lead time for new certifications.
const DefaultReminderDays = 30

type Type string

var validTypes = map[Type]bool{
	"operation": true, "quality": true, "safety": true, "environment": true, "other": true,
}

type State string

const (
	StateDraft    State = "draft"
	StateValid    State = "valid"
	StateExpiring State = "expiring"
	StateExpired  State = "expired"
	StateRenewed  State = "renewed"
)

type Action string

const (
	ActionActivate Action = "activate"
	ActionDraft    Action = "draft"
)

var transitions = map[Action]struct {
	from []State
	to   State
}{
	ActionActivate: {from: []State{StateDraft}, to: StateValid},
	ActionDraft:    {from: []State{StateValid, StateExpiring, StateExpired}, to: StateDraft},
}

func Next(from State, action Action) (State, error) {
	t, ok := transitions[action]
	if !ok {
		return "", apperr.Validation("unknown certification action: %s", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s a certification in state %s", action, from)
}

// Certification maps to the certification table.
type Certification struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Number           string     `db:"number" json:"number"`
	Type             Type       `db:"type" json:"type"`
	IssueDate        time.Time  `db:"issue_date" json:"issue_date"`
	ExpiryDate       time.Time  `db:"expiry_date" json:"expiry_date"`
	Authority        *string    `db:"authority" json:"authority,omitempty"`
	Description      *string    `db:"description" json:"description,omitempty"`
	DocumentKey      *string    `db:"document_key" json:"document_key,omitempty"`
	State            State      `db:"state" json:"state"`
	ResponsibleEmail *string    `db:"responsible_email" json:"responsible_email,omitempty"`
	Department       *string    `db:"department" json:"department,omitempty"`
	RenewalDate      *time.Time `db:"renewal_date" json:"renewal_date,omitempty"`
	RenewalReminder  bool       `db:"renewal_reminder" json:"renewal_reminder"`
	ReminderDays     int        `db:"reminder_days" json:"reminder_days"`
	RemindedFor      *time.Time `db:"reminded_for" json:"reminded_for,omitempty"`
	Active           bool       `db:"active" json:"active"`
	DaysRemaining    int        `db:"-" json:"days_remaining"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

func (c *Certification) daysRemaining(today time.Time) int {
	return clock.DaysBetween(today, c.ExpiryDate)
}

// SweepState returns the state the daily sweep moves c to, and whether it
// changes.
func (c *Certification) SweepState(today time.Time) (State, bool) {
	today = clock.Date(today)
	expiry := clock.Date(c.ExpiryDate)
	switch {
	case (c.State == StateValid || c.State == StateExpiring) && expiry.Before(today):
		return StateExpired, true
	case c.State == StateValid && expiry.After(today) && !expiry.After(today.AddDate(0, 0, ExpiringWindowDays)):
		return StateExpiring, true
	}
	return c.State, false
}

// ReminderDue reports whether an expiry reminder should go out today. It
// fires once per expiry date.
func (c *Certification) ReminderDue(today time.Time) bool {
	if !c.RenewalReminder || c.ResponsibleEmail == nil || *c.ResponsibleEmail == "" || c.ReminderDays <= 0 {
		return false
	}
	if c.State == StateExpired {
		return false
	}
	expiry := clock.Date(c.ExpiryDate)
	if c.RemindedFor != nil && clock.Date(*c.RemindedFor).Equal(expiry) {
		return false
	}
	return !clock.Date(today).Before(expiry.AddDate(0, 0, -c.ReminderDays))
}

type ListFilter struct {
	State      State
	Type       Type
	ActiveOnly bool
}

// RenewRequest extends a certification to a later expiry date.
type RenewRequest struct {
	NewExpiry time.Time `json:"new_expiry_date"`
	Notes     *string   `json:"notes"`
	Inspector *string   `json:"inspector"`
}

func renewalNotes(from, to time.Time) string {
	return fmt.Sprintf("Renewed from %s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// -- Inspection --

type Result string

const (
	ResultPending     Result = "pending"
	ResultPassed      Result = "passed"
	ResultFailed      Result = "failed"
	ResultConditional Result = "conditional"
)

var validResults = map[Result]bool{
	ResultPending: true, ResultPassed: true, ResultFailed: true, ResultConditional: true,
}

type InspectionState string

const (
	InspectionPlanned    InspectionState = "planned"
	InspectionInProgress InspectionState = "in_progress"
	InspectionCompleted  InspectionState = "completed"
	InspectionCanceled   InspectionState = "canceled"
)

type InspectionAction string

const (
	InspectionStart    InspectionAction = "start"
	InspectionComplete InspectionAction = "complete"
	InspectionCancel   InspectionAction = "cancel"
	InspectionReset    InspectionAction = "reset"
)

var inspectionTransitions = map[InspectionAction]struct {
	from []InspectionState
	to   InspectionState
}{
	InspectionStart:    {from: []InspectionState{InspectionPlanned}, to: InspectionInProgress},
	InspectionComplete: {from: []InspectionState{InspectionInProgress}, to: InspectionCompleted},
	InspectionCancel:   {from: []InspectionState{InspectionPlanned, InspectionInProgress}, to: InspectionCanceled},
	InspectionReset:    {from: []InspectionState{InspectionCanceled, InspectionCompleted}, to: InspectionPlanned},
}

func NextInspectionState(from InspectionState, action InspectionAction) (InspectionState, error) {
	t, ok := inspectionTransitions[action]
	if !ok {
		return "", apperr.Validation("unknown inspection action: %s", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s an inspection in state %s", action, from)
}

// Inspection maps to the inspection table.
type Inspection struct {
	ID                       uuid.UUID       `db:"id" json:"id"`
	Name                     string          `db:"name" json:"name"`
	CertificationID          *uuid.UUID      `db:"certification_id" json:"certification_id,omitempty"`
	Date                     time.Time       `db:"date" json:"date"`
	PlannedDate              *time.Time      `db:"planned_date" json:"planned_date,omitempty"`
	Inspector                *string         `db:"inspector" json:"inspector,omitempty"`
	Result                   Result          `db:"result" json:"result"`
	Notes                    *string         `db:"notes" json:"notes,omitempty"`
	Findings                 *string         `db:"findings" json:"findings,omitempty"`
	Recommendations          *string         `db:"recommendations" json:"recommendations,omitempty"`
	DocumentKey              *string         `db:"document_key" json:"document_key,omitempty"`
	CorrectiveActionRequired bool            `db:"corrective_action_required" json:"corrective_action_required"`
	CorrectiveAction         *string         `db:"corrective_action" json:"corrective_action,omitempty"`
	CorrectiveDeadline       *time.Time      `db:"corrective_deadline" json:"corrective_deadline,omitempty"`
	CorrectiveCompleted      bool            `db:"corrective_completed" json:"corrective_completed"`
	State                    InspectionState `db:"state" json:"state"`
	CreatedAt                time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time       `db:"updated_at" json:"updated_at"`
}
