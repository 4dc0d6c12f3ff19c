package feedback

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

type Type string

const (
	TypeCompliment Type = "compliment"
	TypeSuggestion Type = "suggestion"
	TypeComplaint  Type = "complaint"
	TypeQuestion   Type = "question"
	TypeOther      Type = "other"
)

// Types lists feedback types in display order.
var Types = []Type{TypeCompliment, TypeSuggestion, TypeComplaint, TypeQuestion, TypeOther}

var validTypes = map[Type]bool{
	TypeCompliment: true, TypeSuggestion: true, TypeComplaint: true, TypeQuestion: true, TypeOther: true,
}

// ratingValue maps a satisfaction rating to its score; "" is unrated.
var ratingValue = map[string]int{"1": 1, "2": 2, "3": 3, "4": 4, "5": 5}

func validRating(r string) bool {
	_, ok := ratingValue[r]
	return r == "" || ok
}

// -- Feedback --

type State string

const (
	StateNew       State = "new"
	StateNoted     State = "noted"
	StateCancelled State = "cancelled"
)

type Action string

const (
	ActionNote   Action = "note"
	ActionCancel Action = "cancel"
	ActionReset  Action = "reset"
)

var transitions = map[Action]struct {
	from []State
	to   State
}{
	ActionNote:   {from: []State{StateNew}, to: StateNoted},
	ActionCancel: {from: []State{StateNew, StateNoted}, to: StateCancelled},
	ActionReset:  {from: []State{StateNoted, StateCancelled}, to: StateNew},
}

func Next(from State, action Action) (State, error) {
	t, ok := transitions[action]
	if !ok {
		return "", apperr.Validation("unknown feedback action: %s", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s feedback in state %s", action, from)
}

// Feedback maps to the patient_feedback table.
type Feedback struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	Code               string     `db:"code" json:"code"`
	PatientID          *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Department         *string    `db:"department" json:"department,omitempty"`
	FeedbackDate       time.Time  `db:"feedback_date" json:"feedback_date"`
	FeedbackType       Type       `db:"feedback_type" json:"feedback_type"`
	Description        string     `db:"description" json:"description"`
	State              State      `db:"state" json:"state"`
	UserID             *string    `db:"user_id" json:"user_id,omitempty"`
	SatisfactionRating string     `db:"satisfaction_rating" json:"satisfaction_rating"`
	ComplaintID        *uuid.UUID `db:"complaint_id" json:"complaint_id,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

type ListFilter struct {
	PatientID *uuid.UUID
	Type      Type
	State     State
}

// -- Complaint --

type ComplaintState string

const (
	ComplaintNew        ComplaintState = "new"
	ComplaintInProgress ComplaintState = "in_progress"
	ComplaintResolved   ComplaintState = "resolved"
	ComplaintCancelled  ComplaintState = "cancelled"
)

type ComplaintAction string

const (
	ComplaintProgress ComplaintAction = "progress"
	ComplaintResolve  ComplaintAction = "resolve"
	ComplaintCancel   ComplaintAction = "cancel"
	ComplaintReset    ComplaintAction = "reset"
)

var complaintTransitions = map[ComplaintAction]struct {
	from []ComplaintState
	to   ComplaintState
}{
	ComplaintProgress: {from: []ComplaintState{ComplaintNew}, to: ComplaintInProgress},
	ComplaintResolve:  {from: []ComplaintState{ComplaintNew, ComplaintInProgress}, to: ComplaintResolved},
	ComplaintCancel:   {from: []ComplaintState{ComplaintNew, ComplaintInProgress}, to: ComplaintCancelled},
	ComplaintReset:    {from: []ComplaintState{ComplaintCancelled}, to: ComplaintNew},
}

func NextComplaintState(from ComplaintState, action ComplaintAction) (ComplaintState, error) {
	t, ok := complaintTransitions[action]
	if !ok {
		return "", apperr.Validation("unknown complaint action: %s", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s a complaint in state %s", action, from)
}

type Priority string

const (
	PriorityLow    Priority = "0"
	PriorityMedium Priority = "1"
	PriorityHigh   Priority = "2"
)

// responseDays is how long each priority has before a complaint is overdue.
var responseDays = map[Priority]int{PriorityHigh: 3, PriorityMedium: 7, PriorityLow: 14}

type Category string

var validCategories = map[Category]bool{
	"service": true, "staff": true, "facility": true, "billing": true, "other": true,
}

// Complaint maps to the patient_complaint table.
type Complaint struct {
	ID                 uuid.UUID      `db:"id" json:"id"`
	Code               string         `db:"code" json:"code"`
	PatientID          *uuid.UUID     `db:"patient_id" json:"patient_id,omitempty"`
	ComplaintDate      time.Time      `db:"complaint_date" json:"complaint_date"`
	Description        string         `db:"description" json:"description"`
	State              ComplaintState `db:"state" json:"state"`
	Priority           Priority       `db:"priority" json:"priority"`
	Category           Category       `db:"category" json:"category"`
	FeedbackID         *uuid.UUID     `db:"feedback_id" json:"feedback_id,omitempty"`
	UserID             *string        `db:"user_id" json:"user_id,omitempty"`
	Resolution         *string        `db:"resolution" json:"resolution,omitempty"`
	ResolvedDate       *time.Time     `db:"resolved_date" json:"resolved_date,omitempty"`
	SatisfactionRating string         `db:"satisfaction_rating" json:"satisfaction_rating"`
	Deadline           time.Time      `db:"-" json:"deadline"`
	IsOverdue          bool           `db:"-" json:"is_overdue"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// DeadlineFor returns the response deadline for a complaint filed on date.
func DeadlineFor(date time.Time, p Priority) time.Time {
	days, ok := responseDays[p]
	if !ok {
		days = responseDays[PriorityLow]
	}
	return date.AddDate(0, 0, days)
}

// Overdue reports whether an open complaint has passed its deadline.
func (c *Complaint) Overdue(today time.Time) bool {
	if c.State == ComplaintResolved || c.State == ComplaintCancelled {
		return false
	}
	return DeadlineFor(c.ComplaintDate, c.Priority).Before(today)
}

func (c *Complaint) derive(today time.Time) {
	c.Deadline = DeadlineFor(c.ComplaintDate, c.Priority)
	c.IsOverdue = c.Overdue(today)
}

type ComplaintFilter struct {
	PatientID *uuid.UUID
	State     ComplaintState
	Priority  Priority
}
