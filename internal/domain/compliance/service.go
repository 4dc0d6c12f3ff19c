package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
)

type Service struct {
	regulations RegulationRepository
	assessments AssessmentRepository
	actions     ActionRepository
	now         clock.Clock
}

func NewService(regulations RegulationRepository, assessments AssessmentRepository, actions ActionRepository,
	now clock.Clock) *Service {
	return &Service{regulations: regulations, assessments: assessments, actions: actions, now: now}
}

func (s *Service) today() time.Time { return clock.Date(s.now()) }

// -- Regulations --

func validateRegulation(r *Regulation) error {
	if r.Name == "" {
		return apperr.Validation("name is required")
	}
	if r.Code == "" {
		return apperr.Validation("code is required")
	}
	if r.Scope == "" {
		r.Scope = "national"
	}
	if !validScopes[r.Scope] {
		return apperr.Validation("invalid scope: %s", r.Scope)
	}
	if r.IssueDate != nil && r.EffectiveDate != nil && r.EffectiveDate.Before(*r.IssueDate) {
		return apperr.Validation("effective_date cannot be before issue_date")
	}
	return nil
}

func (s *Service) CreateRegulation(ctx context.Context, r *Regulation) error {
	if err := validateRegulation(r); err != nil {
		return err
	}
	r.Active = true
	return s.regulations.Create(ctx, r)
}

func (s *Service) GetRegulation(ctx context.Context, id uuid.UUID) (*Regulation, error) {
	return s.regulations.GetByID(ctx, id)
}

func (s *Service) UpdateRegulation(ctx context.Context, r *Regulation) error {
	if err := validateRegulation(r); err != nil {
		return err
	}
	return s.regulations.Update(ctx, r)
}

func (s *Service) DeleteRegulation(ctx context.Context, id uuid.UUID) error {
	return s.regulations.Delete(ctx, id)
}

func (s *Service) ListRegulations(ctx context.Context, activeOnly bool, limit, offset int) ([]*Regulation, int, error) {
	return s.regulations.List(ctx, activeOnly, limit, offset)
}

// -- Assessments --

func (s *Service) prepareAssessment(ctx context.Context, a *Assessment) error {
	if a.RegulationID == uuid.Nil {
		return apperr.Validation("regulation_id is required")
	}
	reg, err := s.regulations.GetByID(ctx, a.RegulationID)
	if apperr.IsNotFound(err) {
		return apperr.Validation("regulation %s does not exist", a.RegulationID)
	}
	if err != nil {
		return err
	}
	if a.Name == "" {
		a.Name = fmt.Sprintf("Compliance assessment - %s", reg.Name)
	}
	if a.DateAssessment.IsZero() {
		a.DateAssessment = s.today()
	}
	if a.NextAssessment.IsZero() {
		a.NextAssessment = a.DateAssessment.AddDate(0, 0, ReassessmentDays)
	}
	if a.NextAssessment.Before(a.DateAssessment) {
		return apperr.Validation("next_assessment cannot be before date_assessment")
	}
	return nil
}

func (s *Service) CreateAssessment(ctx context.Context, a *Assessment) error {
	if err := s.prepareAssessment(ctx, a); err != nil {
		return err
	}
	a.State = StateDraft
	return s.assessments.Create(ctx, a)
}

// GetAssessment returns the assessment with its corrective actions.
func (s *Service) GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	a, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Actions, err = s.actions.ListByAssessment(ctx, id); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) UpdateAssessment(ctx context.Context, a *Assessment) error {
	current, err := s.assessments.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if a.DateAssessment.IsZero() {
		a.DateAssessment = current.DateAssessment
	}
	if a.NextAssessment.IsZero() {
		a.NextAssessment = current.NextAssessment
	}
	if err := s.prepareAssessment(ctx, a); err != nil {
		return err
	}
	a.State = current.State
	a.CreatedAt = current.CreatedAt
	return s.assessments.Update(ctx, a)
}

func (s *Service) DeleteAssessment(ctx context.Context, id uuid.UUID) error {
	return s.assessments.Delete(ctx, id)
}

func (s *Service) ListAssessments(ctx context.Context, regulationID *uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	return s.assessments.List(ctx, regulationID, limit, offset)
}

func (s *Service) ApplyAssessment(ctx context.Context, id uuid.UUID, action Action) (*Assessment, error) {
	a, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Next(a.State, action)
	if err != nil {
		return nil, err
	}
	if err := s.assessments.UpdateState(ctx, id, next); err != nil {
		return nil, err
	}
	a.State = next
	return a, nil
}

// -- Corrective actions --

func (s *Service) CreateAction(ctx context.Context, a *CorrectiveAction) error {
	if a.Name == "" {
		return apperr.Validation("name is required")
	}
	if _, err := s.assessments.GetByID(ctx, a.AssessmentID); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.Validation("assessment %s does not exist", a.AssessmentID)
		}
		return err
	}
	a.State = ActionTodo
	a.CompletionDate = nil
	return s.actions.Create(ctx, a)
}

func (s *Service) GetAction(ctx context.Context, id uuid.UUID) (*CorrectiveAction, error) {
	return s.actions.GetByID(ctx, id)
}

func (s *Service) UpdateAction(ctx context.Context, a *CorrectiveAction) error {
	if a.Name == "" {
		return apperr.Validation("name is required")
	}
	current, err := s.actions.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	a.AssessmentID = current.AssessmentID
	a.State = current.State
	a.CompletionDate = current.CompletionDate
	a.CreatedAt = current.CreatedAt
	return s.actions.Update(ctx, a)
}

func (s *Service) DeleteAction(ctx context.Context, id uuid.UUID) error {
	return s.actions.Delete(ctx, id)
}

// ApplyAction moves a corrective action; finishing it stamps today as the
// completion date and reopening clears it.
func (s *Service) ApplyAction(ctx context.Context, id uuid.UUID, step Step) (*CorrectiveAction, error) {
	a, err := s.actions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := NextActionState(a.State, step)
	if err != nil {
		return nil, err
	}
	a.State = next
	switch next {
	case ActionDone:
		today := s.today()
		a.CompletionDate = &today
	case ActionTodo:
		a.CompletionDate = nil
	}
	if err := s.actions.UpdateState(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
