package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/db"
)

var (
	validGenders = map[Gender]bool{GenderMale: true, GenderFemale: true, GenderOther: true}
	validTypes   = map[Type]bool{TypeOutpatient: true, TypeInpatient: true}
)

type Service struct {
	patients Repository
	tx       db.TxRunner
	now      clock.Clock
}

func NewService(patients Repository, tx db.TxRunner, now clock.Clock) *Service {
	return &Service{patients: patients, tx: tx, now: now}
}

func (s *Service) validate(p *Patient) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("name is required")
	}
	if !validGenders[p.Gender] {
		return apperr.Validation("invalid gender: %q", p.Gender)
	}
	if p.PatientType == "" {
		p.PatientType = TypeOutpatient
	}
	if !validTypes[p.PatientType] {
		return apperr.Validation("invalid patient_type: %s", p.PatientType)
	}
	if p.DateOfBirth != nil && clock.Date(*p.DateOfBirth).After(clock.Date(s.now())) {
		return apperr.Validation("date_of_birth cannot be in the future")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	p.State = StateUnderTreatment
	p.LastActivityAt = s.now()
	p.InsurancePolicyID = nil
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// Update changes demographic fields. State, activity and insurance have
// their own operations.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	current, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := s.validate(p); err != nil {
		return err
	}
	p.State = current.State
	p.LastActivityAt = current.LastActivityAt
	p.InsurancePolicyID = current.InsurancePolicyID
	p.CreatedAt = current.CreatedAt
	return s.patients.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, f, limit, offset)
}

// Apply moves the patient through the state machine.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, action Action) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Next(p.State, action)
	if err != nil {
		return nil, err
	}
	if err := s.patients.SetState(ctx, id, next, p.Note); err != nil {
		return nil, err
	}
	p.State = next
	return p, nil
}

// RecordActivity stamps the patient as active now.
func (s *Service) RecordActivity(ctx context.Context, id uuid.UUID) error {
	return s.patients.Touch(ctx, id, s.now())
}

func (s *Service) LinkInsurance(ctx context.Context, patientID, policyID uuid.UUID) error {
	return s.patients.SetInsurance(ctx, patientID, policyID)
}

// DischargeAbandonedOutpatients marks outpatients with no activity for
// AbandonAfter as treated and returns how many were changed. Running it
// twice changes nothing the second time.
func (s *Service) DischargeAbandonedOutpatients(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		stale, err := s.patients.ListInactiveOutpatients(ctx, now.Add(-AbandonAfter))
		if err != nil {
			return err
		}
		for _, p := range stale {
			if err := s.patients.SetState(ctx, p.ID, StateTreated, appendNote(p.Note, abandonNote)); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
