package insurance

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/db"
)

// PatientLinker records the policy on the patient's file.
type PatientLinker interface {
	LinkInsurance(ctx context.Context, patientID, policyID uuid.UUID) error
}

type Service struct {
	policies Repository
	patients PatientLinker
	tx       db.TxRunner
	now      clock.Clock
}

func NewService(policies Repository, patients PatientLinker, tx db.TxRunner, now clock.Clock) *Service {
	return &Service{policies: policies, patients: patients, tx: tx, now: now}
}

func (s *Service) validate(ctx context.Context, p *Policy) error {
	if p.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if n := utf8.RuneCountInString(p.Number); n != NumberLength {
		return apperr.Validation("insurance number must be exactly %d characters, got %d", NumberLength, n)
	}
	if p.Tier != "" && !validTiers[p.Tier] {
		return apperr.Validation("invalid tier: %s", p.Tier)
	}

	existing, err := s.policies.GetByNumber(ctx, p.Number)
	switch {
	case apperr.IsNotFound(err):
		return nil
	case err != nil:
		return err
	case existing.ID != p.ID:
		return apperr.Validation("insurance number %s is already registered", p.Number)
	}
	return nil
}

// Create stores the policy and links it to its patient in one transaction.
func (s *Service) Create(ctx context.Context, p *Policy) error {
	if err := s.validate(ctx, p); err != nil {
		return err
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.policies.Create(ctx, p); err != nil {
			return err
		}
		return s.patients.LinkInsurance(ctx, p.PatientID, p.ID)
	})
	if err != nil {
		return err
	}
	p.State = p.StateOn(s.now())
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Policy, error) {
	p, err := s.policies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.State = p.StateOn(s.now())
	return p, nil
}

func (s *Service) GetByPatient(ctx context.Context, patientID uuid.UUID) (*Policy, error) {
	p, err := s.policies.GetByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	p.State = p.StateOn(s.now())
	return p, nil
}

// Update changes number, facility, tier and expiry. The owning patient is fixed.
func (s *Service) Update(ctx context.Context, p *Policy) error {
	current, err := s.policies.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.PatientID = current.PatientID
	if err := s.validate(ctx, p); err != nil {
		return err
	}
	if err := s.policies.Update(ctx, p); err != nil {
		return err
	}
	p.State = p.StateOn(s.now())
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.policies.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Policy, int, error) {
	items, total, err := s.policies.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	today := s.now()
	for _, p := range items {
		p.State = p.StateOn(today)
	}
	return items, total, nil
}

// HasValidCoverage reports whether the patient holds a policy that is valid
// on the given day. Patients without a policy are simply not covered.
func (s *Service) HasValidCoverage(ctx context.Context, patientID uuid.UUID, today time.Time) (bool, error) {
	p, err := s.policies.GetByPatient(ctx, patientID)
	if apperr.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.StateOn(today) == StateValid, nil
}
