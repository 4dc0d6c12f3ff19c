package compliance

import (
	"context"

	"github.com/google/uuid"
)

type RegulationRepository interface {
	Create(ctx context.Context, r *Regulation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Regulation, error)
	Update(ctx context.Context, r *Regulation) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Regulation, int, error)
}

type AssessmentRepository interface {
	Create(ctx context.Context, a *Assessment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error)
	Update(ctx context.Context, a *Assessment) error
	UpdateState(ctx context.Context, id uuid.UUID, state State) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, regulationID *uuid.UUID, limit, offset int) ([]*Assessment, int, error)
}

type ActionRepository interface {
	Create(ctx context.Context, a *CorrectiveAction) error
	GetByID(ctx context.Context, id uuid.UUID) (*CorrectiveAction, error)
	Update(ctx context.Context, a *CorrectiveAction) error
	// UpdateState also writes CompletionDate.
	UpdateState(ctx context.Context, a *CorrectiveAction) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]*CorrectiveAction, error)
}
