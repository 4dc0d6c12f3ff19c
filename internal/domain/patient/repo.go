package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error)
	SetState(ctx context.Context, id uuid.UUID, state State, note string) error
	SetInsurance(ctx context.Context, id, policyID uuid.UUID) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	// ListInactiveOutpatients returns outpatients under treatment whose last
	// activity is at or before cutoff.
	ListInactiveOutpatients(ctx context.Context, cutoff time.Time) ([]*Patient, error)
}
