package insurance

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Policy) error
	GetByID(ctx context.Context, id uuid.UUID) (*Policy, error)
	GetByNumber(ctx context.Context, number string) (*Policy, error)
	// GetByPatient returns the patient's most recently created policy.
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*Policy, error)
	Update(ctx context.Context, p *Policy) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Policy, int, error)
}
