package treatment

import (
	"context"

	"github.com/google/uuid"
)

type PlanRepository interface {
	Create(ctx context.Context, p *Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	Update(ctx context.Context, p *Plan) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*Plan, int, error)
}

type ProcessRepository interface {
	Create(ctx context.Context, p *Process) error
	GetByID(ctx context.Context, id uuid.UUID) (*Process, error)
	Update(ctx context.Context, p *Process) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByPlan(ctx context.Context, planID uuid.UUID) error
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*Process, error)
}
