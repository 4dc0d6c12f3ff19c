package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ServiceItemRepository interface {
	Create(ctx context.Context, s *ServiceItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*ServiceItem, error)
	Update(ctx context.Context, s *ServiceItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*ServiceItem, int, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// Update writes the header and amounts, never the state.
	Update(ctx context.Context, inv *Invoice) error
	UpdateState(ctx context.Context, id uuid.UUID, state State) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Invoice, int, error)
	ReplaceLines(ctx context.Context, invoiceID uuid.UUID, lines []*Line) error
	ListLines(ctx context.Context, invoiceID uuid.UUID) ([]*Line, error)
	// ListPaidInsured returns paid invoices dated in [from, to] with an
	// insured share.
	ListPaidInsured(ctx context.Context, from, to time.Time) ([]*Invoice, error)
}

type ClaimRepository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	UpdateState(ctx context.Context, id uuid.UUID, state ClaimState) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Claim, int, error)
	ReplaceLines(ctx context.Context, claimID uuid.UUID, lines []*ClaimLine) error
	ListLines(ctx context.Context, claimID uuid.UUID) ([]*ClaimLine, error)
}
