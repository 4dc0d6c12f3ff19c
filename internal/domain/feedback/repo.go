package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type FeedbackRepository interface {
	Create(ctx context.Context, f *Feedback) error
	GetByID(ctx context.Context, id uuid.UUID) (*Feedback, error)
	Update(ctx context.Context, f *Feedback) error
	UpdateState(ctx context.Context, id uuid.UUID, state State) error
	SetComplaint(ctx context.Context, id, complaintID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Feedback, int, error)
	// ListBetween returns feedback dated within [from, to].
	ListBetween(ctx context.Context, from, to time.Time) ([]*Feedback, error)
}

type ComplaintRepository interface {
	Create(ctx context.Context, c *Complaint) error
	GetByID(ctx context.Context, id uuid.UUID) (*Complaint, error)
	Update(ctx context.Context, c *Complaint) error
	// UpdateState also writes ResolvedDate.
	UpdateState(ctx context.Context, c *Complaint) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ComplaintFilter, limit, offset int) ([]*Complaint, int, error)
}
