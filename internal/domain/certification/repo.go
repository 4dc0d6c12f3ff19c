package certification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CertificationRepository interface {
	Create(ctx context.Context, c *Certification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Certification, error)
	// Update writes the editable fields; state, document and reminder
	// bookkeeping have their own methods.
	Update(ctx context.Context, c *Certification) error
	UpdateState(ctx context.Context, id uuid.UUID, state State) error
	// Renew sets the new expiry, marks the record valid and clears reminded_for.
	Renew(ctx context.Context, id uuid.UUID, expiry time.Time) error
	MarkReminded(ctx context.Context, id uuid.UUID, expiry time.Time) error
	SetDocument(ctx context.Context, id uuid.UUID, key *string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Certification, int, error)
	// ListForSweep returns active certifications that have not expired. Drafts
	// are included so they still get expiry reminders.
	ListForSweep(ctx context.Context) ([]*Certification, error)
}

type InspectionRepository interface {
	Create(ctx context.Context, i *Inspection) error
	GetByID(ctx context.Context, id uuid.UUID) (*Inspection, error)
	Update(ctx context.Context, i *Inspection) error
	UpdateState(ctx context.Context, id uuid.UUID, state InspectionState) error
	SetDocument(ctx context.Context, id uuid.UUID, key *string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, certificationID *uuid.UUID, limit, offset int) ([]*Inspection, int, error)
}
