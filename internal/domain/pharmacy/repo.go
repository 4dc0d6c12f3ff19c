package pharmacy

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// Update writes every field except Quantity.
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Product, int, error)
	// LockQuantities reads the stock of the given products, locking their
	// rows until the surrounding transaction ends. Unknown ids are omitted.
	LockQuantities(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	SetQuantities(ctx context.Context, qty map[uuid.UUID]decimal.Decimal) error
}

type StockMoveRepository interface {
	Create(ctx context.Context, m *StockMove) error
	GetByID(ctx context.Context, id uuid.UUID) (*StockMove, error)
	List(ctx context.Context, productID *uuid.UUID, limit, offset int) ([]*StockMove, int, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	AddLine(ctx context.Context, l *PrescriptionLine) error
	GetLine(ctx context.Context, id uuid.UUID) (*PrescriptionLine, error)
	UpdateLine(ctx context.Context, l *PrescriptionLine) error
	DeleteLine(ctx context.Context, id uuid.UUID) error
	ListLines(ctx context.Context, orderID uuid.UUID) ([]*PrescriptionLine, error)
}

type PurchaseRepository interface {
	Create(ctx context.Context, po *PurchaseOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	Update(ctx context.Context, po *PurchaseOrder) error
	UpdateState(ctx context.Context, id uuid.UUID, state PurchaseState) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, state PurchaseState, limit, offset int) ([]*PurchaseOrder, int, error)
	// ReplaceLines deletes the order's lines and inserts lines in their place.
	ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []*PurchaseLine) error
	ListLines(ctx context.Context, orderID uuid.UUID) ([]*PurchaseLine, error)
}
