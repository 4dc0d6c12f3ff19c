package pharmacy

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/sequence"
)

// RejectionObserver is told about every adjustment batch refused for
// insufficient stock.
type RejectionObserver interface {
	IncStockRejections()
}

// Ledger is the only writer of product quantities.
type Ledger struct {
	products ProductRepository
	tx       db.TxRunner
	observer RejectionObserver
}

func NewLedger(products ProductRepository, tx db.TxRunner, observer RejectionObserver) *Ledger {
	return &Ledger{products: products, tx: tx, observer: observer}
}

// Apply locks the touched products, computes their new quantities and
// writes them. Nothing is written when any product would go negative.
func (l *Ledger) Apply(ctx context.Context, adjustments []Adjustment) error {
	if len(adjustments) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(adjustments))
	ids := make([]uuid.UUID, 0, len(adjustments))
	for _, a := range adjustments {
		if !seen[a.ProductID] {
			seen[a.ProductID] = true
			ids = append(ids, a.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	return l.tx.InTx(ctx, func(ctx context.Context) error {
		stock, err := l.products.LockQuantities(ctx, ids)
		if err != nil {
			return err
		}
		next, err := ApplyAdjustments(stock, adjustments)
		if err != nil {
			if apperr.IsValidation(err) && l.observer != nil {
				l.observer.IncStockRejections()
			}
			return err
		}
		return l.products.SetQuantities(ctx, next)
	})
}

type Options struct {
	// AllowPaidEdit lets header fields of paid purchase orders change.
	AllowPaidEdit bool
}

type Service struct {
	products      ProductRepository
	moves         StockMoveRepository
	prescriptions PrescriptionRepository
	purchases     PurchaseRepository
	ledger        *Ledger
	seq           sequence.Generator
	tx            db.TxRunner
	now           clock.Clock
	opts          Options
}

func NewService(products ProductRepository, moves StockMoveRepository, prescriptions PrescriptionRepository,
	purchases PurchaseRepository, ledger *Ledger, seq sequence.Generator, tx db.TxRunner, now clock.Clock, opts Options) *Service {
	return &Service{
		products:      products,
		moves:         moves,
		prescriptions: prescriptions,
		purchases:     purchases,
		ledger:        ledger,
		seq:           seq,
		tx:            tx,
		now:           now,
		opts:          opts,
	}
}

func (s *Service) Ledger() *Ledger { return s.ledger }

// -- Product --

func validateProduct(p *Product) error {
	if p.Name == "" {
		return apperr.Validation("name is required")
	}
	if p.Code == "" {
		return apperr.Validation("code is required")
	}
	if !validUOMs[p.UOM] {
		return apperr.Validation("invalid uom: %s", p.UOM)
	}
	if !p.PurchasePrice.IsPositive() {
		return apperr.Validation("purchase_price must be greater than 0")
	}
	if !p.UnitPrice.IsPositive() {
		return apperr.Validation("unit_price must be greater than 0")
	}
	if p.UnitPrice.LessThan(p.PurchasePrice) {
		return apperr.Validation("unit_price cannot be lower than purchase_price")
	}
	if p.ManufacturedAt != nil && p.ExpiresAt != nil && p.ExpiresAt.Before(*p.ManufacturedAt) {
		return apperr.Validation("expires_at cannot be before manufactured_at")
	}
	return nil
}

// CreateProduct accepts an opening quantity. Later changes go through stock
// moves, purchases and invoices.
func (s *Service) CreateProduct(ctx context.Context, p *Product) error {
	if p.UOM == "" {
		p.UOM = UOMPill
	}
	if p.UnitPrice.IsZero() && p.PurchasePrice.IsPositive() {
		p.UnitPrice = SuggestedUnitPrice(p.PurchasePrice)
	}
	if err := validateProduct(p); err != nil {
		return err
	}
	if p.Quantity.IsNegative() {
		return apperr.Validation("quantity cannot be negative")
	}
	p.Active = true
	if err := s.products.Create(ctx, p); err != nil {
		return err
	}
	p.ProfitMargin = ProfitMargin(p.PurchasePrice, p.UnitPrice)
	return nil
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *Service) UpdateProduct(ctx context.Context, p *Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := s.products.Update(ctx, p); err != nil {
		return err
	}
	p.ProfitMargin = ProfitMargin(p.PurchasePrice, p.UnitPrice)
	return nil
}

func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.products.Delete(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, activeOnly bool, limit, offset int) ([]*Product, int, error) {
	return s.products.List(ctx, activeOnly, limit, offset)
}

// -- Stock move --

// CreateStockMove records the move and adjusts stock together. An outgoing
// move larger than the stock is rejected and leaves the quantity as it was.
func (s *Service) CreateStockMove(ctx context.Context, m *StockMove) error {
	if m.ProductID == uuid.Nil {
		return apperr.Validation("product_id is required")
	}
	if m.MoveType != MoveIn && m.MoveType != MoveOut {
		return apperr.Validation("invalid move_type: %s", m.MoveType)
	}
	if !m.Quantity.IsPositive() {
		return apperr.Validation("quantity must be greater than 0")
	}
	if m.Date.IsZero() {
		m.Date = s.now()
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.Apply(ctx, []Adjustment{m.Adjustment()}); err != nil {
			return err
		}
		return s.moves.Create(ctx, m)
	})
}

func (s *Service) GetStockMove(ctx context.Context, id uuid.UUID) (*StockMove, error) {
	return s.moves.GetByID(ctx, id)
}

func (s *Service) ListStockMoves(ctx context.Context, productID *uuid.UUID, limit, offset int) ([]*StockMove, int, error) {
	return s.moves.List(ctx, productID, limit, offset)
}

// -- Prescription --

func validateLine(l *PrescriptionLine) error {
	if l.ProductID == uuid.Nil {
		return apperr.Validation("product_id is required")
	}
	if !l.Quantity.IsPositive() {
		return apperr.Validation("quantity must be greater than 0")
	}
	if l.Dosage == "" {
		return apperr.Validation("dosage is required")
	}
	return nil
}

func validatePrescription(p *Prescription) error {
	if p.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if p.Days <= 0 {
		return apperr.Validation("days must be greater than 0")
	}
	return nil
}

func (s *Service) CreatePrescription(ctx context.Context, p *Prescription) error {
	if err := validatePrescription(p); err != nil {
		return err
	}
	seen := make(map[uuid.UUID]bool, len(p.Lines))
	for _, l := range p.Lines {
		if err := validateLine(l); err != nil {
			return err
		}
		if seen[l.ProductID] {
			return apperr.Validation("product %s appears twice in the prescription", l.ProductID)
		}
		seen[l.ProductID] = true
	}
	if p.Date.IsZero() {
		p.Date = clock.Date(s.now())
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		code, err := s.seq.Next(ctx, sequence.Prescription)
		if err != nil {
			return err
		}
		p.Code = code
		if err := s.prescriptions.Create(ctx, p); err != nil {
			return err
		}
		for _, l := range p.Lines {
			l.OrderID = p.ID
			if err := s.prescriptions.AddLine(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Lines, err = s.prescriptions.ListLines(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePrescription changes the header only; lines have their own calls.
func (s *Service) UpdatePrescription(ctx context.Context, p *Prescription) error {
	if err := validatePrescription(p); err != nil {
		return err
	}
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return err
	}
	var err error
	p.Lines, err = s.prescriptions.ListLines(ctx, p.ID)
	return err
}

func (s *Service) DeletePrescription(ctx context.Context, id uuid.UUID) error {
	return s.prescriptions.Delete(ctx, id)
}

func (s *Service) ListPrescriptions(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.List(ctx, patientID, limit, offset)
}

func (s *Service) AddPrescriptionLine(ctx context.Context, l *PrescriptionLine) error {
	if err := validateLine(l); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.prescriptions.GetByID(ctx, l.OrderID); err != nil {
			return err
		}
		if err := s.checkDuplicateLine(ctx, l); err != nil {
			return err
		}
		return s.prescriptions.AddLine(ctx, l)
	})
}

func (s *Service) UpdatePrescriptionLine(ctx context.Context, l *PrescriptionLine) error {
	if err := validateLine(l); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.prescriptions.GetLine(ctx, l.ID)
		if err != nil {
			return err
		}
		l.OrderID = current.OrderID
		if err := s.checkDuplicateLine(ctx, l); err != nil {
			return err
		}
		return s.prescriptions.UpdateLine(ctx, l)
	})
}

func (s *Service) checkDuplicateLine(ctx context.Context, l *PrescriptionLine) error {
	lines, err := s.prescriptions.ListLines(ctx, l.OrderID)
	if err != nil {
		return err
	}
	for _, other := range lines {
		if other.ID != l.ID && other.ProductID == l.ProductID {
			return apperr.Validation("product %s is already on the prescription", l.ProductID)
		}
	}
	return nil
}

func (s *Service) DeletePrescriptionLine(ctx context.Context, id uuid.UUID) error {
	return s.prescriptions.DeleteLine(ctx, id)
}

// -- Purchase order --

func (s *Service) preparePurchase(ctx context.Context, po *PurchaseOrder) error {
	if po.SupplierName == "" {
		return apperr.Validation("supplier_name is required")
	}
	for _, l := range po.Lines {
		if l.ProductID == uuid.Nil {
			return apperr.Validation("product_id is required")
		}
		if !l.Quantity.IsPositive() {
			return apperr.Validation("quantity must be greater than 0")
		}
		if l.PriceUnit.IsZero() {
			p, err := s.products.GetByID(ctx, l.ProductID)
			if err != nil {
				if apperr.IsNotFound(err) {
					return apperr.Validation("unknown product %s", l.ProductID)
				}
				return err
			}
			l.PriceUnit = p.PurchasePrice
		}
		if !l.PriceUnit.IsPositive() {
			return apperr.Validation("price_unit must be greater than 0")
		}
	}
	po.ComputeTotals()
	return nil
}

func (s *Service) CreatePurchase(ctx context.Context, po *PurchaseOrder) error {
	if po.Date.IsZero() {
		po.Date = clock.Date(s.now())
	}
	po.State = PurchaseDraft
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.preparePurchase(ctx, po); err != nil {
			return err
		}
		code, err := s.seq.Next(ctx, sequence.PurchaseOrder)
		if err != nil {
			return err
		}
		po.Code = code
		if err := s.purchases.Create(ctx, po); err != nil {
			return err
		}
		return s.purchases.ReplaceLines(ctx, po.ID, po.Lines)
	})
}

func (s *Service) GetPurchase(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	po, err := s.purchases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if po.Lines, err = s.purchases.ListLines(ctx, id); err != nil {
		return nil, err
	}
	return po, nil
}

// UpdatePurchase replaces the header and lines. A paid order is refused
// unless paid edits are allowed, and even then its lines stay as received.
func (s *Service) UpdatePurchase(ctx context.Context, po *PurchaseOrder) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.GetPurchase(ctx, po.ID)
		if err != nil {
			return err
		}
		paid := current.State == PurchasePaid
		if paid && !s.opts.AllowPaidEdit {
			return apperr.User("cannot edit a paid purchase order")
		}
		po.Code = current.Code
		po.State = current.State
		po.CreatedAt = current.CreatedAt
		if po.Date.IsZero() {
			po.Date = current.Date
		}
		if paid {
			po.Lines = current.Lines
		}
		if err := s.preparePurchase(ctx, po); err != nil {
			return err
		}
		if err := s.purchases.Update(ctx, po); err != nil {
			return err
		}
		if paid {
			return nil
		}
		return s.purchases.ReplaceLines(ctx, po.ID, po.Lines)
	})
}

func (s *Service) DeletePurchase(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		po, err := s.purchases.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if po.State == PurchasePaid {
			return apperr.User("cannot delete a paid purchase order")
		}
		return s.purchases.Delete(ctx, id)
	})
}

func (s *Service) ListPurchases(ctx context.Context, state PurchaseState, limit, offset int) ([]*PurchaseOrder, int, error) {
	return s.purchases.List(ctx, state, limit, offset)
}

// ApplyPurchase moves the order through its states. Paying receives every
// line into stock in the same transaction.
func (s *Service) ApplyPurchase(ctx context.Context, id uuid.UUID, action PurchaseAction) (*PurchaseOrder, error) {
	var po *PurchaseOrder
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		po, err = s.GetPurchase(ctx, id)
		if err != nil {
			return err
		}
		next, err := NextPurchaseState(po.State, action)
		if err != nil {
			return err
		}
		if next == PurchasePaid {
			adj := make([]Adjustment, 0, len(po.Lines))
			for _, l := range po.Lines {
				adj = append(adj, Adjustment{ProductID: l.ProductID, Delta: l.Quantity})
			}
			if err := s.ledger.Apply(ctx, adj); err != nil {
				return err
			}
		}
		po.State = next
		return s.purchases.UpdateState(ctx, id, next)
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// UnitPrices returns the sale price of each product, for billing.
func (s *Service) UnitPrices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(ids))
	for _, id := range ids {
		p, err := s.products.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = p.UnitPrice
	}
	return out, nil
}
