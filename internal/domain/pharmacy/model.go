package pharmacy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

// -- Product --

type UOM string

const (
	UOMPill   UOM = "pill"
	UOMBottle UOM = "bottle"
	UOMBox    UOM = "box"
	UOMPack   UOM = "pack"
	UOMTube   UOM = "tube"
)

var validUOMs = map[UOM]bool{UOMPill: true, UOMBottle: true, UOMBox: true, UOMPack: true, UOMTube: true}

// DefaultMarkup is applied to the purchase price when no sale price is given.
var DefaultMarkup = decimal.RequireFromString("1.2")

var hundred = decimal.NewFromInt(100)

// Product maps to the pharmacy_product table. Quantity is the on-hand stock
// and changes only through the ledger.
type Product struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Code           string          `db:"code" json:"code"`
	Category       *string         `db:"category" json:"category,omitempty"`
	Manufacturer   *string         `db:"manufacturer" json:"manufacturer,omitempty"`
	Quantity       decimal.Decimal `db:"quantity" json:"quantity"`
	UOM            UOM             `db:"uom" json:"uom"`
	PurchasePrice  decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
	ProfitMargin   decimal.Decimal `db:"-" json:"profit_margin"`
	ManufacturedAt *time.Time      `db:"manufactured_at" json:"manufactured_at,omitempty"`
	ExpiresAt      *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	Description    *string         `db:"description" json:"description,omitempty"`
	Active         bool            `db:"active" json:"active"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// ProfitMargin is the markup over purchase price in percent, rounded to two
// places. A non-positive purchase price yields 0.
func ProfitMargin(purchase, unit decimal.Decimal) decimal.Decimal {
	if !purchase.IsPositive() {
		return decimal.Zero
	}
	return unit.Sub(purchase).Div(purchase).Mul(hundred).Round(2)
}

func SuggestedUnitPrice(purchase decimal.Decimal) decimal.Decimal {
	return purchase.Mul(DefaultMarkup).Round(2)
}

// -- Stock ledger --

// Adjustment is a signed change to one product's stock.
type Adjustment struct {
	ProductID uuid.UUID
	Delta     decimal.Decimal
}

// ApplyAdjustments computes the stock after every adjustment. It is all or
// nothing: if any product would go negative, or is unknown, it returns an
// error and no result. Several adjustments to one product accumulate.
func ApplyAdjustments(stock map[uuid.UUID]decimal.Decimal, adjustments []Adjustment) (map[uuid.UUID]decimal.Decimal, error) {
	next := make(map[uuid.UUID]decimal.Decimal, len(adjustments))
	for _, a := range adjustments {
		cur, ok := next[a.ProductID]
		if !ok {
			if cur, ok = stock[a.ProductID]; !ok {
				return nil, apperr.Validation("unknown product %s", a.ProductID)
			}
		}
		next[a.ProductID] = cur.Add(a.Delta)
	}
	for id, q := range next {
		if q.IsNegative() {
			return nil, apperr.Validation("insufficient stock for product %s: short by %s", id, q.Neg())
		}
	}
	return next, nil
}

// -- Stock move --

type MoveType string

const (
	MoveIn  MoveType = "in"
	MoveOut MoveType = "out"
)

// StockMove maps to the stock_move table. Moves are immutable.
type StockMove struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	ProductID uuid.UUID       `db:"product_id" json:"product_id"`
	MoveType  MoveType        `db:"move_type" json:"move_type"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	Date      time.Time       `db:"date" json:"date"`
	Note      *string         `db:"note" json:"note,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

func (m *StockMove) Adjustment() Adjustment {
	if m.MoveType == MoveOut {
		return Adjustment{ProductID: m.ProductID, Delta: m.Quantity.Neg()}
	}
	return Adjustment{ProductID: m.ProductID, Delta: m.Quantity}
}

// -- Prescription --

// Prescription maps to the prescription_order table.
type Prescription struct {
	ID        uuid.UUID           `db:"id" json:"id"`
	Code      string              `db:"code" json:"code"`
	PatientID uuid.UUID           `db:"patient_id" json:"patient_id"`
	StaffID   *uuid.UUID          `db:"staff_id" json:"staff_id,omitempty"`
	Days      int                 `db:"days" json:"days"`
	Date      time.Time           `db:"date" json:"date"`
	Notes     *string             `db:"notes" json:"notes,omitempty"`
	Lines     []*PrescriptionLine `db:"-" json:"lines,omitempty"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

// PrescriptionLine maps to the prescription_line table.
type PrescriptionLine struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	OrderID      uuid.UUID       `db:"order_id" json:"order_id"`
	ProductID    uuid.UUID       `db:"product_id" json:"product_id"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	Dosage       string          `db:"dosage" json:"dosage"`
	Instructions *string         `db:"instructions" json:"instructions,omitempty"`
}

// -- Purchase order --

type PurchaseState string

const (
	PurchaseDraft     PurchaseState = "draft"
	PurchaseConfirmed PurchaseState = "confirmed"
	PurchasePaid      PurchaseState = "paid"
	PurchaseCancelled PurchaseState = "cancelled"
)

type PurchaseAction string

const (
	PurchaseConfirm PurchaseAction = "confirm"
	PurchasePay     PurchaseAction = "pay"
	PurchaseCancel  PurchaseAction = "cancel"
)

var purchaseTransitions = map[PurchaseAction]struct {
	from []PurchaseState
	to   PurchaseState
}{
	PurchaseConfirm: {from: []PurchaseState{PurchaseDraft}, to: PurchaseConfirmed},
	PurchasePay:     {from: []PurchaseState{PurchaseConfirmed}, to: PurchasePaid},
	PurchaseCancel:  {from: []PurchaseState{PurchaseDraft, PurchaseConfirmed}, to: PurchaseCancelled},
}

func NextPurchaseState(from PurchaseState, action PurchaseAction) (PurchaseState, error) {
	t, ok := purchaseTransitions[action]
	if !ok {
		return "", apperr.Validation("unknown purchase order action: %s", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s a purchase order in state %s", action, from)
}

// PurchaseTaxRate is the VAT applied to purchase orders.
var PurchaseTaxRate = decimal.New(1, -1)

// PurchaseOrder maps to the purchase_order table.
type PurchaseOrder struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Code          string          `db:"code" json:"code"`
	Date          time.Time       `db:"date" json:"date"`
	SupplierName  string          `db:"supplier_name" json:"supplier_name"`
	State         PurchaseState   `db:"state" json:"state"`
	Note          *string         `db:"note" json:"note,omitempty"`
	Lines         []*PurchaseLine `db:"-" json:"lines"`
	AmountUntaxed decimal.Decimal `db:"amount_untaxed" json:"amount_untaxed"`
	AmountTax     decimal.Decimal `db:"amount_tax" json:"amount_tax"`
	AmountTotal   decimal.Decimal `db:"amount_total" json:"amount_total"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// PurchaseLine maps to the purchase_order_line table.
type PurchaseLine struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	OrderID   uuid.UUID       `db:"order_id" json:"order_id"`
	ProductID uuid.UUID       `db:"product_id" json:"product_id"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	PriceUnit decimal.Decimal `db:"price_unit" json:"price_unit"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
}

// ComputeTotals fills line subtotals and the order amounts.
func (po *PurchaseOrder) ComputeTotals() {
	untaxed := decimal.Zero
	for _, l := range po.Lines {
		l.Subtotal = l.Quantity.Mul(l.PriceUnit)
		untaxed = untaxed.Add(l.Subtotal)
	}
	po.AmountUntaxed = untaxed
	po.AmountTax = untaxed.Mul(PurchaseTaxRate).Round(2)
	po.AmountTotal = untaxed.Add(po.AmountTax)
}
