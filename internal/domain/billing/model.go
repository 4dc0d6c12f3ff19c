package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicops/clinic/internal/domain/insurance"
	"github.com/clinicops/clinic/internal/platform/apperr"
)

// -- Service catalog --

// ServiceItem is a billable clinic service. Maps to the clinic_service table.
type ServiceItem struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Code        string          `db:"code" json:"code"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Description *string         `db:"description" json:"description,omitempty"`
	Active      bool            `db:"active" json:"active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// -- Invoice --

type State string

const (
	StateDraft     State = "draft"
	StateConfirmed State = "confirmed"
	StatePaid      State = "paid"
	StateCancelled State = "cancelled"
)

type Action string

const (
	ActionConfirm Action = "confirm"
	ActionPay     Action = "pay"
	ActionCancel  Action = "cancel"
	ActionReset   Action = "reset"
)

var invoiceTransitions = map[Action]struct {
	from []State
	to   State
}{
	ActionConfirm: {from: []State{StateDraft}, to: StateConfirmed},
	ActionPay:     {from: []State{StateConfirmed}, to: StatePaid},
	ActionCancel:  {from: []State{StateDraft, StateConfirmed, StatePaid}, to: StateCancelled},
	ActionReset:   {from: []State{StateConfirmed, StateCancelled}, to: StateDraft},
}

// Next returns the invoice state after action. A paid invoice goes back to
// draft only by cancelling first.
func Next(from State, action Action) (State, error) {
	t, ok := invoiceTransitions[action]
	if !ok {
		return "", apperr.Validation("unknown invoice action: %s", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s an invoice in state %s", action, from)
}

// Invoice maps to the invoice table. Amounts are a snapshot of the last
// recomputation.
type Invoice struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	Code            string          `db:"code" json:"code"`
	PatientID       uuid.UUID       `db:"patient_id" json:"patient_id"`
	PrescriptionID  *uuid.UUID      `db:"prescription_id" json:"prescription_id,omitempty"`
	InvoiceDate     time.Time       `db:"invoice_date" json:"invoice_date"`
	State           State           `db:"state" json:"state"`
	Note            *string         `db:"note" json:"note,omitempty"`
	Lines           []*Line         `db:"-" json:"lines"`
	Covered         bool            `db:"covered" json:"covered"`
	ServiceAmount   decimal.Decimal `db:"service_amount" json:"service_amount"`
	MedicineAmount  decimal.Decimal `db:"medicine_amount" json:"medicine_amount"`
	AmountTotal     decimal.Decimal `db:"amount_total" json:"amount_total"`
	InsuranceAmount decimal.Decimal `db:"insurance_amount" json:"insurance_amount"`
	PatientAmount   decimal.Decimal `db:"patient_amount" json:"patient_amount"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Line maps to the invoice_line table. Exactly one of ServiceID and
// ProductID is set.
type Line struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	InvoiceID       uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	ServiceID       *uuid.UUID      `db:"service_id" json:"service_id,omitempty"`
	ProductID       *uuid.UUID      `db:"product_id" json:"product_id,omitempty"`
	Description     *string         `db:"description" json:"description,omitempty"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity"`
	PriceUnit       decimal.Decimal `db:"price_unit" json:"price_unit"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	InsuranceAmount decimal.Decimal `db:"insurance_amount" json:"insurance_amount"`
	PatientAmount   decimal.Decimal `db:"patient_amount" json:"patient_amount"`
}

func (l *Line) IsProduct() bool { return l.ProductID != nil }

type Totals struct {
	ServiceAmount   decimal.Decimal
	MedicineAmount  decimal.Decimal
	AmountTotal     decimal.Decimal
	InsuranceAmount decimal.Decimal
	PatientAmount   decimal.Decimal
}

// ComputeTotals fills each line's subtotal and split and returns the invoice
// amounts. InsuranceAmount + PatientAmount always equals AmountTotal.
func ComputeTotals(lines []*Line, covered bool) Totals {
	var t Totals
	for _, l := range lines {
		l.Subtotal = l.Quantity.Mul(l.PriceUnit)
		l.InsuranceAmount, l.PatientAmount = insurance.Split(l.Subtotal, covered)
		if l.IsProduct() {
			t.MedicineAmount = t.MedicineAmount.Add(l.Subtotal)
		} else {
			t.ServiceAmount = t.ServiceAmount.Add(l.Subtotal)
		}
	}
	t.AmountTotal = t.ServiceAmount.Add(t.MedicineAmount)
	t.InsuranceAmount, t.PatientAmount = insurance.Split(t.AmountTotal, covered)
	return t
}

func (inv *Invoice) apply(t Totals, covered bool) {
	inv.Covered = covered
	inv.ServiceAmount = t.ServiceAmount
	inv.MedicineAmount = t.MedicineAmount
	inv.AmountTotal = t.AmountTotal
	inv.InsuranceAmount = t.InsuranceAmount
	inv.PatientAmount = t.PatientAmount
}

type ListFilter struct {
	PatientID *uuid.UUID
	State     State
}

// -- Insurance claim --

type ClaimState string

const (
	ClaimDraft     ClaimState = "draft"
	ClaimConfirmed ClaimState = "confirmed"
	ClaimPaid      ClaimState = "paid"
	ClaimCancelled ClaimState = "cancelled"
)

type ClaimAction string

const (
	ClaimConfirm ClaimAction = "confirm"
	ClaimPay     ClaimAction = "pay"
	ClaimCancel  ClaimAction = "cancel"
	ClaimReset   ClaimAction = "draft"
)

var claimTransitions = map[ClaimAction]struct {
	from []ClaimState
	to   ClaimState
}{
	ClaimConfirm: {from: []ClaimState{ClaimDraft}, to: ClaimConfirmed},
	ClaimPay:     {from: []ClaimState{ClaimConfirmed}, to: ClaimPaid},
	ClaimCancel:  {from: []ClaimState{ClaimDraft, ClaimConfirmed}, to: ClaimCancelled},
	ClaimReset:   {from: []ClaimState{ClaimCancelled}, to: ClaimDraft},
}

func NextClaimState(from ClaimState, action ClaimAction) (ClaimState, error) {
	t, ok := claimTransitions[action]
	if !ok {
		return "", apperr.Validation("unknown claim action: %s", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", apperr.User("cannot %s a claim in state %s", action, from)
}

// Claim batches the insured share of paid invoices for one period. Maps to
// the insurance_claim table.
type Claim struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	Code           string          `db:"code" json:"code"`
	DateFrom       time.Time       `db:"date_from" json:"date_from"`
	DateTo         time.Time       `db:"date_to" json:"date_to"`
	State          ClaimState      `db:"state" json:"state"`
	Note           *string         `db:"note" json:"note,omitempty"`
	Lines          []*ClaimLine    `db:"-" json:"lines"`
	TotalService   decimal.Decimal `db:"total_service" json:"total_service"`
	TotalMedicine  decimal.Decimal `db:"total_medicine" json:"total_medicine"`
	TotalInsurance decimal.Decimal `db:"total_insurance" json:"total_insurance"`
	Warning        string          `db:"-" json:"warning,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// ClaimLine maps to the insurance_claim_line table.
type ClaimLine struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	ClaimID         uuid.UUID       `db:"claim_id" json:"claim_id"`
	InvoiceID       uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	PatientID       uuid.UUID       `db:"patient_id" json:"patient_id"`
	InvoiceDate     time.Time       `db:"invoice_date" json:"invoice_date"`
	ServiceAmount   decimal.Decimal `db:"service_amount" json:"service_amount"`
	MedicineAmount  decimal.Decimal `db:"medicine_amount" json:"medicine_amount"`
	InsuranceAmount decimal.Decimal `db:"insurance_amount" json:"insurance_amount"`
}

// BuildClaim fills lines and totals from invoices. Only paid invoices with
// an insured share count.
func (c *Claim) BuildClaim(invoices []*Invoice) {
	c.Lines = c.Lines[:0]
	c.TotalService, c.TotalMedicine, c.TotalInsurance = decimal.Zero, decimal.Zero, decimal.Zero
	for _, inv := range invoices {
		if inv.State != StatePaid || !inv.InsuranceAmount.IsPositive() {
			continue
		}
		c.Lines = append(c.Lines, &ClaimLine{
			InvoiceID:       inv.ID,
			PatientID:       inv.PatientID,
			InvoiceDate:     inv.InvoiceDate,
			ServiceAmount:   inv.ServiceAmount,
			MedicineAmount:  inv.MedicineAmount,
			InsuranceAmount: inv.InsuranceAmount,
		})
		c.TotalService = c.TotalService.Add(inv.ServiceAmount)
		c.TotalMedicine = c.TotalMedicine.Add(inv.MedicineAmount)
		c.TotalInsurance = c.TotalInsurance.Add(inv.InsuranceAmount)
	}
}
