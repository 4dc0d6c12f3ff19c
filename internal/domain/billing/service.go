package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinicops/clinic/internal/domain/pharmacy"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/sequence"
)

// CoverageChecker answers whether a patient is insured on a given day.
type CoverageChecker interface {
	HasValidCoverage(ctx context.Context, patientID uuid.UUID, today time.Time) (bool, error)
}

// Pharmacy supplies prescriptions and product sale prices.
type Pharmacy interface {
	GetPrescription(ctx context.Context, id uuid.UUID) (*pharmacy.Prescription, error)
	UnitPrices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// StockLedger adjusts product stock all-or-nothing.
type StockLedger interface {
	Apply(ctx context.Context, adjustments []pharmacy.Adjustment) error
}

type Options struct {
	// AllowPaidEdit lets header fields of paid invoices change.
	AllowPaidEdit bool
}

type Service struct {
	services ServiceItemRepository
	invoices InvoiceRepository
	claims   ClaimRepository
	coverage CoverageChecker
	pharmacy Pharmacy
	ledger   StockLedger
	seq      sequence.Generator
	tx       db.TxRunner
	now      clock.Clock
	opts     Options
}

func NewService(services ServiceItemRepository, invoices InvoiceRepository, claims ClaimRepository,
	coverage CoverageChecker, pharmacy Pharmacy, ledger StockLedger,
	seq sequence.Generator, tx db.TxRunner, now clock.Clock, opts Options) *Service {
	return &Service{
		services: services,
		invoices: invoices,
		claims:   claims,
		coverage: coverage,
		pharmacy: pharmacy,
		ledger:   ledger,
		seq:      seq,
		tx:       tx,
		now:      now,
		opts:     opts,
	}
}

// -- Service catalog --

func validateServiceItem(s *ServiceItem) error {
	if s.Name == "" {
		return apperr.Validation("name is required")
	}
	if s.Code == "" {
		return apperr.Validation("code is required")
	}
	if !s.Price.IsPositive() {
		return apperr.Validation("price must be greater than 0")
	}
	return nil
}

func (s *Service) CreateServiceItem(ctx context.Context, item *ServiceItem) error {
	if err := validateServiceItem(item); err != nil {
		return err
	}
	item.Active = true
	return s.services.Create(ctx, item)
}

func (s *Service) GetServiceItem(ctx context.Context, id uuid.UUID) (*ServiceItem, error) {
	return s.services.GetByID(ctx, id)
}

func (s *Service) UpdateServiceItem(ctx context.Context, item *ServiceItem) error {
	if err := validateServiceItem(item); err != nil {
		return err
	}
	return s.services.Update(ctx, item)
}

func (s *Service) DeleteServiceItem(ctx context.Context, id uuid.UUID) error {
	return s.services.Delete(ctx, id)
}

func (s *Service) ListServiceItems(ctx context.Context, activeOnly bool, limit, offset int) ([]*ServiceItem, int, error) {
	return s.services.List(ctx, activeOnly, limit, offset)
}

// -- Invoice --

// prepareLines checks every line and fills missing prices from the catalog
// or the product's sale price.
func (s *Service) prepareLines(ctx context.Context, lines []*Line) error {
	for _, l := range lines {
		if (l.ServiceID == nil) == (l.ProductID == nil) {
			return apperr.Validation("an invoice line needs exactly one of service_id or product_id")
		}
		if !l.Quantity.IsPositive() {
			return apperr.Validation("quantity must be greater than 0")
		}
		if l.PriceUnit.IsZero() {
			price, err := s.defaultPrice(ctx, l)
			if err != nil {
				return err
			}
			l.PriceUnit = price
		}
		if !l.PriceUnit.IsPositive() {
			return apperr.Validation("price_unit must be greater than 0")
		}
	}
	return nil
}

func (s *Service) defaultPrice(ctx context.Context, l *Line) (decimal.Decimal, error) {
	if l.ServiceID != nil {
		item, err := s.services.GetByID(ctx, *l.ServiceID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return decimal.Zero, apperr.Validation("unknown service %s", *l.ServiceID)
			}
			return decimal.Zero, err
		}
		return item.Price, nil
	}
	prices, err := s.pharmacy.UnitPrices(ctx, []uuid.UUID{*l.ProductID})
	if err != nil {
		if apperr.IsNotFound(err) {
			return decimal.Zero, apperr.Validation("unknown product %s", *l.ProductID)
		}
		return decimal.Zero, err
	}
	return prices[*l.ProductID], nil
}

// recompute evaluates coverage for today and refreshes every amount.
func (s *Service) recompute(ctx context.Context, inv *Invoice) error {
	covered, err := s.coverage.HasValidCoverage(ctx, inv.PatientID, clock.Date(s.now()))
	if err != nil {
		return err
	}
	inv.apply(ComputeTotals(inv.Lines, covered), covered)
	return nil
}

func (s *Service) CreateInvoice(ctx context.Context, inv *Invoice) error {
	if inv.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if inv.InvoiceDate.IsZero() {
		inv.InvoiceDate = clock.Date(s.now())
	}
	inv.State = StateDraft
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.prepareLines(ctx, inv.Lines); err != nil {
			return err
		}
		if err := s.recompute(ctx, inv); err != nil {
			return err
		}
		code, err := s.seq.Next(ctx, sequence.Invoice)
		if err != nil {
			return err
		}
		inv.Code = code
		if err := s.invoices.Create(ctx, inv); err != nil {
			return err
		}
		return s.invoices.ReplaceLines(ctx, inv.ID, inv.Lines)
	})
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Lines, err = s.invoices.ListLines(ctx, id); err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdateInvoice replaces header and lines and recomputes the amounts. A
// paid invoice is refused unless paid edits are allowed; then only the
// header changes and the amounts stay as paid.
func (s *Service) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	if inv.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.GetInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		inv.Code = current.Code
		inv.State = current.State
		inv.CreatedAt = current.CreatedAt
		if inv.InvoiceDate.IsZero() {
			inv.InvoiceDate = current.InvoiceDate
		}
		if current.State == StatePaid {
			if !s.opts.AllowPaidEdit {
				return apperr.User("cannot edit a paid invoice")
			}
			inv.PatientID = current.PatientID
			inv.Lines = current.Lines
			inv.apply(Totals{
				ServiceAmount:   current.ServiceAmount,
				MedicineAmount:  current.MedicineAmount,
				AmountTotal:     current.AmountTotal,
				InsuranceAmount: current.InsuranceAmount,
				PatientAmount:   current.PatientAmount,
			}, current.Covered)
			return s.invoices.Update(ctx, inv)
		}
		if err := s.prepareLines(ctx, inv.Lines); err != nil {
			return err
		}
		if err := s.recompute(ctx, inv); err != nil {
			return err
		}
		if err := s.invoices.Update(ctx, inv); err != nil {
			return err
		}
		return s.invoices.ReplaceLines(ctx, inv.ID, inv.Lines)
	})
}

func (s *Service) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if inv.State == StatePaid {
			return apperr.User("cannot delete a paid invoice")
		}
		return s.invoices.Delete(ctx, id)
	})
}

func (s *Service) ListInvoices(ctx context.Context, f ListFilter, limit, offset int) ([]*Invoice, int, error) {
	return s.invoices.List(ctx, f, limit, offset)
}

func stockAdjustments(lines []*Line, sign int64) []pharmacy.Adjustment {
	var adj []pharmacy.Adjustment
	for _, l := range lines {
		if l.IsProduct() {
			adj = append(adj, pharmacy.Adjustment{ProductID: *l.ProductID, Delta: l.Quantity.Mul(decimal.NewFromInt(sign))})
		}
	}
	return adj
}

// Apply moves the invoice through its states. Confirming recomputes the
// amounts. Paying takes every product line out of stock, all or nothing,
// and cancelling a paid invoice puts it back.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, action Action) (*Invoice, error) {
	var inv *Invoice
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		next, err := Next(inv.State, action)
		if err != nil {
			return err
		}
		switch {
		case action == ActionConfirm:
			if err := s.recompute(ctx, inv); err != nil {
				return err
			}
			if err := s.invoices.Update(ctx, inv); err != nil {
				return err
			}
			if err := s.invoices.ReplaceLines(ctx, inv.ID, inv.Lines); err != nil {
				return err
			}
		case action == ActionPay:
			if err := s.ledger.Apply(ctx, stockAdjustments(inv.Lines, -1)); err != nil {
				return err
			}
		case action == ActionCancel && inv.State == StatePaid:
			if err := s.ledger.Apply(ctx, stockAdjustments(inv.Lines, 1)); err != nil {
				return err
			}
		}
		inv.State = next
		return s.invoices.UpdateState(ctx, id, next)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// FromPrescription drafts an invoice billing every prescribed product at its
// sale price.
func (s *Service) FromPrescription(ctx context.Context, prescriptionID uuid.UUID) (*Invoice, error) {
	rx, err := s.pharmacy.GetPrescription(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rx.Lines))
	for _, l := range rx.Lines {
		ids = append(ids, l.ProductID)
	}
	prices, err := s.pharmacy.UnitPrices(ctx, ids)
	if err != nil {
		return nil, err
	}
	inv := &Invoice{PatientID: rx.PatientID, PrescriptionID: &rx.ID}
	for _, l := range rx.Lines {
		price := prices[l.ProductID]
		if !price.IsPositive() {
			return nil, apperr.Validation("product %s has no sale price", l.ProductID)
		}
		productID := l.ProductID
		inv.Lines = append(inv.Lines, &Line{ProductID: &productID, Quantity: l.Quantity, PriceUnit: price})
	}
	if err := s.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// -- Insurance claim --

// CreateClaim gathers the paid, insured invoices of the period. An empty
// period still produces a claim, with a warning.
func (s *Service) CreateClaim(ctx context.Context, c *Claim) error {
	if c.DateFrom.IsZero() || c.DateTo.IsZero() {
		return apperr.Validation("date_from and date_to are required")
	}
	if c.DateFrom.After(c.DateTo) {
		return apperr.Validation("date_from cannot be after date_to")
	}
	c.State = ClaimDraft
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		invoices, err := s.invoices.ListPaidInsured(ctx, c.DateFrom, c.DateTo)
		if err != nil {
			return err
		}
		c.BuildClaim(invoices)
		if len(c.Lines) == 0 {
			c.Warning = "no paid insured invoices in the period"
			zerolog.Ctx(ctx).Warn().
				Time("date_from", c.DateFrom).
				Time("date_to", c.DateTo).
				Msg("insurance claim has no invoices")
		}
		code, err := s.seq.Next(ctx, sequence.InsuranceClaim)
		if err != nil {
			return err
		}
		c.Code = code
		if err := s.claims.Create(ctx, c); err != nil {
			return err
		}
		return s.claims.ReplaceLines(ctx, c.ID, c.Lines)
	})
}

func (s *Service) GetClaim(ctx context.Context, id uuid.UUID) (*Claim, error) {
	c, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Lines, err = s.claims.ListLines(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListClaims(ctx context.Context, limit, offset int) ([]*Claim, int, error) {
	return s.claims.List(ctx, limit, offset)
}

func (s *Service) DeleteClaim(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := s.claims.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c.State == ClaimPaid {
			return apperr.User("cannot delete a paid claim")
		}
		return s.claims.Delete(ctx, id)
	})
}

func (s *Service) ApplyClaim(ctx context.Context, id uuid.UUID, action ClaimAction) (*Claim, error) {
	var c *Claim
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.GetClaim(ctx, id)
		if err != nil {
			return err
		}
		next, err := NextClaimState(c.State, action)
		if err != nil {
			return err
		}
		c.State = next
		return s.claims.UpdateState(ctx, id, next)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
