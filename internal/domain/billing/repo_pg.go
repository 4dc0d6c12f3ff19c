package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/db"
)

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()
	var items []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// -- ServiceItem Repository --

type serviceItemRepoPG struct{ pool *pgxpool.Pool }

func NewServiceItemRepoPG(pool *pgxpool.Pool) ServiceItemRepository {
	return &serviceItemRepoPG{pool: pool}
}

func (r *serviceItemRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const serviceItemCols = `id, name, code, price, description, active, created_at, updated_at`

func scanServiceItem(row pgx.Row) (*ServiceItem, error) {
	var s ServiceItem
	if err := row.Scan(&s.ID, &s.Name, &s.Code, &s.Price, &s.Description, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, db.MapError(err, "service")
	}
	return &s, nil
}

func (r *serviceItemRepoPG) Create(ctx context.Context, s *ServiceItem) error {
	s.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clinic_service (id, name, code, price, description, active)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Code, s.Price, s.Description, s.Active).Scan(&s.CreatedAt, &s.UpdatedAt)
	return db.MapError(err, "service")
}

func (r *serviceItemRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ServiceItem, error) {
	return scanServiceItem(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceItemCols+` FROM clinic_service WHERE id = $1`, id))
}

func (r *serviceItemRepoPG) Update(ctx context.Context, s *ServiceItem) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE clinic_service SET name=$2, code=$3, price=$4, description=$5, active=$6, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Code, s.Price, s.Description, s.Active).Scan(&s.CreatedAt, &s.UpdatedAt)
	return db.MapError(err, "service")
}

func (r *serviceItemRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM clinic_service WHERE id = $1`, id)
	return db.MapError(err, "service")
}

func (r *serviceItemRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*ServiceItem, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM clinic_service WHERE NOT $1 OR active`, activeOnly).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+serviceItemCols+` FROM clinic_service
		WHERE NOT $1 OR active ORDER BY name LIMIT $2 OFFSET $3`, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanServiceItem)
	return items, total, err
}

// -- Invoice Repository --

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

func (r *invoiceRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const invoiceCols = `id, code, patient_id, prescription_id, invoice_date, state, note, covered,
	service_amount, medicine_amount, amount_total, insurance_amount, patient_amount, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Code, &inv.PatientID, &inv.PrescriptionID, &inv.InvoiceDate, &inv.State, &inv.Note,
		&inv.Covered, &inv.ServiceAmount, &inv.MedicineAmount, &inv.AmountTotal, &inv.InsuranceAmount,
		&inv.PatientAmount, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "invoice")
	}
	return &inv, nil
}

const lineCols = `id, invoice_id, service_id, product_id, description, quantity, price_unit, subtotal,
	insurance_amount, patient_amount`

func scanLine(row pgx.Row) (*Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.InvoiceID, &l.ServiceID, &l.ProductID, &l.Description, &l.Quantity, &l.PriceUnit,
		&l.Subtotal, &l.InsuranceAmount, &l.PatientAmount)
	if err != nil {
		return nil, db.MapError(err, "invoice line")
	}
	return &l, nil
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invoice (id, code, patient_id, prescription_id, invoice_date, state, note, covered,
			service_amount, medicine_amount, amount_total, insurance_amount, patient_amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		inv.ID, inv.Code, inv.PatientID, inv.PrescriptionID, inv.InvoiceDate, inv.State, inv.Note, inv.Covered,
		inv.ServiceAmount, inv.MedicineAmount, inv.AmountTotal, inv.InsuranceAmount, inv.PatientAmount,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	return db.MapError(err, "invoice")
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(r.conn(ctx).QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoice WHERE id = $1`, id))
}

func (r *invoiceRepoPG) Update(ctx context.Context, inv *Invoice) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE invoice SET patient_id=$2, prescription_id=$3, invoice_date=$4, note=$5, covered=$6,
			service_amount=$7, medicine_amount=$8, amount_total=$9, insurance_amount=$10, patient_amount=$11,
			updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		inv.ID, inv.PatientID, inv.PrescriptionID, inv.InvoiceDate, inv.Note, inv.Covered,
		inv.ServiceAmount, inv.MedicineAmount, inv.AmountTotal, inv.InsuranceAmount, inv.PatientAmount,
	).Scan(&inv.UpdatedAt)
	return db.MapError(err, "invoice")
}

func (r *invoiceRepoPG) UpdateState(ctx context.Context, id uuid.UUID, state State) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE invoice SET state=$2, updated_at=NOW() WHERE id = $1`, id, state)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("invoice not found")
	}
	return nil
}

func (r *invoiceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM invoice WHERE id = $1`, id)
	return db.MapError(err, "invoice")
}

func (r *invoiceRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Invoice, int, error) {
	where := []string{"1=1"}
	var args []interface{}
	idx := 1
	if f.PatientID != nil {
		where = append(where, fmt.Sprintf("patient_id = $%d", idx))
		args = append(args, *f.PatientID)
		idx++
	}
	if f.State != "" {
		where = append(where, fmt.Sprintf("state = $%d", idx))
		args = append(args, f.State)
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoice WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT `+invoiceCols+` FROM invoice WHERE %s
		ORDER BY invoice_date DESC, code DESC LIMIT $%d OFFSET $%d`, cond, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanInvoice)
	return items, total, err
}

func (r *invoiceRepoPG) ReplaceLines(ctx context.Context, invoiceID uuid.UUID, lines []*Line) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM invoice_line WHERE invoice_id = $1`, invoiceID); err != nil {
		return err
	}
	for _, l := range lines {
		l.ID = uuid.New()
		l.InvoiceID = invoiceID
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO invoice_line (id, invoice_id, service_id, product_id, description, quantity, price_unit,
				subtotal, insurance_amount, patient_amount)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			l.ID, l.InvoiceID, l.ServiceID, l.ProductID, l.Description, l.Quantity, l.PriceUnit,
			l.Subtotal, l.InsuranceAmount, l.PatientAmount)
		if err != nil {
			return db.MapError(err, "invoice line")
		}
	}
	return nil
}

func (r *invoiceRepoPG) ListLines(ctx context.Context, invoiceID uuid.UUID) ([]*Line, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+lineCols+` FROM invoice_line WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanLine)
}

func (r *invoiceRepoPG) ListPaidInsured(ctx context.Context, from, to time.Time) ([]*Invoice, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+invoiceCols+` FROM invoice
		WHERE state = 'paid' AND insurance_amount > 0 AND invoice_date BETWEEN $1 AND $2
		ORDER BY invoice_date, code`, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanInvoice)
}

// -- Claim Repository --

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

func (r *claimRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const claimCols = `id, code, date_from, date_to, state, note, total_service, total_medicine, total_insurance,
	created_at, updated_at`

func scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.Code, &c.DateFrom, &c.DateTo, &c.State, &c.Note,
		&c.TotalService, &c.TotalMedicine, &c.TotalInsurance, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "insurance claim")
	}
	return &c, nil
}

const claimLineCols = `id, claim_id, invoice_id, patient_id, invoice_date, service_amount, medicine_amount,
	insurance_amount`

func scanClaimLine(row pgx.Row) (*ClaimLine, error) {
	var l ClaimLine
	err := row.Scan(&l.ID, &l.ClaimID, &l.InvoiceID, &l.PatientID, &l.InvoiceDate,
		&l.ServiceAmount, &l.MedicineAmount, &l.InsuranceAmount)
	if err != nil {
		return nil, db.MapError(err, "insurance claim line")
	}
	return &l, nil
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	c.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO insurance_claim (id, code, date_from, date_to, state, note, total_service, total_medicine,
			total_insurance)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		c.ID, c.Code, c.DateFrom, c.DateTo, c.State, c.Note, c.TotalService, c.TotalMedicine, c.TotalInsurance,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return db.MapError(err, "insurance claim")
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM insurance_claim WHERE id = $1`, id))
}

func (r *claimRepoPG) UpdateState(ctx context.Context, id uuid.UUID, state ClaimState) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE insurance_claim SET state=$2, updated_at=NOW() WHERE id = $1`, id, state)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("insurance claim not found")
	}
	return nil
}

func (r *claimRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM insurance_claim WHERE id = $1`, id)
	return err
}

func (r *claimRepoPG) List(ctx context.Context, limit, offset int) ([]*Claim, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM insurance_claim`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+claimCols+` FROM insurance_claim
		ORDER BY date_to DESC, code DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanClaim)
	return items, total, err
}

func (r *claimRepoPG) ReplaceLines(ctx context.Context, claimID uuid.UUID, lines []*ClaimLine) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM insurance_claim_line WHERE claim_id = $1`, claimID); err != nil {
		return err
	}
	for _, l := range lines {
		l.ID = uuid.New()
		l.ClaimID = claimID
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO insurance_claim_line (id, claim_id, invoice_id, patient_id, invoice_date, service_amount,
				medicine_amount, insurance_amount)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			l.ID, l.ClaimID, l.InvoiceID, l.PatientID, l.InvoiceDate, l.ServiceAmount, l.MedicineAmount,
			l.InsuranceAmount)
		if err != nil {
			return db.MapError(err, "insurance claim line")
		}
	}
	return nil
}

func (r *claimRepoPG) ListLines(ctx context.Context, claimID uuid.UUID) ([]*ClaimLine, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+claimLineCols+` FROM insurance_claim_line WHERE claim_id = $1 ORDER BY invoice_date, id`, claimID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanClaimLine)
}
