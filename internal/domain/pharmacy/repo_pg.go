package pharmacy

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

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

// -- Product Repository --

type productRepoPG struct{ pool *pgxpool.Pool }

func NewProductRepoPG(pool *pgxpool.Pool) ProductRepository { return &productRepoPG{pool: pool} }

func (r *productRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const productCols = `id, name, code, category, manufacturer, quantity, uom, purchase_price, unit_price,
	manufactured_at, expires_at, description, active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Code, &p.Category, &p.Manufacturer, &p.Quantity, &p.UOM, &p.PurchasePrice,
		&p.UnitPrice, &p.ManufacturedAt, &p.ExpiresAt, &p.Description, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "product")
	}
	p.ProfitMargin = ProfitMargin(p.PurchasePrice, p.UnitPrice)
	return &p, nil
}

func (r *productRepoPG) Create(ctx context.Context, p *Product) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO pharmacy_product (id, name, code, category, manufacturer, quantity, uom, purchase_price,
			unit_price, manufactured_at, expires_at, description, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Code, p.Category, p.Manufacturer, p.Quantity, p.UOM, p.PurchasePrice,
		p.UnitPrice, p.ManufacturedAt, p.ExpiresAt, p.Description, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, "product")
}

func (r *productRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return scanProduct(r.conn(ctx).QueryRow(ctx, `SELECT `+productCols+` FROM pharmacy_product WHERE id = $1`, id))
}

func (r *productRepoPG) Update(ctx context.Context, p *Product) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE pharmacy_product SET name=$2, code=$3, category=$4, manufacturer=$5, uom=$6, purchase_price=$7,
			unit_price=$8, manufactured_at=$9, expires_at=$10, description=$11, active=$12, updated_at=NOW()
		WHERE id = $1
		RETURNING quantity, created_at, updated_at`,
		p.ID, p.Name, p.Code, p.Category, p.Manufacturer, p.UOM, p.PurchasePrice,
		p.UnitPrice, p.ManufacturedAt, p.ExpiresAt, p.Description, p.Active,
	).Scan(&p.Quantity, &p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, "product")
}

func (r *productRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM pharmacy_product WHERE id = $1`, id)
	return db.MapError(err, "product")
}

func (r *productRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Product, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM pharmacy_product WHERE NOT $1 OR active`, activeOnly).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+productCols+` FROM pharmacy_product
		WHERE NOT $1 OR active ORDER BY name LIMIT $2 OFFSET $3`, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanProduct)
	return items, total, err
}

func (r *productRepoPG) LockQuantities(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, quantity FROM pharmacy_product WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]decimal.Decimal, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var q decimal.Decimal
		if err := rows.Scan(&id, &q); err != nil {
			return nil, err
		}
		out[id] = q
	}
	return out, rows.Err()
}

func (r *productRepoPG) SetQuantities(ctx context.Context, qty map[uuid.UUID]decimal.Decimal) error {
	batch := &pgx.Batch{}
	for id, q := range qty {
		batch.Queue(`UPDATE pharmacy_product SET quantity=$2, updated_at=NOW() WHERE id = $1`, id, q)
	}
	return sendBatch(ctx, r.conn(ctx), batch)
}

// sendBatch runs batch on the transaction or pool behind q.
func sendBatch(ctx context.Context, q db.Querier, batch *pgx.Batch) error {
	sender, ok := q.(interface {
		SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	})
	if !ok {
		for _, qq := range batch.QueuedQueries {
			if _, err := q.Exec(ctx, qq.SQL, qq.Arguments...); err != nil {
				return err
			}
		}
		return nil
	}
	return sender.SendBatch(ctx, batch).Close()
}

// -- StockMove Repository --

type stockMoveRepoPG struct{ pool *pgxpool.Pool }

func NewStockMoveRepoPG(pool *pgxpool.Pool) StockMoveRepository { return &stockMoveRepoPG{pool: pool} }

func (r *stockMoveRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const stockMoveCols = `id, product_id, move_type, quantity, date, note, created_at`

func scanStockMove(row pgx.Row) (*StockMove, error) {
	var m StockMove
	if err := row.Scan(&m.ID, &m.ProductID, &m.MoveType, &m.Quantity, &m.Date, &m.Note, &m.CreatedAt); err != nil {
		return nil, db.MapError(err, "stock move")
	}
	return &m, nil
}

func (r *stockMoveRepoPG) Create(ctx context.Context, m *StockMove) error {
	m.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO stock_move (id, product_id, move_type, quantity, date, note) VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		m.ID, m.ProductID, m.MoveType, m.Quantity, m.Date, m.Note).Scan(&m.CreatedAt)
	return db.MapError(err, "stock move")
}

func (r *stockMoveRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*StockMove, error) {
	return scanStockMove(r.conn(ctx).QueryRow(ctx, `SELECT `+stockMoveCols+` FROM stock_move WHERE id = $1`, id))
}

func (r *stockMoveRepoPG) List(ctx context.Context, productID *uuid.UUID, limit, offset int) ([]*StockMove, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_move WHERE $1::uuid IS NULL OR product_id = $1`, productID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+stockMoveCols+` FROM stock_move
		WHERE $1::uuid IS NULL OR product_id = $1
		ORDER BY date DESC, created_at DESC LIMIT $2 OFFSET $3`, productID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanStockMove)
	return items, total, err
}

// -- Prescription Repository --

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const prescriptionCols = `id, code, patient_id, staff_id, days, date, notes, created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.Code, &p.PatientID, &p.StaffID, &p.Days, &p.Date, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "prescription")
	}
	return &p, nil
}

const prescriptionLineCols = `id, order_id, product_id, quantity, dosage, instructions`

func scanPrescriptionLine(row pgx.Row) (*PrescriptionLine, error) {
	var l PrescriptionLine
	if err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.Dosage, &l.Instructions); err != nil {
		return nil, db.MapError(err, "prescription line")
	}
	return &l, nil
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription_order (id, code, patient_id, staff_id, days, date, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		p.ID, p.Code, p.PatientID, p.StaffID, p.Days, p.Date, p.Notes).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, "prescription")
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescription_order WHERE id = $1`, id))
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE prescription_order SET patient_id=$2, staff_id=$3, days=$4, date=$5, notes=$6, updated_at=NOW()
		WHERE id = $1
		RETURNING code, created_at, updated_at`,
		p.ID, p.PatientID, p.StaffID, p.Days, p.Date, p.Notes).Scan(&p.Code, &p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, "prescription")
}

func (r *prescriptionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescription_order WHERE id = $1`, id)
	return db.MapError(err, "prescription")
}

func (r *prescriptionRepoPG) List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM prescription_order WHERE $1::uuid IS NULL OR patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+prescriptionCols+` FROM prescription_order
		WHERE $1::uuid IS NULL OR patient_id = $1
		ORDER BY date DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanPrescription)
	return items, total, err
}

func (r *prescriptionRepoPG) AddLine(ctx context.Context, l *PrescriptionLine) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription_line (id, order_id, product_id, quantity, dosage, instructions)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		l.ID, l.OrderID, l.ProductID, l.Quantity, l.Dosage, l.Instructions)
	return db.MapError(err, "prescription line")
}

func (r *prescriptionRepoPG) GetLine(ctx context.Context, id uuid.UUID) (*PrescriptionLine, error) {
	return scanPrescriptionLine(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionLineCols+` FROM prescription_line WHERE id = $1`, id))
}

func (r *prescriptionRepoPG) UpdateLine(ctx context.Context, l *PrescriptionLine) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription_line SET product_id=$2, quantity=$3, dosage=$4, instructions=$5 WHERE id = $1`,
		l.ID, l.ProductID, l.Quantity, l.Dosage, l.Instructions)
	if err != nil {
		return db.MapError(err, "prescription line")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("prescription line not found")
	}
	return nil
}

func (r *prescriptionRepoPG) DeleteLine(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescription_line WHERE id = $1`, id)
	return err
}

func (r *prescriptionRepoPG) ListLines(ctx context.Context, orderID uuid.UUID) ([]*PrescriptionLine, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+prescriptionLineCols+` FROM prescription_line WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPrescriptionLine)
}

// -- Purchase Repository --

type purchaseRepoPG struct{ pool *pgxpool.Pool }

func NewPurchaseRepoPG(pool *pgxpool.Pool) PurchaseRepository { return &purchaseRepoPG{pool: pool} }

func (r *purchaseRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const purchaseCols = `id, code, date, supplier_name, state, note, amount_untaxed, amount_tax, amount_total,
	created_at, updated_at`

func scanPurchase(row pgx.Row) (*PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.Code, &po.Date, &po.SupplierName, &po.State, &po.Note,
		&po.AmountUntaxed, &po.AmountTax, &po.AmountTotal, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "purchase order")
	}
	return &po, nil
}

const purchaseLineCols = `id, order_id, product_id, quantity, price_unit, subtotal`

func scanPurchaseLine(row pgx.Row) (*PurchaseLine, error) {
	var l PurchaseLine
	if err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.PriceUnit, &l.Subtotal); err != nil {
		return nil, db.MapError(err, "purchase line")
	}
	return &l, nil
}

func (r *purchaseRepoPG) Create(ctx context.Context, po *PurchaseOrder) error {
	po.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO purchase_order (id, code, date, supplier_name, state, note, amount_untaxed, amount_tax, amount_total)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		po.ID, po.Code, po.Date, po.SupplierName, po.State, po.Note, po.AmountUntaxed, po.AmountTax, po.AmountTotal,
	).Scan(&po.CreatedAt, &po.UpdatedAt)
	return db.MapError(err, "purchase order")
}

func (r *purchaseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	return scanPurchase(r.conn(ctx).QueryRow(ctx, `SELECT `+purchaseCols+` FROM purchase_order WHERE id = $1`, id))
}

func (r *purchaseRepoPG) Update(ctx context.Context, po *PurchaseOrder) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE purchase_order SET date=$2, supplier_name=$3, note=$4, amount_untaxed=$5, amount_tax=$6,
			amount_total=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		po.ID, po.Date, po.SupplierName, po.Note, po.AmountUntaxed, po.AmountTax, po.AmountTotal).Scan(&po.UpdatedAt)
	return db.MapError(err, "purchase order")
}

func (r *purchaseRepoPG) UpdateState(ctx context.Context, id uuid.UUID, state PurchaseState) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE purchase_order SET state=$2, updated_at=NOW() WHERE id = $1`, id, state)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("purchase order not found")
	}
	return nil
}

func (r *purchaseRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM purchase_order WHERE id = $1`, id)
	return err
}

func (r *purchaseRepoPG) List(ctx context.Context, state PurchaseState, limit, offset int) ([]*PurchaseOrder, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM purchase_order WHERE $1 = '' OR state = $1`, string(state)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+purchaseCols+` FROM purchase_order
		WHERE $1 = '' OR state = $1
		ORDER BY date DESC, code DESC LIMIT $2 OFFSET $3`, string(state), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanPurchase)
	return items, total, err
}

func (r *purchaseRepoPG) ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []*PurchaseLine) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM purchase_order_line WHERE order_id = $1`, orderID); err != nil {
		return err
	}
	for _, l := range lines {
		l.ID = uuid.New()
		l.OrderID = orderID
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO purchase_order_line (id, order_id, product_id, quantity, price_unit, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			l.ID, l.OrderID, l.ProductID, l.Quantity, l.PriceUnit, l.Subtotal)
		if err != nil {
			return db.MapError(err, "purchase line")
		}
	}
	return nil
}

func (r *purchaseRepoPG) ListLines(ctx context.Context, orderID uuid.UUID) ([]*PurchaseLine, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+purchaseLineCols+` FROM purchase_order_line WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPurchaseLine)
}
