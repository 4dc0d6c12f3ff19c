package insurance

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinic/internal/platform/db"
)

type policyRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &policyRepoPG{pool: pool} }

func (r *policyRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const policyCols = `id, patient_id, number, initial_facility, tier, expiry_date, created_at, updated_at`

func scanPolicy(row pgx.Row) (*Policy, error) {
	var p Policy
	err := row.Scan(&p.ID, &p.PatientID, &p.Number, &p.InitialFacility, &p.Tier, &p.ExpiryDate,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "insurance policy")
	}
	return &p, nil
}

func (r *policyRepoPG) Create(ctx context.Context, p *Policy) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO insurance_policy (id, patient_id, number, initial_facility, tier, expiry_date)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		p.ID, p.PatientID, p.Number, p.InitialFacility, p.Tier, p.ExpiryDate).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, "insurance policy")
}

func (r *policyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Policy, error) {
	return scanPolicy(r.conn(ctx).QueryRow(ctx, `SELECT `+policyCols+` FROM insurance_policy WHERE id = $1`, id))
}

func (r *policyRepoPG) GetByNumber(ctx context.Context, number string) (*Policy, error) {
	return scanPolicy(r.conn(ctx).QueryRow(ctx, `SELECT `+policyCols+` FROM insurance_policy WHERE number = $1`, number))
}

func (r *policyRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*Policy, error) {
	return scanPolicy(r.conn(ctx).QueryRow(ctx,
		`SELECT `+policyCols+` FROM insurance_policy WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`, patientID))
}

func (r *policyRepoPG) Update(ctx context.Context, p *Policy) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE insurance_policy SET number=$2, initial_facility=$3, tier=$4, expiry_date=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Number, p.InitialFacility, p.Tier, p.ExpiryDate).Scan(&p.UpdatedAt)
	return db.MapError(err, "insurance policy")
}

func (r *policyRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM insurance_policy WHERE id = $1`, id)
	return err
}

func (r *policyRepoPG) List(ctx context.Context, limit, offset int) ([]*Policy, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM insurance_policy`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+policyCols+` FROM insurance_policy ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
