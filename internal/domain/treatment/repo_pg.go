package treatment

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinic/internal/platform/db"
)

// -- Plan Repository --

type planRepoPG struct{ pool *pgxpool.Pool }

func NewPlanRepoPG(pool *pgxpool.Pool) PlanRepository { return &planRepoPG{pool: pool} }

func (r *planRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const planCols = `id, code, patient_id, start_date, end_date, created_at, updated_at`

func scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	if err := row.Scan(&p.ID, &p.Code, &p.PatientID, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, db.MapError(err, "treatment plan")
	}
	return &p, nil
}

func (r *planRepoPG) Create(ctx context.Context, p *Plan) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment_plan (id, code, patient_id, start_date, end_date) VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		p.ID, p.Code, p.PatientID, p.StartDate, p.EndDate).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, "treatment plan")
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return scanPlan(r.conn(ctx).QueryRow(ctx, `SELECT `+planCols+` FROM treatment_plan WHERE id = $1`, id))
}

func (r *planRepoPG) Update(ctx context.Context, p *Plan) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE treatment_plan SET patient_id=$2, start_date=$3, end_date=$4, updated_at=NOW()
		WHERE id = $1
		RETURNING code, created_at, updated_at`,
		p.ID, p.PatientID, p.StartDate, p.EndDate).Scan(&p.Code, &p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, "treatment plan")
}

func (r *planRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment_plan WHERE id = $1`, id)
	return err
}

func (r *planRepoPG) List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*Plan, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM treatment_plan WHERE $1::uuid IS NULL OR patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+planCols+` FROM treatment_plan
		WHERE $1::uuid IS NULL OR patient_id = $1
		ORDER BY start_date DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// -- Process Repository --

type processRepoPG struct{ pool *pgxpool.Pool }

func NewProcessRepoPG(pool *pgxpool.Pool) ProcessRepository { return &processRepoPG{pool: pool} }

func (r *processRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const processCols = `id, code, plan_id, sequence, name, executor_id, state, execution_time, prescription_id,
	created_at, updated_at`

func scanProcess(row pgx.Row) (*Process, error) {
	var p Process
	err := row.Scan(&p.ID, &p.Code, &p.PlanID, &p.Sequence, &p.Name, &p.ExecutorID, &p.State, &p.ExecutionTime,
		&p.PrescriptionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "treatment process")
	}
	return &p, nil
}

func (r *processRepoPG) Create(ctx context.Context, p *Process) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment_process (id, code, plan_id, sequence, name, executor_id, state, execution_time, prescription_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.Code, p.PlanID, p.Sequence, p.Name, p.ExecutorID, p.State, p.ExecutionTime, p.PrescriptionID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, "treatment process")
}

func (r *processRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Process, error) {
	return scanProcess(r.conn(ctx).QueryRow(ctx, `SELECT `+processCols+` FROM treatment_process WHERE id = $1`, id))
}

func (r *processRepoPG) Update(ctx context.Context, p *Process) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE treatment_process SET sequence=$2, name=$3, executor_id=$4, state=$5, execution_time=$6,
			prescription_id=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Sequence, p.Name, p.ExecutorID, p.State, p.ExecutionTime, p.PrescriptionID).Scan(&p.UpdatedAt)
	return db.MapError(err, "treatment process")
}

func (r *processRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment_process WHERE id = $1`, id)
	return err
}

func (r *processRepoPG) DeleteByPlan(ctx context.Context, planID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment_process WHERE plan_id = $1`, planID)
	return err
}

func (r *processRepoPG) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*Process, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+processCols+` FROM treatment_process
		WHERE plan_id = $1 ORDER BY sequence, created_at`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Process
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
