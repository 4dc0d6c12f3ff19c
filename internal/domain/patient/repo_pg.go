package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/db"
)

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const patientCols = `id, name, date_of_birth, gender, phone, address, patient_type, state,
	last_activity_at, note, insurance_policy_id, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Address, &p.PatientType, &p.State,
		&p.LastActivityAt, &p.Note, &p.InsurancePolicyID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "patient")
	}
	return &p, nil
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient not found")
	}
	return nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, name, date_of_birth, gender, phone, address, patient_type, state,
			last_activity_at, note, insurance_policy_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.DateOfBirth, p.Gender, p.Phone, p.Address, p.PatientType, p.State,
		p.LastActivityAt, p.Note, p.InsurancePolicyID).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, "patient")
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET name=$2, date_of_birth=$3, gender=$4, phone=$5, address=$6,
			patient_type=$7, note=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.DateOfBirth, p.Gender, p.Phone, p.Address, p.PatientType, p.Note).Scan(&p.UpdatedAt)
	return db.MapError(err, "patient")
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return err
}

func (r *patientRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	var where []string
	var args []interface{}
	idx := 1
	if f.State != "" {
		where = append(where, fmt.Sprintf("state = $%d", idx))
		args = append(args, f.State)
		idx++
	}
	if f.Type != "" {
		where = append(where, fmt.Sprintf("patient_type = $%d", idx))
		args = append(args, f.Type)
		idx++
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT `+patientCols+` FROM patient%s ORDER BY name, id LIMIT $%d OFFSET $%d`, clause, idx, idx+1)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) SetState(ctx context.Context, id uuid.UUID, state State, note string) error {
	return affected(r.conn(ctx).Exec(ctx,
		`UPDATE patient SET state=$2, note=$3, updated_at=NOW() WHERE id = $1`, id, state, note))
}

func (r *patientRepoPG) SetInsurance(ctx context.Context, id, policyID uuid.UUID) error {
	return affected(r.conn(ctx).Exec(ctx,
		`UPDATE patient SET insurance_policy_id=$2, updated_at=NOW() WHERE id = $1`, id, policyID))
}

func (r *patientRepoPG) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return affected(r.conn(ctx).Exec(ctx,
		`UPDATE patient SET last_activity_at=$2, updated_at=NOW() WHERE id = $1`, id, at))
}

func (r *patientRepoPG) ListInactiveOutpatients(ctx context.Context, cutoff time.Time) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient
		WHERE patient_type = $1 AND state = $2 AND last_activity_at <= $3
		ORDER BY last_activity_at`, TypeOutpatient, StateUnderTreatment, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
