package compliance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/db"
)

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	var items []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func affected(tag pgconn.CommandTag, err error, entity string) error {
	if err != nil {
		return db.MapError(err, entity)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("%s not found", entity)
	}
	return nil
}

// -- Regulation --

type regulationRepoPG struct{ pool *pgxpool.Pool }

func NewRegulationRepoPG(pool *pgxpool.Pool) RegulationRepository {
	return &regulationRepoPG{pool: pool}
}

func (r *regulationRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const regulationCols = `id, name, code, description, issue_date, effective_date, authority, scope, active,
	created_at, updated_at`

func scanRegulation(row pgx.Row) (*Regulation, error) {
	var g Regulation
	err := row.Scan(&g.ID, &g.Name, &g.Code, &g.Description, &g.IssueDate, &g.EffectiveDate, &g.Authority, &g.Scope,
		&g.Active, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "regulation")
	}
	return &g, nil
}

func (r *regulationRepoPG) Create(ctx context.Context, g *Regulation) error {
	g.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO health_regulation (id, name, code, description, issue_date, effective_date, authority, scope, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		g.ID, g.Name, g.Code, g.Description, g.IssueDate, g.EffectiveDate, g.Authority, g.Scope, g.Active,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	return db.MapError(err, "regulation")
}

func (r *regulationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Regulation, error) {
	return scanRegulation(r.conn(ctx).QueryRow(ctx, `SELECT `+regulationCols+` FROM health_regulation WHERE id = $1`, id))
}

func (r *regulationRepoPG) Update(ctx context.Context, g *Regulation) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE health_regulation SET name=$2, code=$3, description=$4, issue_date=$5, effective_date=$6,
			authority=$7, scope=$8, active=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		g.ID, g.Name, g.Code, g.Description, g.IssueDate, g.EffectiveDate, g.Authority, g.Scope, g.Active,
	).Scan(&g.UpdatedAt)
	return db.MapError(err, "regulation")
}

func (r *regulationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM health_regulation WHERE id = $1`, id)
	return db.MapError(err, "regulation")
}

func (r *regulationRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Regulation, int, error) {
	clause := ""
	if activeOnly {
		clause = " WHERE active"
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM health_regulation`+clause).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+regulationCols+` FROM health_regulation`+clause+
		` ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanRegulation)
	return items, total, err
}

// -- Assessment --

type assessmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssessmentRepoPG(pool *pgxpool.Pool) AssessmentRepository {
	return &assessmentRepoPG{pool: pool}
}

func (r *assessmentRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const assessmentCols = `id, name, regulation_id, department, date_assessment, next_assessment, state, notes,
	created_at, updated_at`

func scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	err := row.Scan(&a.ID, &a.Name, &a.RegulationID, &a.Department, &a.DateAssessment, &a.NextAssessment, &a.State,
		&a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "assessment")
	}
	return &a, nil
}

func (r *assessmentRepoPG) Create(ctx context.Context, a *Assessment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO compliance_assessment (id, name, regulation_id, department, date_assessment, next_assessment,
			state, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		a.ID, a.Name, a.RegulationID, a.Department, a.DateAssessment, a.NextAssessment, a.State, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return db.MapError(err, "assessment")
}

func (r *assessmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return scanAssessment(r.conn(ctx).QueryRow(ctx, `SELECT `+assessmentCols+` FROM compliance_assessment WHERE id = $1`, id))
}

func (r *assessmentRepoPG) Update(ctx context.Context, a *Assessment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE compliance_assessment SET name=$2, regulation_id=$3, department=$4, date_assessment=$5,
			next_assessment=$6, notes=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.Name, a.RegulationID, a.Department, a.DateAssessment, a.NextAssessment, a.Notes,
	).Scan(&a.UpdatedAt)
	return db.MapError(err, "assessment")
}

func (r *assessmentRepoPG) UpdateState(ctx context.Context, id uuid.UUID, state State) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE compliance_assessment SET state=$2, updated_at=NOW() WHERE id = $1`, id, state)
	return affected(tag, err, "assessment")
}

func (r *assessmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM compliance_assessment WHERE id = $1`, id)
	return err
}

func (r *assessmentRepoPG) List(ctx context.Context, regulationID *uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	clause := ""
	var args []interface{}
	if regulationID != nil {
		clause = " WHERE regulation_id = $1"
		args = append(args, *regulationID)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM compliance_assessment`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT `+assessmentCols+` FROM compliance_assessment%s ORDER BY date_assessment DESC LIMIT $%d OFFSET $%d`,
		clause, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanAssessment)
	return items, total, err
}

// -- Corrective action --

type actionRepoPG struct{ pool *pgxpool.Pool }

func NewActionRepoPG(pool *pgxpool.Pool) ActionRepository { return &actionRepoPG{pool: pool} }

func (r *actionRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const actionCols = `id, assessment_id, name, description, deadline, state, completion_date, notes, created_at, updated_at`

func scanAction(row pgx.Row) (*CorrectiveAction, error) {
	var a CorrectiveAction
	err := row.Scan(&a.ID, &a.AssessmentID, &a.Name, &a.Description, &a.Deadline, &a.State, &a.CompletionDate,
		&a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "corrective action")
	}
	return &a, nil
}

func (r *actionRepoPG) Create(ctx context.Context, a *CorrectiveAction) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO compliance_action (id, assessment_id, name, description, deadline, state, completion_date, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		a.ID, a.AssessmentID, a.Name, a.Description, a.Deadline, a.State, a.CompletionDate, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return db.MapError(err, "corrective action")
}

func (r *actionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CorrectiveAction, error) {
	return scanAction(r.conn(ctx).QueryRow(ctx, `SELECT `+actionCols+` FROM compliance_action WHERE id = $1`, id))
}

func (r *actionRepoPG) Update(ctx context.Context, a *CorrectiveAction) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE compliance_action SET name=$2, description=$3, deadline=$4, notes=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.Name, a.Description, a.Deadline, a.Notes,
	).Scan(&a.UpdatedAt)
	return db.MapError(err, "corrective action")
}

func (r *actionRepoPG) UpdateState(ctx context.Context, a *CorrectiveAction) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE compliance_action SET state=$2, completion_date=$3, updated_at=NOW() WHERE id = $1`,
		a.ID, a.State, a.CompletionDate)
	return affected(tag, err, "corrective action")
}

func (r *actionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM compliance_action WHERE id = $1`, id)
	return err
}

func (r *actionRepoPG) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]*CorrectiveAction, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+actionCols+` FROM compliance_action
		WHERE assessment_id = $1 ORDER BY deadline NULLS LAST, created_at`, assessmentID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAction)
}
