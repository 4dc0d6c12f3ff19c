package certification

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

type certificationRepoPG struct{ pool *pgxpool.Pool }

func NewCertificationRepoPG(pool *pgxpool.Pool) CertificationRepository {
	return &certificationRepoPG{pool: pool}
}

func (r *certificationRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const certificationCols = `id, name, number, type, issue_date, expiry_date, authority, description, document_key,
	state, responsible_email, department, renewal_date, renewal_reminder, reminder_days, reminded_for, active,
	created_at, updated_at`

func scanCertification(row pgx.Row) (*Certification, error) {
	var c Certification
	err := row.Scan(&c.ID, &c.Name, &c.Number, &c.Type, &c.IssueDate, &c.ExpiryDate, &c.Authority, &c.Description,
		&c.DocumentKey, &c.State, &c.ResponsibleEmail, &c.Department, &c.RenewalDate, &c.RenewalReminder,
		&c.ReminderDays, &c.RemindedFor, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "certification")
	}
	return &c, nil
}

func (r *certificationRepoPG) Create(ctx context.Context, c *Certification) error {
	c.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO certification (id, name, number, type, issue_date, expiry_date, authority, description,
			document_key, state, responsible_email, department, renewal_date, renewal_reminder, reminder_days,
			reminded_for, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Number, c.Type, c.IssueDate, c.ExpiryDate, c.Authority, c.Description,
		c.DocumentKey, c.State, c.ResponsibleEmail, c.Department, c.RenewalDate, c.RenewalReminder, c.ReminderDays,
		c.RemindedFor, c.Active,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return db.MapError(err, "certification")
}

func (r *certificationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Certification, error) {
	return scanCertification(r.conn(ctx).QueryRow(ctx, `SELECT `+certificationCols+` FROM certification WHERE id = $1`, id))
}

func (r *certificationRepoPG) Update(ctx context.Context, c *Certification) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE certification SET name=$2, number=$3, type=$4, issue_date=$5, expiry_date=$6, authority=$7,
			description=$8, responsible_email=$9, department=$10, renewal_date=$11, renewal_reminder=$12,
			reminder_days=$13, active=$14, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.Number, c.Type, c.IssueDate, c.ExpiryDate, c.Authority, c.Description,
		c.ResponsibleEmail, c.Department, c.RenewalDate, c.RenewalReminder, c.ReminderDays, c.Active,
	).Scan(&c.UpdatedAt)
	return db.MapError(err, "certification")
}

func (r *certificationRepoPG) UpdateState(ctx context.Context, id uuid.UUID, state State) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE certification SET state=$2, updated_at=NOW() WHERE id = $1`, id, state)
	return affected(tag, err, "certification")
}

func (r *certificationRepoPG) Renew(ctx context.Context, id uuid.UUID, expiry time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE certification SET expiry_date=$2, renewal_date=$2, state=$3, reminded_for=NULL, updated_at=NOW()
		WHERE id = $1`, id, expiry, StateValid)
	return affected(tag, err, "certification")
}

func (r *certificationRepoPG) MarkReminded(ctx context.Context, id uuid.UUID, expiry time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE certification SET reminded_for=$2 WHERE id = $1`, id, expiry)
	return affected(tag, err, "certification")
}

func (r *certificationRepoPG) SetDocument(ctx context.Context, id uuid.UUID, key *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE certification SET document_key=$2, updated_at=NOW() WHERE id = $1`, id, key)
	return affected(tag, err, "certification")
}

func (r *certificationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM certification WHERE id = $1`, id)
	return err
}

func (r *certificationRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Certification, int, error) {
	var where []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.State != "" {
		add("state = $%d", f.State)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.ActiveOnly {
		where = append(where, "active")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM certification`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT `+certificationCols+` FROM certification%s ORDER BY expiry_date LIMIT $%d OFFSET $%d`,
		clause, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanCertification)
	return items, total, err
}

func (r *certificationRepoPG) ListForSweep(ctx context.Context) ([]*Certification, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+certificationCols+` FROM certification
		WHERE active AND state <> 'expired' ORDER BY expiry_date`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCertification)
}

type inspectionRepoPG struct{ pool *pgxpool.Pool }

func NewInspectionRepoPG(pool *pgxpool.Pool) InspectionRepository {
	return &inspectionRepoPG{pool: pool}
}

func (r *inspectionRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const inspectionCols = `id, name, certification_id, date, planned_date, inspector, result, notes, findings,
	recommendations, document_key, corrective_action_required, corrective_action, corrective_deadline,
	corrective_completed, state, created_at, updated_at`

func scanInspection(row pgx.Row) (*Inspection, error) {
	var i Inspection
	err := row.Scan(&i.ID, &i.Name, &i.CertificationID, &i.Date, &i.PlannedDate, &i.Inspector, &i.Result, &i.Notes,
		&i.Findings, &i.Recommendations, &i.DocumentKey, &i.CorrectiveActionRequired, &i.CorrectiveAction,
		&i.CorrectiveDeadline, &i.CorrectiveCompleted, &i.State, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "inspection")
	}
	return &i, nil
}

func (r *inspectionRepoPG) Create(ctx context.Context, i *Inspection) error {
	i.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO inspection (id, name, certification_id, date, planned_date, inspector, result, notes, findings,
			recommendations, document_key, corrective_action_required, corrective_action, corrective_deadline,
			corrective_completed, state)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING created_at, updated_at`,
		i.ID, i.Name, i.CertificationID, i.Date, i.PlannedDate, i.Inspector, i.Result, i.Notes, i.Findings,
		i.Recommendations, i.DocumentKey, i.CorrectiveActionRequired, i.CorrectiveAction, i.CorrectiveDeadline,
		i.CorrectiveCompleted, i.State,
	).Scan(&i.CreatedAt, &i.UpdatedAt)
	return db.MapError(err, "inspection")
}

func (r *inspectionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Inspection, error) {
	return scanInspection(r.conn(ctx).QueryRow(ctx, `SELECT `+inspectionCols+` FROM inspection WHERE id = $1`, id))
}

func (r *inspectionRepoPG) Update(ctx context.Context, i *Inspection) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE inspection SET name=$2, certification_id=$3, date=$4, planned_date=$5, inspector=$6, result=$7,
			notes=$8, findings=$9, recommendations=$10, corrective_action_required=$11, corrective_action=$12,
			corrective_deadline=$13, corrective_completed=$14, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		i.ID, i.Name, i.CertificationID, i.Date, i.PlannedDate, i.Inspector, i.Result, i.Notes, i.Findings,
		i.Recommendations, i.CorrectiveActionRequired, i.CorrectiveAction, i.CorrectiveDeadline,
		i.CorrectiveCompleted,
	).Scan(&i.UpdatedAt)
	return db.MapError(err, "inspection")
}

func (r *inspectionRepoPG) UpdateState(ctx context.Context, id uuid.UUID, state InspectionState) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE inspection SET state=$2, updated_at=NOW() WHERE id = $1`, id, state)
	return affected(tag, err, "inspection")
}

func (r *inspectionRepoPG) SetDocument(ctx context.Context, id uuid.UUID, key *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE inspection SET document_key=$2, updated_at=NOW() WHERE id = $1`, id, key)
	return affected(tag, err, "inspection")
}

func (r *inspectionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM inspection WHERE id = $1`, id)
	return err
}

func (r *inspectionRepoPG) List(ctx context.Context, certificationID *uuid.UUID, limit, offset int) ([]*Inspection, int, error) {
	clause := ""
	var args []interface{}
	if certificationID != nil {
		clause = " WHERE certification_id = $1"
		args = append(args, *certificationID)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM inspection`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT `+inspectionCols+` FROM inspection%s ORDER BY date DESC LIMIT $%d OFFSET $%d`,
		clause, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanInspection)
	return items, total, err
}
