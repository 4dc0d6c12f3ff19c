package feedback

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

type feedbackRepoPG struct{ pool *pgxpool.Pool }

func NewFeedbackRepoPG(pool *pgxpool.Pool) FeedbackRepository { return &feedbackRepoPG{pool: pool} }

func (r *feedbackRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const feedbackCols = `id, code, patient_id, department, feedback_date, feedback_type, description, state,
	user_id, satisfaction_rating, complaint_id, created_at, updated_at`

func scanFeedback(row pgx.Row) (*Feedback, error) {
	var f Feedback
	err := row.Scan(&f.ID, &f.Code, &f.PatientID, &f.Department, &f.FeedbackDate, &f.FeedbackType, &f.Description,
		&f.State, &f.UserID, &f.SatisfactionRating, &f.ComplaintID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "feedback")
	}
	return &f, nil
}

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

// filter accumulates numbered WHERE conditions.
type filter struct {
	where []string
	args  []interface{}
}

func (f *filter) add(cond string, v interface{}) {
	f.args = append(f.args, v)
	f.where = append(f.where, fmt.Sprintf(cond, len(f.args)))
}

func (f *filter) clause() string {
	if len(f.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.where, " AND ")
}

func (r *feedbackRepoPG) Create(ctx context.Context, f *Feedback) error {
	f.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_feedback (id, code, patient_id, department, feedback_date, feedback_type, description,
			state, user_id, satisfaction_rating, complaint_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		f.ID, f.Code, f.PatientID, f.Department, f.FeedbackDate, f.FeedbackType, f.Description,
		f.State, f.UserID, f.SatisfactionRating, f.ComplaintID,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	return db.MapError(err, "feedback")
}

func (r *feedbackRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Feedback, error) {
	return scanFeedback(r.conn(ctx).QueryRow(ctx, `SELECT `+feedbackCols+` FROM patient_feedback WHERE id = $1`, id))
}

func (r *feedbackRepoPG) Update(ctx context.Context, f *Feedback) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient_feedback SET patient_id=$2, department=$3, feedback_date=$4, feedback_type=$5,
			description=$6, user_id=$7, satisfaction_rating=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		f.ID, f.PatientID, f.Department, f.FeedbackDate, f.FeedbackType, f.Description, f.UserID,
		f.SatisfactionRating).Scan(&f.UpdatedAt)
	return db.MapError(err, "feedback")
}

func (r *feedbackRepoPG) exec(ctx context.Context, sql string, args ...interface{}) error {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return db.MapError(err, "feedback")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("feedback not found")
	}
	return nil
}

func (r *feedbackRepoPG) UpdateState(ctx context.Context, id uuid.UUID, state State) error {
	return r.exec(ctx, `UPDATE patient_feedback SET state=$2, updated_at=NOW() WHERE id = $1`, id, state)
}

func (r *feedbackRepoPG) SetComplaint(ctx context.Context, id, complaintID uuid.UUID) error {
	return r.exec(ctx, `UPDATE patient_feedback SET complaint_id=$2, updated_at=NOW() WHERE id = $1`, id, complaintID)
}

func (r *feedbackRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient_feedback WHERE id = $1`, id)
	return err
}

func (r *feedbackRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Feedback, int, error) {
	var q filter
	if f.PatientID != nil {
		q.add("patient_id = $%d", *f.PatientID)
	}
	if f.Type != "" {
		q.add("feedback_type = $%d", f.Type)
	}
	if f.State != "" {
		q.add("state = $%d", f.State)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_feedback`+q.clause(), q.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT `+feedbackCols+` FROM patient_feedback%s ORDER BY feedback_date DESC LIMIT $%d OFFSET $%d`,
		q.clause(), len(q.args)+1, len(q.args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(q.args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanFeedback)
	return items, total, err
}

func (r *feedbackRepoPG) ListBetween(ctx context.Context, from, to time.Time) ([]*Feedback, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+feedbackCols+` FROM patient_feedback
		WHERE feedback_date BETWEEN $1 AND $2 ORDER BY feedback_date`, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanFeedback)
}

type complaintRepoPG struct{ pool *pgxpool.Pool }

func NewComplaintRepoPG(pool *pgxpool.Pool) ComplaintRepository { return &complaintRepoPG{pool: pool} }

func (r *complaintRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const complaintCols = `id, code, patient_id, complaint_date, description, state, priority, category, feedback_id,
	user_id, resolution, resolved_date, satisfaction_rating, created_at, updated_at`

func scanComplaint(row pgx.Row) (*Complaint, error) {
	var c Complaint
	err := row.Scan(&c.ID, &c.Code, &c.PatientID, &c.ComplaintDate, &c.Description, &c.State, &c.Priority,
		&c.Category, &c.FeedbackID, &c.UserID, &c.Resolution, &c.ResolvedDate, &c.SatisfactionRating,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "complaint")
	}
	return &c, nil
}

func (r *complaintRepoPG) Create(ctx context.Context, c *Complaint) error {
	c.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_complaint (id, code, patient_id, complaint_date, description, state, priority, category,
			feedback_id, user_id, resolution, resolved_date, satisfaction_rating)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		c.ID, c.Code, c.PatientID, c.ComplaintDate, c.Description, c.State, c.Priority, c.Category,
		c.FeedbackID, c.UserID, c.Resolution, c.ResolvedDate, c.SatisfactionRating,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return db.MapError(err, "complaint")
}

func (r *complaintRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Complaint, error) {
	return scanComplaint(r.conn(ctx).QueryRow(ctx, `SELECT `+complaintCols+` FROM patient_complaint WHERE id = $1`, id))
}

func (r *complaintRepoPG) Update(ctx context.Context, c *Complaint) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient_complaint SET patient_id=$2, complaint_date=$3, description=$4, priority=$5, category=$6,
			user_id=$7, resolution=$8, satisfaction_rating=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.PatientID, c.ComplaintDate, c.Description, c.Priority, c.Category, c.UserID, c.Resolution,
		c.SatisfactionRating).Scan(&c.UpdatedAt)
	return db.MapError(err, "complaint")
}

func (r *complaintRepoPG) UpdateState(ctx context.Context, c *Complaint) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient_complaint SET state=$2, resolved_date=$3, updated_at=NOW() WHERE id = $1`,
		c.ID, c.State, c.ResolvedDate)
	if err != nil {
		return db.MapError(err, "complaint")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("complaint not found")
	}
	return nil
}

func (r *complaintRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient_complaint WHERE id = $1`, id)
	return err
}

func (r *complaintRepoPG) List(ctx context.Context, f ComplaintFilter, limit, offset int) ([]*Complaint, int, error) {
	var q filter
	if f.PatientID != nil {
		q.add("patient_id = $%d", *f.PatientID)
	}
	if f.State != "" {
		q.add("state = $%d", f.State)
	}
	if f.Priority != "" {
		q.add("priority = $%d", f.Priority)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_complaint`+q.clause(), q.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT `+complaintCols+` FROM patient_complaint%s ORDER BY complaint_date DESC LIMIT $%d OFFSET $%d`,
		q.clause(), len(q.args)+1, len(q.args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(q.args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanComplaint)
	return items, total, err
}
