package staff

import (
	"context"
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

// -- StaffType Repository --

type staffTypeRepoPG struct{ pool *pgxpool.Pool }

func NewStaffTypeRepoPG(pool *pgxpool.Pool) StaffTypeRepository { return &staffTypeRepoPG{pool: pool} }

func (r *staffTypeRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const staffTypeCols = `id, name, type_code, created_at, updated_at`

func scanStaffType(row pgx.Row) (*StaffType, error) {
	var t StaffType
	if err := row.Scan(&t.ID, &t.Name, &t.TypeCode, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, db.MapError(err, "staff type")
	}
	return &t, nil
}

func (r *staffTypeRepoPG) Create(ctx context.Context, t *StaffType) error {
	t.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO staff_type (id, name, type_code) VALUES ($1,$2,$3)
		RETURNING created_at, updated_at`, t.ID, t.Name, t.TypeCode).Scan(&t.CreatedAt, &t.UpdatedAt)
	return db.MapError(err, "staff type")
}

func (r *staffTypeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*StaffType, error) {
	return scanStaffType(r.conn(ctx).QueryRow(ctx, `SELECT `+staffTypeCols+` FROM staff_type WHERE id = $1`, id))
}

func (r *staffTypeRepoPG) Update(ctx context.Context, t *StaffType) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE staff_type SET name=$2, updated_at=NOW() WHERE id = $1
		RETURNING type_code, created_at, updated_at`, t.ID, t.Name).Scan(&t.TypeCode, &t.CreatedAt, &t.UpdatedAt)
	return db.MapError(err, "staff type")
}

func (r *staffTypeRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM staff_type WHERE id = $1`, id)
	return err
}

func (r *staffTypeRepoPG) List(ctx context.Context) ([]*StaffType, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+staffTypeCols+` FROM staff_type ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStaffType)
}

// -- Staff Repository --

type staffRepoPG struct{ pool *pgxpool.Pool }

func NewStaffRepoPG(pool *pgxpool.Pool) StaffRepository { return &staffRepoPG{pool: pool} }

func (r *staffRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const staffCols = `id, staff_code, staff_type_id, name, contact_info, date_of_birth, address, gender,
	faculty, department, license_number, qualification, experience_year, status, labor_type,
	created_at, updated_at`

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.StaffCode, &s.StaffTypeID, &s.Name, &s.ContactInfo, &s.DateOfBirth, &s.Address, &s.Gender,
		&s.Faculty, &s.Department, &s.LicenseNumber, &s.Qualification, &s.ExperienceYear, &s.Status, &s.LaborType,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "staff")
	}
	return &s, nil
}

func (r *staffRepoPG) Create(ctx context.Context, s *Staff) error {
	s.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO staff (id, staff_code, staff_type_id, name, contact_info, date_of_birth, address, gender,
			faculty, department, license_number, qualification, experience_year, status, labor_type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at, updated_at`,
		s.ID, s.StaffCode, s.StaffTypeID, s.Name, s.ContactInfo, s.DateOfBirth, s.Address, s.Gender,
		s.Faculty, s.Department, s.LicenseNumber, s.Qualification, s.ExperienceYear, s.Status, s.LaborType,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return db.MapError(err, "staff")
}

func (r *staffRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return scanStaff(r.conn(ctx).QueryRow(ctx, `SELECT `+staffCols+` FROM staff WHERE id = $1`, id))
}

func (r *staffRepoPG) GetByLicense(ctx context.Context, license string) (*Staff, error) {
	return scanStaff(r.conn(ctx).QueryRow(ctx, `SELECT `+staffCols+` FROM staff WHERE license_number = $1`, license))
}

func (r *staffRepoPG) Update(ctx context.Context, s *Staff) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE staff SET staff_type_id=$2, name=$3, contact_info=$4, date_of_birth=$5, address=$6, gender=$7,
			faculty=$8, department=$9, license_number=$10, qualification=$11, experience_year=$12,
			status=$13, labor_type=$14, updated_at=NOW()
		WHERE id = $1
		RETURNING staff_code, created_at, updated_at`,
		s.ID, s.StaffTypeID, s.Name, s.ContactInfo, s.DateOfBirth, s.Address, s.Gender,
		s.Faculty, s.Department, s.LicenseNumber, s.Qualification, s.ExperienceYear, s.Status, s.LaborType,
	).Scan(&s.StaffCode, &s.CreatedAt, &s.UpdatedAt)
	return db.MapError(err, "staff")
}

func (r *staffRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM staff WHERE id = $1`, id)
	return err
}

func (r *staffRepoPG) List(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM staff`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+staffCols+` FROM staff ORDER BY staff_code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanStaff)
	return items, total, err
}

func (r *staffRepoPG) ListActive(ctx context.Context) ([]*Staff, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+staffCols+` FROM staff WHERE status = $1 ORDER BY staff_code`, StatusActive)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStaff)
}

// -- Attendance Repository --

type attendanceRepoPG struct{ pool *pgxpool.Pool }

func NewAttendanceRepoPG(pool *pgxpool.Pool) AttendanceRepository {
	return &attendanceRepoPG{pool: pool}
}

func (r *attendanceRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const attendanceCols = `id, staff_id, date, check_in, check_out, created_at, updated_at`

func scanAttendance(row pgx.Row) (*Attendance, error) {
	var a Attendance
	if err := row.Scan(&a.ID, &a.StaffID, &a.Date, &a.CheckIn, &a.CheckOut, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, db.MapError(err, "attendance")
	}
	return &a, nil
}

func (r *attendanceRepoPG) Create(ctx context.Context, a *Attendance) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO staff_attendance (id, staff_id, date, check_in, check_out) VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		a.ID, a.StaffID, a.Date, a.CheckIn, a.CheckOut).Scan(&a.CreatedAt, &a.UpdatedAt)
	return db.MapError(err, "attendance")
}

func (r *attendanceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Attendance, error) {
	return scanAttendance(r.conn(ctx).QueryRow(ctx, `SELECT `+attendanceCols+` FROM staff_attendance WHERE id = $1`, id))
}

func (r *attendanceRepoPG) GetByStaffDate(ctx context.Context, staffID uuid.UUID, date time.Time) (*Attendance, error) {
	return scanAttendance(r.conn(ctx).QueryRow(ctx,
		`SELECT `+attendanceCols+` FROM staff_attendance WHERE staff_id = $1 AND date = $2`, staffID, date))
}

func (r *attendanceRepoPG) Update(ctx context.Context, a *Attendance) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE staff_attendance SET check_in=$2, check_out=$3, updated_at=NOW() WHERE id = $1
		RETURNING staff_id, date, created_at, updated_at`,
		a.ID, a.CheckIn, a.CheckOut).Scan(&a.StaffID, &a.Date, &a.CreatedAt, &a.UpdatedAt)
	return db.MapError(err, "attendance")
}

func (r *attendanceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM staff_attendance WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("attendance not found")
	}
	return nil
}

func (r *attendanceRepoPG) ListByStaff(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]*Attendance, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+attendanceCols+` FROM staff_attendance
		WHERE staff_id = $1 AND date >= $2 AND date < $3 ORDER BY date`, staffID, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAttendance)
}

// -- Performance Repository --

type performanceRepoPG struct{ pool *pgxpool.Pool }

func NewPerformanceRepoPG(pool *pgxpool.Pool) PerformanceRepository {
	return &performanceRepoPG{pool: pool}
}

func (r *performanceRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const performanceCols = `id, staff_id, month, year, manager_note, state, created_at, updated_at`

func scanPerformance(row pgx.Row) (*Performance, error) {
	var p Performance
	err := row.Scan(&p.ID, &p.StaffID, &p.Month, &p.Year, &p.ManagerNote, &p.State, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "performance review")
	}
	return &p, nil
}

func (r *performanceRepoPG) Create(ctx context.Context, p *Performance) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO staff_performance (id, staff_id, month, year, manager_note, state) VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		p.ID, p.StaffID, p.Month, p.Year, p.ManagerNote, p.State).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, "performance review")
}

func (r *performanceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Performance, error) {
	return scanPerformance(r.conn(ctx).QueryRow(ctx, `SELECT `+performanceCols+` FROM staff_performance WHERE id = $1`, id))
}

func (r *performanceRepoPG) UpdateState(ctx context.Context, id uuid.UUID, state PerformanceState) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE staff_performance SET state=$2, updated_at=NOW() WHERE id = $1`, id, state)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("performance review not found")
	}
	return nil
}

func (r *performanceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM staff_performance WHERE id = $1`, id)
	return err
}

func (r *performanceRepoPG) ListByStaff(ctx context.Context, staffID uuid.UUID) ([]*Performance, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+performanceCols+` FROM staff_performance
		WHERE staff_id = $1 ORDER BY year DESC, month DESC`, staffID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPerformance)
}
