package payroll

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

func affected(tag pgconn.CommandTag, err error, entity string) error {
	if err != nil {
		return db.MapError(err, entity)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("%s not found", entity)
	}
	return nil
}

// -- QualificationLevel Repository --

type levelRepoPG struct{ pool *pgxpool.Pool }

func NewLevelRepoPG(pool *pgxpool.Pool) LevelRepository { return &levelRepoPG{pool: pool} }

func (r *levelRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const levelCols = `id, staff_type_id, rank, salary_factor, created_at, updated_at`

func scanLevel(row pgx.Row) (*QualificationLevel, error) {
	var l QualificationLevel
	if err := row.Scan(&l.ID, &l.StaffTypeID, &l.Rank, &l.SalaryFactor, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, db.MapError(err, "qualification level")
	}
	return &l, nil
}

func (r *levelRepoPG) Create(ctx context.Context, l *QualificationLevel) error {
	l.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO salary_qualification_level (id, staff_type_id, rank, salary_factor)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		l.ID, l.StaffTypeID, l.Rank, l.SalaryFactor).Scan(&l.CreatedAt, &l.UpdatedAt)
	return db.MapError(err, "qualification level")
}

func (r *levelRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*QualificationLevel, error) {
	return scanLevel(r.conn(ctx).QueryRow(ctx, `SELECT `+levelCols+` FROM salary_qualification_level WHERE id = $1`, id))
}

func (r *levelRepoPG) Update(ctx context.Context, l *QualificationLevel) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE salary_qualification_level SET staff_type_id=$2, rank=$3, salary_factor=$4, updated_at=NOW()
		WHERE id = $1`,
		l.ID, l.StaffTypeID, l.Rank, l.SalaryFactor)
	return affected(tag, err, "qualification level")
}

func (r *levelRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM salary_qualification_level WHERE id = $1`, id)
	return db.MapError(err, "qualification level")
}

func (r *levelRepoPG) List(ctx context.Context) ([]*QualificationLevel, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+levelCols+` FROM salary_qualification_level ORDER BY staff_type_id, rank`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanLevel)
}

func (r *levelRepoPG) ListByType(ctx context.Context, staffTypeID uuid.UUID) ([]*QualificationLevel, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+levelCols+` FROM salary_qualification_level WHERE staff_type_id = $1 ORDER BY rank`, staffTypeID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanLevel)
}

// -- Allowance Repository --

type allowanceRepoPG struct{ pool *pgxpool.Pool }

func NewAllowanceRepoPG(pool *pgxpool.Pool) AllowanceRepository { return &allowanceRepoPG{pool: pool} }

func (r *allowanceRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const allowanceCols = `id, name, amount, created_at, updated_at`

func scanAllowance(row pgx.Row) (*Allowance, error) {
	var a Allowance
	if err := row.Scan(&a.ID, &a.Name, &a.Amount, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, db.MapError(err, "allowance")
	}
	return &a, nil
}

func (r *allowanceRepoPG) Create(ctx context.Context, a *Allowance) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO salary_allowance (id, name, amount) VALUES ($1,$2,$3)
		RETURNING created_at, updated_at`, a.ID, a.Name, a.Amount).Scan(&a.CreatedAt, &a.UpdatedAt)
	return db.MapError(err, "allowance")
}

func (r *allowanceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Allowance, error) {
	return scanAllowance(r.conn(ctx).QueryRow(ctx, `SELECT `+allowanceCols+` FROM salary_allowance WHERE id = $1`, id))
}

func (r *allowanceRepoPG) Update(ctx context.Context, a *Allowance) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE salary_allowance SET name=$2, amount=$3, updated_at=NOW() WHERE id = $1`, a.ID, a.Name, a.Amount)
	return affected(tag, err, "allowance")
}

func (r *allowanceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM salary_allowance WHERE id = $1`, id)
	return db.MapError(err, "allowance")
}

func (r *allowanceRepoPG) List(ctx context.Context) ([]*Allowance, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+allowanceCols+` FROM salary_allowance ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAllowance)
}

func (r *allowanceRepoPG) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Allowance, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+allowanceCols+` FROM salary_allowance WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAllowance)
}

// -- Bonus Repository --

type bonusRepoPG struct{ pool *pgxpool.Pool }

func NewBonusRepoPG(pool *pgxpool.Pool) BonusRepository { return &bonusRepoPG{pool: pool} }

func (r *bonusRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const bonusCols = `id, name, amount, reason, created_at, updated_at`

func scanBonus(row pgx.Row) (*Bonus, error) {
	var b Bonus
	if err := row.Scan(&b.ID, &b.Name, &b.Amount, &b.Reason, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, db.MapError(err, "bonus")
	}
	return &b, nil
}

func (r *bonusRepoPG) Create(ctx context.Context, b *Bonus) error {
	b.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO salary_bonus (id, name, amount, reason) VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`, b.ID, b.Name, b.Amount, b.Reason).Scan(&b.CreatedAt, &b.UpdatedAt)
	return db.MapError(err, "bonus")
}

func (r *bonusRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bonus, error) {
	return scanBonus(r.conn(ctx).QueryRow(ctx, `SELECT `+bonusCols+` FROM salary_bonus WHERE id = $1`, id))
}

func (r *bonusRepoPG) Update(ctx context.Context, b *Bonus) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE salary_bonus SET name=$2, amount=$3, reason=$4, updated_at=NOW() WHERE id = $1`,
		b.ID, b.Name, b.Amount, b.Reason)
	return affected(tag, err, "bonus")
}

func (r *bonusRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM salary_bonus WHERE id = $1`, id)
	return db.MapError(err, "bonus")
}

func (r *bonusRepoPG) List(ctx context.Context) ([]*Bonus, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+bonusCols+` FROM salary_bonus ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBonus)
}

func (r *bonusRepoPG) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Bonus, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+bonusCols+` FROM salary_bonus WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBonus)
}

// -- Deduction Repository --

type deductionRepoPG struct{ pool *pgxpool.Pool }

func NewDeductionRepoPG(pool *pgxpool.Pool) DeductionRepository { return &deductionRepoPG{pool: pool} }

func (r *deductionRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const deductionCols = `id, name, rate, salary_type, reason, created_at, updated_at`

func scanDeduction(row pgx.Row) (*Deduction, error) {
	var d Deduction
	if err := row.Scan(&d.ID, &d.Name, &d.Rate, &d.SalaryType, &d.Reason, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, db.MapError(err, "deduction")
	}
	return &d, nil
}

func (r *deductionRepoPG) Create(ctx context.Context, d *Deduction) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO salary_deduction (id, name, rate, salary_type, reason) VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`, d.ID, d.Name, d.Rate, d.SalaryType, d.Reason).Scan(&d.CreatedAt, &d.UpdatedAt)
	return db.MapError(err, "deduction")
}

func (r *deductionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Deduction, error) {
	return scanDeduction(r.conn(ctx).QueryRow(ctx, `SELECT `+deductionCols+` FROM salary_deduction WHERE id = $1`, id))
}

func (r *deductionRepoPG) Update(ctx context.Context, d *Deduction) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE salary_deduction SET name=$2, rate=$3, salary_type=$4, reason=$5, updated_at=NOW() WHERE id = $1`,
		d.ID, d.Name, d.Rate, d.SalaryType, d.Reason)
	return affected(tag, err, "deduction")
}

func (r *deductionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM salary_deduction WHERE id = $1`, id)
	return db.MapError(err, "deduction")
}

func (r *deductionRepoPG) List(ctx context.Context) ([]*Deduction, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+deductionCols+` FROM salary_deduction ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDeduction)
}

func (r *deductionRepoPG) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Deduction, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+deductionCols+` FROM salary_deduction WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDeduction)
}

// -- Sheet Repository --

type sheetRepoPG struct{ pool *pgxpool.Pool }

func NewSheetRepoPG(pool *pgxpool.Pool) SheetRepository { return &sheetRepoPG{pool: pool} }

func (r *sheetRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const sheetCols = `id, month, year, state, created_at, updated_at`

func scanSheet(row pgx.Row) (*Sheet, error) {
	var s Sheet
	if err := row.Scan(&s.ID, &s.Month, &s.Year, &s.State, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, db.MapError(err, "salary sheet")
	}
	return &s, nil
}

func (r *sheetRepoPG) Create(ctx context.Context, s *Sheet) error {
	s.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO salary_sheet (id, month, year, state) VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`, s.ID, s.Month, s.Year, s.State).Scan(&s.CreatedAt, &s.UpdatedAt)
	return db.MapError(err, "salary sheet")
}

func (r *sheetRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Sheet, error) {
	return scanSheet(r.conn(ctx).QueryRow(ctx, `SELECT `+sheetCols+` FROM salary_sheet WHERE id = $1`, id))
}

func (r *sheetRepoPG) GetByPeriod(ctx context.Context, month, year int) (*Sheet, error) {
	return scanSheet(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sheetCols+` FROM salary_sheet WHERE month = $1 AND year = $2`, month, year))
}

func (r *sheetRepoPG) UpdateState(ctx context.Context, id uuid.UUID, state SheetState) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE salary_sheet SET state=$2, updated_at=NOW() WHERE id = $1`, id, state)
	return affected(tag, err, "salary sheet")
}

func (r *sheetRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM salary_sheet WHERE id = $1`, id)
	return db.MapError(err, "salary sheet")
}

func (r *sheetRepoPG) List(ctx context.Context, limit, offset int) ([]*Sheet, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM salary_sheet`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+sheetCols+` FROM salary_sheet
		ORDER BY year DESC, month DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanSheet)
	return items, total, err
}

// -- Salary Repository --

type salaryRepoPG struct{ pool *pgxpool.Pool }

func NewSalaryRepoPG(pool *pgxpool.Pool) SalaryRepository { return &salaryRepoPG{pool: pool} }

func (r *salaryRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const salarySelect = `SELECT s.id, s.sheet_id, s.staff_id, s.allowance_ids, s.bonus_ids, s.deduction_ids, s.state,
	sh.month, sh.year, s.base_salary, s.total_allowance, s.total_bonus, s.total_salary, s.total_deduction,
	s.tax, s.net_salary, s.created_at, s.updated_at
	FROM staff_salary s JOIN salary_sheet sh ON sh.id = s.sheet_id`

func scanSalary(row pgx.Row) (*Salary, error) {
	var s Salary
	err := row.Scan(&s.ID, &s.SheetID, &s.StaffID, &s.AllowanceIDs, &s.BonusIDs, &s.DeductionIDs, &s.State,
		&s.Month, &s.Year, &s.BaseSalary, &s.TotalAllowance, &s.TotalBonus, &s.TotalSalary, &s.TotalDeduction,
		&s.Tax, &s.NetSalary, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "salary")
	}
	return &s, nil
}

func idsOrEmpty(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

func (r *salaryRepoPG) Create(ctx context.Context, s *Salary) error {
	s.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO staff_salary (id, sheet_id, staff_id, allowance_ids, bonus_ids, deduction_ids, state,
			base_salary, total_allowance, total_bonus, total_salary, total_deduction, tax, net_salary)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		s.ID, s.SheetID, s.StaffID, idsOrEmpty(s.AllowanceIDs), idsOrEmpty(s.BonusIDs), idsOrEmpty(s.DeductionIDs),
		s.State, s.BaseSalary, s.TotalAllowance, s.TotalBonus, s.TotalSalary, s.TotalDeduction, s.Tax, s.NetSalary,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return db.MapError(err, "salary")
}

func (r *salaryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Salary, error) {
	return scanSalary(r.conn(ctx).QueryRow(ctx, salarySelect+` WHERE s.id = $1`, id))
}

func (r *salaryRepoPG) Update(ctx context.Context, s *Salary) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE staff_salary SET allowance_ids=$2, bonus_ids=$3, deduction_ids=$4, base_salary=$5,
			total_allowance=$6, total_bonus=$7, total_salary=$8, total_deduction=$9, tax=$10, net_salary=$11,
			updated_at=NOW()
		WHERE id = $1`,
		s.ID, idsOrEmpty(s.AllowanceIDs), idsOrEmpty(s.BonusIDs), idsOrEmpty(s.DeductionIDs), s.BaseSalary,
		s.TotalAllowance, s.TotalBonus, s.TotalSalary, s.TotalDeduction, s.Tax, s.NetSalary)
	return affected(tag, err, "salary")
}

func (r *salaryRepoPG) UpdateState(ctx context.Context, id uuid.UUID, state State) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE staff_salary SET state=$2, updated_at=NOW() WHERE id = $1`, id, state)
	return affected(tag, err, "salary")
}

func (r *salaryRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM staff_salary WHERE id = $1`, id)
	return db.MapError(err, "salary")
}

func (r *salaryRepoPG) ListBySheet(ctx context.Context, sheetID uuid.UUID) ([]*Salary, error) {
	rows, err := r.conn(ctx).Query(ctx, salarySelect+` WHERE s.sheet_id = $1 ORDER BY s.created_at`, sheetID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSalary)
}

func (r *salaryRepoPG) LatestForStaff(ctx context.Context, staffID uuid.UUID) (*Salary, error) {
	return scanSalary(r.conn(ctx).QueryRow(ctx,
		salarySelect+` WHERE s.staff_id = $1 ORDER BY sh.year DESC, sh.month DESC LIMIT 1`, staffID))
}
