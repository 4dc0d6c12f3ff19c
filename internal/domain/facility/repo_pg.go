package facility

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinic/internal/platform/db"
)

// -- Room Repository --

type roomRepoPG struct{ pool *pgxpool.Pool }

func NewRoomRepoPG(pool *pgxpool.Pool) RoomRepository { return &roomRepoPG{pool: pool} }

func (r *roomRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const roomCols = `id, name, room_type, capacity, status, note, created_at, updated_at`

func scanRoom(row pgx.Row) (*Room, error) {
	var rm Room
	err := row.Scan(&rm.ID, &rm.Name, &rm.RoomType, &rm.Capacity, &rm.Status, &rm.Note, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "room")
	}
	return &rm, nil
}

func (r *roomRepoPG) Create(ctx context.Context, rm *Room) error {
	rm.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO room (id, name, room_type, capacity, status, note)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		rm.ID, rm.Name, rm.RoomType, rm.Capacity, rm.Status, rm.Note).Scan(&rm.CreatedAt, &rm.UpdatedAt)
	return db.MapError(err, "room")
}

func (r *roomRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	return scanRoom(r.conn(ctx).QueryRow(ctx, `SELECT `+roomCols+` FROM room WHERE id = $1`, id))
}

func (r *roomRepoPG) Update(ctx context.Context, rm *Room) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE room SET name=$2, room_type=$3, capacity=$4, status=$5, note=$6, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		rm.ID, rm.Name, rm.RoomType, rm.Capacity, rm.Status, rm.Note).Scan(&rm.CreatedAt, &rm.UpdatedAt)
	return db.MapError(err, "room")
}

func (r *roomRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM room WHERE id = $1`, id)
	return err
}

func (r *roomRepoPG) List(ctx context.Context, limit, offset int) ([]*Room, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM room`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+roomCols+` FROM room ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rm)
	}
	return items, total, rows.Err()
}

// -- Bed Repository --

type bedRepoPG struct{ pool *pgxpool.Pool }

func NewBedRepoPG(pool *pgxpool.Pool) BedRepository { return &bedRepoPG{pool: pool} }

func (r *bedRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const bedCols = `id, name, room_id, status, created_at, updated_at`

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	if err := row.Scan(&b.ID, &b.Name, &b.RoomID, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, db.MapError(err, "bed")
	}
	return &b, nil
}

func (r *bedRepoPG) Create(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bed (id, name, room_id, status) VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		b.ID, b.Name, b.RoomID, b.Status).Scan(&b.CreatedAt, &b.UpdatedAt)
	return db.MapError(err, "bed")
}

func (r *bedRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE id = $1`, id))
}

func (r *bedRepoPG) Update(ctx context.Context, b *Bed) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE bed SET name=$2, room_id=$3, status=$4, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		b.ID, b.Name, b.RoomID, b.Status).Scan(&b.CreatedAt, &b.UpdatedAt)
	return db.MapError(err, "bed")
}

func (r *bedRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM bed WHERE id = $1`, id)
	return err
}

func (r *bedRepoPG) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*Bed, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+bedCols+` FROM bed WHERE room_id = $1 ORDER BY name`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Bed
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *bedRepoPG) CountByRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bed WHERE room_id = $1`, roomID).Scan(&n)
	return n, err
}
