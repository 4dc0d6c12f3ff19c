package facility

import (
	"time"

	"github.com/google/uuid"
)

type RoomType string

const (
	RoomExam      RoomType = "exam"
	RoomTreatment RoomType = "treatment"
	RoomEmergency RoomType = "emergency"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusOccupied    Status = "occupied"
	StatusMaintenance Status = "maintenance"
)

var (
	validRoomTypes = map[RoomType]bool{RoomExam: true, RoomTreatment: true, RoomEmergency: true}
	validStatuses  = map[Status]bool{StatusAvailable: true, StatusOccupied: true, StatusMaintenance: true}
)

// Room maps to the room table.
type Room struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	RoomType  RoomType  `db:"room_type" json:"room_type"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Status    Status    `db:"status" json:"status"`
	Note      *string   `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Bed maps to the bed table.
type Bed struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	RoomID    uuid.UUID `db:"room_id" json:"room_id"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
