package facility

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

type Service struct {
	rooms RoomRepository
	beds  BedRepository
}

func NewService(rooms RoomRepository, beds BedRepository) *Service {
	return &Service{rooms: rooms, beds: beds}
}

// -- Room --

func validateRoom(r *Room) error {
	if strings.TrimSpace(r.Name) == "" {
		return apperr.Validation("name is required")
	}
	if !validRoomTypes[r.RoomType] {
		return apperr.Validation("invalid room_type: %q", r.RoomType)
	}
	if r.Capacity < 0 {
		return apperr.Validation("capacity must not be negative")
	}
	if r.Status == "" {
		r.Status = StatusAvailable
	}
	if !validStatuses[r.Status] {
		return apperr.Validation("invalid status: %s", r.Status)
	}
	return nil
}

func (s *Service) CreateRoom(ctx context.Context, r *Room) error {
	if err := validateRoom(r); err != nil {
		return err
	}
	return s.rooms.Create(ctx, r)
}

func (s *Service) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	return s.rooms.GetByID(ctx, id)
}

func (s *Service) UpdateRoom(ctx context.Context, r *Room) error {
	if err := validateRoom(r); err != nil {
		return err
	}
	return s.rooms.Update(ctx, r)
}

// DeleteRoom refuses to remove a room that still has beds.
func (s *Service) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	n, err := s.beds.CountByRoom(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.User("room still has %d bed(s)", n)
	}
	return s.rooms.Delete(ctx, id)
}

func (s *Service) ListRooms(ctx context.Context, limit, offset int) ([]*Room, int, error) {
	return s.rooms.List(ctx, limit, offset)
}

// -- Bed --

func (s *Service) validateBed(ctx context.Context, b *Bed) error {
	if strings.TrimSpace(b.Name) == "" {
		return apperr.Validation("name is required")
	}
	if b.RoomID == uuid.Nil {
		return apperr.Validation("room_id is required")
	}
	if b.Status == "" {
		b.Status = StatusAvailable
	}
	if !validStatuses[b.Status] {
		return apperr.Validation("invalid status: %s", b.Status)
	}
	if _, err := s.rooms.GetByID(ctx, b.RoomID); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.Validation("room %s does not exist", b.RoomID)
		}
		return err
	}
	return nil
}

func (s *Service) CreateBed(ctx context.Context, b *Bed) error {
	if err := s.validateBed(ctx, b); err != nil {
		return err
	}
	return s.beds.Create(ctx, b)
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return s.beds.GetByID(ctx, id)
}

func (s *Service) UpdateBed(ctx context.Context, b *Bed) error {
	if err := s.validateBed(ctx, b); err != nil {
		return err
	}
	return s.beds.Update(ctx, b)
}

func (s *Service) DeleteBed(ctx context.Context, id uuid.UUID) error {
	return s.beds.Delete(ctx, id)
}

func (s *Service) ListBeds(ctx context.Context, roomID uuid.UUID) ([]*Bed, error) {
	return s.beds.ListByRoom(ctx, roomID)
}
