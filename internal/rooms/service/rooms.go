package service

import (
	"context"
	"errors"

	"innkeep/internal/rooms/validator"
	apperrors "innkeep/pkg/errors"
	"innkeep/pkg/model"
	"innkeep/pkg/sanitizer"
)

func (s *roomService) ListRooms(ctx context.Context) ([]*model.Room, error) {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list rooms", "error", err)
		return nil, toAppError(err, "Failed to retrieve rooms")
	}
	return rooms, nil
}

func (s *roomService) GetRoom(ctx context.Context, name string) (*model.Room, error) {
	name = sanitizer.NormalizeRoomName(name)
	if name == "" {
		return nil, apperrors.InvalidInput("Room name cannot be empty")
	}

	room, err := s.repo.FindRoomByName(ctx, name)
	if err != nil {
		return nil, toAppError(err, "Failed to retrieve room")
	}
	return room, nil
}

func (s *roomService) CreateRoom(ctx context.Context, req *model.RoomCreate) (*model.Room, error) {
	req.Name = sanitizer.NormalizeRoomName(req.Name)
	req.Description = sanitizer.NormalizeDescription(req.Description)

	if err := s.validator.ValidateRoom(req); err != nil {
		s.cfg.Log.Warn("Room validation failed", "name", req.Name, "error", err)
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return nil, apperrors.Validation("Room validation failed", fieldErrs.Fields())
		}
		return nil, apperrors.Validation("Room validation failed", map[string]any{"error": err.Error()})
	}

	room := &model.Room{
		Name:        req.Name,
		Description: req.Description,
		Beds:        req.Beds,
		Price:       req.Price,
		Bookings:    make([]*model.Booking, 0),
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		s.cfg.Log.Warn("Failed to create room", "name", req.Name, "error", err)
		return nil, toAppError(err, "Failed to create room")
	}

	s.cfg.Log.Info("Room created successfully",
		"id", room.ID,
		"name", room.Name,
		"beds", room.Beds,
		"price", room.Price.String(),
	)
	return room, nil
}

// DeleteRoom removes the room together with all of its bookings.
func (s *roomService) DeleteRoom(ctx context.Context, name string) (*model.Room, error) {
	name = sanitizer.NormalizeRoomName(name)
	if name == "" {
		return nil, apperrors.InvalidInput("Room name cannot be empty")
	}

	removed, err := s.repo.DeleteRoom(ctx, name)
	if err != nil {
		if !isExpected(err) {
			s.cfg.Log.Error("Failed to delete room", "name", name, "error", err)
		}
		return nil, toAppError(err, "Failed to delete room")
	}

	for _, b := range removed.Bookings {
		s.publishCancelled(ctx, b)
	}

	s.cfg.Log.Info("Room deleted successfully",
		"id", removed.ID,
		"name", removed.Name,
		"cascaded_bookings", len(removed.Bookings),
	)
	return removed, nil
}
