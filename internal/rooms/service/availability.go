package service

import (
	"context"
	"time"

	apperrors "innkeep/pkg/errors"
	"innkeep/pkg/interval"
	"innkeep/pkg/model"
)

// IsRoomAvailable reports whether no booking of room overlaps window.
func IsRoomAvailable(room *model.Room, window interval.Interval) bool {
	for _, b := range room.Bookings {
		if interval.Overlaps(b.Interval(), window) {
			return false
		}
	}
	return true
}

// RoomsWithCapacityAndAvailability keeps the repository's iteration order.
func (s *roomService) RoomsWithCapacityAndAvailability(ctx context.Context, minBeds int, start, end time.Time) ([]*model.Room, error) {
	window, err := interval.New(start, end)
	if err != nil {
		return nil, toAppError(err, "Invalid range")
	}
	if minBeds < 0 {
		return nil, apperrors.InvalidInput("min_beds cannot be negative")
	}

	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list rooms for availability", "error", err)
		return nil, toAppError(err, "Failed to retrieve rooms")
	}

	available := make([]*model.Room, 0, len(rooms))
	for _, room := range rooms {
		if room.Beds < minBeds {
			continue
		}
		if IsRoomAvailable(room, window) {
			available = append(available, room)
		}
	}

	s.cfg.Log.Debug("Availability search completed",
		"min_beds", minBeds,
		"start_time", start,
		"end_time", end,
		"candidates", len(rooms),
		"available", len(available),
	)
	return available, nil
}
