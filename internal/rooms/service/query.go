package service

import (
	"context"
	"time"

	"innkeep/pkg/interval"
	"innkeep/pkg/model"
)

// BookingsDuring returns every booking across all rooms that overlaps
// [start, end). No match yields an empty slice, not an error.
func (s *roomService) BookingsDuring(ctx context.Context, start, end time.Time) ([]*model.Booking, error) {
	window, err := interval.New(start, end)
	if err != nil {
		return nil, toAppError(err, "Invalid range")
	}

	candidates, err := s.repo.ListBookingsOverlapping(ctx, window)
	if err != nil {
		s.cfg.Log.Error("Failed to query bookings", "start_time", start, "end_time", end, "error", err)
		return nil, toAppError(err, "Failed to retrieve bookings")
	}

	bookings := make([]*model.Booking, 0, len(candidates))
	for _, b := range candidates {
		if interval.Overlaps(b.Interval(), window) {
			bookings = append(bookings, b)
		}
	}
	return bookings, nil
}
