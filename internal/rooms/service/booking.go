package service

import (
	"context"
	"errors"
	"time"

	roomserrors "innkeep/internal/rooms/errors"
	"innkeep/internal/rooms/repository"
	apperrors "innkeep/pkg/errors"
	"innkeep/pkg/interval"
	"innkeep/pkg/model"
	"innkeep/pkg/sanitizer"

	"github.com/google/uuid"
)

// BookRoom checks availability and inserts the booking as one step under
// the room's lock. A fresh reference is drawn when the previous one is
// already taken; no other failure is retried.
func (s *roomService) BookRoom(ctx context.Context, roomName string, start, end time.Time) (*model.Booking, error) {
	window, err := interval.New(start, end)
	if err != nil {
		return nil, toAppError(err, "Invalid range")
	}

	roomName = sanitizer.NormalizeRoomName(roomName)
	room, err := s.repo.FindRoomByName(ctx, roomName)
	if err != nil {
		if !isExpected(err) {
			s.cfg.Log.Error("Failed to resolve room", "room", roomName, "error", err)
		}
		return nil, toAppError(err, "Failed to retrieve room")
	}

	attempts := max(s.cfg.ReferenceMaxAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		booked, err := s.tryBook(ctx, room.ID, window)
		if err == nil {
			s.cfg.Log.Info("Booking created successfully",
				"reference", booked.Reference,
				"room", booked.RoomName,
				"start_time", booked.StartTime,
				"end_time", booked.EndTime,
			)
			s.publishCreated(ctx, booked)
			return booked, nil
		}

		if errors.Is(err, roomserrors.ErrDuplicateReference) {
			s.cfg.Log.Warn("Booking reference collision, regenerating",
				"room", roomName,
				"attempt", attempt,
			)
			continue
		}

		if errors.Is(err, roomserrors.ErrRoomAlreadyBooked) {
			s.cfg.Log.Info("Booking rejected, room already booked",
				"room", roomName,
				"start_time", start,
				"end_time", end,
			)
		} else if !isExpected(err) {
			s.cfg.Log.Error("Failed to book room", "room", roomName, "error", err)
		}
		return nil, toAppError(err, "Failed to book room")
	}

	s.cfg.Log.Error("Failed to generate a unique booking reference",
		"room", roomName,
		"attempts", attempts,
	)
	return nil, apperrors.Internal("Failed to book room", roomserrors.ErrReferenceExhausted)
}

func (s *roomService) tryBook(ctx context.Context, roomID string, window interval.Interval) (*model.Booking, error) {
	ref, err := s.references.Generate(s.cfg.ReferenceLength)
	if err != nil {
		return nil, err
	}

	var booked *model.Booking
	err = s.repo.Allocate(ctx, roomID, func(ctx context.Context, alloc repository.Allocation) error {
		room := alloc.Room()
		if !IsRoomAvailable(room, window) {
			return roomserrors.ErrRoomAlreadyBooked
		}

		booking := &model.Booking{
			ID:        uuid.NewString(),
			StartTime: window.Start,
			EndTime:   window.End,
			Reference: ref,
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
		if err := alloc.AddBooking(booking); err != nil {
			return err
		}

		booking.RoomID = room.ID
		booking.RoomName = room.Name
		booked = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booked, nil
}

// CancelBooking removes the booking under its room's lock. Cancelling an
// already cancelled reference reports BookingNotFound.
func (s *roomService) CancelBooking(ctx context.Context, ref string) (*model.Booking, error) {
	ref = sanitizer.NormalizeReference(ref)
	if ref == "" {
		return nil, apperrors.InvalidInput("Booking reference cannot be empty")
	}

	existing, err := s.repo.FindBookingByReference(ctx, ref)
	if err != nil {
		if !isExpected(err) {
			s.cfg.Log.Error("Failed to find booking", "reference", ref, "error", err)
		}
		return nil, toAppError(err, "Failed to retrieve booking")
	}

	var cancelled *model.Booking
	err = s.repo.Allocate(ctx, existing.RoomID, func(ctx context.Context, alloc repository.Allocation) error {
		removed, err := alloc.RemoveBooking(ref)
		if err != nil {
			return err
		}
		cancelled = removed
		return nil
	})
	if err != nil {
		// the room may have been deleted in between
		if errors.Is(err, roomserrors.ErrRoomNotFound) {
			err = roomserrors.ErrBookingNotFound
		}
		if !isExpected(err) {
			s.cfg.Log.Error("Failed to cancel booking", "reference", ref, "error", err)
		}
		return nil, toAppError(err, "Failed to cancel booking")
	}

	s.cfg.Log.Info("Booking cancelled successfully",
		"reference", ref,
		"room", cancelled.RoomName,
	)
	s.publishCancelled(ctx, cancelled)
	return cancelled, nil
}

func (s *roomService) GetBooking(ctx context.Context, ref string) (*model.Booking, error) {
	ref = sanitizer.NormalizeReference(ref)
	if ref == "" {
		return nil, apperrors.InvalidInput("Booking reference cannot be empty")
	}

	booking, err := s.repo.FindBookingByReference(ctx, ref)
	if err != nil {
		return nil, toAppError(err, "Failed to retrieve booking")
	}
	return booking, nil
}

// Events are sent after commit and outside the room lock. A publish
// failure never undoes the committed change.
func (s *roomService) publishCreated(ctx context.Context, b *model.Booking) {
	if err := s.publisher.BookingCreated(ctx, b); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event", "reference", b.Reference, "error", err)
	}
}

func (s *roomService) publishCancelled(ctx context.Context, b *model.Booking) {
	if err := s.publisher.BookingCancelled(ctx, b); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event", "reference", b.Reference, "error", err)
	}
}

// isExpected reports domain outcomes that are the caller's concern rather
// than a fault worth an error log.
func isExpected(err error) bool {
	for _, target := range []error{
		roomserrors.ErrInvalidRange,
		roomserrors.ErrRoomNotFound,
		roomserrors.ErrBookingNotFound,
		roomserrors.ErrRoomAlreadyBooked,
		roomserrors.ErrRoomExists,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
