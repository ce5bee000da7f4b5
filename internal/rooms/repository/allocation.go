package repository

import (
	"context"
	"sync"

	roomserrors "innkeep/internal/rooms/errors"
	"innkeep/pkg/interval"
	"innkeep/pkg/model"
)

// referenceReserver claims booking references for a room so that no two
// live bookings ever share one.
type referenceReserver interface {
	Reserve(ctx context.Context, roomID, reference string) error
	Release(roomID, reference string)
}

type allocation struct {
	ctx      context.Context
	reserver referenceReserver

	mu      sync.Mutex
	room    *model.Room
	added   []*model.Booking
	removed []*model.Booking
	sealed  bool
}

func newAllocation(ctx context.Context, room *model.Room, reserver referenceReserver) *allocation {
	return &allocation{
		ctx:      ctx,
		reserver: reserver,
		room:     room,
	}
}

func (a *allocation) Room() *model.Room {
	a.mu.Lock()
	defer a.mu.Unlock()

	view := a.room.Clone()
	view.Bookings = a.liveBookings()
	return view
}

func (a *allocation) AddBooking(booking *model.Booking) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed {
		return roomserrors.ErrConflict
	}
	if booking == nil || !interval.IsValidRange(booking.StartTime, booking.EndTime) {
		return roomserrors.ErrInvalidRange
	}

	for _, existing := range a.liveBookings() {
		if existing.Reference == booking.Reference {
			return roomserrors.ErrDuplicateReference
		}
		if interval.Overlaps(existing.Interval(), booking.Interval()) {
			return roomserrors.ErrRoomAlreadyBooked
		}
	}

	if err := a.reserver.Reserve(a.ctx, a.room.ID, booking.Reference); err != nil {
		return err
	}

	staged := booking.Clone()
	staged.RoomID = a.room.ID
	staged.RoomName = a.room.Name
	a.added = append(a.added, staged)
	return nil
}

func (a *allocation) RemoveBooking(reference string) (*model.Booking, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed {
		return nil, roomserrors.ErrConflict
	}

	for i, b := range a.added {
		if b.Reference == reference {
			a.added = append(a.added[:i], a.added[i+1:]...)
			a.reserver.Release(a.room.ID, reference)
			return b.Clone(), nil
		}
	}

	for _, b := range a.room.Bookings {
		if b.Reference == reference && !a.isRemoved(reference) {
			a.removed = append(a.removed, b)
			return b.Clone(), nil
		}
	}

	return nil, roomserrors.ErrBookingNotFound
}

// seal ends the allocation. Changes staged so far are returned to the
// caller for commit; later mutations fail with ErrConflict.
func (a *allocation) seal() (added, removed []*model.Booking) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sealed = true
	return a.added, a.removed
}

// rollback releases references reserved by staged additions.
func (a *allocation) rollback() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, b := range a.added {
		a.reserver.Release(a.room.ID, b.Reference)
	}
	a.added = nil
	a.removed = nil
}

func (a *allocation) liveBookings() []*model.Booking {
	out := make([]*model.Booking, 0, len(a.room.Bookings)+len(a.added))
	for _, b := range a.room.Bookings {
		if !a.isRemoved(b.Reference) {
			out = append(out, b.Clone())
		}
	}
	for _, b := range a.added {
		out = append(out, b.Clone())
	}
	return out
}

func (a *allocation) isRemoved(reference string) bool {
	for _, b := range a.removed {
		if b.Reference == reference {
			return true
		}
	}
	return false
}

// checkInitialBookings validates bookings a room is created with, such as
// those loaded from an inventory file.
func checkInitialBookings(bookings []*model.Booking) error {
	for i, b := range bookings {
		if !interval.IsValidRange(b.StartTime, b.EndTime) {
			return roomserrors.ErrInvalidRange
		}
		for _, other := range bookings[:i] {
			if other.Reference == b.Reference {
				return roomserrors.ErrDuplicateReference
			}
			if interval.Overlaps(other.Interval(), b.Interval()) {
				return roomserrors.ErrRoomAlreadyBooked
			}
		}
	}
	return nil
}
