package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	roomserrors "innkeep/internal/rooms/errors"
	"innkeep/pkg/interval"
	"innkeep/pkg/model"

	"github.com/google/uuid"
)

type roomEntry struct {
	mu       sync.RWMutex
	room     *model.Room
	bookings []*model.Booking
	deleted  bool
}

// snapshot must be called with entry.mu held.
func (e *roomEntry) snapshot() *model.Room {
	room := e.room.Clone()
	room.Bookings = make([]*model.Booking, 0, len(e.bookings))
	for _, b := range e.bookings {
		room.Bookings = append(room.Bookings, b.Clone())
	}
	return room
}

// memoryRoomRepository serialises booking changes per room. The catalogue
// lock is never held while a room lock is taken, so unrelated rooms never
// contend.
type memoryRoomRepository struct {
	mu     sync.RWMutex
	order  []*roomEntry
	byName map[string]*roomEntry
	byID   map[string]*roomEntry

	// reference -> room ID, for every live or staged booking
	references sync.Map
}

func NewMemoryRoomRepository() RoomRepository {
	return &memoryRoomRepository{
		byName: make(map[string]*roomEntry),
		byID:   make(map[string]*roomEntry),
	}
}

func (r *memoryRoomRepository) entries() []*roomEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*roomEntry, len(r.order))
	copy(out, r.order)
	return out
}

func (r *memoryRoomRepository) ListRooms(ctx context.Context) ([]*model.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rooms := make([]*model.Room, 0)
	for _, entry := range r.entries() {
		entry.mu.RLock()
		if !entry.deleted {
			rooms = append(rooms, entry.snapshot())
		}
		entry.mu.RUnlock()
	}
	return rooms, nil
}

func (r *memoryRoomRepository) FindRoomByName(ctx context.Context, name string) (*model.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	entry, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, roomserrors.ErrRoomNotFound
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()
	if entry.deleted {
		return nil, roomserrors.ErrRoomNotFound
	}
	return entry.snapshot(), nil
}

func (r *memoryRoomRepository) FindBookingByReference(ctx context.Context, reference string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	roomID, ok := r.references.Load(reference)
	if !ok {
		return nil, roomserrors.ErrBookingNotFound
	}

	r.mu.RLock()
	entry, ok := r.byID[roomID.(string)]
	r.mu.RUnlock()
	if !ok {
		return nil, roomserrors.ErrBookingNotFound
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()
	for _, b := range entry.bookings {
		if b.Reference == reference {
			return b.Clone(), nil
		}
	}
	// reserved by an allocation that has not committed yet
	return nil, roomserrors.ErrBookingNotFound
}

func (r *memoryRoomRepository) ListBookings(ctx context.Context) ([]*model.Booking, error) {
	return r.collectBookings(ctx, func(*model.Booking) bool { return true })
}

func (r *memoryRoomRepository) ListBookingsOverlapping(ctx context.Context, window interval.Interval) ([]*model.Booking, error) {
	return r.collectBookings(ctx, func(b *model.Booking) bool {
		return interval.Overlaps(b.Interval(), window)
	})
}

func (r *memoryRoomRepository) collectBookings(ctx context.Context, keep func(*model.Booking) bool) ([]*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bookings := make([]*model.Booking, 0)
	for _, entry := range r.entries() {
		entry.mu.RLock()
		if !entry.deleted {
			for _, b := range entry.bookings {
				if keep(b) {
					bookings = append(bookings, b.Clone())
				}
			}
		}
		entry.mu.RUnlock()
	}

	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].StartTime.Before(bookings[j].StartTime)
	})
	return bookings, nil
}

func (r *memoryRoomRepository) CreateRoom(ctx context.Context, room *model.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[room.Name]; exists {
		return roomserrors.ErrRoomExists
	}

	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}

	if err := checkInitialBookings(room.Bookings); err != nil {
		return err
	}

	stored := room.Clone()
	entry := &roomEntry{room: stored, bookings: stored.Bookings}
	stored.Bookings = nil
	for _, b := range entry.bookings {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		b.RoomID = stored.ID
		b.RoomName = stored.Name
		if b.CreatedAt.IsZero() {
			b.CreatedAt = stored.CreatedAt
		}
		if _, loaded := r.references.LoadOrStore(b.Reference, stored.ID); loaded {
			r.releaseAll(stored.ID, entry.bookings)
			return roomserrors.ErrDuplicateReference
		}
	}

	r.order = append(r.order, entry)
	r.byName[stored.Name] = entry
	r.byID[stored.ID] = entry
	return nil
}

func (r *memoryRoomRepository) DeleteRoom(ctx context.Context, name string) (*model.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	entry, ok := r.byName[name]
	if !ok {
		r.mu.Unlock()
		return nil, roomserrors.ErrRoomNotFound
	}
	delete(r.byName, name)
	delete(r.byID, entry.room.ID)
	for i, e := range r.order {
		if e == entry {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	// waits for an in-flight allocation on this room to finish
	entry.mu.Lock()
	defer entry.mu.Unlock()

	removed := entry.snapshot()
	entry.deleted = true
	r.releaseAll(entry.room.ID, entry.bookings)
	entry.bookings = nil
	return removed, nil
}

func (r *memoryRoomRepository) Allocate(ctx context.Context, roomID string, fn AllocateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	entry, ok := r.byID[roomID]
	r.mu.RUnlock()
	if !ok {
		return roomserrors.ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.deleted {
		return roomserrors.ErrRoomNotFound
	}

	alloc := newAllocation(ctx, entry.snapshot(), r)
	committed := false
	defer func() {
		if !committed {
			alloc.seal()
			alloc.rollback()
		}
	}()

	if err := fn(ctx, alloc); err != nil {
		return err
	}

	added, removed := alloc.seal()
	committed = true
	for _, gone := range removed {
		for i, b := range entry.bookings {
			if b.Reference == gone.Reference {
				entry.bookings = append(entry.bookings[:i], entry.bookings[i+1:]...)
				break
			}
		}
		r.Release(roomID, gone.Reference)
	}
	for _, b := range added {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = time.Now().UTC()
		}
		entry.bookings = append(entry.bookings, b)
	}
	return nil
}

func (r *memoryRoomRepository) Reserve(_ context.Context, roomID, reference string) error {
	if _, loaded := r.references.LoadOrStore(reference, roomID); loaded {
		return roomserrors.ErrDuplicateReference
	}
	return nil
}

func (r *memoryRoomRepository) Release(roomID, reference string) {
	r.references.CompareAndDelete(reference, roomID)
}

func (r *memoryRoomRepository) releaseAll(roomID string, bookings []*model.Booking) {
	for _, b := range bookings {
		r.Release(roomID, b.Reference)
	}
}

func (r *memoryRoomRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *memoryRoomRepository) Close(context.Context) error {
	return nil
}
