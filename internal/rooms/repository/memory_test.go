package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	roomserrors "innkeep/internal/rooms/errors"
	"innkeep/pkg/interval"
	"innkeep/pkg/model"
)

var base = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return base.AddDate(0, 0, n)
}

func newRoom(name string, beds int) *model.Room {
	return &model.Room{Name: name, Beds: beds, Price: model.PriceFromInt(100)}
}

func booking(ref string, start, end int) *model.Booking {
	return &model.Booking{Reference: ref, StartTime: day(start), EndTime: day(end)}
}

func mustCreate(t *testing.T, repo RoomRepository, room *model.Room) *model.Room {
	t.Helper()
	if err := repo.CreateRoom(context.Background(), room); err != nil {
		t.Fatalf("create room %s: %v", room.Name, err)
	}
	return room
}

func addBooking(repo RoomRepository, roomID string, b *model.Booking) error {
	return repo.Allocate(context.Background(), roomID, func(ctx context.Context, alloc Allocation) error {
		return alloc.AddBooking(b)
	})
}

func TestMemoryCreateRoom(t *testing.T) {
	repo := NewMemoryRoomRepository()
	room := mustCreate(t, repo, newRoom("R1", 2))

	if room.ID == "" {
		t.Fatal("expected room ID to be assigned")
	}
	if room.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	err := repo.CreateRoom(context.Background(), newRoom("R1", 4))
	if !errors.Is(err, roomserrors.ErrRoomExists) {
		t.Errorf("expected ErrRoomExists, got %v", err)
	}
}

func TestMemoryCreateRoom_InitialBookings(t *testing.T) {
	tests := []struct {
		name     string
		bookings []*model.Booking
		wantErr  error
	}{
		{
			name:     "disjoint bookings",
			bookings: []*model.Booking{booking("AAAAAAAAAA", 1, 3), booking("BBBBBBBBBB", 3, 5)},
		},
		{
			name:     "overlapping bookings",
			bookings: []*model.Booking{booking("AAAAAAAAAA", 1, 4), booking("BBBBBBBBBB", 3, 5)},
			wantErr:  roomserrors.ErrRoomAlreadyBooked,
		},
		{
			name:     "duplicate reference",
			bookings: []*model.Booking{booking("AAAAAAAAAA", 1, 2), booking("AAAAAAAAAA", 3, 5)},
			wantErr:  roomserrors.ErrDuplicateReference,
		},
		{
			name:     "inverted range",
			bookings: []*model.Booking{booking("AAAAAAAAAA", 4, 2)},
			wantErr:  roomserrors.ErrInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMemoryRoomRepository()
			room := newRoom("R1", 1)
			room.Bookings = tt.bookings

			err := repo.CreateRoom(context.Background(), room)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				return
			}

			stored, err := repo.FindRoomByName(context.Background(), "R1")
			if err != nil {
				t.Fatalf("find room: %v", err)
			}
			if len(stored.Bookings) != len(tt.bookings) {
				t.Fatalf("expected %d bookings, got %d", len(tt.bookings), len(stored.Bookings))
			}
			for _, b := range stored.Bookings {
				if b.RoomID != room.ID || b.RoomName != "R1" {
					t.Errorf("booking %s not linked to its room: %+v", b.Reference, b)
				}
			}
		})
	}
}

func TestMemoryCreateRoom_ReferenceTakenByOtherRoom(t *testing.T) {
	repo := NewMemoryRoomRepository()
	r1 := newRoom("R1", 1)
	r1.Bookings = []*model.Booking{booking("AAAAAAAAAA", 1, 2)}
	mustCreate(t, repo, r1)

	r2 := newRoom("R2", 1)
	r2.Bookings = []*model.Booking{booking("BBBBBBBBBB", 1, 2), booking("AAAAAAAAAA", 3, 4)}
	err := repo.CreateRoom(context.Background(), r2)
	if !errors.Is(err, roomserrors.ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}

	// the partially reserved reference must be released again
	if err := addBooking(repo, r1.ID, booking("BBBBBBBBBB", 5, 6)); err != nil {
		t.Errorf("expected BBBBBBBBBB to be free, got %v", err)
	}
	if _, err := repo.FindBookingByReference(context.Background(), "AAAAAAAAAA"); err != nil {
		t.Errorf("original booking lost: %v", err)
	}
}

func TestMemoryListRooms_InsertionOrder(t *testing.T) {
	repo := NewMemoryRoomRepository()
	for _, name := range []string{"R3", "R1", "R2"} {
		mustCreate(t, repo, newRoom(name, 1))
	}

	rooms, err := repo.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := []string{}
	for _, r := range rooms {
		got = append(got, r.Name)
	}
	want := []string{"R3", "R1", "R2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestMemoryListRooms_Empty(t *testing.T) {
	repo := NewMemoryRoomRepository()
	rooms, err := repo.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rooms == nil || len(rooms) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", rooms)
	}
}

func TestMemoryReadsReturnCopies(t *testing.T) {
	repo := NewMemoryRoomRepository()
	room := mustCreate(t, repo, newRoom("R1", 1))
	if err := addBooking(repo, room.ID, booking("AAAAAAAAAA", 1, 2)); err != nil {
		t.Fatalf("add booking: %v", err)
	}

	first, _ := repo.FindRoomByName(context.Background(), "R1")
	first.Bookings[0].StartTime = day(100)
	first.Bookings = append(first.Bookings, booking("ZZZZZZZZZZ", 7, 8))
	first.Beds = 9

	second, _ := repo.FindRoomByName(context.Background(), "R1")
	if len(second.Bookings) != 1 || !second.Bookings[0].StartTime.Equal(day(1)) || second.Beds != 1 {
		t.Errorf("repository state was mutated through a returned copy: %+v", second)
	}
}

func TestMemoryAllocate_CommitAndRollback(t *testing.T) {
	repo := NewMemoryRoomRepository()
	room := mustCreate(t, repo, newRoom("R1", 1))
	failure := errors.New("boom")

	err := repo.Allocate(context.Background(), room.ID, func(ctx context.Context, alloc Allocation) error {
		if err := alloc.AddBooking(booking("AAAAAAAAAA", 1, 2)); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected fn error to be returned, got %v", err)
	}

	stored, _ := repo.FindRoomByName(context.Background(), "R1")
	if len(stored.Bookings) != 0 {
		t.Fatalf("expected rollback, got %d bookings", len(stored.Bookings))
	}
	if _, err := repo.FindBookingByReference(context.Background(), "AAAAAAAAAA"); !errors.Is(err, roomserrors.ErrBookingNotFound) {
		t.Errorf("expected rolled back reference to be unknown, got %v", err)
	}

	// the reservation was released, so the same reference is usable again
	if err := addBooking(repo, room.ID, booking("AAAAAAAAAA", 1, 2)); err != nil {
		t.Fatalf("expected commit, got %v", err)
	}
	found, err := repo.FindBookingByReference(context.Background(), "AAAAAAAAAA")
	if err != nil {
		t.Fatalf("find booking: %v", err)
	}
	if found.RoomID != room.ID || found.RoomName != "R1" || found.ID == "" {
		t.Errorf("unexpected committed booking: %+v", found)
	}
}

func TestMemoryAllocate_PanicReleasesReferences(t *testing.T) {
	repo := NewMemoryRoomRepository()
	room := mustCreate(t, repo, newRoom("R1", 1))

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = repo.Allocate(context.Background(), room.ID, func(ctx context.Context, alloc Allocation) error {
			if err := alloc.AddBooking(booking("AAAAAAAAAA", 1, 2)); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	if err := addBooking(repo, room.ID, booking("AAAAAAAAAA", 1, 2)); err != nil {
		t.Fatalf("expected reference to be reusable after panic, got %v", err)
	}
}

func TestMemoryAllocate_RejectsOverlap(t *testing.T) {
	repo := NewMemoryRoomRepository()
	room := mustCreate(t, repo, newRoom("R1", 1))
	if err := addBooking(repo, room.ID, booking("AAAAAAAAAA", 1, 3)); err != nil {
		t.Fatalf("add booking: %v", err)
	}

	tests := []struct {
		name    string
		b       *model.Booking
		wantErr error
	}{
		{"overlapping", booking("BBBBBBBBBB", 2, 4), roomserrors.ErrRoomAlreadyBooked},
		{"identical", booking("CCCCCCCCCC", 1, 3), roomserrors.ErrRoomAlreadyBooked},
		{"back to back after", booking("DDDDDDDDDD", 3, 4), nil},
		{"back to back before", booking("EEEEEEEEEE", 0, 1), nil},
		{"reused reference", booking("AAAAAAAAAA", 10, 11), roomserrors.ErrDuplicateReference},
		{"invalid range", booking("FFFFFFFFFF", 6, 6), roomserrors.ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := addBooking(repo, room.ID, tt.b)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMemoryAllocate_ReferenceUniqueAcrossRooms(t *testing.T) {
	repo := NewMemoryRoomRepository()
	r1 := mustCreate(t, repo, newRoom("R1", 1))
	r2 := mustCreate(t, repo, newRoom("R2", 1))

	if err := addBooking(repo, r1.ID, booking("AAAAAAAAAA", 1, 2)); err != nil {
		t.Fatalf("add booking: %v", err)
	}
	err := addBooking(repo, r2.ID, booking("AAAAAAAAAA", 5, 6))
	if !errors.Is(err, roomserrors.ErrDuplicateReference) {
		t.Errorf("expected ErrDuplicateReference, got %v", err)
	}
}

func TestMemoryAllocate_HandleInvalidAfterReturn(t *testing.T) {
	repo := NewMemoryRoomRepository()
	room := mustCreate(t, repo, newRoom("R1", 1))

	var leaked Allocation
	err := repo.Allocate(context.Background(), room.ID, func(ctx context.Context, alloc Allocation) error {
		leaked = alloc
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := leaked.AddBooking(booking("AAAAAAAAAA", 1, 2)); !errors.Is(err, roomserrors.ErrConflict) {
		t.Errorf("expected ErrConflict from AddBooking, got %v", err)
	}
	if _, err := leaked.RemoveBooking("AAAAAAAAAA"); !errors.Is(err, roomserrors.ErrConflict) {
		t.Errorf("expected ErrConflict from RemoveBooking, got %v", err)
	}

	stored, _ := repo.FindRoomByName(context.Background(), "R1")
	if len(stored.Bookings) != 0 {
		t.Errorf("expected no bookings, got %d", len(stored.Bookings))
	}
}

func TestMemoryAllocate_RemoveBooking(t *testing.T) {
	repo := NewMemoryRoomRepository()
	room := mustCreate(t, repo, newRoom("R1", 1))
	if err := addBooking(repo, room.ID, booking("AAAAAAAAAA", 1, 3)); err != nil {
		t.Fatalf("add booking: %v", err)
	}

	err := repo.Allocate(context.Background(), room.ID, func(ctx context.Context, alloc Allocation) error {
		removed, err := alloc.RemoveBooking("AAAAAAAAAA")
		if err != nil {
			return err
		}
		if removed.Reference != "AAAAAAAAAA" {
			t.Errorf("unexpected removed booking %+v", removed)
		}
		if len(alloc.Room().Bookings) != 0 {
			t.Errorf("staged removal not visible in Room()")
		}
		// freed period can be rebooked in the same allocation
		return alloc.AddBooking(booking("BBBBBBBBBB", 1, 3))
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := repo.FindBookingByReference(context.Background(), "AAAAAAAAAA"); !errors.Is(err, roomserrors.ErrBookingNotFound) {
		t.Errorf("expected removed booking to be gone, got %v", err)
	}
	if _, err := repo.FindBookingByReference(context.Background(), "BBBBBBBBBB"); err != nil {
		t.Errorf("expected new booking, got %v", err)
	}

	err = repo.Allocate(context.Background(), room.ID, func(ctx context.Context, alloc Allocation) error {
		_, err := alloc.RemoveBooking("NOPE")
		return err
	})
	if !errors.Is(err, roomserrors.ErrBookingNotFound) {
		t.Errorf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestMemoryAllocate_UnknownRoom(t *testing.T) {
	repo := NewMemoryRoomRepository()
	called := false
	err := repo.Allocate(context.Background(), "missing", func(ctx context.Context, alloc Allocation) error {
		called = true
		return nil
	})
	if !errors.Is(err, roomserrors.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
	if called {
		t.Error("fn must not run for an unknown room")
	}
}

func TestMemoryAllocate_ConcurrentSamePeriod(t *testing.T) {
	repo := NewMemoryRoomRepository()
	room := mustCreate(t, repo, newRoom("R1", 1))

	const workers = 50
	refs := make([]string, workers)
	for i := range refs {
		refs[i] = string(rune('A'+i%26)) + string(rune('a'+i/26)) + "00000000"
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			errs <- addBooking(repo, room.ID, &model.Booking{Reference: ref, StartTime: day(1), EndTime: day(3)})
		}(refs[i])
	}
	wg.Wait()
	close(errs)

	succeeded, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, roomserrors.ErrRoomAlreadyBooked):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || rejected != workers-1 {
		t.Errorf("expected 1 success and %d rejections, got %d and %d", workers-1, succeeded, rejected)
	}
}

func TestMemoryDeleteRoom_CascadesBookings(t *testing.T) {
	repo := NewMemoryRoomRepository()
	room := mustCreate(t, repo, newRoom("R1", 1))
	if err := addBooking(repo, room.ID, booking("AAAAAAAAAA", 1, 2)); err != nil {
		t.Fatalf("add booking: %v", err)
	}

	removed, err := repo.DeleteRoom(context.Background(), "R1")
	if err != nil {
		t.Fatalf("delete room: %v", err)
	}
	if len(removed.Bookings) != 1 {
		t.Errorf("expected removed room to carry its bookings, got %d", len(removed.Bookings))
	}

	if _, err := repo.FindRoomByName(context.Background(), "R1"); !errors.Is(err, roomserrors.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := repo.FindBookingByReference(context.Background(), "AAAAAAAAAA"); !errors.Is(err, roomserrors.ErrBookingNotFound) {
		t.Errorf("expected booking to be deleted with its room, got %v", err)
	}
	if err := addBooking(repo, room.ID, booking("BBBBBBBBBB", 1, 2)); !errors.Is(err, roomserrors.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound on deleted room, got %v", err)
	}
	if _, err := repo.DeleteRoom(context.Background(), "R1"); !errors.Is(err, roomserrors.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound on second delete, got %v", err)
	}

	// name and references are free again
	again := mustCreate(t, repo, newRoom("R1", 2))
	if err := addBooking(repo, again.ID, booking("AAAAAAAAAA", 1, 2)); err != nil {
		t.Errorf("expected reference to be reusable, got %v", err)
	}
}

func TestMemoryListBookingsOverlapping(t *testing.T) {
	repo := NewMemoryRoomRepository()
	r1 := mustCreate(t, repo, newRoom("R1", 1))
	r2 := mustCreate(t, repo, newRoom("R2", 1))
	for _, step := range []struct {
		roomID string
		b      *model.Booking
	}{
		{r1.ID, booking("AAAAAAAAAA", 5, 7)},
		{r2.ID, booking("BBBBBBBBBB", 1, 3)},
		{r1.ID, booking("CCCCCCCCCC", 10, 12)},
	} {
		if err := addBooking(repo, step.roomID, step.b); err != nil {
			t.Fatalf("add booking: %v", err)
		}
	}

	all, err := repo.ListBookings(context.Background())
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	if len(all) != 3 || all[0].Reference != "BBBBBBBBBB" {
		t.Errorf("expected 3 bookings sorted by start, got %+v", all)
	}

	window, _ := interval.New(day(3), day(6))
	hits, err := repo.ListBookingsOverlapping(context.Background(), window)
	if err != nil {
		t.Fatalf("list overlapping: %v", err)
	}
	if len(hits) != 1 || hits[0].Reference != "AAAAAAAAAA" {
		t.Errorf("expected only AAAAAAAAAA, got %+v", hits)
	}
}

func TestMemoryCancelledContext(t *testing.T) {
	repo := NewMemoryRoomRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.ListRooms(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := repo.Ping(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled from Ping, got %v", err)
	}
}
