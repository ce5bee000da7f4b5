package inventory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	roomserrors "innkeep/internal/rooms/errors"
	"innkeep/pkg/logger"
	"innkeep/pkg/model"
)

const sample = `
rooms:
  - name: "  R1 "
    beds: 2
    price: "120.50"
    description: sea view
    bookings:
      - start_time: 2030-01-01T02:00:00+02:00
        end_time: 2030-01-03T00:00:00Z
        reference: aB3xY9kLmQ
  - name: R2
    beds: 4
`

func TestParse(t *testing.T) {
	rooms, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}

	r1 := rooms[0]
	if r1.Name != "R1" || r1.Beds != 2 || r1.Price.String() != "120.5" {
		t.Errorf("unexpected room %+v", r1)
	}
	if len(r1.Bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(r1.Bookings))
	}
	b := r1.Bookings[0]
	if !b.StartTime.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) || b.Reference != "aB3xY9kLmQ" {
		t.Errorf("unexpected booking %+v", b)
	}
	if !rooms[1].Price.IsZero() {
		t.Errorf("expected zero price default, got %s", rooms[1].Price)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing name", "rooms:\n  - beds: 1\n", "no name"},
		{"duplicate name", "rooms:\n  - name: R1\n    beds: 1\n  - name: R1\n    beds: 2\n", "listed twice"},
		{"no beds", "rooms:\n  - name: R1\n", "at least one bed"},
		{"bad price", "rooms:\n  - name: R1\n    beds: 1\n    price: cheap\n", "invalid price"},
		{"negative price", "rooms:\n  - name: R1\n    beds: 1\n    price: \"-1\"\n", "negative"},
		{"bad instant", "rooms:\n  - name: R1\n    beds: 1\n    bookings:\n      - start_time: monday\n        end_time: 2030-01-03T00:00:00Z\n        reference: x\n", "start_time"},
		{"missing reference", "rooms:\n  - name: R1\n    beds: 1\n    bookings:\n      - start_time: 2030-01-01T00:00:00Z\n        end_time: 2030-01-03T00:00:00Z\n", "reference"},
		{"unknown field", "rooms:\n  - name: R1\n    beds: 1\n    floor: 3\n", "floor"},
		{"slash in name", "rooms:\n  - name: R1/2\n    beds: 1\n", "must not contain '/'"},
		{"name too long", "rooms:\n  - name: " + strings.Repeat("x", 65) + "\n    beds: 1\n", "name must be at most 64"},
		{"too many beds", "rooms:\n  - name: R1\n    beds: 51\n", "beds must be at most 50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	rooms, err := Load(path)
	if err != nil || len(rooms) != 2 {
		t.Fatalf("Load: %v, %d rooms", err, len(rooms))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

type mockCreator struct {
	createFunc func(ctx context.Context, room *model.Room) error
}

func (m *mockCreator) CreateRoom(ctx context.Context, room *model.Room) error {
	return m.createFunc(ctx, room)
}

func TestSeed(t *testing.T) {
	log := logger.Discard()
	rooms := []*model.Room{{Name: "R1", Beds: 1}, {Name: "R2", Beds: 2}, {Name: "R3", Beds: 3}}

	store := &mockCreator{createFunc: func(ctx context.Context, room *model.Room) error {
		if room.Name == "R2" {
			return roomserrors.ErrRoomExists
		}
		return nil
	}}
	created, err := Seed(context.Background(), store, rooms, log)
	if err != nil || created != 2 {
		t.Errorf("expected 2 created and no error, got %d, %v", created, err)
	}

	boom := errors.New("boom")
	store.createFunc = func(ctx context.Context, room *model.Room) error {
		if room.Name == "R2" {
			return boom
		}
		return nil
	}
	created, err = Seed(context.Background(), store, rooms, log)
	if !errors.Is(err, boom) || created != 1 {
		t.Errorf("expected failure after 1 room, got %d, %v", created, err)
	}
}
