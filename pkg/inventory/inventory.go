// Package inventory loads the initial room catalogue from a YAML file.
//
// Example:
//
//	rooms:
//	  - name: R1
//	    beds: 2
//	    price: "120.00"
//	    bookings:
//	      - start_time: 2030-01-01T00:00:00Z
//	        end_time: 2030-01-03T00:00:00Z
//	        reference: aB3xY9kLmQ
package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	roomserrors "innkeep/internal/rooms/errors"
	"innkeep/internal/rooms/validator"
	"innkeep/pkg/logger"
	"innkeep/pkg/model"
	"innkeep/pkg/reference"
	"innkeep/pkg/sanitizer"
)

type File struct {
	Rooms []RoomEntry `yaml:"rooms"`
}

type RoomEntry struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Beds        int            `yaml:"beds"`
	Price       string         `yaml:"price"`
	Bookings    []BookingEntry `yaml:"bookings"`
}

type BookingEntry struct {
	StartTime string `yaml:"start_time"`
	EndTime   string `yaml:"end_time"`
	Reference string `yaml:"reference"`
}

// RoomCreator is satisfied by the room repository.
type RoomCreator interface {
	CreateRoom(ctx context.Context, room *model.Room) error
}

func Load(path string) ([]*model.Room, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]*model.Room, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}
	if err := f.Verify(); err != nil {
		return nil, err
	}

	// seeded rooms obey the same rules as rooms created over the API
	roomValidator := validator.NewRoomValidator(logger.Discard())

	rooms := make([]*model.Room, 0, len(f.Rooms))
	for i, entry := range f.Rooms {
		room, err := entry.toRoom()
		if err == nil {
			err = roomValidator.ValidateRoom(&model.RoomCreate{
				Name:        room.Name,
				Description: room.Description,
				Beds:        room.Beds,
				Price:       room.Price,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("inventory: room %d (%s): %w", i, entry.Name, err)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// Verify catches evident mistakes before any room is built.
func (f *File) Verify() error {
	seen := make(map[string]struct{}, len(f.Rooms))
	for i, r := range f.Rooms {
		name := sanitizer.NormalizeRoomName(r.Name)
		if name == "" {
			return fmt.Errorf("inventory: room %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("inventory: room %q is listed twice", name)
		}
		seen[name] = struct{}{}
		if r.Beds < 1 {
			return fmt.Errorf("inventory: room %q must have at least one bed", name)
		}
	}
	return nil
}

func (e RoomEntry) toRoom() (*model.Room, error) {
	price := model.PriceFromInt(0)
	if e.Price != "" {
		p, err := model.NewPrice(e.Price)
		if err != nil {
			return nil, err
		}
		if p.IsNegative() {
			return nil, fmt.Errorf("price must not be negative")
		}
		price = p
	}

	room := &model.Room{
		Name:        sanitizer.NormalizeRoomName(e.Name),
		Description: sanitizer.NormalizeDescription(e.Description),
		Beds:        e.Beds,
		Price:       price,
		Bookings:    make([]*model.Booking, 0, len(e.Bookings)),
	}

	for j, b := range e.Bookings {
		start, err := time.Parse(time.RFC3339, b.StartTime)
		if err != nil {
			return nil, fmt.Errorf("booking %d: invalid start_time: %w", j, err)
		}
		end, err := time.Parse(time.RFC3339, b.EndTime)
		if err != nil {
			return nil, fmt.Errorf("booking %d: invalid end_time: %w", j, err)
		}
		ref := sanitizer.NormalizeReference(b.Reference)
		if !reference.Valid(ref) {
			return nil, fmt.Errorf("booking %d: reference %q must be %d-%d letters or digits", j, ref, reference.MinLength, reference.MaxLength)
		}
		room.Bookings = append(room.Bookings, &model.Booking{
			StartTime: start.UTC(),
			EndTime:   end.UTC(),
			Reference: ref,
		})
	}
	return room, nil
}

// Seed creates every room, skipping rooms that already exist so a restart
// against persistent storage is harmless.
func Seed(ctx context.Context, store RoomCreator, rooms []*model.Room, log *logger.Logger) (int, error) {
	created := 0
	for _, room := range rooms {
		err := store.CreateRoom(ctx, room)
		switch {
		case err == nil:
			created++
		case errors.Is(err, roomserrors.ErrRoomExists):
			log.Info("Inventory room already present, skipping", "room", room.Name)
		default:
			return created, fmt.Errorf("failed to seed room %q: %w", room.Name, err)
		}
	}
	log.Info("Inventory seeded", "rooms", len(rooms), "created", created)
	return created, nil
}
