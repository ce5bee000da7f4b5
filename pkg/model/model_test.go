package model

import (
	"encoding/json"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestPrice_JSON(t *testing.T) {
	var room RoomCreate
	if err := json.Unmarshal([]byte(`{"name":"R1","beds":2,"price":"99.90"}`), &room); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if room.Price.String() != "99.9" {
		t.Errorf("unexpected price %s", room.Price)
	}

	if err := json.Unmarshal([]byte(`{"price":12.5}`), &room); err != nil {
		t.Fatalf("unquoted numbers are accepted: %v", err)
	}

	data, err := json.Marshal(Room{Price: PriceFromInt(120)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	if out["price"] != "120" {
		t.Errorf("expected price as decimal string, got %v", out["price"])
	}
}

func TestPrice_BSONKeepsPrecision(t *testing.T) {
	price, err := NewPrice("1234.56")
	if err != nil {
		t.Fatal(err)
	}

	data, err := bson.Marshal(Room{ID: "room-1", Name: "R1", Price: price})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw bson.Raw = data
	if raw.Lookup("price").Type != bson.TypeDecimal128 {
		t.Errorf("expected Decimal128, got %v", raw.Lookup("price").Type)
	}

	var decoded Room
	if err := bson.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Price.Equal(price.Decimal) {
		t.Errorf("expected %s, got %s", price, decoded.Price)
	}
}

func TestNewPrice_Invalid(t *testing.T) {
	if _, err := NewPrice("twelve"); err == nil {
		t.Error("expected error")
	}
	if p, _ := NewPrice("-1"); !p.IsNegative() {
		t.Error("expected negative price to report IsNegative")
	}
}

func TestRoomClone_IsDeep(t *testing.T) {
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	room := &Room{
		Name: "R1",
		Bookings: []*Booking{
			{Reference: "aB3xY9kLmQ", StartTime: start, EndTime: start.Add(24 * time.Hour)},
		},
	}

	clone := room.Clone()
	clone.Bookings[0].Reference = "changed"
	clone.Bookings = append(clone.Bookings, &Booking{Reference: "extra"})

	if room.Bookings[0].Reference != "aB3xY9kLmQ" || len(room.Bookings) != 1 {
		t.Error("clone shares booking state with the original")
	}

	var nilRoom *Room
	if nilRoom.Clone() != nil {
		t.Error("clone of nil room should be nil")
	}
}

func TestBooking_Confirmation(t *testing.T) {
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &Booking{
		ID:        "b-1",
		RoomID:    "room-1",
		RoomName:  "R1",
		Reference: "aB3xY9kLmQ",
		StartTime: start,
		EndTime:   start.Add(24 * time.Hour),
	}

	c := b.Confirmation()
	if c.Reference != b.Reference || c.RoomName != "R1" || !c.StartTime.Equal(start) || !c.EndTime.Equal(b.EndTime) {
		t.Errorf("unexpected confirmation %+v", c)
	}
	if iv := b.Interval(); !iv.Start.Equal(start) || !iv.End.Equal(b.EndTime) {
		t.Errorf("unexpected interval %+v", iv)
	}
}
