package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections_UniqueIndexes(t *testing.T) {
	tests := []struct {
		collection string
		key        string
	}{
		{"Rooms", "name"},
		{"Bookings", "reference"},
	}

	defs := Collections()
	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			def, ok := defs[tt.collection]
			if !ok {
				t.Fatalf("collection %s not migrated", tt.collection)
			}
			found := false
			for _, idx := range def.Indexes {
				keys := idx.Keys.(bson.D)
				if len(keys) == 1 && keys[0].Key == tt.key && idx.Options != nil && idx.Options.Unique != nil && *idx.Options.Unique {
					found = true
				}
			}
			if !found {
				t.Errorf("expected unique index on %s.%s", tt.collection, tt.key)
			}
		})
	}
}

func TestCollections_LockExpiry(t *testing.T) {
	def, ok := Collections()["Room_locks"]
	if !ok {
		t.Fatal("Room_locks not migrated")
	}
	idx := def.Indexes[0]
	if idx.Options == nil || idx.Options.ExpireAfterSeconds == nil || *idx.Options.ExpireAfterSeconds != 0 {
		t.Error("expected TTL index on expires_at")
	}
}

func TestCollections_Validators(t *testing.T) {
	for name, def := range Collections() {
		if _, ok := def.Validator["$jsonSchema"]; !ok {
			t.Errorf("collection %s has no schema validator", name)
		}
	}
}

func TestBookingValidator_RejectsEmptyStays(t *testing.T) {
	expr, ok := Collections()["Bookings"].Validator["$expr"].(bson.M)
	if !ok {
		t.Fatal("bookings validator has no $expr clause")
	}
	operands, ok := expr["$lt"].(bson.A)
	if !ok || len(operands) != 2 || operands[0] != "$start_time" || operands[1] != "$end_time" {
		t.Errorf("expected start_time < end_time, got %v", expr)
	}
}
