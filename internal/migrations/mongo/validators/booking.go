package validators

import "go.mongodb.org/mongo-driver/bson"

// BookingValidator also rejects empty or inverted stays at the storage layer.
var BookingValidator = bson.M{
	"$expr": bson.M{"$lt": bson.A{"$start_time", "$end_time"}},
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"room_id",
			"room_name",
			"start_time",
			"end_time",
			"reference",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"room_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"room_name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"reference": bson.M{
				"bsonType": "string",
				"pattern":  "^[A-Za-z0-9]{6,64}$",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
