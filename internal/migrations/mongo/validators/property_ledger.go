package validators

import "go.mongodb.org/mongo-driver/bson"

var PropertyLedgerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"version"},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},
			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
