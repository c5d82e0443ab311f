package validators

import "go.mongodb.org/mongo-driver/bson"

var ConversationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"participant_ids",
			"pair_key",
			"property_id",
			"message_seq",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"participant_ids": bson.M{
				"bsonType":    "array",
				"minItems":    2,
				"maxItems":    2,
				"uniqueItems": true,
				"items": bson.M{
					"bsonType":  "string",
					"minLength": 1,
				},
			},

			"pair_key": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			// Empty when the conversation is not about a property.
			"property_id": bson.M{
				"bsonType":  "string",
				"maxLength": 64,
			},

			"message_seq": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var MessageValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"conversation_id",
			"sender_id",
			"content",
			"kind",
			"seq",
			"is_read",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"conversation_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"sender_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"content": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"kind": bson.M{
				"bsonType": "string",
				"enum":     []string{"text", "image", "file"},
			},

			"seq": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"is_read": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
