package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections_EveryCollectionHasValidator(t *testing.T) {
	for name, def := range Collections() {
		if def.Validator == nil {
			t.Errorf("collection %s has no validator", name)
		}
		if _, ok := def.Validator["$jsonSchema"]; !ok {
			t.Errorf("collection %s validator is not a $jsonSchema", name)
		}
	}
}

func TestConversationsIndexes_PairIsUnique(t *testing.T) {
	var found bool
	for _, idx := range ConversationsIndexes {
		keys, ok := idx.Keys.(bson.D)
		if !ok || len(keys) != 2 || keys[0].Key != "pair_key" || keys[1].Key != "property_id" {
			continue
		}
		found = true
		if idx.Options == nil || idx.Options.Unique == nil || !*idx.Options.Unique {
			t.Errorf("pair_key/property_id index must be unique")
		}
	}
	if !found {
		t.Fatalf("missing pair_key/property_id index")
	}
}

func TestRequiredFieldsHaveSchema(t *testing.T) {
	for name, def := range Collections() {
		schema := def.Validator["$jsonSchema"].(bson.M)
		required, _ := schema["required"].([]string)
		props := schema["properties"].(bson.M)
		for _, field := range required {
			if _, ok := props[field]; !ok {
				t.Errorf("%s: required field %s has no property schema", name, field)
			}
		}
	}
}
