package view

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMarshalChangeEncodesDiscriminatorAndPayload(t *testing.T) {
	encoded, err := MarshalChange(CounterAttrIncremented{ItemID: "item1", AttrName: "score", By: 4})
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("failed to decode wire payload: %v", err)
	}
	if decoded["op"] != string(OpCounterAttrIncremented) {
		t.Fatalf("unexpected op: %v", decoded["op"])
	}
	if decoded["item_id"] != "item1" || decoded["attr_name"] != "score" {
		t.Fatalf("unexpected attribute key: %v", decoded)
	}
	if decoded["by"] != float64(4) {
		t.Fatalf("unexpected delta: %v", decoded["by"])
	}
}

func TestMarshalChangeEncodesNilReferenceAsNull(t *testing.T) {
	encoded, err := MarshalChange(RefChanged{})
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	if string(encoded) != `{"op":"ref_changed","new_value":null}` {
		t.Fatalf("unexpected wire payload: %s", encoded)
	}
}

func TestMarshalChangeEncodesZeroMoveIndex(t *testing.T) {
	encoded, err := MarshalChange(ListItemMoved{ItemID: "a", NewIndex: 0})
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	if string(encoded) != `{"op":"list_item_moved","item_id":"a","new_index":0}` {
		t.Fatalf("unexpected wire payload: %s", encoded)
	}
}

func TestMarshalChangeCoversEveryVariant(t *testing.T) {
	variants := []Change{
		ValueChanged{NewValue: "v"},
		CounterIncremented{By: 1},
		CounterDecremented{By: 1},
		CounterReset{NewValue: 2},
		RefChanged{NewValue: stringPtr("e")},
		ListItemAdded{ItemID: "a"},
		ListItemAddedIfAbsent{ItemID: "a"},
		ListItemRemoved{ItemID: "a"},
		ListItemChanged{OldItemID: "a", NewItemID: "b"},
		ListItemMoved{ItemID: "a", NewIndex: 3},
		ListCleared{},
		CounterAttrIncremented{ItemID: "a", AttrName: "n", By: 1},
		CounterAttrDecremented{ItemID: "a", AttrName: "n", By: 1},
		CounterAttrReset{ItemID: "a", AttrName: "n", NewValue: 1},
		ValueAttrChanged{ItemID: "a", AttrName: "n", NewValue: true},
	}

	for _, variant := range variants {
		encoded, err := MarshalChange(variant)
		if err != nil {
			t.Fatalf("failed to marshal %T: %v", variant, err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(encoded, &decoded); err != nil {
			t.Fatalf("invalid JSON for %T: %v", variant, err)
		}
		if decoded["op"] != string(variant.Kind()) {
			t.Fatalf("op mismatch for %T: %v", variant, decoded["op"])
		}
	}
}

func TestInitViewDataEncodesTimestampAsEpochMillis(t *testing.T) {
	seededAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	record := InitViewData{Key: "entity-1", Name: "created_at", Value: TimeValue(seededAt)}

	encoded, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var decoded struct {
		Key   string `json:"key"`
		Name  string `json:"name"`
		Value int64  `json:"value"`
		Type  string `json:"type"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("failed to decode seed record: %v", err)
	}
	if decoded.Key != "entity-1" || decoded.Name != "created_at" {
		t.Fatalf("unexpected identity fields: %+v", decoded)
	}
	if decoded.Value != seededAt.UnixMilli() {
		t.Fatalf("expected epoch-millis %d, got %d", seededAt.UnixMilli(), decoded.Value)
	}
	if decoded.Type != TypeTagTimestamp {
		t.Fatalf("unexpected type tag: %s", decoded.Type)
	}
}

func TestInitValueOptionalStringEncodesPresentValue(t *testing.T) {
	value := OptionalStringValue(stringPtr("present"))
	if value.TypeTag() != TypeTagOptionalString {
		t.Fatalf("unexpected type tag: %s", value.TypeTag())
	}
	if value.Encoded() != "present" {
		t.Fatalf("unexpected encoded value: %v", value.Encoded())
	}
}

func TestInitValueStringListIsolatedFromCaller(t *testing.T) {
	source := []string{"a", "b"}
	value := StringListValue(source)
	source[0] = "mutated"

	encoded := value.Encoded().([]string)
	if encoded[0] != "a" {
		t.Fatalf("expected seed value isolated from caller mutation, got %v", encoded)
	}
}
