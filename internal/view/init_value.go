package view

import (
	"encoding/json"
	"time"
)

// Type tags carried alongside seed values so downstream consumers can
// validate and deserialize without reflection. The tags are part of the wire
// contract shared with existing subscribers.
const (
	TypeTagInt            = "int"
	TypeTagInt32          = "int32"
	TypeTagString         = "String"
	TypeTagOptionalString = "String?"
	TypeTagBool           = "bool"
	TypeTagStringList     = "List<String>"
	TypeTagTimestamp      = "DateTime"
)

// InitValue is a closed union over the scalar and list kinds a view may be
// seeded with. Values are built through the typed constructors below, which
// fix both the encoded representation and the type tag; there is no dynamic
// path. Timestamps encode as integer epoch-milliseconds.
type InitValue struct {
	tag     string
	encoded any
}

// IntValue seeds a 64-bit integer.
func IntValue(value int64) InitValue {
	return InitValue{tag: TypeTagInt, encoded: value}
}

// Int32Value seeds a 32-bit integer.
func Int32Value(value int32) InitValue {
	return InitValue{tag: TypeTagInt32, encoded: value}
}

// StringValue seeds a string.
func StringValue(value string) InitValue {
	return InitValue{tag: TypeTagString, encoded: value}
}

// OptionalStringValue seeds a nullable string; nil encodes as JSON null.
func OptionalStringValue(value *string) InitValue {
	if value == nil {
		return InitValue{tag: TypeTagOptionalString, encoded: nil}
	}
	return InitValue{tag: TypeTagOptionalString, encoded: *value}
}

// BoolValue seeds a boolean.
func BoolValue(value bool) InitValue {
	return InitValue{tag: TypeTagBool, encoded: value}
}

// StringListValue seeds an ordered sequence of strings. The slice is copied
// so later mutation by the caller cannot alter the seed.
func StringListValue(values []string) InitValue {
	copied := make([]string, len(values))
	copy(copied, values)
	return InitValue{tag: TypeTagStringList, encoded: copied}
}

// TimeValue seeds a timestamp, encoded as epoch-milliseconds.
func TimeValue(value time.Time) InitValue {
	return InitValue{tag: TypeTagTimestamp, encoded: value.UnixMilli()}
}

// TypeTag returns the wire type tag for the seeded value.
func (v InitValue) TypeTag() string {
	return v.tag
}

// Encoded returns the wire representation of the seeded value.
func (v InitValue) Encoded() any {
	return v.encoded
}

// InitViewData is the snapshot record describing a view's identity and
// starting value, emitted exactly once per view instance.
type InitViewData struct {
	Key   string
	Name  string
	Value InitValue
}

// MarshalJSON encodes the seed record in its wire shape.
func (d InitViewData) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key   string `json:"key"`
		Name  string `json:"name"`
		Value any    `json:"value"`
		Type  string `json:"type"`
	}{
		Key:   d.Key,
		Name:  d.Name,
		Value: d.Value.Encoded(),
		Type:  d.Value.TypeTag(),
	})
}
