package view

import "time"

// ValueView tracks a single typed value. Only the latest overwrite within a
// projection cycle survives to the drain.
type ValueView[T any] struct {
	viewBase
	initValue T
	encode    func(T) InitValue
	pending   *ValueChanged
}

// NewStringValueView constructs a value view over a string.
func NewStringValueView(name string, initValue string) *ValueView[string] {
	return &ValueView[string]{viewBase: newViewBase(name), initValue: initValue, encode: StringValue}
}

// NewOptionalStringValueView constructs a value view over a nullable string.
func NewOptionalStringValueView(name string, initValue *string) *ValueView[*string] {
	return &ValueView[*string]{viewBase: newViewBase(name), initValue: initValue, encode: OptionalStringValue}
}

// NewIntValueView constructs a value view over a 64-bit integer.
func NewIntValueView(name string, initValue int64) *ValueView[int64] {
	return &ValueView[int64]{viewBase: newViewBase(name), initValue: initValue, encode: IntValue}
}

// NewInt32ValueView constructs a value view over a 32-bit integer.
func NewInt32ValueView(name string, initValue int32) *ValueView[int32] {
	return &ValueView[int32]{viewBase: newViewBase(name), initValue: initValue, encode: Int32Value}
}

// NewBoolValueView constructs a value view over a boolean.
func NewBoolValueView(name string, initValue bool) *ValueView[bool] {
	return &ValueView[bool]{viewBase: newViewBase(name), initValue: initValue, encode: BoolValue}
}

// NewTimeValueView constructs a value view over a timestamp.
func NewTimeValueView(name string, initValue time.Time) *ValueView[time.Time] {
	return &ValueView[time.Time]{viewBase: newViewBase(name), initValue: initValue, encode: TimeValue}
}

// DefaultValue returns the immutable initial value; it is never affected by
// pending or drained changes.
func (v *ValueView[T]) DefaultValue() T {
	return v.initValue
}

// Set queues an overwrite, discarding any earlier pending value from the
// same cycle.
func (v *ValueView[T]) Set(value T) {
	v.mustBeBound()
	v.pending = &ValueChanged{NewValue: value}
}

// InitValues returns the view's seed record.
func (v *ValueView[T]) InitValues() []InitViewData {
	v.mustBeBound()
	return []InitViewData{{Key: v.entityID, Name: v.name, Value: v.encode(v.initValue)}}
}

// Changes drains the pending overwrite, if any.
func (v *ValueView[T]) Changes() []Change {
	v.mustBeBound()
	if v.pending == nil {
		return nil
	}
	drained := *v.pending
	v.pending = nil
	return []Change{drained}
}
