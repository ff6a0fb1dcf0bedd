package view

// CounterView tracks an integer counter. Every mutation appends a record, in
// call order, with no coalescing: downstream consumers may apply deltas
// incrementally, so each one must survive the cycle.
type CounterView struct {
	viewBase
	initValue int64
	pending   []Change
}

// NewCounterView constructs a counter view seeded with initValue.
func NewCounterView(name string, initValue int64) *CounterView {
	return &CounterView{viewBase: newViewBase(name), initValue: initValue}
}

// DefaultValue returns the immutable initial value.
func (v *CounterView) DefaultValue() int64 {
	return v.initValue
}

// Increment appends a positive delta record.
func (v *CounterView) Increment(by int64) {
	v.mustBeBound()
	v.pending = append(v.pending, CounterIncremented{By: by})
}

// Decrement appends a negative delta record.
func (v *CounterView) Decrement(by int64) {
	v.mustBeBound()
	v.pending = append(v.pending, CounterDecremented{By: by})
}

// Reset appends an overwrite record.
func (v *CounterView) Reset(newValue int64) {
	v.mustBeBound()
	v.pending = append(v.pending, CounterReset{NewValue: newValue})
}

// InitValues returns the view's seed record.
func (v *CounterView) InitValues() []InitViewData {
	v.mustBeBound()
	return []InitViewData{{Key: v.entityID, Name: v.name, Value: IntValue(v.initValue)}}
}

// Changes drains the accumulated records in call order.
func (v *CounterView) Changes() []Change {
	v.mustBeBound()
	drained := v.pending
	v.pending = nil
	return drained
}
