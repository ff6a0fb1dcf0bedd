package view

// RefView tracks a reference to a single entity, possibly absent, plus keyed
// attributes on the referenced item. The top-level reference is
// last-write-wins within a cycle; attribute changes are last-write-wins per
// (item, attribute) key.
type RefView struct {
	viewBase
	initValue *string
	pending   *RefChanged
	attrs     attributeChangeSet
}

// NewRefView constructs a reference view. A nil initValue seeds an absent
// reference.
func NewRefView(name string, initValue *string) *RefView {
	return &RefView{viewBase: newViewBase(name), initValue: initValue}
}

// DefaultValue returns the immutable initial reference, nil when absent.
func (v *RefView) DefaultValue() *string {
	return v.initValue
}

// Set queues a reference overwrite, discarding any earlier pending one from
// the same cycle.
func (v *RefView) Set(entityID string) {
	v.mustBeBound()
	v.pending = &RefChanged{NewValue: &entityID}
}

// Unset queues a reference clear, discarding any earlier pending overwrite
// from the same cycle.
func (v *RefView) Unset() {
	v.mustBeBound()
	v.pending = &RefChanged{}
}

// CounterAttr returns a counter tracker for an attribute on the referenced item.
func (v *RefView) CounterAttr(itemID, attrName string) CounterAttribute {
	return CounterAttr(v, itemID, attrName)
}

// InitValues returns the view's seed record.
func (v *RefView) InitValues() []InitViewData {
	v.mustBeBound()
	return []InitViewData{{Key: v.entityID, Name: v.name, Value: OptionalStringValue(v.initValue)}}
}

// Changes drains the pending reference overwrite, if any, followed by the
// pending attribute changes in first-write key order.
func (v *RefView) Changes() []Change {
	v.mustBeBound()
	var drained []Change
	if v.pending != nil {
		drained = append(drained, *v.pending)
		v.pending = nil
	}
	return append(drained, v.attrs.drain()...)
}

func (v *RefView) attributeChanges() *attributeChangeSet {
	return &v.attrs
}
