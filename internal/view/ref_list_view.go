package view

// RefListView tracks an ordered list of entity references plus keyed
// attributes on its items. Structural mutations append one record each and
// drain in call order, because list operations do not commute; attribute
// changes share one map across all items, last-write-wins per key.
type RefListView struct {
	viewBase
	initValue []string
	pending   []Change
	attrs     attributeChangeSet
}

// NewRefListView constructs a reference-list view. The initial items are
// copied.
func NewRefListView(name string, initValue []string) *RefListView {
	copied := make([]string, len(initValue))
	copy(copied, initValue)
	return &RefListView{viewBase: newViewBase(name), initValue: copied}
}

// DefaultValue returns a copy of the immutable initial item list.
func (v *RefListView) DefaultValue() []string {
	copied := make([]string, len(v.initValue))
	copy(copied, v.initValue)
	return copied
}

// AddItem appends an unconditional add record.
func (v *RefListView) AddItem(itemID string) {
	v.mustBeBound()
	v.pending = append(v.pending, ListItemAdded{ItemID: itemID})
}

// AddItemIfAbsent appends a conditional add record.
func (v *RefListView) AddItemIfAbsent(itemID string) {
	v.mustBeBound()
	v.pending = append(v.pending, ListItemAddedIfAbsent{ItemID: itemID})
}

// RemoveItem appends a removal record.
func (v *RefListView) RemoveItem(itemID string) {
	v.mustBeBound()
	v.pending = append(v.pending, ListItemRemoved{ItemID: itemID})
}

// ChangeItem appends an item substitution record.
func (v *RefListView) ChangeItem(oldItemID, newItemID string) {
	v.mustBeBound()
	v.pending = append(v.pending, ListItemChanged{OldItemID: oldItemID, NewItemID: newItemID})
}

// MoveItem appends a repositioning record.
func (v *RefListView) MoveItem(itemID string, newIndex int) {
	v.mustBeBound()
	v.pending = append(v.pending, ListItemMoved{ItemID: itemID, NewIndex: newIndex})
}

// Clear appends a record emptying the list.
func (v *RefListView) Clear() {
	v.mustBeBound()
	v.pending = append(v.pending, ListCleared{})
}

// CounterAttr returns a counter tracker for an attribute on one list item.
func (v *RefListView) CounterAttr(itemID, attrName string) CounterAttribute {
	return CounterAttr(v, itemID, attrName)
}

// InitValues returns the view's seed record.
func (v *RefListView) InitValues() []InitViewData {
	v.mustBeBound()
	return []InitViewData{{Key: v.entityID, Name: v.name, Value: StringListValue(v.initValue)}}
}

// Changes drains the structural records in call order, followed by the
// pending attribute changes in first-write key order.
func (v *RefListView) Changes() []Change {
	v.mustBeBound()
	drained := v.pending
	v.pending = nil
	return append(drained, v.attrs.drain()...)
}

func (v *RefListView) attributeChanges() *attributeChangeSet {
	return &v.attrs
}
