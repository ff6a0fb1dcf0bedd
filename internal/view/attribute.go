package view

// attributeKey identifies one keyed attribute within a view's attribute map.
type attributeKey struct {
	itemID   string
	attrName string
}

// attributeChangeSet holds at most one pending change per (item, attribute)
// key: a later mutation on the same key overwrites an earlier one still
// pending in the same cycle. This last-write-wins policy is intentional
// observed behavior, in contrast to the append-all structural buffers of
// CounterView and RefListView. Keys drain in first-write order so the wire
// stream stays deterministic.
type attributeChangeSet struct {
	order []attributeKey
	byKey map[attributeKey]Change
}

func (s *attributeChangeSet) put(key attributeKey, change Change) {
	if s.byKey == nil {
		s.byKey = make(map[attributeKey]Change)
	}
	if _, pending := s.byKey[key]; !pending {
		s.order = append(s.order, key)
	}
	s.byKey[key] = change
}

func (s *attributeChangeSet) drain() []Change {
	if len(s.order) == 0 {
		return nil
	}
	drained := make([]Change, 0, len(s.order))
	for _, key := range s.order {
		drained = append(drained, s.byKey[key])
	}
	s.order = nil
	s.byKey = nil
	return drained
}

// AttributeHost is implemented by the view variants that carry keyed
// attributes (RefView and RefListView). It is sealed to this package.
type AttributeHost interface {
	attributeChanges() *attributeChangeSet
	mustBeBound()
}

// CounterAttribute routes counter mutations for one (item, attribute) key
// into the enclosing view's attribute map. If the attribute does not exist
// yet downstream, the first mutation implicitly creates it at zero.
type CounterAttribute struct {
	host AttributeHost
	key  attributeKey
}

// CounterAttr returns a counter tracker bound to the given item and
// attribute name on the host view.
func CounterAttr(host AttributeHost, itemID, attrName string) CounterAttribute {
	return CounterAttribute{host: host, key: attributeKey{itemID: itemID, attrName: attrName}}
}

// Increment queues a positive delta, replacing any pending change for this key.
func (a CounterAttribute) Increment(by int64) {
	a.host.mustBeBound()
	a.host.attributeChanges().put(a.key, CounterAttrIncremented{
		ItemID:   a.key.itemID,
		AttrName: a.key.attrName,
		By:       by,
	})
}

// Decrement queues a negative delta, replacing any pending change for this key.
func (a CounterAttribute) Decrement(by int64) {
	a.host.mustBeBound()
	a.host.attributeChanges().put(a.key, CounterAttrDecremented{
		ItemID:   a.key.itemID,
		AttrName: a.key.attrName,
		By:       by,
	})
}

// Reset queues an overwrite, replacing any pending change for this key.
func (a CounterAttribute) Reset(newValue int64) {
	a.host.mustBeBound()
	a.host.attributeChanges().put(a.key, CounterAttrReset{
		ItemID:   a.key.itemID,
		AttrName: a.key.attrName,
		NewValue: newValue,
	})
}

// ValueAttribute routes typed value overwrites for one (item, attribute) key
// into the enclosing view's attribute map, last-write-wins per key.
type ValueAttribute[T any] struct {
	host AttributeHost
	key  attributeKey
}

// ValueAttr returns a typed value tracker bound to the given item and
// attribute name on the host view.
func ValueAttr[T any](host AttributeHost, itemID, attrName string) ValueAttribute[T] {
	return ValueAttribute[T]{host: host, key: attributeKey{itemID: itemID, attrName: attrName}}
}

// Set queues an overwrite, replacing any pending change for this key.
func (a ValueAttribute[T]) Set(value T) {
	a.host.mustBeBound()
	a.host.attributeChanges().put(a.key, ValueAttrChanged{
		ItemID:   a.key.itemID,
		AttrName: a.key.attrName,
		NewValue: value,
	})
}
