package view

import "fmt"

// View is the capability contract shared by every view variant: a stable
// identity, a seed record, and a single-shot drain of pending changes.
//
// The contract is sealed to this package; the closed set of implementations
// is ValueView, CounterView, RefView and RefListView.
type View interface {
	// Name returns the view name, unique within the owning entity's group.
	Name() string
	// EntityID returns the owning entity identifier. Panics when the view
	// has not been registered into a Group yet.
	EntityID() string
	// InitValues returns the view's seed record(s). Current variants emit
	// exactly one record. Panics on an unbound view.
	InitValues() []InitViewData
	// Changes drains every change accumulated since the previous drain, in
	// the variant's defined order, clearing the buffer as a side effect. An
	// immediate second call returns nil. Panics on an unbound view.
	Changes() []Change

	bind(entityID string)
}

// viewBase carries the identity shared by all variants. The entity ID is
// bound exactly once, by Group.Add; using the view before that is a wiring
// bug in the entity definition and fails loudly.
type viewBase struct {
	name     string
	entityID string
}

func newViewBase(name string) viewBase {
	if name == "" {
		panic("view: a view requires a non-empty name")
	}
	return viewBase{name: name}
}

// Name returns the view name.
func (b *viewBase) Name() string {
	return b.name
}

// EntityID returns the bound entity identifier.
func (b *viewBase) EntityID() string {
	b.mustBeBound()
	return b.entityID
}

func (b *viewBase) bind(entityID string) {
	if b.entityID != "" {
		return
	}
	b.entityID = entityID
}

func (b *viewBase) mustBeBound() {
	if b.entityID == "" {
		panic(fmt.Sprintf("view: %q used before registration into a group", b.name))
	}
}
