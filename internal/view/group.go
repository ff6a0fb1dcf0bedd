package view

import "fmt"

// Group is the per-entity view registry. An entity's view-group definition
// populates it once, at init-event time; each Add binds the view's entity
// identifier and records it for later seeding and draining.
type Group struct {
	entityID string
	order    []View
	byName   map[string]View
}

// NewGroup constructs a registry for the given entity. An empty entity
// identifier is a wiring bug in the host and fails loudly.
func NewGroup(entityID string) *Group {
	if entityID == "" {
		panic("view: a group requires a non-empty entity id")
	}
	return &Group{entityID: entityID, byName: make(map[string]View)}
}

// EntityID returns the owning entity identifier.
func (g *Group) EntityID() string {
	return g.entityID
}

// Add registers a view, binding its entity identifier if not already set.
// Two views with the same name in one group is a configuration error and
// panics at registration time.
func (g *Group) Add(v View) {
	if _, exists := g.byName[v.Name()]; exists {
		panic(fmt.Sprintf("view: duplicate view name %q in group for entity %q", v.Name(), g.entityID))
	}
	v.bind(g.entityID)
	g.byName[v.Name()] = v
	g.order = append(g.order, v)
}

// Views returns the registered views in registration order.
func (g *Group) Views() []View {
	views := make([]View, len(g.order))
	copy(views, g.order)
	return views
}

// InitValues returns the seed records of every registered view, in
// registration order.
func (g *Group) InitValues() []InitViewData {
	var seeds []InitViewData
	for _, v := range g.order {
		seeds = append(seeds, v.InitValues()...)
	}
	return seeds
}
