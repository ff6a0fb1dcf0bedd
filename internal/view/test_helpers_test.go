package view

import "testing"

const testEntityID = "entity-1"

func bindView(t *testing.T, v View) {
	t.Helper()
	group := NewGroup(testEntityID)
	group.Add(v)
}

func expectPanic(t *testing.T, description string, run func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic: %s", description)
		}
	}()
	run()
}
