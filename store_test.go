package archetypedb

import (
	"errors"
	"testing"
	"unsafe"
)

// failingAllocator fails its Nth Reserve call (1-indexed) and grants every
// other call, so a test can pin down exactly which growth attempt to break.
type failingAllocator struct {
	failAt int
	calls  int
}

func (a *failingAllocator) Reserve(int) error {
	a.calls++
	if a.calls == a.failAt {
		return errors.New("injected allocation failure")
	}
	return nil
}

func newTestStore(t *testing.T) (*EntityStore, *Registry) {
	t.Helper()
	r := NewRegistry()
	Register[float64](r, "game", "pos")
	Register[float64](r, "game", "vel")
	Register[string](r, "game", "name")
	return NewEntityStore(r), r
}

func TestNewEntityStartsInVoidArchetype(t *testing.T) {
	s, _ := newTestStore(t)
	e, err := s.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !s.IsAlive(e) {
		t.Fatalf("entity should be alive right after New")
	}
	arch, err := s.ArchetypeOf(e)
	if err != nil {
		t.Fatalf("ArchetypeOf: %v", err)
	}
	if arch.Index() != 0 {
		t.Fatalf("new entity should live in the void archetype, got table %d", arch.Index())
	}
}

func TestSetComponentMovesToNewArchetype(t *testing.T) {
	s, _ := newTestStore(t)
	e, _ := s.New()

	if err := SetComponent(s, e, "game", "pos", 1.5); err != nil {
		t.Fatalf("SetComponent: %v", err)
	}

	arch, err := s.ArchetypeOf(e)
	if err != nil {
		t.Fatalf("ArchetypeOf: %v", err)
	}
	if arch.Index() == 0 {
		t.Fatalf("entity should have moved out of the void archetype")
	}
	if !arch.HasComponent("game.pos") {
		t.Fatalf("destination archetype missing game.pos")
	}

	v, ok, err := GetComponent[float64](s, e, "game", "pos")
	if err != nil || !ok {
		t.Fatalf("GetComponent: ok=%v err=%v", ok, err)
	}
	if v != 1.5 {
		t.Fatalf("want 1.5, got %v", v)
	}
}

func TestSetComponentUpdatesInPlaceWhenAlreadyPresent(t *testing.T) {
	s, _ := newTestStore(t)
	e, _ := s.New()
	if err := SetComponent(s, e, "game", "pos", 1.0); err != nil {
		t.Fatalf("SetComponent: %v", err)
	}
	before, _ := s.ArchetypeOf(e)

	if err := SetComponent(s, e, "game", "pos", 2.0); err != nil {
		t.Fatalf("SetComponent: %v", err)
	}
	after, _ := s.ArchetypeOf(e)
	if before.Index() != after.Index() {
		t.Fatalf("updating an already-present component must not relocate the entity")
	}
	v, _, _ := GetComponent[float64](s, e, "game", "pos")
	if v != 2.0 {
		t.Fatalf("want 2.0, got %v", v)
	}
}

func TestRemoveComponentMovesToIDOnlyArchetype(t *testing.T) {
	s, _ := newTestStore(t)
	e, _ := s.New()
	_ = SetComponent(s, e, "game", "pos", 1.0)

	if err := RemoveComponent(s, e, "game", "pos"); err != nil {
		t.Fatalf("RemoveComponent: %v", err)
	}
	arch, _ := s.ArchetypeOf(e)
	if arch.Index() == 0 || len(arch.Columns()) != 1 {
		t.Fatalf("removing the only component should move the entity to an id-only archetype distinct from void, got table %d with %d columns", arch.Index(), len(arch.Columns()))
	}
	_, ok, err := GetComponent[float64](s, e, "game", "pos")
	if err != nil {
		t.Fatalf("GetComponent after remove: %v", err)
	}
	if ok {
		t.Fatalf("component should no longer be present")
	}
}

func TestRemoveComponentAbsentIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	e, _ := s.New()
	if err := RemoveComponent(s, e, "game", "vel"); err != nil {
		t.Fatalf("removing an absent component should be a no-op, got %v", err)
	}
	arch, _ := s.ArchetypeOf(e)
	if arch.Index() != 0 {
		t.Fatalf("no-op remove must not relocate the entity")
	}
}

func TestRemoveDisplacesLastRow(t *testing.T) {
	s, _ := newTestStore(t)
	e1, _ := s.New()
	e2, _ := s.New()
	e3, _ := s.New()

	if err := s.Remove(e1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.IsAlive(e1) {
		t.Fatalf("e1 should no longer be alive")
	}
	if !s.IsAlive(e2) || !s.IsAlive(e3) {
		t.Fatalf("e2 and e3 should remain alive")
	}

	ptr, ok := s.index[e3]
	if !ok {
		t.Fatalf("e3 should still be indexed")
	}
	if ptr.RowIndex != 0 {
		t.Fatalf("the displaced entity should have moved into the vacated row 0, got row %d", ptr.RowIndex)
	}
}

func TestGetComponentUnknownEntity(t *testing.T) {
	s, _ := newTestStore(t)
	_, _, err := GetComponent[float64](s, EntityId(9999), "game", "pos")
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("want ErrEntityNotFound, got %v", err)
	}
}

func TestSetComponentUnregisteredComponent(t *testing.T) {
	s, _ := newTestStore(t)
	e, _ := s.New()
	err := SetComponent(s, e, "game", "does-not-exist", 1.0)
	if !errors.Is(err, ErrComponentNotRegistered) {
		t.Fatalf("want ErrComponentNotRegistered, got %v", err)
	}
}

func TestNewRollsBackOnAllocationFailure(t *testing.T) {
	r := NewRegistry()
	alloc := &failingAllocator{failAt: 1}
	s := NewEntityStore(r, WithAllocator(alloc))

	_, err := s.New()
	if !errors.Is(err, ErrAllocationFailure) {
		t.Fatalf("want ErrAllocationFailure, got %v", err)
	}
	if len(s.index) != 0 {
		t.Fatalf("failed New must leave the index empty, got %d entries", len(s.index))
	}
	if s.voidTable().Len() != 0 {
		t.Fatalf("failed New must leave the void table empty, got len %d", s.voidTable().Len())
	}
}

func TestSetComponentRollsBackOnAllocationFailure(t *testing.T) {
	r := NewRegistry()
	Register[float64](r, "game", "pos")
	alloc := &failingAllocator{failAt: 2} // call 1: New's void row. call 2: dest table's first row.
	s := NewEntityStore(r, WithAllocator(alloc))

	e, err := s.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tableCountBefore := len(s.tables)
	err = SetComponent(s, e, "game", "pos", 1.0)
	if !errors.Is(err, ErrAllocationFailure) {
		t.Fatalf("want ErrAllocationFailure, got %v", err)
	}

	if len(s.tables) != tableCountBefore {
		t.Fatalf("failed SetComponent must discard the freshly created table, tables went from %d to %d", tableCountBefore, len(s.tables))
	}
	arch, err := s.ArchetypeOf(e)
	if err != nil {
		t.Fatalf("ArchetypeOf: %v", err)
	}
	if arch.Index() != 0 {
		t.Fatalf("entity must remain in the void archetype after a rolled-back SetComponent")
	}
}

// TestEntityIdSize is seed scenario S1 (spec.md §8): EntityId is a bare
// 8-byte value, no version tag riding along with it.
func TestEntityIdSize(t *testing.T) {
	if unsafe.Sizeof(EntityId(0)) != 8 {
		t.Fatalf("want sizeof(EntityId) == 8, got %d", unsafe.Sizeof(EntityId(0)))
	}
}

// TestEmptyStoreConstructionAndTeardown is seed scenario S2 (spec.md §8):
// constructing a store with no entities and letting it go must leave only
// the void archetype behind, with nothing to relocate or index.
func TestEmptyStoreConstructionAndTeardown(t *testing.T) {
	s := NewEntityStore(NewRegistry())

	if len(s.Tables()) != 1 {
		t.Fatalf("a freshly constructed store should hold only the void archetype, got %d tables", len(s.Tables()))
	}
	if s.voidTable().Len() != 0 {
		t.Fatalf("void archetype should start empty, got len %d", s.voidTable().Len())
	}
	if len(s.index) != 0 {
		t.Fatalf("a store with no entities should have an empty index, got %d entries", len(s.index))
	}
}

type vec3 struct{ X, Y, Z float32 }
type rotation struct{ Degrees float32 }

// TestExampleTrace is seed scenario S3 (spec.md §8): the jane/joe,
// location/rotation trace. It is the scenario that catches a void
// archetype keyed under its natural {id}-hash instead of a reserved
// sentinel: without that fix, p1's final remove_component would silently
// merge it back into void instead of landing in a fresh id-only table,
// leaving 5 tables instead of 6 with archetype_of(p1) == void.
func TestExampleTrace(t *testing.T) {
	r := NewRegistry()
	Register[vec3](r, "game", "location")
	Register[string](r, "game", "name")
	Register[rotation](r, "game", "rotation")
	s := NewEntityStore(r)

	p1, err := s.New()
	if err != nil {
		t.Fatalf("New p1: %v", err)
	}
	mustSet(t, s, p1, "game", "name", "jane")
	mustSet(t, s, p1, "game", "name", "joe")
	mustSet(t, s, p1, "game", "location", vec3{0, 0, 0})

	p2, err := s.New()
	if err != nil {
		t.Fatalf("New p2: %v", err)
	}
	if _, ok, _ := GetComponent[vec3](s, p2, "game", "location"); ok {
		t.Fatalf("freshly created p2 should have no location")
	}
	if _, ok, _ := GetComponent[string](s, p2, "game", "name"); ok {
		t.Fatalf("freshly created p2 should have no name")
	}

	mustSet(t, s, p2, "game", "rotation", rotation{90})
	mustSet(t, s, p2, "game", "rotation", rotation{91})
	if _, ok, _ := GetComponent[rotation](s, p1, "game", "rotation"); ok {
		t.Fatalf("p1 should have no rotation")
	}

	if err := RemoveComponent(s, p1, "game", "name"); err != nil {
		t.Fatalf("remove name: %v", err)
	}
	if err := RemoveComponent(s, p1, "game", "location"); err != nil {
		t.Fatalf("remove location: %v", err)
	}
	if err := RemoveComponent(s, p1, "game", "location"); err != nil {
		t.Fatalf("no-op remove location: %v", err)
	}

	tables := s.Tables()
	if len(tables) != 6 {
		t.Fatalf("want 6 tables after the trace, got %d", len(tables))
	}

	p1Arch, err := s.ArchetypeOf(p1)
	if err != nil {
		t.Fatalf("ArchetypeOf p1: %v", err)
	}
	p2Arch, err := s.ArchetypeOf(p2)
	if err != nil {
		t.Fatalf("ArchetypeOf p2: %v", err)
	}
	if p1Arch.Index() == 0 {
		t.Fatalf("p1 must not have collapsed back into the void archetype")
	}
	if p1Arch.Len() != 1 {
		t.Fatalf("want p1's archetype len 1, got %d", p1Arch.Len())
	}
	if p2Arch.Len() != 1 {
		t.Fatalf("want p2's archetype len 1, got %d", p2Arch.Len())
	}

	emptyCount := 0
	for _, tbl := range tables {
		if tbl.Index() == p1Arch.Index() || tbl.Index() == p2Arch.Index() {
			continue
		}
		if tbl.Len() != 0 {
			t.Fatalf("table %d should be empty, has len %d", tbl.Index(), tbl.Len())
		}
		emptyCount++
	}
	if emptyCount != 4 {
		t.Fatalf("want 4 empty tables besides p1's and p2's, got %d", emptyCount)
	}

	q, err := s.Query(AllOf([]string{Component("game", "rotation")}))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	ids := collectIDs(t, q)
	if len(ids) != 1 || ids[0] != p2 {
		t.Fatalf("want rotation query to yield exactly {p2}, got %v", ids)
	}

	if err := s.Remove(p1); err != nil {
		t.Fatalf("Remove p1: %v", err)
	}
}

func mustSet[T any](t *testing.T, s *EntityStore, e EntityId, namespace, component string, value T) {
	t.Helper()
	if err := SetComponent(s, e, namespace, component, value); err != nil {
		t.Fatalf("SetComponent(%s.%s): %v", namespace, component, err)
	}
}
