package archetypedb

import "github.com/RoaringBitmap/roaring/v2"

// QueryKind distinguishes the two structural query shapes spec.md §4.3
// defines over component-name sets.
type QueryKind int

const (
	// QueryAll is a conjunction: a table must carry every component
	// named across every group.
	QueryAll QueryKind = iota
	// QueryAny is a disjunction: a table must carry at least one of the
	// named components. spec.md §4.3 calls this "reserved" in the
	// distilled source; it is fully implemented here (see DESIGN.md).
	QueryAny
)

// Query is a tagged value over component-name sets, exactly as spec.md
// §4.3 describes: All requires every name in every group; Any requires at
// least one name across all groups.
type Query struct {
	Kind   QueryKind
	Groups [][]string
}

// Component canonicalises a (namespace, component) pair into the column
// name a Query's groups are built from.
func Component(namespace, component string) string {
	return columnName(namespace, component)
}

// AllOf builds a QueryAll query over one or more groups of column names.
func AllOf(groups ...[]string) Query {
	return Query{Kind: QueryAll, Groups: groups}
}

// AnyOf builds a QueryAny query over one or more groups of column names.
func AnyOf(groups ...[]string) Query {
	return Query{Kind: QueryAny, Groups: groups}
}

func (q Query) flatten() []string {
	var out []string
	for _, g := range q.Groups {
		out = append(out, g...)
	}
	return out
}

// QueryIterator walks EntityStore.tables in insertion order, starting
// after the void archetype, yielding every table with at least one live
// row that satisfies the query. Mutating the store's table set while an
// iterator is live invalidates it (spec.md §4.3, §5).
type QueryIterator struct {
	store   *EntityStore
	kind    QueryKind
	names   []string
	bitmap  *roaring.Bitmap
	nextIdx int
	current *ArchetypeTable
}

// Query builds an iterator over q. It fails if q names a component that
// was never registered against the store's Registry.
func (s *EntityStore) Query(q Query) (*QueryIterator, error) {
	names := q.flatten()
	bm := roaring.New()
	for _, name := range names {
		ord, ok := s.registry.ordByName(name)
		if !ok {
			return nil, fmtComponentNotRegistered(name)
		}
		bm.Add(ord)
	}
	return &QueryIterator{store: s, kind: q.Kind, names: names, bitmap: bm, nextIdx: 1}, nil
}

// matches tests t against the type-token bitmap first, then against the
// column names: components of the same Go type share one ord, so the
// bitmap alone cannot tell them apart.
func (it *QueryIterator) matches(t *ArchetypeTable) bool {
	switch it.kind {
	case QueryAll:
		if it.bitmap.IsEmpty() {
			return true
		}
		return t.presence.AndCardinality(it.bitmap) == it.bitmap.GetCardinality() && t.HasComponents(it.names)
	case QueryAny:
		if it.bitmap.IsEmpty() || !t.presence.Intersects(it.bitmap) {
			return false
		}
		for _, n := range it.names {
			if t.HasComponent(n) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Next advances to the next matching table, returning false once
// exhausted.
func (it *QueryIterator) Next() bool {
	tables := it.store.tables
	for it.nextIdx < len(tables) {
		t := tables[it.nextIdx]
		it.nextIdx++
		if t.Len() == 0 || !it.matches(t) {
			continue
		}
		it.current = t
		return true
	}
	it.current = nil
	return false
}

// Table returns the table Next just advanced to.
func (it *QueryIterator) Table() *ArchetypeTable {
	return it.current
}
