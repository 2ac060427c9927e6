package archetypedb

import "github.com/voodooEntity/archivist"

// EntityStore is the database of ArchetypeTables: it owns the
// entity→(table,row) index, creates or selects tables on schema change,
// and relocates row payloads between tables atomically from the caller's
// perspective. See spec.md §3/§4.2.
type EntityStore struct {
	registry    *Registry
	alloc       Allocator
	logger      storeLogger
	index       map[EntityId]Pointer
	tables      []*ArchetypeTable
	hashToTable map[uint64]int
	nextID      uint64
}

// Option configures an EntityStore at construction.
type Option func(*EntityStore)

// WithAllocator overrides the Allocator used for every table's capacity
// growth. Defaults to DefaultAllocator.
func WithAllocator(a Allocator) Option {
	return func(s *EntityStore) { s.alloc = a }
}

// WithLogger attaches an archivist logger; schema transitions are logged
// at trace/info level, allocation failures at error level. A store built
// without this option stays silent.
func WithLogger(l *archivist.Archivist) Option {
	return func(s *EntityStore) { s.logger = newStoreLogger(l) }
}

// NewEntityStore creates an EntityStore backed by registry, with the void
// archetype (the id-only table) pre-created at table_index 0
// (spec.md §3, I4).
func NewEntityStore(registry *Registry, opts ...Option) *EntityStore {
	s := &EntityStore{
		registry:    registry,
		alloc:       DefaultAllocator,
		index:       make(map[EntityId]Pointer),
		hashToTable: make(map[uint64]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	void := newVoidArchetypeTable(registry.idDescriptor(), s.alloc)
	s.installTable(void)
	return s
}

func (s *EntityStore) installTable(t *ArchetypeTable) {
	t.index = len(s.tables)
	s.tables = append(s.tables, t)
	s.hashToTable[t.hash] = t.index
	s.logger.tableCreated(t.hash, columnNames(t))
}

func columnNames(t *ArchetypeTable) []string {
	descs := t.Columns()
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	return names
}

func (s *EntityStore) voidTable() *ArchetypeTable { return s.tables[0] }

// New creates an entity with no components (in the void archetype) and
// returns its id.
func (s *EntityStore) New() (EntityId, error) {
	e := EntityId(s.nextID)
	s.nextID++

	void := s.voidTable()
	row, err := void.appendUndefined()
	if err != nil {
		s.logger.allocationFailed("New", err)
		return 0, err
	}
	void.setIDAt(row, e)
	s.index[e] = Pointer{TableIndex: 0, RowIndex: row}
	return e, nil
}

// Remove deletes e. If e was not the last row of its table, the entity
// that was last is swapped into e's old row and its index entry is fixed
// up to match (spec.md §8, "displacement correctness").
func (s *EntityStore) Remove(e EntityId) error {
	ptr, ok := s.index[e]
	if !ok {
		return fmtEntityNotFound(e)
	}
	table := s.tables[ptr.TableIndex]
	if displaced, moved := table.swapRemoveDisplacing(ptr.RowIndex); moved {
		s.index[displaced] = Pointer{TableIndex: ptr.TableIndex, RowIndex: ptr.RowIndex}
	}
	delete(s.index, e)
	return nil
}

// IsAlive reports whether e currently has an index entry.
func (s *EntityStore) IsAlive(e EntityId) bool {
	_, ok := s.index[e]
	return ok
}

// ArchetypeOf returns the table an entity currently lives in.
func (s *EntityStore) ArchetypeOf(e EntityId) (*ArchetypeTable, error) {
	ptr, ok := s.index[e]
	if !ok {
		return nil, fmtEntityNotFound(e)
	}
	return s.tables[ptr.TableIndex], nil
}

// Tables returns every table the store currently holds, in insertion
// order; index 0 is always the void archetype.
func (s *EntityStore) Tables() []*ArchetypeTable {
	out := make([]*ArchetypeTable, len(s.tables))
	copy(out, s.tables)
	return out
}

// setComponentRaw implements the set_component schema transition of
// spec.md §4.2. desc must already be resolved against s.registry.
func (s *EntityStore) setComponentRaw(e EntityId, desc ComponentDescriptor, value any) error {
	ptr, ok := s.index[e]
	if !ok {
		return fmtEntityNotFound(e)
	}
	src := s.tables[ptr.TableIndex]

	if src.HasComponent(desc.Name) {
		src.setTyped(ptr.RowIndex, desc, value)
		return nil
	}

	destHash := src.hash ^ hashString(desc.Name)
	dest, created, err := s.getOrCreateTableWithColumn(src, desc, destHash)
	if err != nil {
		return err
	}

	newRow, err := dest.appendUndefined()
	if err != nil {
		s.logger.allocationFailed("SetComponent", err)
		if created {
			s.discardTable(dest)
		}
		return err
	}

	for _, c := range src.columns {
		if c.desc.Name == desc.Name {
			continue
		}
		dstSlot := dest.slot(c.desc.Name)
		copyCell(dest, dstSlot, newRow, src, src.slot(c.desc.Name), ptr.RowIndex)
	}
	dest.setTyped(newRow, desc, value)

	// Re-resolve src by table_index: nothing has moved it, but this
	// mirrors the sequencing rule spec.md §4.2 states explicitly.
	src = s.tables[ptr.TableIndex]
	if displaced, moved := src.swapRemoveDisplacing(ptr.RowIndex); moved {
		s.index[displaced] = Pointer{TableIndex: ptr.TableIndex, RowIndex: ptr.RowIndex}
	}
	s.index[e] = Pointer{TableIndex: dest.index, RowIndex: newRow}
	return nil
}

// removeComponentRaw implements the remove_component schema transition of
// spec.md §4.2. A no-op if the entity's table lacks the named component.
func (s *EntityStore) removeComponentRaw(e EntityId, name string) error {
	ptr, ok := s.index[e]
	if !ok {
		return fmtEntityNotFound(e)
	}
	src := s.tables[ptr.TableIndex]
	if !src.HasComponent(name) {
		return nil
	}

	remaining := make([]ComponentDescriptor, 0, len(src.columns)-1)
	hashes := make([]uint64, 0, len(src.columns)-1)
	for _, c := range src.columns {
		if c.desc.Name == name {
			continue
		}
		remaining = append(remaining, c.desc)
		hashes = append(hashes, hashString(c.desc.Name))
	}
	destHash := xorFold(hashes)

	dest, created, err := s.getOrCreateTable(remaining, destHash)
	if err != nil {
		return err
	}

	newRow, err := dest.appendUndefined()
	if err != nil {
		s.logger.allocationFailed("RemoveComponent", err)
		if created {
			s.discardTable(dest)
		}
		return err
	}

	for _, c := range remaining {
		dstSlot := dest.slot(c.Name)
		copyCell(dest, dstSlot, newRow, src, src.slot(c.Name), ptr.RowIndex)
	}

	src = s.tables[ptr.TableIndex]
	if displaced, moved := src.swapRemoveDisplacing(ptr.RowIndex); moved {
		s.index[displaced] = Pointer{TableIndex: ptr.TableIndex, RowIndex: ptr.RowIndex}
	}
	s.index[e] = Pointer{TableIndex: dest.index, RowIndex: newRow}
	return nil
}

// getComponentRaw implements get_component: not present is not an error.
func (s *EntityStore) getComponentRaw(e EntityId, desc ComponentDescriptor) (any, bool, error) {
	ptr, ok := s.index[e]
	if !ok {
		return nil, false, fmtEntityNotFound(e)
	}
	v, ok := s.tables[ptr.TableIndex].getTyped(ptr.RowIndex, desc)
	return v, ok, nil
}

// getOrCreateTableWithColumn resolves (or builds) the destination table
// for an add-column transition. The freshly built table always lands at
// the end of s.tables; if canonical re-keying discovers the hash already
// exists, the fresh build is discarded and the existing table is used
// instead (spec.md §4.2 step 2, §9's hash-canonicalisation caveat).
func (s *EntityStore) getOrCreateTableWithColumn(src *ArchetypeTable, add ComponentDescriptor, estimatedHash uint64) (*ArchetypeTable, bool, error) {
	if idx, ok := s.hashToTable[estimatedHash]; ok {
		return s.tables[idx], false, nil
	}
	descs := make([]ComponentDescriptor, 0, len(src.columns)+1)
	for _, c := range src.columns {
		descs = append(descs, c.desc)
	}
	descs = append(descs, add)
	return s.buildAndInstall(descs, estimatedHash)
}

func (s *EntityStore) getOrCreateTable(descs []ComponentDescriptor, estimatedHash uint64) (*ArchetypeTable, bool, error) {
	if idx, ok := s.hashToTable[estimatedHash]; ok {
		return s.tables[idx], false, nil
	}
	return s.buildAndInstall(descs, estimatedHash)
}

func (s *EntityStore) buildAndInstall(descs []ComponentDescriptor, estimatedHash uint64) (*ArchetypeTable, bool, error) {
	t := newArchetypeTable(descs, s.alloc)
	canonical := t.hash
	if canonical != estimatedHash {
		s.logger.tableRekeyed(estimatedHash, canonical)
		if idx, ok := s.hashToTable[canonical]; ok {
			return s.tables[idx], false, nil
		}
	}
	t.hash = canonical
	s.installTable(t)
	return t, true, nil
}

// discardTable rolls back a table created earlier in the same call that
// then failed to allocate its first row. Only ever called on the table
// that was just installed, which spec.md §4.2 guarantees sits last.
func (s *EntityStore) discardTable(t *ArchetypeTable) {
	last := len(s.tables) - 1
	if s.tables[last] != t {
		panic("archetypedb: discardTable called on a table that is not the last inserted")
	}
	delete(s.hashToTable, t.hash)
	s.tables = s.tables[:last]
}
