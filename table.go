package archetypedb

import (
	"fmt"
	"reflect"
	"sort"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
)

// column is one component's storage: its descriptor and a reflect-typed
// slice sized to the table's capacity. Growth and swap-remove move payload
// through reflect.Value.Set/reflect.Copy rather than raw memmove, so that
// component types holding Go pointers (a plain string, say) stay GC-safe
// under relocation; get_raw/set_raw below hand out a raw byte view of a
// single cell instead, matching spec.md's byte-oriented contract for that
// narrower, precondition-bound use.
type column struct {
	desc ComponentDescriptor
	data reflect.Value
}

// ArchetypeTable is dense, column-oriented storage for every entity that
// currently carries the exact same set of component names. See spec.md §3
// (invariants I1-I3) and §4.1 for the full contract.
type ArchetypeTable struct {
	columns  []column
	slots    map[string]int // column name -> index into columns
	presence *roaring.Bitmap // type-token ords present, for fast query matching
	alloc    Allocator
	hash     uint64
	len      int
	capacity int
	index    int // this table's position in EntityStore.tables
}

// newArchetypeTable builds a zero-length table for the given descriptor
// set, sorted by type token ascending (spec.md §3, I1) and canonicalises
// its hash. descs must include the id column.
func newArchetypeTable(descs []ComponentDescriptor, alloc Allocator) *ArchetypeTable {
	sorted := append([]ComponentDescriptor(nil), descs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Token.ord < sorted[j].Token.ord })

	t := &ArchetypeTable{
		slots:    make(map[string]int, len(sorted)),
		presence: roaring.New(),
		alloc:    alloc,
	}
	for i, d := range sorted {
		t.columns = append(t.columns, column{
			desc: d,
			data: reflect.MakeSlice(reflect.SliceOf(d.Token.rt), 0, 0),
		})
		t.slots[d.Name] = i
		t.presence.Add(d.Token.ord)
	}
	t.recomputeHash()
	return t
}

// voidArchetypeHash is the reserved sentinel identity of the void
// archetype (spec.md §3: "exists at construction under a sentinel
// hash"). It is deliberately not the xor-fold any real column-name set
// hashes to, so that an entity that removes its way back down to
// carrying only the id column lands in a fresh, distinct id-only table
// rather than being merged into void.
const voidArchetypeHash uint64 = ^uint64(0)

// newVoidArchetypeTable builds the id-only table EntityStore installs at
// table_index 0, keyed under voidArchetypeHash instead of its natural
// hash.
func newVoidArchetypeTable(idDesc ComponentDescriptor, alloc Allocator) *ArchetypeTable {
	t := newArchetypeTable([]ComponentDescriptor{idDesc}, alloc)
	t.hash = voidArchetypeHash
	return t
}

// Len reports the number of live rows.
func (t *ArchetypeTable) Len() int { return t.len }

// Capacity reports the number of rows currently allocated.
func (t *ArchetypeTable) Capacity() int { return t.capacity }

// Hash is this table's identity: the canonical xor-fold of its column
// names (spec.md §3, I3), except for the void archetype, which carries
// voidArchetypeHash.
func (t *ArchetypeTable) Hash() uint64 { return t.hash }

// Index is this table's stable position among EntityStore.Tables().
func (t *ArchetypeTable) Index() int { return t.index }

// Columns returns the table's column descriptors in canonical (sorted)
// order, id first.
func (t *ArchetypeTable) Columns() []ComponentDescriptor {
	out := make([]ComponentDescriptor, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.desc
	}
	return out
}

// HasComponent reports whether the table carries a column of this name.
func (t *ArchetypeTable) HasComponent(name string) bool {
	_, ok := t.slots[name]
	return ok
}

// HasComponents reports whether the table carries every named column.
func (t *ArchetypeTable) HasComponents(names []string) bool {
	for _, n := range names {
		if !t.HasComponent(n) {
			return false
		}
	}
	return true
}

func (t *ArchetypeTable) slot(name string) int {
	if i, ok := t.slots[name]; ok {
		return i
	}
	return -1
}

// recomputeHash sets hash to the xor-fold of every column name's hash
// (spec.md §3, I3 and §9's canonicalisation rule).
func (t *ArchetypeTable) recomputeHash() {
	hashes := make([]uint64, len(t.columns))
	for i, c := range t.columns {
		hashes[i] = hashString(c.desc.Name)
	}
	t.hash = xorFold(hashes)
}

// reserve grows every column so the table can hold at least len+additional
// rows, applying spec.md §4.1's growth formula: c ← c + c/2 + 8, repeated
// from the current capacity until it is enough. Growth reallocates every
// column and copies live payload through reflect.Copy; it never shrinks.
func (t *ArchetypeTable) reserve(additional int) error {
	need := t.len + additional
	if t.capacity >= need {
		return nil
	}
	c := t.capacity
	for c < need {
		nc := c + c/2 + 8
		if nc <= c { // overflow: saturate rather than wrap
			c = int(^uint(0) >> 1)
			break
		}
		c = nc
	}
	if err := t.alloc.Reserve(c); err != nil {
		return fmtAllocationFailure(err)
	}
	for i := range t.columns {
		col := &t.columns[i]
		newData := reflect.MakeSlice(col.data.Type(), c, c)
		if t.len > 0 {
			reflect.Copy(newData, col.data.Slice(0, t.len))
		}
		col.data = newData
	}
	t.capacity = c
	return nil
}

// appendUndefined grows len by 1, reserving capacity first. Row contents
// are unspecified until written. Fails with ErrAllocationFailure, leaving
// the table exactly as it was.
func (t *ArchetypeTable) appendUndefined() (int, error) {
	if err := t.reserve(1); err != nil {
		return 0, err
	}
	row := t.len
	t.len++
	return row, nil
}

// undoAppend decrements len by 1. Precondition: called immediately after a
// successful appendUndefined with no intervening mutation.
func (t *ArchetypeTable) undoAppend() {
	if t.len == 0 {
		panic("archetypedb: undoAppend on empty table")
	}
	t.len--
}

// setTyped overwrites one column's cell. desc.Token must match the
// column's recorded token (see check_checked.go/check_unchecked.go).
// Writes to a zero-sized column touch no memory.
func (t *ArchetypeTable) setTyped(row int, desc ComponentDescriptor, value any) {
	idx := t.slot(desc.Name)
	if idx < 0 {
		panic(fmt.Sprintf("archetypedb: setTyped: no column %q", desc.Name))
	}
	col := &t.columns[idx]
	checkToken(desc.Name, col.desc.Token, desc.Token)
	col.data.Index(row).Set(reflect.ValueOf(value))
}

// getTyped returns a cell's value, or ok=false if no such column exists.
func (t *ArchetypeTable) getTyped(row int, desc ComponentDescriptor) (value any, ok bool) {
	idx := t.slot(desc.Name)
	if idx < 0 {
		return nil, false
	}
	col := &t.columns[idx]
	checkToken(desc.Name, col.desc.Token, desc.Token)
	return col.data.Index(row).Interface(), true
}

// getRaw borrows a cell's bytes directly out of the column's backing
// array. The borrow is valid until the next capacity-growing or
// table-moving operation on this table (spec.md §4.1/§5).
func (t *ArchetypeTable) getRaw(row int, desc ComponentDescriptor) []byte {
	idx := t.slot(desc.Name)
	if idx < 0 || desc.Size == 0 {
		return nil
	}
	col := &t.columns[idx]
	ptr := unsafe.Pointer(col.data.Index(row).Addr().Pointer())
	return unsafe.Slice((*byte)(ptr), desc.Size)
}

// setRaw overwrites a cell's bytes directly. Precondition: len(data) ==
// desc.Size.
func (t *ArchetypeTable) setRaw(row int, desc ComponentDescriptor, data []byte) {
	idx := t.slot(desc.Name)
	if idx < 0 {
		panic(fmt.Sprintf("archetypedb: setRaw: no column %q", desc.Name))
	}
	if desc.Size == 0 {
		return
	}
	if uintptr(len(data)) != desc.Size {
		panic(fmt.Sprintf("archetypedb: setRaw: %d bytes for a %d-byte column %q", len(data), desc.Size, desc.Name))
	}
	col := &t.columns[idx]
	ptr := unsafe.Pointer(col.data.Index(row).Addr().Pointer())
	copy(unsafe.Slice((*byte)(ptr), desc.Size), data)
}

// swapRemove deletes row: if it is not the last live row, the last row's
// payload is copied over it in every column, then len is decremented. It
// never touches EntityStore's index; the caller is responsible for
// fixing up whatever row got displaced.
func (t *ArchetypeTable) swapRemove(row int) {
	if row < 0 || row >= t.len {
		panic("archetypedb: swapRemove: row out of range")
	}
	last := t.len - 1
	if row != last {
		for i := range t.columns {
			col := &t.columns[i]
			col.data.Index(row).Set(col.data.Index(last))
		}
	}
	t.len--
}

// swapRemoveDisplacing is swapRemove plus the bookkeeping EntityStore needs
// to fix up its index: it reports which entity, if any, was moved into
// row's old slot.
func (t *ArchetypeTable) swapRemoveDisplacing(row int) (displaced EntityId, moved bool) {
	moved = row < t.len-1
	t.swapRemove(row)
	if !moved {
		return 0, false
	}
	return t.idAt(row), true
}

func (t *ArchetypeTable) idColumnSlot() int {
	idx, ok := t.slots[idComponentName]
	if !ok {
		panic("archetypedb: table has no id column")
	}
	return idx
}

func (t *ArchetypeTable) idAt(row int) EntityId {
	return t.columns[t.idColumnSlot()].data.Index(row).Interface().(EntityId)
}

func (t *ArchetypeTable) setIDAt(row int, e EntityId) {
	t.columns[t.idColumnSlot()].data.Index(row).Set(reflect.ValueOf(e))
}

// copyCell moves one cell between two tables' columns through a typed
// reflect.Set rather than a raw byte copy, so pointer-carrying component
// types survive schema transitions correctly.
func copyCell(dst *ArchetypeTable, dstSlot int, dstRow int, src *ArchetypeTable, srcSlot int, srcRow int) {
	dst.columns[dstSlot].data.Index(dstRow).Set(src.columns[srcSlot].data.Index(srcRow))
}
