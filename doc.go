// Package archetypedb implements an in-memory, archetype-partitioned
// entity-component database.
//
// Entities are opaque, monotonically assigned identities. Each entity carries
// a set of named, typed component values; entities that carry the exact same
// set of component names share physical storage in a single ArchetypeTable, a
// dense, column-oriented table with one column per component and one row per
// entity. Adding or removing a component relocates the entity's row to
// whichever table matches its new component set, transparently to the
// caller.
//
// The two structures that do the actual work are ArchetypeTable (dense
// per-archetype storage: append, swap-remove, typed get/set, capacity growth)
// and EntityStore (the database of tables: the entity→location index, schema
// transitions between tables, and the QueryIterator over matching tables).
//
// EntityStore is not safe for concurrent use. Every operation runs to
// completion before the next begins; a caller sharing a store across
// goroutines must provide its own synchronisation (a single writer, or a
// reader-writer discipline around QueryIterator).
package archetypedb
