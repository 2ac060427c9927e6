package archetypedb

import "github.com/cespare/xxhash/v2"

// hashString is the single hash function every archetype identity is built
// from. spec.md §9 leaves the choice of string hash open; xxhash64 is used
// here rather than a hand-rolled hash, matching the fast non-cryptographic
// string hashing already present in the retrieval pack's dependency graph
// (pulled in transitively via vecgo's Prometheus observability example).
func hashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// xorFold combines a set of per-column hashes into one archetype identity
// hash. XOR is commutative and its own inverse, so the result does not
// depend on the order columns are visited in — the canonicalisation
// spec.md §9 asks for ("hash is xor-fold over the column-name multiset
// after canonical sort") holds trivially for any order, not just the
// sorted one.
func xorFold(hashes []uint64) uint64 {
	var h uint64
	for _, x := range hashes {
		h ^= x
	}
	return h
}
