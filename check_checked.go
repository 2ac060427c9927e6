//go:build !unchecked

package archetypedb

// checkToken enforces the type-token discipline set_typed/get_typed require
// (spec.md §4.1): the caller-supplied token must match the column's
// recorded token. This is the default, "checked" build; compile with
// -tags unchecked to elide the check entirely for the deliberate cost
// tradeoff spec.md §7 describes ("undefined behaviour permitted in
// unchecked builds").
func checkToken(column string, want, got TypeToken) {
	if !want.Equal(got) {
		typeMismatchPanic(column, want, got)
	}
}
