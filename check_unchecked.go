//go:build unchecked

package archetypedb

// checkToken is a no-op in an unchecked build: a mismatched type token is
// undefined behaviour, traded for skipping the check on every get/set.
func checkToken(string, TypeToken, TypeToken) {}
