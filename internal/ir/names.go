package ir

import "github.com/iancoleman/strcase"

// DerivedName builds a readable synthetic name for a node a transformation
// introduces on behalf of an existing one (a cache buffer, a fission half,
// a split loop's inner/outer iterator) by snake-casing the source name and
// appending a role suffix, instead of emitting an opaque counter-only name.
func DerivedName(sourceName, role string) string {
	return strcase.ToSnake(sourceName) + "_" + role
}
