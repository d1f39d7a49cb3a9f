package enums

import (
	"fmt"
	"slices"
	"strings"
)

// parse matches raw against the known values of an enum, ignoring case and
// surrounding space.
func parse[T ~string](kind string, known []T, raw string) (T, error) {
	want := strings.ToLower(strings.TrimSpace(raw))
	if i := slices.Index(known, T(want)); i >= 0 {
		return known[i], nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
