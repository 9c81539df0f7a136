// Package enums holds the closed string sets stored in the database and sent
// over the wire. Each type has IsValid and a Parse function.
package enums

import (
	"fmt"
	"slices"
)

func parseEnum[T ~string](set []T, kind, value string) (T, error) {
	if v := T(value); slices.Contains(set, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}
