// Package domain defines the tail number (marca) type, its normalization rules,
// and the error taxonomy shared by the lookup engine and the HTTP layer.
package domain

import "strings"

// NormalizeMarca trims, upper-cases, and removes all whitespace from raw.
func NormalizeMarca(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}
