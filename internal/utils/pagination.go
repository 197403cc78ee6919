// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

// Pagination bounds applied to list queries.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// ClampLimit bounds a caller-supplied row limit. Non-positive values fall
// back to DefaultPageSize and anything above MaxPageSize is capped.
//
// Example:
//
//	n := utils.ClampLimit(0)    // returns 50
//	n = utils.ClampLimit(25)    // returns 25
//	n = utils.ClampLimit(9000)  // returns 500
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// NormalizePage sanitizes an offset/limit pair for use in a paged query.
// Negative offsets become 0; the limit is clamped via ClampLimit.
func NormalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	return offset, ClampLimit(limit)
}
