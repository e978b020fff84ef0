// Package ptr helps with optional configuration values.
package ptr

// New returns a pointer to a copy of value.
func New[T any](value T) *T {
	return &value
}

// ValueOr returns the value p points to, or fallback if p is nil.
func ValueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
