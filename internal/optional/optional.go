// Package optional provides a value which may be absent.
package optional

// V is a value that may or may not be present.
type V[T any] struct {
	Value   T
	Present bool
}

// New creates a new optional value with the given value.
func New[T any](value T) V[T] {
	return V[T]{
		Value:   value,
		Present: true,
	}
}

// Empty creates a new optional value that is not present.
func Empty[T any]() V[T] {
	return V[T]{Present: false}
}

// NonZero creates an optional value which is present only if value is not
// the zero value of T.
func NonZero[T comparable](value T) V[T] {
	var zero T
	if value == zero {
		return Empty[T]()
	}

	return New(value)
}

// Or returns the value if it is present, or fallback otherwise.
func (v V[T]) Or(fallback T) T {
	if !v.Present {
		return fallback
	}

	return v.Value
}
