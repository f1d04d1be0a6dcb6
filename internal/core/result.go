package core

// Result distinguishes a legitimately fetched value from an unavailable
// upstream. Fetch boundaries convert every transport failure into
// Unavailable instead of propagating an error, so callers (and tests) can
// tell "source said empty" apart from "source errored".
type Result[T any] struct {
	value T
	ok    bool
}

// Ok wraps a successfully fetched value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Unavailable marks a value that could not be fetched.
func Unavailable[T any]() Result[T] {
	return Result[T]{}
}

// Get returns the value and whether it was available.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.ok
}

// OK reports whether the value was available.
func (r Result[T]) OK() bool {
	return r.ok
}

// OrZero returns the value, or the zero value when unavailable.
func (r Result[T]) OrZero() T {
	return r.value
}
