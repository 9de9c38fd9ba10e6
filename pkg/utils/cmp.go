package utils

// EqualFn reports whether two values of type T are considered equal.
// It must be reflexive and symmetric; lists rely on it for membership and search.
type EqualFn[T any] func(x, y T) bool

// Equal is the EqualFn of comparable types, i.e. `==`.
func Equal[T comparable](x, y T) bool {
	return x == y
}

// EqualBy lifts an EqualFn over a projection of T, e.g. comparing structs by their ID field.
func EqualBy[T any, K comparable](key func(T) K) EqualFn[T] {
	return func(x, y T) bool { return key(x) == key(y) }
}
