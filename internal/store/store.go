// Package store provides the key/value abstraction behind every time-bounded
// registry (clients, authorization codes, tokens, sessions) and its in-memory
// implementation.
package store

// Store holds values of type V keyed by string. Implementations must be safe
// for concurrent use, and each method must be atomic with respect to the
// others. Values are stored and returned by copy.
type Store[V any] interface {
	// Get returns the value stored under key.
	Get(key string) (V, bool)

	// Put stores value under key, replacing any existing value.
	Put(key string, value V)

	// Delete removes key and reports whether it was present.
	Delete(key string) bool

	// Take removes key and returns the value it held. Two concurrent Takes
	// of the same key never both succeed.
	Take(key string) (V, bool)

	// Range calls fn for each entry until fn returns false.
	// fn must not call back into the store.
	Range(fn func(key string, value V) bool)

	// DeleteFunc removes every entry for which fn returns true and returns
	// the removed values keyed by their key.
	DeleteFunc(fn func(key string, value V) bool) map[string]V

	// Len returns the number of entries.
	Len() int
}
