// Package cache holds the bounded, expiring caches used between the store
// and its live subscribers.
package cache

// Cache is a keyed cache of T.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry, e.g. when the underlying data changed.
	Purge()
	Len() int
}

var _ Cache[int] = (*LRU[int])(nil)
