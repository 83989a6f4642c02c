// Package cache provides a generic, thread-safe LRU cache used by the
// pool package to bound the number of distinct (size, format) buckets
// it keeps warm.
//
//	c := cache.New[string, int](100)
//	c.Set("key", 42)
//	value, ok := c.Get("key")
//
// Cache is safe for concurrent use and must not be copied after
// creation (it contains a mutex).
package cache
