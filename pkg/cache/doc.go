// Package cache provides a generic, thread-safe LRU cache with a fixed
// capacity. It backs the per-user entitlement cache so memory stays bounded
// no matter how many users a process serves.
//
//	c := cache.NewLRU[string, int](100)
//	c.Set("a", 1)
//	v, ok := c.Get("a")
//	c.Delete("a")
//
// All operations are O(1) and safe for concurrent use.
package cache
