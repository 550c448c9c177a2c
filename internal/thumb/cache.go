// Package thumb holds decoded attachment previews in a bounded LRU cache.
// Only thumbnails live here; full-resolution bytes are fetched on demand and
// held transiently by the caller.
package thumb

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Capacity is the fixed cache bound. Eviction is strict LRU.
const Capacity = 20

// Cache maps a file path or share code to a displayable data URI.
type Cache struct {
	lru *lru.Cache[string, string]
}

// NewCache creates a cache with the fixed capacity.
func NewCache() *Cache {
	c, err := lru.New[string, string](Capacity)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Cache{lru: c}
}

// Get returns the cached preview for key and marks it recently used.
func (c *Cache) Get(key string) (string, bool) {
	return c.lru.Get(key)
}

// Put stores a preview, evicting the least recently used entry when full.
func (c *Cache) Put(key, preview string) {
	c.lru.Add(key, preview)
}

// Clear drops every entry. Called when the user leaves a chat room or on an
// external low-memory signal.
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Len returns the number of cached previews.
func (c *Cache) Len() int {
	return c.lru.Len()
}
