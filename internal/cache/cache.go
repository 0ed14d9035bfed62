// Package cache provides the in-process compressed cache fronting the record
// store. Every read path in the HTTP API goes through here first; the store is
// only touched on a miss. Cache failure of any kind degrades to a miss and
// never blocks the durable path.
package cache

import "time"

// Well-known keys for dataset-derived entries.
const (
	KeyVehicleList   = "vehicles:list"
	KeyMetadata      = "vehicles:metadata"
	KeyFilterOptions = "vehicles:filter-options"
)

// Cache is a byte-oriented key/value store with per-entry TTL. Implementations
// must be safe for concurrent use.
type Cache interface {
	// Get returns the stored payload, or ok=false on miss or expiry.
	Get(key string) (val []byte, ok bool)

	// Set stores a payload. ttl <= 0 means the implementation's default TTL.
	Set(key string, val []byte, ttl time.Duration)

	// Delete removes a single entry.
	Delete(key string)

	// Flush removes every entry.
	Flush()
}
