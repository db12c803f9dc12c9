// Package config loads the build-time tuning knobs an IndexSet is
// constructed with. They are read once, at construction, the way
// spec.md §6 describes SizeThreshold: a build-time constant, not a
// per-query or per-call option.
package config

import "github.com/kelseyhightower/envconfig"

// Config holds the tunable constants for an IndexSet.
type Config struct {
	// SizeThreshold is the HashBucket size above which the owning
	// AttributeIndex rebalances (split, or convert to a DictBucket).
	// spec.md §6 calls for "a value in the low thousands".
	SizeThreshold int `envconfig:"SIZE_THRESHOLD" default:"1024"`

	// QueryCacheSize bounds the per-attribute LRU of single-value
	// GetIDs results (see querycache). 0 disables the cache entirely;
	// correctness never depends on it being enabled.
	QueryCacheSize int `envconfig:"QUERY_CACHE_SIZE" default:"0"`
}

// Default returns a Config with the package defaults, before any
// environment override is applied.
func Default() Config {
	return Config{SizeThreshold: 1024, QueryCacheSize: 0}
}

// Load returns the Config populated from defaults, overridden by any
// FILTERED_SIZE_THRESHOLD / FILTERED_QUERY_CACHE_SIZE environment
// variables. Malformed overrides fall back to Default() rather than
// leaving the IndexSet unconstructed.
func Load() Config {
	c := Default()
	if err := envconfig.Process("filtered", &c); err != nil {
		return Default()
	}
	return c
}
