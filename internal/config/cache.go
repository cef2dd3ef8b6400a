package config

import "time"

// CacheConfig drives the catalog page cache.  Only GET responses of
// catalog routes are ever stored.  Purging bumps a generation number kept
// under Prefix, so stale entries simply stop being addressed and age out
// after TTL.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
    VaryQuery    bool // include the raw query string in the key
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 60*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "sf_cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 256<<10),
        VaryQuery:    envBool("CACHE_VARY_QUERY", false),
    }
}
