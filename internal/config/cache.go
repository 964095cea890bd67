package config

import (
    "strings"
    "time"
)

// CacheConfig controls the Redis response cache for authenticated read
// endpoints.  Cached entries are always partitioned per principal, so
// there is no key-strategy knob: a user can only ever be served a
// response that was produced for them.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool // HTTP methods eligible for caching
    TTL          time.Duration
    Prefix       string // Redis key namespace
    MaxBodyBytes int    // responses larger than this are not cached
}

// LoadCacheConfig builds a CacheConfig from environment variables.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      methodSet(envStr("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "taskhub:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}

func methodSet(csv string) map[string]bool {
    set := make(map[string]bool)
    for _, m := range strings.Split(csv, ",") {
        if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
            set[m] = true
        }
    }
    return set
}
