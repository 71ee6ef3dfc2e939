package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware. Methods
// lists the HTTP methods to cache. KeyStrategy determines which parts of
// the request contribute to the cache key. When Redis is unreachable and
// MemoryFallback is set, entries live in process memory instead.
type CacheConfig struct {
	Enabled        bool
	Methods        map[string]bool
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	MaxBodyBytes   int
	MemoryFallback bool
}

// LoadCacheConfig reads CACHE_* variables; defaults apply when unset.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:        envBool("CACHE_ENABLED", true),
		Methods:        parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:            envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:    envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:         envStr("CACHE_PREFIX", "cityinfo:cache"),
		MaxBodyBytes:   envInt("CACHE_MAX_BODY_BYTES", 1<<20),
		MemoryFallback: envBool("CACHE_MEMORY_FALLBACK", true),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
