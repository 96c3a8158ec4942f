package constants

const AppName = "relay"

// Cache status values reported in access-log lines.
const (
	CacheHit  = "HIT"
	CacheMiss = "MISS"
)
