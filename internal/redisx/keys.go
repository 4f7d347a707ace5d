package redisx

import "time"

const (
	// Access token lookup: auth:access:{token} -> user_id
	KeyAccessToken = "auth:access:%s"

	// Refresh token lookup: auth:refresh:{token} -> user_id
	KeyRefreshToken = "auth:refresh:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLAccessToken  = 15 * time.Minute
	TTLRefreshToken = 7 * 24 * time.Hour
	TTLDedup        = 48 * time.Hour
)
