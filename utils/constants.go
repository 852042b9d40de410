// File: utils/constants.go
package utils

import "time"

// AvailabilityCachePrefix is the prefix used for Redis day-availability cache keys.
const AvailabilityCachePrefix = "avail:"

// AvailabilityCacheTTL is the time-to-live for day-availability cache entries.
// Short on purpose: admission re-validates against the store, the cache only
// absorbs calendar-browsing read bursts.
const AvailabilityCacheTTL = 30 * time.Second
