// Package cache provides the byte-oriented cache used for quotes.
//
// Two backends implement the Cache interface:
//
//   - an in-memory LRU with per-entry expiry, used when Redis is disabled
//   - a Redis backend whose calls run through a circuit breaker so that an
//     unreachable server fails fast instead of stalling every request
//
// A miss is reported as ErrCacheMiss. Callers treat any other error as a
// degraded cache and fall back to the database.
package cache
