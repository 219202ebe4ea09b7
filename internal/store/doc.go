// Package store implements PostgreSQL data access with sqlx.
//
// Every query is parameterized. Lookups by key return (nil, nil) when no
// row matches; callers decide whether absence is an error. Driver errors
// are returned wrapped with the failing operation so the service layer
// can log the cause and classify it.
package store
