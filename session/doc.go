// Package session persists journey data between requests. A Store maps an
// opaque journey ID to the full stage-name → stage-bag snapshot; backends
// include an in-memory store for tests and single-node use and a Postgres
// store for durable sessions with TTL expiry.
package session
