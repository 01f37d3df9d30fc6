// Package store provides the SQLite-backed persistent escape cache.
//
// The cache is an append-only table of accepted synthesis results keyed by
// content hash. Because the key encodes the pattern ID, target and the
// canonical IR fragment, a key can only ever name one piece of code: writes
// use INSERT OR IGNORE and are idempotent, and rows are never updated or
// deleted. Staleness is not the store's concern; callers decide it through
// the escape engine's hook.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - single connection: SQLite supports one writer at a time
//
// Cache keys are computed in internal/ir/hash.go using RFC 8785 canonical
// JSON and SHA-256 with domain separation.
package store
