// Package store provides persistence for templates, variables, and draft
// instances with vector similarity search.
//
// # Backends
//
// SQLiteStore is the durable backend. Vectors are stored as little-endian
// float32 blobs; similarity search uses the sqlite-vec extension when built
// with the sqlite_vec tag (mattn/go-sqlite3) and falls back to Go-computed
// cosine similarity on pure-Go builds (modernc.org/sqlite). MemoryStore
// implements the same interface for tests and ephemeral runs.
//
// # Write atomicity
//
// A template and its variables are committed in one transaction.
// CreateTemplateIfUnique re-checks the duplicate similarity floor inside
// that transaction, so two concurrent ingests of near-identical documents
// resolve to a single stored template: the earliest-committed one wins.
//
// # Ordering
//
// NearestNeighbors returns cosine similarity descending; exact ties break
// by most-recent created_at, then id, so results are deterministic.
//
// # Schema
//
// Migrations are versioned with semver and tracked in a schema_version
// table; each migration carries Up and Down SQL.
package store
