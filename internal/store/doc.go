// Package store provides SQLite-backed durable storage for inferred
// signatures and run records.
//
// Two tables:
//   - signatures: the signature of an expanded graph, keyed by its cache
//     key (graph hash plus catalog identity). A hit is valid for as long
//     as the key matches, so entries are never invalidated.
//   - runs: an append-only log of run outcomes, ordered by seq.
//
// Queries that return several rows order by key or seq with
// COLLATE BINARY, never by timestamp, so listings are identical across
// processes.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
