// Package store provides SQLite-backed storage for comparison runs, and
// read-only access to arbitrary SQLite files used as comparison sources.
//
// The run history is append-only:
//   - runs: one row per comparison (scenario or ad-hoc compare)
//   - run_mismatches: the mismatches of a run, in report order
//
// # Ordering
//
// Runs carry a logical sequence number assigned at write time. Listings are
// ordered by seq, never by wall-clock time, so histories written within the
// same second still list deterministically.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: mismatches are removed with their run
package store
