// Package store persists scheduler traces in SQLite.
//
// Each scheduler lifetime is a run, identified by a UUIDv7 run id. Every
// trace record the scheduler emits (post, drop, dispatch, defer, recall,
// error) is appended to the run by a Recorder observer.
//
// # Ordering
//
// Records are keyed by (run_id, seq). seq is the scheduler's logical clock,
// so a run reads back in exactly the order it happened regardless of wall
// time. All queries order by seq ASC.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: records must belong to a run
package store
