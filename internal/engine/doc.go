// Package engine implements the cooperative event scheduler that hosts the
// exhibit's services.
//
// ARCHITECTURE:
//
// Single-Threaded Loop:
// Every service is a run-to-completion state machine with its own bounded
// FIFO queue. One goroutine drives the loop; no service ever runs
// concurrently with another. This keeps event handling deterministic:
// - the same inputs produce the same trace
// - a run function never observes a half-finished transition
// - no locks are needed around service state
//
// Cycle:
// 1. Every event checker is polled in registration order
// 2. Services are walked from highest to lowest priority
// 3. Each service with a non-empty queue gets exactly one event
// 4. A returned Error status is logged and the loop continues
//
// Timers:
// Two timer tables (main and short) hold countdown slots, each bound to one
// responder when the tables are configured. Every tick decrements the
// active slots; a slot reaching zero posts one Timeout (or ShortTimeout)
// carrying its id, then deactivates.
//
// Errors:
// Configuration errors (unknown responder, duplicate name, failed init)
// are fatal and stop the loop before it starts. Everything after that
// (full queue, unmatched transition, misfired timer) is logged and
// absorbed: the offending event is dropped and state is unchanged.
//
// CRITICAL PATTERNS:
//
// Priority: registration order. The first service registered has the
// lowest priority.
//
// Trace: every post, drop, dispatch, defer and recall is stamped with a
// strictly increasing sequence number from Clock.Next() and handed to the
// observers. NEVER use wall-clock timestamps for ordering.
package engine
