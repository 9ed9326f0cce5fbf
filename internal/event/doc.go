// Package event defines the message taxonomy shared by every service.
//
// An Event is a (Type, Payload) pair copied by value between queues. The
// Type set is closed: the reserved tags (NoEvent, Error, Init, Timeout,
// ShortTimeout) are produced only by the scheduler and the timer tables,
// everything after FirstUserType belongs to the exhibit.
//
// Each Type declares the payload variant it carries. Constructors build the
// right variant and Validate rejects a mismatch, so a timer id can never be
// read as a track number or a game index.
//
// This package imports nothing internal; engine, exhibit, config and the
// harness all build on it.
package event
