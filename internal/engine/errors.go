package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected by the scheduler, a timer table
// or a queue.
//
// Runtime errors include:
//   - Queue full: a post or defer against a saturated queue
//   - Configuration: a malformed service, timer or list table
//   - Timer misfire: a timeout whose slot the receiving service did not expect
//   - Fatal startup codes: failed init, failed initial post, null configuration
//
// Steady-state errors are recovered by the caller (logged, state unchanged).
// Only configuration-time errors are fatal.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Service names the affected service, if any.
	Service string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQueueFull indicates an enqueue against a saturated queue.
	ErrCodeQueueFull RuntimeErrorCode = "QUEUE_FULL"

	// ErrCodeUnmatchedTransition indicates an event with no handler in the current state.
	ErrCodeUnmatchedTransition RuntimeErrorCode = "UNMATCHED_TRANSITION"

	// ErrCodeConfiguration indicates a malformed service, timer or list table.
	ErrCodeConfiguration RuntimeErrorCode = "CONFIGURATION"

	// ErrCodeTimerMisfire indicates a timeout for a slot the receiver does not own.
	ErrCodeTimerMisfire RuntimeErrorCode = "TIMER_MISFIRE"

	// ErrCodeFailedInit indicates a service init function failed.
	ErrCodeFailedInit RuntimeErrorCode = "FAILED_INIT"

	// ErrCodeFailedPost indicates the initial event could not be queued.
	ErrCodeFailedPost RuntimeErrorCode = "FAILED_POST"

	// ErrCodeNullConfig indicates a missing service, run function or table.
	ErrCodeNullConfig RuntimeErrorCode = "NULL_CONFIG"

	// ErrCodeInvalidEvent indicates a payload that does not match its tag,
	// or a reserved tag posted from outside the framework.
	ErrCodeInvalidEvent RuntimeErrorCode = "INVALID_EVENT"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Service != "" {
		msg = fmt.Sprintf("%s (service=%s)", msg, e.Service)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error halts the loop.
func (e *RuntimeError) Fatal() bool {
	switch e.Code {
	case ErrCodeConfiguration, ErrCodeFailedInit, ErrCodeFailedPost, ErrCodeNullConfig:
		return true
	default:
		return false
	}
}

// hasCode walks the chain of RuntimeErrors, so a config error wrapped in
// a FAILED_INIT still reports as a config error.
func hasCode(err error, code RuntimeErrorCode) bool {
	for err != nil {
		var re *RuntimeError
		if !errors.As(err, &re) {
			return false
		}
		if re.Code == code {
			return true
		}
		err = re.Err
	}
	return false
}

// IsQueueFull returns true if the error is a queue-full error.
// Uses errors.As to handle wrapped errors.
func IsQueueFull(err error) bool {
	return hasCode(err, ErrCodeQueueFull)
}

// IsConfigError returns true if the error is a configuration error.
func IsConfigError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsTimerMisfire returns true if the error is a timer misfire.
func IsTimerMisfire(err error) bool {
	return hasCode(err, ErrCodeTimerMisfire)
}

// IsFatal returns true if the error carries a fatal startup code.
func IsFatal(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Fatal()
	}
	return false
}

// NewQueueFullError creates a RuntimeError for a saturated queue.
func NewQueueFullError(service, queue string, capacity int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQueueFull,
		Message: fmt.Sprintf("%s queue full", queue),
		Service: service,
		Details: map[string]string{
			"capacity": fmt.Sprintf("%d", capacity),
		},
	}
}

// NewConfigError creates a RuntimeError for a malformed configuration.
func NewConfigError(format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewTimerMisfireError creates a RuntimeError for an unexpected timeout.
func NewTimerMisfireError(service string, id int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTimerMisfire,
		Message: fmt.Sprintf("unexpected timeout for timer %d", id),
		Service: service,
	}
}

// NewInvalidEventError creates a RuntimeError for a rejected post.
func NewInvalidEventError(service string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidEvent,
		Message: "event rejected",
		Service: service,
		Err:     err,
	}
}

// newFatalError wraps a startup failure with its fatal code.
func newFatalError(code RuntimeErrorCode, service string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    code,
		Message: "startup failed",
		Service: service,
		Err:     err,
	}
}

// ErrReentrantCycle is returned when RunCycle is called from inside a run function.
var ErrReentrantCycle = errors.New("engine: RunCycle called from inside a run function")

// ErrNotInitialized is returned when the loop is driven before Initialize.
var ErrNotInitialized = errors.New("engine: scheduler not initialized")
