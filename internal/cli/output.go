package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario failure or loop error
	ExitCommandError = 2 // Command error (invalid paths, bad configuration, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Output writes a command's result as text or as one JSON CLIResponse.
// Diagnostics go to Diag so they never corrupt JSON on Out.
type Output struct {
	Format  string
	Out     io.Writer
	Diag    io.Writer
	Verbose bool
}

// newOutput binds the global flags to cmd's streams.
func newOutput(opts *RootOptions, cmd *cobra.Command) *Output {
	return &Output{
		Format:  opts.Format,
		Out:     cmd.OutOrStdout(),
		Diag:    cmd.ErrOrStderr(),
		Verbose: opts.Verbose,
	}
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`           // "ok" or "error"
	Data   any       `json:"data,omitempty"`   // result payload
	Error  *CLIError `json:"error,omitempty"`  // error details
	RunID  string    `json:"run_id,omitempty"` // recorded run, when there is one
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E010", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// JSON reports whether output is machine-readable.
func (o *Output) JSON() bool {
	return o.Format == "json"
}

// Result writes a successful result. In text mode text renders it; a nil
// text prints data with its default format.
func (o *Output) Result(data any, runID string, text func(w io.Writer)) error {
	if o.JSON() {
		return writeJSON(o.Out, CLIResponse{Status: "ok", Data: data, RunID: runID})
	}
	if text == nil {
		fmt.Fprintln(o.Out, data)
		return nil
	}
	text(o.Out)
	return nil
}

// Fail writes a failed result. data, if any, rides along in the JSON
// response; a nil text prints "Error [code]: message".
func (o *Output) Fail(code, message string, data any, text func(w io.Writer)) error {
	if o.JSON() {
		return writeJSON(o.Out, CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	if text == nil {
		fmt.Fprintf(o.Out, "Error [%s]: %s\n", code, message)
		return nil
	}
	text(o.Out)
	return nil
}

// Debugf writes a diagnostic line when --verbose is set.
func (o *Output) Debugf(format string, args ...any) {
	if !o.Verbose {
		return
	}
	w := o.Diag
	if w == nil {
		w = o.Out
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
