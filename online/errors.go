package online

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidArgument reports a structural or validation problem in what
	// the caller built: bad options, a malformed address, a missing default
	// profile or host in domain mode, an out-of-range batch step.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTopologyMismatch reports a server whose standalone/domain mode
	// differs from the one the options declared.
	ErrTopologyMismatch = errors.New("server topology does not match options")

	// ErrUndefinedValue is returned by result accessors without a default
	// when the result value is undefined.
	ErrUndefinedValue = errors.New("result value is undefined")
)

// CommandFailedError is the uniform failure of a command applied through
// Apply or of an operation executed through a command's client.
type CommandFailedError struct {
	Command string
	Err     error
}

func (e *CommandFailedError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("command failed: %v", e.Err)
	}
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandFailedError) Unwrap() error { return e.Err }

// CloseMarker records where and when a session was closed.
type CloseMarker struct {
	At    time.Time
	Stack string
}

func (m *CloseMarker) Error() string {
	return fmt.Sprintf("session closed at %s", m.At.Format(time.RFC3339Nano))
}

// ClosedError is returned by every use of a closed session. Its cause is
// the marker recorded by the first Close.
type ClosedError struct {
	Marker *CloseMarker
}

func (e *ClosedError) Error() string {
	return "management client is closed; " + e.Marker.Error()
}

func (e *ClosedError) Unwrap() error { return e.Marker }

// TimeoutError reports an operation that did not finish in time.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Last    error
}

func (e *TimeoutError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
	}
	return fmt.Sprintf("%s timed out after %s: %v", e.Op, e.Timeout, e.Last)
}

func (e *TimeoutError) Unwrap() error { return e.Last }

// AssertionError is returned by the Assert helpers of Result. Response holds
// the full response text.
type AssertionError struct {
	Msg      string
	Response string
}

func (e *AssertionError) Error() string {
	return e.Msg + ": " + e.Response
}

func newAssertion(def string, msg []string, resp string) error {
	text := def
	if len(msg) > 0 {
		text = strings.Join(msg, " ")
	}
	return &AssertionError{Msg: text, Response: resp}
}

// CLIError reports a CLI command that failed, including its exit code.
type CLIError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *CLIError) Error() string {
	return fmt.Sprintf("CLI command %q failed (exit code %d): %v", e.Command, e.ExitCode, e.Err)
}

func (e *CLIError) Unwrap() error { return e.Err }
