package devices

import (
	"errors"
	"fmt"
	"time"

	"garden-link/types"
)

var (
	// ErrPortNotFound means discovery found no port that looks like the controller.
	ErrPortNotFound   = errors.New("devices: controller port not found")
	ErrUnknownCommand = errors.New("devices: unknown command")

	errNoDigits      = errors.New("no digits in line")
	errMissingPrefix = errors.New("missing MOISTURE: prefix")
	errBadValue      = errors.New("value is not a decimal integer")
	errLineTooLong   = errors.New("line exceeds maximum length")
)

// OpenError is returned when a discovered port cannot be opened. Its message
// is the driver's message, unchanged.
type OpenError struct {
	Port string
	Err  error
}

func (e *OpenError) Error() string { return e.Err.Error() }

func (e *OpenError) Unwrap() error { return e.Err }

// WriteError reports a command byte that could not be written while connected.
type WriteError struct {
	Command types.Command
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("send %s: %v", e.Command, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

type FaultKind int

const (
	DecodeFailure FaultKind = iota + 1
	ReadFailure
)

func (k FaultKind) String() string {
	switch k {
	case DecodeFailure:
		return "decode"
	case ReadFailure:
		return "read"
	default:
		return "unknown"
	}
}

// Fault is a swallowed reader failure, surfaced for diagnostics only.
type Fault struct {
	Kind FaultKind
	Line string
	Err  error
	At   time.Time
}

func (f Fault) Error() string {
	if f.Line != "" {
		return fmt.Sprintf("%s fault on %q: %v", f.Kind, f.Line, f.Err)
	}
	return fmt.Sprintf("%s fault: %v", f.Kind, f.Err)
}

func (f Fault) Unwrap() error { return f.Err }
