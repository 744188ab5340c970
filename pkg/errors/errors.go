// Package errors augments the standard errors
// provided by fmt (https://golang.org/src/fmt/errors.go)
// with a Wrap() method to wrap errors without resorting
// to fmt.Errorf("%w", err), plus the sentinel kinds used
// throughout sparrow's error-handling contract.
package errors

import (
	stderr "errors"
	"fmt"
)

var _ error = New("")

// Sentinel kinds. Callers wrap one of these so command-level code can
// decide between aborting, hinting at an override flag, or re-raising.
var (
	// ErrConfig flags malformed or contradictory settings, detected before any I/O
	ErrConfig = New("configuration error")

	// ErrConnectivity flags a remote session that could not be established
	ErrConnectivity = New("cannot establish remote session")

	// ErrExternalTool flags a non-zero exit from ssh, rsync, git or the Slurm CLI
	ErrExternalTool = New("external tool failed")

	// ErrProtocolExhausted flags a quick-run readiness handshake that hit
	// its read-chunk bound without seeing the ready sentinel
	ErrProtocolExhausted = New("allocation handshake exhausted")

	// ErrUserDeclined flags an operation the operator cancelled or that an
	// anti-clobber guard refused
	ErrUserDeclined = New("operation declined")

	// ErrNotSupported flags a capability the local host variant does not carry
	ErrNotSupported = New("operation not supported on this host")
)

// New Error
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Newf builds an Error from a format string
func Newf(format string, args ...interface{}) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// Error augments the standard error interface with a Wrap method.
//
// The main difference with github.com/pkg/errors is that we are wrapping
// errors from errors, not from text.
type Error struct {
	msg string
	err error
}

// Error message
func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a nested error. The receiver is left untouched so the sentinel
// kinds can be wrapped concurrently.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err}
}

// Is of some error type? Kinds match by message so a wrapped copy of a
// sentinel still compares equal to it.
func (e *Error) Is(target error) bool {
	if e == target || e.err == target {
		return true
	}
	t, ok := target.(*Error)
	return ok && e.msg == t.msg
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.As)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
