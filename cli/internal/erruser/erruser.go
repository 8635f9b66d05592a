// Package erruser provides errors whose Error() is a short user-facing
// message. The technical cause stays reachable via Unwrap() so the CLI can
// print it on a separate "Details:" line.
package erruser

import "errors"

// Err pairs a user-facing message with an optional cause.
// Error() returns only Msg; the cause never leaks into the primary line.
type Err struct {
	Msg string
	Err error
}

// Error returns the user-facing message only.
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// Unwrap returns the underlying cause, or nil. Safe on a nil receiver.
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an error with the given user-facing message. A non-nil err is
// wrapped and available via Unwrap(); a nil err yields a plain error.
func New(msg string, err error) error {
	if err == nil {
		return errors.New(msg)
	}
	return &Err{Msg: msg, Err: err}
}
