package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected     = errors.New("not connected to a partner")
	ErrNoCameraToSwitch = errors.New("no camera to switch")
	ErrOnlyOneCamera    = errors.New("only one camera available")
	ErrNoCameraActive   = errors.New("no camera active")
	ErrHostOnly         = errors.New("only the host can share the movie")
	ErrAlreadyStarted   = errors.New("session already started")
)

type SessionError struct {
	Op      string
	Err     error
	Details string
}

func (e *SessionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *SessionError {
	return &SessionError{Op: op, Err: err, Details: details}
}
