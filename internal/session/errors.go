package session

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores and repositories when an entity is absent.
var ErrNotFound = errors.New("not found")

// ErrNoActiveSession is returned when an operation requires a started session.
var ErrNoActiveSession = errors.New("no active session")

// ValidationError marks a record or argument that must never reach the store.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError marks a store read or write failure. It is fatal to the
// in-flight operation only; the caller may retry the same action safely.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
