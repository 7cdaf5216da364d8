package listener

import (
	"errors"
	"fmt"
)

// ErrNotWatching is returned when an order-book refresh is requested
// outside the watching phase.
var ErrNotWatching = errors.New("listener is not watching")

// Error is a fatal lifecycle failure, carrying the phase in which it
// occurred. Fatal failures are also emitted exactly once as an error
// notification.
type Error struct {
	Phase Phase
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
