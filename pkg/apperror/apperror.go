package apperror

import (
	"errors"
	"fmt"
)

// Sentinel error kinds shared by all services. Handlers translate them to HTTP
// statuses; services wrap them with context via fmt.Errorf and %w.
var (
	// ErrNotFound is returned for an unknown or purged id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned for an illegal lifecycle transition,
	// e.g. hard-deleting a record that is not in the trash.
	ErrInvalidState = errors.New("invalid state")
	// ErrCycleDetected is returned when a category parent change would
	// create a loop in the tree.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrInvalidArgument is returned for bad pagination or an unknown
	// reference id.
	ErrInvalidArgument = errors.New("invalid argument")
)

// TransportError wraps a persistence/gateway failure. It is passed through
// unchanged (no retry); the caller owns user-visible messaging.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transport wraps err as a TransportError. A nil err returns nil.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Err: err}
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
