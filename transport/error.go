package transport

import (
	"fmt"
)

// TransientError indicates a failure to communicate with the broker that may
// succeed if retried, such as the broker being unreachable or an
// acknowledgment timing out.
type TransientError struct {
	// Op is a short description of the operation that failed.
	Op string

	// Cause is the underlying error.
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("unable to %s: %s", e.Op, e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// Transient returns err wrapped in a *TransientError, unless it is nil or
// already a *TransientError.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(*TransientError); ok {
		return err
	}

	return &TransientError{op, err}
}
