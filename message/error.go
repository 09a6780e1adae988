package message

import "fmt"

// ValidationError is returned when a message, or some part of it, is
// malformed.
//
// Messages that fail validation are never published, and never retried.
type ValidationError struct {
	// Field is the (dotted) name of the offending field.
	Field string

	// Reason describes why the value is invalid.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// within wraps err so that its field is reported relative to prefix.
func within(prefix string, err error) error {
	if v, ok := err.(*ValidationError); ok {
		return &ValidationError{
			Field:  prefix + "." + v.Field,
			Reason: v.Reason,
		}
	}

	return err
}

func checkLength(field, v string, min, max int) error {
	if n := len(v); n < min || n > max {
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("length must be between %d and %d, got %d", min, max, n),
		}
	}

	return nil
}

func checkRange(field string, v, min, max float64) error {
	// NaN fails both comparisons, so test for the valid case.
	if v >= min && v <= max {
		return nil
	}

	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("must be between %g and %g, got %g", min, max, v),
	}
}
