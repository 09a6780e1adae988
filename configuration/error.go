package configuration

import "fmt"

// ConfigApplyError indicates that a configuration request could not be
// applied. The previous configuration remains in force.
type ConfigApplyError struct {
	// Revision is the revision that could not be applied.
	Revision uint32

	// Cause is the error reported by the configuration procedure.
	Cause error
}

func (e *ConfigApplyError) Error() string {
	return fmt.Sprintf(
		"unable to apply configuration revision %d: %s",
		e.Revision,
		e.Cause,
	)
}

func (e *ConfigApplyError) Unwrap() error {
	return e.Cause
}
