package completion

import (
	"errors"
	"fmt"
)

// ConfigError indicates the client is misconfigured (missing or rejected
// credentials, unknown model). It is fatal to a whole task run.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("completion config: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("completion config: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TransientError indicates a single completion call failed (network fault,
// rate limit, server error, timeout). It is local to one subtask invocation.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("completion call: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsTransient reports whether err is or wraps a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
