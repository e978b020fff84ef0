package domain

import (
	"fmt"
	"strings"
)

// ValidationError is returned when an [ImageRecord] cannot be built because
// required fields are missing.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required properties: " + strings.Join(e.Missing, " ")
}

// ConfigurationError is returned when a configuration value is rejected.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// TransportError wraps a failure talking to the remote image service. It is
// always recoverable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
