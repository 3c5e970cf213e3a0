package remote

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the endpoint needed for an operation has no URL.
var ErrNotConfigured = errors.New("remote endpoint not configured")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// ConfigError reports an unusable configured URL.
type ConfigError struct {
	Field string
	Value string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid remote %s: %q is not an absolute URL", e.Field, e.Value)
}
