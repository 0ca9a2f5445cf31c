package domain

import (
	"errors"
	"fmt"
)

// Provider failures. The provider chain recovers from all of them by moving to the next tier.
var (
	ErrProviderUnavailable = errors.New("route provider unavailable")
	ErrMalformedResponse   = errors.New("malformed route provider response")
	ErrBoundaryViolation   = errors.New("route leaves configured bounds")
)

// ErrRouteNotFound is returned by repositories when no route matches.
var ErrRouteNotFound = errors.New("route not found")

// ConfigError marks a deployment misconfiguration. It is the only engine error that is fatal.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
