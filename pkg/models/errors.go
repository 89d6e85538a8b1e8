package models

import (
	"errors"
	"fmt"
)

// Configuration errors are fatal at construction time.
var (
	ErrInvalidDefinition = errors.New("invalid process definition")
	ErrDuplicateProcess  = errors.New("duplicate process name")
	ErrUnknownKPI        = errors.New("unknown KPI")
	ErrUnknownTeam       = errors.New("unknown team")
	ErrDuplicateTeam     = errors.New("duplicate team")
)

// ConfigurationError wraps a configuration problem with the operation and
// subject that produced it.
type ConfigurationError struct {
	Op      string // Operation being performed (e.g., "workflow.New", "coordinator.New")
	Subject string // Offending team, process or KPI name
	Err     error  // Underlying error
}

func (e *ConfigurationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: configuration error: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s: configuration error for %s: %v", e.Op, e.Subject, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewConfigurationError creates a configuration error with context.
func NewConfigurationError(op, subject string, err error) *ConfigurationError {
	return &ConfigurationError{
		Op:      op,
		Subject: subject,
		Err:     err,
	}
}

// IsConfigurationError checks if an error originates from invalid configuration.
func IsConfigurationError(err error) bool {
	var configErr *ConfigurationError

	return errors.As(err, &configErr)
}
