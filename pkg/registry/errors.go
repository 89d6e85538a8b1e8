package registry

import "errors"

var (
	// ErrProviderFailure marks a single instance Failed; the rest of the cycle continues.
	ErrProviderFailure      = errors.New("provider failure")
	ErrProcessAlreadyActive = errors.New("process already active")
	ErrRegistryStopped      = errors.New("registry stopped")
	ErrInstanceNotFound     = errors.New("process instance not found")
	ErrProcessNotFailed     = errors.New("process is not failed")
)
