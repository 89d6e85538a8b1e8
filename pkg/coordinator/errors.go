package coordinator

import "errors"

var (
	ErrAlreadyInitialized = errors.New("coordinator already initialized")
	ErrNotInitialized     = errors.New("coordinator not initialized")
	ErrTeamInactive       = errors.New("team is not active")
)
