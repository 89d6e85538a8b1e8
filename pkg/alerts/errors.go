package alerts

import "errors"

var (
	ErrAlertAlreadyConsumed = errors.New("alert already consumed")
	ErrAlertAnalysisFailed  = errors.New("alert analysis failed")
	ErrInvalidAlert         = errors.New("invalid alert")
)
