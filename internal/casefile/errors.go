package casefile

import "errors"

var (
	ErrCaseNotFound       = errors.New("case not found")
	ErrInvalidSnapshot    = errors.New("invalid case snapshot")
	ErrInvalidReportKind  = errors.New("invalid report kind")
	ErrMissingAppointment = errors.New("case has no appointment date")
)
