package starhunt

import "errors"

var (
	ErrInvalidPosition    = errors.New("invalid riddle position")
	ErrSectionUnavailable = errors.New("section not yet available")
	ErrSectionLocked      = errors.New("section is locked")
	ErrAccessDenied       = errors.New("access denied")
	ErrUnknownSubject     = errors.New("unknown subject")
	ErrPointingIneligible = errors.New("team is not eligible for a pointing request")
	ErrPointingRequested  = errors.New("pointing already requested")
	ErrAlreadyDecided     = errors.New("request already decided")
)

// ValidationError is a user-facing input problem detected before any write.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
