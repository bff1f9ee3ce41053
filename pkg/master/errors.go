package master

import (
	"errors"
	"fmt"
)

// Status is the stable numeric code attached to every error surfaced to
// clients.
type Status int32

const (
	StatusOK Status = iota
	StatusTableDoesntExist
	StatusObjectDoesntExist
	StatusObjectExists
	StatusWrongVersion
	StatusSegmentRecoveryFailed
	StatusInternalError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTableDoesntExist:
		return "table doesn't exist"
	case StatusObjectDoesntExist:
		return "object doesn't exist"
	case StatusObjectExists:
		return "object exists"
	case StatusWrongVersion:
		return "wrong version"
	case StatusSegmentRecoveryFailed:
		return "segment recovery failed"
	case StatusInternalError:
		return "internal error"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Error carries a status code and optional detail. Sentinel instances below
// compare with errors.Is; wrapped details still match their sentinel through
// the Status.
type Error struct {
	Code    Status
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.String()
}

// Is matches any *Error with the same status code, so wrapped instances
// still compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return e.Code == te.Code
}

var (
	ErrTableDoesntExist       = &Error{Code: StatusTableDoesntExist}
	ErrObjectDoesntExist      = &Error{Code: StatusObjectDoesntExist}
	ErrObjectExists           = &Error{Code: StatusObjectExists}
	ErrWrongVersion           = &Error{Code: StatusWrongVersion}
	ErrSegmentRecoveryFailed  = &Error{Code: StatusSegmentRecoveryFailed}
)

// newInternalError wraps an unexpected failure with the internal status.
func newInternalError(op string, cause error) *Error {
	return &Error{
		Code:    StatusInternalError,
		Message: fmt.Sprintf("%s: %v", op, cause),
	}
}

// StatusOf extracts the status code from an error, or StatusInternalError
// for errors that did not originate here.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return StatusInternalError
}
