package storage

import (
	"errors"
	"fmt"

	"github.com/roach88/hbnb/internal/model"
)

// ErrorCode categorizes engine failures.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a referenced entity does not exist. Get never
	// returns it; absence there is (nil, nil).
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeMalformed indicates the caller passed something structurally
	// invalid: an unknown kind, a nil entity, a patch value of the wrong type.
	ErrCodeMalformed ErrorCode = "MALFORMED_INPUT"

	// ErrCodeDurability indicates durable storage could not be read or
	// written. In-memory state is unchanged and the call may be retried.
	ErrCodeDurability ErrorCode = "DURABILITY"

	// ErrCodeReferential indicates a link between entities that do not exist.
	ErrCodeReferential ErrorCode = "REFERENTIAL"
)

// Error is the typed error returned by the engine and its backends.
type Error struct {
	Code ErrorCode
	// Op names the failing operation ("save", "reload", "link", ...).
	Op   string
	Kind model.Kind
	ID   string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Op)
	if e.Kind != "" && e.ID != "" {
		msg += fmt.Sprintf(" %s.%s", e.Kind, e.ID)
	} else if e.Kind != "" {
		msg += " " + string(e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DurabilityError wraps a failure to read or write durable state.
func DurabilityError(op string, err error) *Error {
	return &Error{Code: ErrCodeDurability, Op: op, Err: err}
}

// MalformedError reports invalid caller input.
func MalformedError(op string, kind model.Kind, err error) *Error {
	return &Error{Code: ErrCodeMalformed, Op: op, Kind: kind, Err: err}
}

// NotFoundError reports a missing entity.
func NotFoundError(op string, kind model.Kind, id string) *Error {
	return &Error{Code: ErrCodeNotFound, Op: op, Kind: kind, ID: id}
}

// ReferentialError reports a dangling reference.
func ReferentialError(op string, kind model.Kind, id string) *Error {
	return &Error{Code: ErrCodeReferential, Op: op, Kind: kind, ID: id,
		Err: fmt.Errorf("%s %s does not exist", kind, id)}
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsNotFound returns true if err is a not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsMalformed returns true if err is a malformed-input error.
func IsMalformed(err error) bool { return hasCode(err, ErrCodeMalformed) }

// IsDurability returns true if err is a durability failure.
func IsDurability(err error) bool { return hasCode(err, ErrCodeDurability) }

// IsReferential returns true if err is a referential violation.
func IsReferential(err error) bool { return hasCode(err, ErrCodeReferential) }
