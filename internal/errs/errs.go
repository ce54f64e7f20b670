// Package errs defines the error taxonomy shared by the validator, the
// transcode engine and the batch orchestrator.
//
// Every failure carries a Code. Codes group into three kinds: validation
// (caller-correctable, rejected before any decode), transcode (attributable to
// one job) and orchestration (misuse of the batch API).
package errs

import (
	"errors"
	"fmt"
)

// Kind groups codes by the stage that produced them.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindTranscode     Kind = "transcode"
	KindOrchestration Kind = "orchestration"
)

// Code identifies a specific failure.
type Code string

const (
	CodeMissingInput    Code = "MISSING_INPUT"
	CodeTooLarge        Code = "TOO_LARGE"
	CodeUnsupportedType Code = "UNSUPPORTED_TYPE"
	CodeInvalidProfile  Code = "INVALID_PROFILE"

	CodeDecode            Code = "DECODE_ERROR"
	CodeUnsupportedFormat Code = "UNSUPPORTED_FORMAT"
	CodeEncode            Code = "ENCODE_ERROR"

	CodeEmptyBatch     Code = "EMPTY_BATCH"
	CodeTooManyImages  Code = "TOO_MANY_IMAGES"
	CodeDuplicateJobID Code = "DUPLICATE_JOB_ID"
	CodeNotReady       Code = "NOT_READY"
	CodeUnknownJobID   Code = "UNKNOWN_JOB_ID"
	CodeUnknownSession Code = "UNKNOWN_SESSION"
	CodeCancelled      Code = "CANCELLED"
)

// Kind reports which stage the code belongs to.
func (c Code) Kind() Kind {
	switch c {
	case CodeMissingInput, CodeTooLarge, CodeUnsupportedType, CodeInvalidProfile:
		return KindValidation
	case CodeDecode, CodeUnsupportedFormat, CodeEncode:
		return KindTranscode
	default:
		return KindOrchestration
	}
}

// Error is a coded failure with a human-readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return string(e.Code) + ": " + e.Err.Error()
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so the sentinels below work
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Kind reports the stage of the error's code.
func (e *Error) Kind() Kind { return e.Code.Kind() }

// Sentinels for errors.Is.
var (
	ErrMissingInput    = &Error{Code: CodeMissingInput}
	ErrTooLarge        = &Error{Code: CodeTooLarge}
	ErrUnsupportedType = &Error{Code: CodeUnsupportedType}
	ErrInvalidProfile  = &Error{Code: CodeInvalidProfile}

	ErrDecode            = &Error{Code: CodeDecode}
	ErrUnsupportedFormat = &Error{Code: CodeUnsupportedFormat}
	ErrEncode            = &Error{Code: CodeEncode}

	ErrEmptyBatch     = &Error{Code: CodeEmptyBatch}
	ErrTooManyImages  = &Error{Code: CodeTooManyImages}
	ErrDuplicateJobID = &Error{Code: CodeDuplicateJobID}
	ErrNotReady       = &Error{Code: CodeNotReady}
	ErrUnknownJobID   = &Error{Code: CodeUnknownJobID}
	ErrUnknownSession = &Error{Code: CodeUnknownSession}
	ErrCancelled      = &Error{Code: CodeCancelled}
)

// New builds a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the code from err, or "" when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
