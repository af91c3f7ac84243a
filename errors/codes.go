package errors

import (
	"errors"
	"fmt"
)

// Code is a stable return code. Codes are grouped into numeric bands by
// subsystem so callers can range-check them (see Band).
//
// Code implements error, which lets a bare code act as an errors.Is target:
//
//	if errors.Is(err, errors.CodeWaitSetFull) { ... }
type Code int

// Generic codes (0-99).
const (
	CodeOK              Code = 0
	CodeError           Code = 1
	CodeTimeout         Code = 2
	CodeUnsupported     Code = 3
	CodeBadAlloc        Code = 10
	CodeInvalidArgument Code = 11
)

// Lifecycle codes (100-199).
const (
	CodeAlreadyInit         Code = 100
	CodeNotInit             Code = 101
	CodeMismatchedTransport Code = 102
	CodeTopicNameInvalid    Code = 103
	CodeServiceNameInvalid  Code = 104
	CodeUnknownSubstitution Code = 105
	CodeAlreadyShutdown     Code = 106
)

// Node codes (200-299).
const (
	CodeNodeInvalid          Code = 200
	CodeNodeInvalidName      Code = 201
	CodeNodeInvalidNamespace Code = 202
	CodeNodeNameNonExistent  Code = 203
)

// Entity codes (300-899).
const (
	CodePublisherInvalid       Code = 300
	CodeSubscriptionInvalid    Code = 400
	CodeSubscriptionTakeFailed Code = 401
	CodeClientInvalid          Code = 500
	CodeClientTakeFailed       Code = 501
	CodeServiceInvalid         Code = 600
	CodeServiceTakeFailed      Code = 601
	CodeTimerInvalid           Code = 800
	CodeTimerCanceled          Code = 801
)

// Wait-set codes (900-999).
const (
	CodeWaitSetInvalid Code = 900
	CodeWaitSetEmpty   Code = 901
	CodeWaitSetFull    Code = 902
)

// Parsing codes (1000-1999).
const (
	CodeInvalidRemapRule Code = 1001
	CodeWrongLexeme      Code = 1002
	CodeInvalidROSArgs   Code = 1003
)

// Event codes (2000-2099).
const (
	CodeEventInvalid    Code = 2000
	CodeEventTakeFailed Code = 2001
)

var codeNames = map[Code]string{
	CodeOK:                     "ok",
	CodeError:                  "error",
	CodeTimeout:                "timeout",
	CodeUnsupported:            "unsupported",
	CodeBadAlloc:               "bad alloc",
	CodeInvalidArgument:        "invalid argument",
	CodeAlreadyInit:            "already initialized",
	CodeNotInit:                "not initialized",
	CodeMismatchedTransport:    "mismatched transport",
	CodeTopicNameInvalid:       "topic name invalid",
	CodeServiceNameInvalid:     "service name invalid",
	CodeUnknownSubstitution:    "unknown substitution",
	CodeAlreadyShutdown:        "already shutdown",
	CodeNodeInvalid:            "node invalid",
	CodeNodeInvalidName:        "node name invalid",
	CodeNodeInvalidNamespace:   "node namespace invalid",
	CodeNodeNameNonExistent:    "node name non existent",
	CodePublisherInvalid:       "publisher invalid",
	CodeSubscriptionInvalid:    "subscription invalid",
	CodeSubscriptionTakeFailed: "subscription take failed",
	CodeClientInvalid:          "client invalid",
	CodeClientTakeFailed:       "client take failed",
	CodeServiceInvalid:         "service invalid",
	CodeServiceTakeFailed:      "service take failed",
	CodeTimerInvalid:           "timer invalid",
	CodeTimerCanceled:          "timer canceled",
	CodeWaitSetInvalid:         "wait set invalid",
	CodeWaitSetEmpty:           "wait set empty",
	CodeWaitSetFull:            "wait set full",
	CodeInvalidRemapRule:       "invalid remap rule",
	CodeWrongLexeme:            "wrong lexeme",
	CodeInvalidROSArgs:         "invalid ros args",
	CodeEventInvalid:           "event invalid",
	CodeEventTakeFailed:        "event take failed",
}

// String returns the human readable name of the code
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error implements the error interface
func (c Code) Error() string {
	return c.String()
}

// Band returns the lower bound of the subsystem band the code belongs to.
// Generic codes live in band 0, the parsing band is 1000, events 2000, and
// every other band spans one hundred codes.
func (c Code) Band() Code {
	switch {
	case c < 100:
		return 0
	case c >= 2000:
		return c / 100 * 100
	case c >= 1000:
		return 1000
	default:
		return c / 100 * 100
	}
}

// Error is a coded error carrying a descriptive message and, for parse and
// validation failures, the byte offset of the offending input.
type Error struct {
	Code    Code
	Message string
	// Index is the byte offset into the offending input, or -1.
	Index int
	Err   error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the same code as e
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Code:
		return t == e.Code
	case *Error:
		return t.Code == e.Code && t.Message == "" && t.Err == nil
	}
	return false
}

// New creates a coded error without position information
func New(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Index: -1}
}

// NewAt creates a coded error that points at a byte offset in the input
func NewAt(code Code, index int, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Index: index}
}

// Wrapf creates a coded error around err. The underlying message is kept.
func Wrapf(code Code, err error, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Index: -1, Err: err}
}

// Recode returns err re-labelled with code, keeping message, index and cause.
// Errors that carry no code are wrapped.
func Recode(err error, code Code) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Code: code, Message: e.Message, Index: e.Index, Err: e.Err}
	}
	return &Error{Code: code, Message: err.Error(), Index: -1}
}

// CodeOf returns the code carried by err. A nil error is CodeOK and an
// error without a code is CodeError.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return CodeError
}

// IndexOf returns the byte offset carried by err, or -1
func IndexOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Index
	}
	return -1
}

// IsEmptyResult reports whether err is an expected "nothing available"
// outcome (a timeout or a take that found nothing) rather than a malfunction.
func IsEmptyResult(err error) bool {
	switch CodeOf(err) {
	case CodeTimeout,
		CodeSubscriptionTakeFailed,
		CodeClientTakeFailed,
		CodeServiceTakeFailed,
		CodeEventTakeFailed:
		return true
	}
	return false
}

// class maps a code onto an ErrorClass
func (c Code) class() ErrorClass {
	switch c {
	case CodeTimeout, CodeSubscriptionTakeFailed, CodeClientTakeFailed,
		CodeServiceTakeFailed, CodeEventTakeFailed, CodeWaitSetFull:
		return ErrorTransient
	case CodeBadAlloc, CodeAlreadyShutdown, CodeError:
		return ErrorFatal
	}
	return ErrorInvalid
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return errors.As(err, target) }
