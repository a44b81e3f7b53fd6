// Package errors defines the coded error type used across the
// service. A code decides how the API boundary answers (HTTP status,
// envelope code) while render-time failures keep their code when they
// land on the job record.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// Code categorizes a failure.
type Code string

const (
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeCapacity          Code = "RESOURCE_EXHAUSTED"
	CodeTimeout           Code = "TIMEOUT"
	CodeUnavailable       Code = "UNAVAILABLE"
	CodeRender            Code = "RENDER_ERROR"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
)

var statusByCode = map[Code]int{
	CodeValidation:  http.StatusBadRequest,
	CodeNotFound:    http.StatusNotFound,
	CodeConflict:    http.StatusConflict,
	CodeCapacity:    http.StatusTooManyRequests,
	CodeTimeout:     http.StatusGatewayTimeout,
	CodeUnavailable: http.StatusServiceUnavailable,
}

// Error carries a code, the failing operation, structured fields, and
// the stack captured at creation.
type Error struct {
	Code    Code
	Message string
	// Op names the failing operation, e.g. "jobs.transition".
	Op     string
	Err    error
	Fields map[string]any
	Stack  []Frame
}

// Frame is one entry of a captured stack.
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op+":")
	}
	if e.Code != "" {
		parts = append(parts, "["+string(e.Code)+"]")
	}
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	parts = append(parts, msg)
	return strings.Join(parts, " ")
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches coded errors by code, so two NOT_FOUND errors compare
// equal under errors.Is regardless of their messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithField attaches one structured detail and returns the error for
// chaining.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = map[string]any{}
	}
	e.Fields[key] = value
	return e
}

// HTTPStatus maps the code onto the response status. Unmapped codes,
// including RENDER_ERROR and INVALID_TRANSITION, read as 500 because
// they should never reach a client.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StackTrace formats the captured stack, one frame per line.
func (e *Error) StackTrace() string {
	var b strings.Builder
	for _, f := range e.Stack {
		fmt.Fprintf(&b, "  %s:%d %s\n", f.File, f.Line, f.Function)
	}
	return b.String()
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Stack: captureStack(2)}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Stack: captureStack(2)}
}

// Wrap adds operation context to err. A coded cause keeps its code and
// fields; anything else becomes INTERNAL_ERROR.
func Wrap(err error, op string, message string) *Error {
	if err == nil {
		return nil
	}
	wrapped := &Error{
		Code:    CodeInternal,
		Message: message,
		Op:      op,
		Err:     err,
		Stack:   captureStack(2),
	}
	var cause *Error
	if errors.As(err, &cause) {
		wrapped.Code = cause.Code
		wrapped.Fields = cause.Fields
	}
	return wrapped
}

// WrapWithCode is Wrap with the code forced, regardless of the cause.
func WrapWithCode(err error, code Code, op string, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Op: op, Err: err, Stack: captureStack(2)}
}

func Internal(message string) *Error {
	return New(CodeInternal, message)
}

func NotFound(resource string, id string) *Error {
	return Newf(CodeNotFound, "%s not found: %s", resource, id).
		WithField("resource", resource).
		WithField("id", id)
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}

func Validationf(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// ValidationField names the offending request field in the details.
func ValidationField(field string, message string) *Error {
	return New(CodeValidation, message).WithField("field", field)
}

func Capacity(message string) *Error {
	return New(CodeCapacity, message)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

// Render marks an encoding failure. These are recorded on the job,
// never returned from the generate call.
func Render(message string) *Error {
	return New(CodeRender, message)
}

// InvalidTransition marks a forbidden job status move. Hitting one
// means a registry invariant broke, so callers treat it as fatal.
func InvalidTransition(from, to string) *Error {
	return Newf(CodeInvalidTransition, "illegal status transition %s -> %s", from, to).
		WithField("from", from).
		WithField("to", to)
}

func Timeout(operation string) *Error {
	return Newf(CodeTimeout, "operation timed out: %s", operation).
		WithField("operation", operation)
}

// GetCode returns the code of err, or INTERNAL_ERROR for plain errors.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetHTTPStatus returns the response status for err, 500 for plain
// errors.
func GetHTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// GetFields returns the structured details of err, if any.
func GetFields(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

func IsValidation(err error) bool {
	return IsCode(err, CodeValidation)
}

func IsCapacity(err error) bool {
	return IsCode(err, CodeCapacity)
}

func IsInvalidTransition(err error) bool {
	return IsCode(err, CodeInvalidTransition)
}

const (
	stackDepth  = 32
	stackFrames = 10
)

func captureStack(skip int) []Frame {
	var pcs [stackDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])

	frames := make([]Frame, 0, stackFrames)
	iter := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := iter.Next()
		if !strings.Contains(frame.File, "runtime/") {
			frames = append(frames, Frame{File: frame.File, Line: frame.Line, Function: frame.Function})
		}
		if !more || len(frames) == stackFrames {
			return frames
		}
	}
}

// As and Is re-export the stdlib helpers so callers never need two
// errors imports.
func As(err error, target any) bool { return errors.As(err, target) }

func Is(err, target error) bool { return errors.Is(err, target) }
