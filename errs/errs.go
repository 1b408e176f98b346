// Package errs defines the core's closed error taxonomy.
//
// Every failure that crosses a component boundary is a *CoreError carrying a
// stable Code, a human message, an optional target (the offending
// entity/field/argument) and an optional server-supplied detail string. No
// component wraps errors with a third-party stack-trace library; the teacher
// itself never does, and plain fmt.Errorf/%w wrapping is the idiom carried
// forward here.
package errs

import (
	"errors"
	"fmt"
)

// Code is the stable error code namespace from spec §7.
type Code string

const (
	NotFound           Code = "NotFound"
	InvalidValue       Code = "InvalidValue"
	InvalidArguments   Code = "InvalidArguments"
	InvalidFetchXml    Code = "InvalidFetchXml"
	NotSupported       Code = "NotSupported"
	CyclicSchema       Code = "CyclicSchema"
	AuthFailed         Code = "AuthFailed"
	Throttled          Code = "Throttled"
	PoolClosed         Code = "PoolClosed"
	QueryFailed        Code = "QueryFailed"
	InvalidCast        Code = "InvalidCast"
	UnknownFunction    Code = "UnknownFunction"
	ArgArity           Code = "ArgArity"
	UndeclaredVariable Code = "UndeclaredVariable"
	Transient          Code = "Transient"
	Fatal              Code = "Fatal"
	Cancelled          Code = "Cancelled"
)

// CoreError is the single concrete error type surfaced by this module.
type CoreError struct {
	Code    Code
	Message string
	Target  string
	Details string
	cause   error
}

func (e *CoreError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s (target=%s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CoreError) Unwrap() error { return e.cause }

// New constructs a CoreError with no cause.
func New(code Code, message string) *CoreError {
	return &CoreError{Code: code, Message: message}
}

// Wrap constructs a CoreError carrying an underlying cause.
func Wrap(code Code, err error) *CoreError {
	if err == nil {
		return nil
	}
	return &CoreError{Code: code, Message: err.Error(), cause: err}
}

// WithTarget returns a copy of e with Target set.
func (e *CoreError) WithTarget(target string) *CoreError {
	cp := *e
	cp.Target = target
	return &cp
}

// WithDetails returns a copy of e with Details set.
func (e *CoreError) WithDetails(details string) *CoreError {
	cp := *e
	cp.Details = details
	return &cp
}

// CodeOf extracts the Code from err, if it (or anything it wraps) is a *CoreError.
func CodeOf(err error) (Code, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// Retryable reports whether the error's code belongs to the Remote category
// that propagation policy (spec §7) allows one local recovery attempt for.
func Retryable(err error) bool {
	c, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch c {
	case AuthFailed, Throttled, Transient:
		return true
	default:
		return false
	}
}
