package wasm

import (
	"fmt"

	"github.com/pkg/errors"
)

// DecodeError signals a structural problem with the binary encoding itself:
// a bad magic/version, a truncated or malformed LEB128, an out-of-order or
// unrecognised section, or a read past a declared boundary (spec.md §7).
//
// It is non-recoverable: callers should discard the partially built Module
// and reject the input wholesale.
type DecodeError struct {
	Reason string
	cause  error
}

func (e *DecodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("decode error: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.cause }

// NewDecodeError builds a DecodeError, wrapping cause (if any) with
// github.com/pkg/errors so the originating call stack survives across the
// decode -> validate -> translate pipeline.
func NewDecodeError(reason string, cause error) *DecodeError {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &DecodeError{Reason: reason, cause: cause}
}

// ValidateError signals a static semantic violation of the WASM MVP rules:
// an operand-stack type mismatch, a branch to a non-existent depth, an
// exported mutable global, more than one table/memory, and so on
// (spec.md §7).
//
// Like DecodeError it is non-recoverable.
type ValidateError struct {
	Reason string
	cause  error
}

func (e *ValidateError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("validate error: %s: %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("validate error: %s", e.Reason)
}

func (e *ValidateError) Unwrap() error { return e.cause }

// NewValidateError builds a ValidateError, optionally wrapping cause.
func NewValidateError(reason string, cause error) *ValidateError {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &ValidateError{Reason: reason, cause: cause}
}

// Validatef is a convenience constructor mirroring fmt.Errorf, used at the
// many validation call sites that have no underlying cause error.
func Validatef(format string, args ...interface{}) *ValidateError {
	return NewValidateError(fmt.Sprintf(format, args...), nil)
}

// Decodef is the DecodeError analogue of Validatef.
func Decodef(format string, args ...interface{}) *DecodeError {
	return NewDecodeError(fmt.Sprintf(format, args...), nil)
}
