// Package errors provides the unified error type and factory functions for
// the ChemClassify engine.  Every layer (domain, engine, rulespec, interfaces)
// uses AppError as the single carrier for structured error information,
// enabling consistent logging, metric labels, and caller-side dispatch on
// typed error codes.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames
// above the caller (skipping captureStack itself and New/Wrap).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		// Trim standard-library noise to keep traces readable.
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError: the canonical engine error type
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout ChemClassify.
// It satisfies the standard error interface and supports Go 1.13+ error
// wrapping so that errors.Is / errors.As / errors.Unwrap work transparently
// across all layers.
//
// Usage:
//
//	return errors.New(errors.ErrCodeOntologyCycle, "is_a cycle involving CHEBI:33853")
//	return errors.Wrap(parseErr, errors.ErrCodeStructureParseFailed, "invalid SMILES")
//	return errors.InvalidParam("edge decay factor must be in (0,1]").
//	           WithDetail("got -0.2")
type AppError struct {
	// Code is the typed error code that uniquely identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description of the error.
	Message string

	// Detail carries supplementary context (class IDs, descriptor names,
	// offending input fragments) that aids debugging.
	Detail string

	// Cause is the underlying error that triggered this AppError.
	Cause error

	// Stack contains the formatted call-stack captured at the point of error
	// creation.  It is intentionally not included in Error() output; callers
	// that need it (e.g. structured logging) inspect the field directly.
	Stack string
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>", with the detail segment omitted
// when Detail is empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error, enabling errors.Is and errors.As
// to traverse the full error chain.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.
// Safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Factory functions
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
// A call-stack snapshot is captured automatically.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps an existing error.  If err is nil,
// Wrap returns nil so it can be used inline on fallible calls.
//
// When err is already an *AppError and code is CodeUnknown the original code
// is preserved, preventing loss of the original classification during
// cross-layer propagation.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// InvalidParam constructs a CodeInvalidParam AppError.
func InvalidParam(message string) *AppError {
	return &AppError{Code: CodeInvalidParam, Message: message, Stack: captureStack(1)}
}

// NotFound constructs a CodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, Stack: captureStack(1)}
}

// Internal constructs a CodeInternal AppError.  Use this for unexpected
// failures where no more specific code applies.
func Internal(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Stack: captureStack(1)}
}

// StructureInvalid constructs an ErrCodeStructureInvalid AppError.
func StructureInvalid(message string) *AppError {
	return &AppError{Code: ErrCodeStructureInvalid, Message: message, Stack: captureStack(1)}
}

// DescriptorUndefined constructs an ErrCodeDescriptorUndefined AppError for
// the named descriptor.
func DescriptorUndefined(name string) *AppError {
	return &AppError{
		Code:    ErrCodeDescriptorUndefined,
		Message: "descriptor undefined for structure",
		Detail:  "descriptor=" + name,
		Stack:   captureStack(1),
	}
}

// OntologySpec constructs an ontology-specification AppError with the given
// ONT_* code.  Non-ONT codes are coerced to ErrCodeOntologyDangling to keep
// the family invariant.
func OntologySpec(code ErrorCode, message string) *AppError {
	if !isOntologySpecCode(code) {
		code = ErrCodeOntologyDangling
	}
	return &AppError{Code: code, Message: message, Stack: captureStack(1)}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError found in err's
// chain.  If no *AppError is present, CodeUnknown is returned.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// IsStructureError reports whether any error in err's chain carries a
// STRUCT_* code.  Batch callers use this to abort a single structure's
// classification while continuing with the rest of the batch.
func IsStructureError(err error) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && isStructureCode(ae.Code) {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsOntologySpec reports whether any error in err's chain carries an ONT_*
// code.  These are fatal configuration errors: every subsequent
// classification against the same rule set would be meaningless.
func IsOntologySpec(err error) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && isOntologySpecCode(ae.Code) {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsRuleSpec reports whether any error in err's chain carries a RULE_* code.
func IsRuleSpec(err error) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && isRuleSpecCode(ae.Code) {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
