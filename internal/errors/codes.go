package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure inside the assessment engine.
type ErrorCode string

const (
	// ErrCodeTransientGeneration indicates a network/timeout/malformed response
	// from the generative source. Retried within the bucket's attempt budget.
	ErrCodeTransientGeneration ErrorCode = "TRANSIENT_GENERATION"
	// ErrCodeValidationFailed indicates a structural defect in a candidate item.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrCodeDuplicate indicates an exact or semantic duplicate candidate.
	ErrCodeDuplicate ErrorCode = "DUPLICATE"
	// ErrCodeBucketExhausted indicates the attempt budget was spent before the
	// bucket reached its target count. Non-fatal, triggers fallback.
	ErrCodeBucketExhausted ErrorCode = "BUCKET_EXHAUSTED"
	// ErrCodeVerificationInconclusive indicates the independent solve path could
	// not confirm or correct the claimed answer. The item is kept unverified.
	ErrCodeVerificationInconclusive ErrorCode = "VERIFICATION_INCONCLUSIVE"
	// ErrCodeUpstreamUnavailable indicates a required backing store or index is
	// unreachable. Fatal for the whole request.
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates a referenced entity does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// EngineError is a coded error for engine operations.
type EngineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Convenience constructors for the engine failure taxonomy.

// TransientGeneration wraps an upstream generation failure.
func TransientGeneration(cause error) *EngineError {
	return &EngineError{Code: ErrCodeTransientGeneration, Message: "generative source failed", Cause: cause}
}

// ValidationFailed creates a structural validation error.
func ValidationFailed(msg string) *EngineError {
	return &EngineError{Code: ErrCodeValidationFailed, Message: msg}
}

// Duplicate creates a duplicate-candidate error for the given scope.
func Duplicate(scope, msg string) *EngineError {
	return &EngineError{Code: ErrCodeDuplicate, Message: fmt.Sprintf("%s scope: %s", scope, msg)}
}

// BucketExhausted signals that a difficulty bucket spent its attempt budget.
func BucketExhausted(difficulty string, accepted, target int) *EngineError {
	return &EngineError{
		Code:    ErrCodeBucketExhausted,
		Message: fmt.Sprintf("%s bucket finalized with %d/%d items", difficulty, accepted, target),
	}
}

// VerificationInconclusive signals that the second solve path gave no verdict.
func VerificationInconclusive(cause error) *EngineError {
	return &EngineError{Code: ErrCodeVerificationInconclusive, Message: "answer verification inconclusive", Cause: cause}
}

// UpstreamUnavailable wraps a backing store or index failure.
func UpstreamUnavailable(msg string, cause error) *EngineError {
	return &EngineError{Code: ErrCodeUpstreamUnavailable, Message: msg, Cause: cause}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *EngineError {
	return &EngineError{Code: ErrCodeInvalidArgument, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *EngineError {
	return &EngineError{Code: ErrCodeNotFound, Message: msg}
}

// IsCode checks whether err (or anything it wraps) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Code == code
	}
	return false
}

// CodeOf extracts the error code, or the default when err is not coded.
func CodeOf(err error, defaultCode ErrorCode) ErrorCode {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Code
	}
	return defaultCode
}
