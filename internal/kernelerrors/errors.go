package kernelerrors

import "fmt"

// KernelError is the structured error type returned by every kernel entry
// point. Handlers translate it into a compact {code, message} envelope
// for callers outside the process.
type KernelError struct {
	// Code is the unique error code, e.g. KERNEL_204_DANGLING_EDGE.
	Code string

	// Kind is the owning subsystem taxonomy (derived from Code).
	Kind Kind

	// Message is the human-readable error message.
	Message string

	// Details carries additional key-value context (ids, labels, paths).
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates the operation may be retried after backoff.
	Retryable bool
}

// Error implements the error interface.
func (e *KernelError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/errors.As chains to the underlying cause.
func (e *KernelError) Unwrap() error {
	return e.Cause
}

// Is enables errors.Is(err, target) by comparing codes, so callers can
// match on a sentinel constructed with the same code regardless of
// message or details.
func (e *KernelError) Is(target error) bool {
	t, ok := target.(*KernelError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail attaches a key-value detail and returns the error for chaining.
func (e *KernelError) WithDetail(key, value string) *KernelError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a KernelError with Kind and Retryable derived from code.
func New(code, message string, cause error) *KernelError {
	return &KernelError{
		Code:      code,
		Kind:      kindFromCode(code),
		Message:   message,
		Cause:     cause,
		Retryable: retryableCodes[code],
	}
}

// Wrap builds a KernelError from an existing error, preserving its message.
func Wrap(code string, err error) *KernelError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Storage error constructors.
func InvalidPath(message string, cause error) *KernelError {
	return New(CodeInvalidPath, message, cause)
}

func InsufficientSpace(message string, cause error) *KernelError {
	return New(CodeInsufficientSpace, message, cause)
}

func InvalidKey(message string) *KernelError {
	return New(CodeInvalidKey, message, nil)
}

func InvalidEncoding(message string) *KernelError {
	return New(CodeInvalidEncoding, message, nil)
}

func TransactionAborted(message string, cause error) *KernelError {
	return New(CodeTransactionAborted, message, cause)
}

// Graph error constructors.
func NotFound(message string) *KernelError {
	return New(CodeNotFound, message, nil)
}

func SchemaViolation(message string) *KernelError {
	return New(CodeSchemaViolation, message, nil)
}

func UniqueViolation(message string) *KernelError {
	return New(CodeUniqueViolation, message, nil)
}

func DanglingEdge(message string) *KernelError {
	return New(CodeDanglingEdge, message, nil)
}

// Vector error constructors.
func DimensionMismatch(expected, got int) *KernelError {
	return New(CodeDimensionMismatch, fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got), nil)
}

func InvalidVectorData(message string) *KernelError {
	return New(CodeInvalidVectorData, message, nil)
}

func EmptyIndex(message string) *KernelError {
	return New(CodeEmptyIndex, message, nil)
}

func DeletedVector(message string) *KernelError {
	return New(CodeDeletedVector, message, nil)
}

// BM25 error constructors.
func EmptyQuery() *KernelError {
	return New(CodeEmptyQuery, "query must not be empty", nil)
}

func CapacityExceeded(message string) *KernelError {
	return New(CodeCapacityExceeded, message, nil)
}

// Traversal error constructors.
func MaxDepthExceeded(message string) *KernelError {
	return New(CodeMaxDepthExceeded, message, nil)
}

func InvalidWeight(message string) *KernelError {
	return New(CodeInvalidWeight, message, nil)
}

func TypeMismatch(message string) *KernelError {
	return New(CodeTypeMismatch, message, nil)
}

func UnsupportedStep(message string) *KernelError {
	return New(CodeUnsupportedStep, message, nil)
}

// IsRetryable reports whether err is a KernelError marked retryable.
func IsRetryable(err error) bool {
	ke, ok := err.(*KernelError)
	return ok && ke.Retryable
}

// Code extracts the error code, or "" if err is not a KernelError.
func Code(err error) string {
	ke, ok := err.(*KernelError)
	if !ok {
		return ""
	}
	return ke.Code
}

// KindOf extracts the Kind, or "" if err is not a KernelError.
func KindOf(err error) Kind {
	ke, ok := err.(*KernelError)
	if !ok {
		return ""
	}
	return ke.Kind
}
