package domain

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrStorageNotConfigured = errors.New("storage backend not configured")
)

// ValidationReason identifies why an upload was rejected before any I/O
type ValidationReason string

const (
	ReasonInvalidExtension ValidationReason = "invalid_extension"
	ReasonFileTooLarge     ValidationReason = "file_too_large"
	ReasonEmptyBuffer      ValidationReason = "empty_buffer"
)

// ValidationError is a client-correctable rejection. Never retried.
type ValidationError struct {
	Reason ValidationReason
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Reason, e.Detail)
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageErrorKind is the closed taxonomy backend-native errors map into
type StorageErrorKind string

const (
	KindBackendUnavailable StorageErrorKind = "backend_unavailable" // network, timeout, throttling
	KindAccessDenied       StorageErrorKind = "access_denied"
	KindBucketNotFound     StorageErrorKind = "bucket_not_found"
	KindObjectNotFound     StorageErrorKind = "object_not_found"
	KindObjectTooLarge     StorageErrorKind = "object_too_large"
	KindMalformed          StorageErrorKind = "malformed_request"
)

// StorageError wraps a backend failure with the operation name, the
// backend's request correlation id when available, and a short actionable
// hint. The underlying error message is masked of credential material
// before it gets here.
type StorageError struct {
	Kind      StorageErrorKind
	Op        string
	RequestID string
	Hint      string
	Err       error
}

func (e *StorageError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request id %s)", e.RequestID)
	}
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure may succeed on a later attempt.
// Access-denied and malformed-request failures need an operator fix, not
// a retry.
func (e *StorageError) Retryable() bool {
	return e.Kind == KindBackendUnavailable
}

// AsStorage extracts a StorageError from err, or returns nil
func AsStorage(err error) *StorageError {
	var se *StorageError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
