package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals an unknown opportunity or approval id.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate signals that the natural key already has a live record.
	// Expected under concurrent scans; callers skip, not fail.
	ErrDuplicate = errors.New("record already exists for natural key")

	// ErrExpired signals that the approval window elapsed before resolution.
	ErrExpired = errors.New("approval window elapsed")
)

// AlreadyResolvedError reports an attempted transition on an item that
// already reached a terminal state. Routine under concurrency.
type AlreadyResolvedError struct {
	Status ApprovalStatus
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("already %s", e.Status)
}

// IsAlreadyResolved reports whether err is an AlreadyResolvedError.
func IsAlreadyResolved(err error) bool {
	var are *AlreadyResolvedError
	return errors.As(err, &are)
}

// ValidationError rejects malformed or oversized input before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ExternalEffectError wraps a failed fetch/generate/publish call. The
// enclosing workflow state is left untouched, so the operation is retryable.
type ExternalEffectError struct {
	Op  string
	Err error
}

func (e *ExternalEffectError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ExternalEffectError) Unwrap() error {
	return e.Err
}

// StorageError wraps a store failure that the caller may retry later.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
