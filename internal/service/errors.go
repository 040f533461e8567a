package service

import (
	"context"
	"errors"
	"fmt"

	"dmsapi/internal/model"
	"dmsapi/internal/naming"
	"dmsapi/internal/suggest"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrNotFound         = errors.New("document not found")
	ErrReaderNil        = errors.New("reader is nil")
	ErrFilenameRequired = errors.New("filename is required")

	// ErrConcurrentModification means another writer changed the version
	// chain first. The caller should re-fetch and retry.
	ErrConcurrentModification = errors.New("document was modified concurrently")
	ErrStorage                = errors.New("storage failure")
	ErrTimeout                = errors.New("operation timed out")

	ErrQuarantineNotFound = errors.New("quarantined file not found")

	ErrTagNotFound        = errors.New("tag not found")
	ErrTagNameRequired    = errors.New("tag name is required")
	ErrTagExists          = errors.New("tag name already exists")
	ErrTagAlreadyAttached = errors.New("tag already attached to document")
	ErrTagNotAttached     = errors.New("tag is not attached to document")

	ErrShareNotFound  = errors.New("share link not found")
	ErrShareExpired   = errors.New("share link has expired")
	ErrShareExhausted = errors.New("share link view limit reached")
	ErrShareRevoked   = errors.New("share link was revoked")
	ErrPINRequired    = errors.New("pin is required")
	ErrInvalidPIN     = errors.New("invalid pin")
	ErrInvalidExpiry  = errors.New("expiry must be between 1 and 365 days")
	ErrInvalidViews   = errors.New("max views must be positive")

	ErrSuggestionsDisabled = suggest.ErrDisabled
)

// InvalidFilenameError rejects an upload whose name breaks the naming
// convention. QuarantineAvailable tells the caller it may resubmit with the
// quarantine flag.
type InvalidFilenameError struct {
	Err                 *naming.ParseError
	QuarantineAvailable bool
}

func (e *InvalidFilenameError) Error() string { return e.Err.Message }

func (e *InvalidFilenameError) Unwrap() error { return e.Err }

// DuplicateError rejects an upload whose identity key already has a latest
// version and no version or replace intent was given.
type DuplicateError struct {
	Existing *model.Document
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("document %s already exists (version %d)", e.Existing.DocSerial, e.Existing.Version)
}

// external classifies a collaborator failure. Deadlines become ErrTimeout,
// everything else ErrStorage; already classified errors pass through.
func external(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrStorage):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
}
