package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrPersistence      = errors.New("report persistence failed")
	ErrAnnouncement     = errors.New("report announcement failed")
	ErrInternal         = errors.New("internal failure")
	ErrReportNotFound   = errors.New("report not found")
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Machine-readable failure kinds exposed to clients.
const (
	KindValidation   = "validation_error"
	KindPersistence  = "persistence_error"
	KindAnnouncement = "announcement_error"
	KindNotFound     = "not_found"
	KindInternal     = "internal_error"
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf maps an error onto the client-facing failure kind.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrAnnouncement):
		return KindAnnouncement
	case errors.Is(err, ErrReportNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// ValidationError names the fields that made an inbound payload unacceptable.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, ", "))
	}
	if len(parts) == 0 {
		return ErrValidation.Error()
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
