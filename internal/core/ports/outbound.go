package ports

import (
	"context"

	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
)

// ReportRepository persists sanitized reports. Insert is not idempotent.
type ReportRepository interface {
	Insert(ctx context.Context, report domain.SanitizedReport) (*domain.PersistedReport, error)
	GetByID(ctx context.Context, id string) (*domain.Report, error)
}

// EventBus hands JSON-serializable payloads to the message bus.
// A nil error acknowledges local hand-off only.
type EventBus interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// HealthChecker reports whether a long-lived collaborator handle is usable.
type HealthChecker interface {
	Check(ctx context.Context) error
}
