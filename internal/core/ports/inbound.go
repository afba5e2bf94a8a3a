package ports

import (
	"context"

	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
)

// ReportSubmitter is the inbound contract for the scrub-persist-announce pipeline.
type ReportSubmitter interface {
	Submit(ctx context.Context, payload domain.ReportSubmission) (*domain.SubmissionResult, error)
}

// TextScrubber redacts PII from free text without side effects.
type TextScrubber interface {
	Scrub(text string) domain.ScrubResult
	ContainsPII(text string) bool
}

// ReportReader is the inbound read model for sanitized reports.
type ReportReader interface {
	GetByID(ctx context.Context, id string) (*domain.Report, error)
}

// HealthReporter aggregates collaborator health.
type HealthReporter interface {
	Check(ctx context.Context) domain.HealthReport
}
