package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
)

// AuditReportEventsUseCase records every announced report for operators. It only
// sees the event, which already carries no raw report text.
type AuditReportEventsUseCase struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditReportEventsUseCase(logger *slog.Logger) *AuditReportEventsUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditReportEventsUseCase{
		logger: logger,
		now:    time.Now,
	}
}

// Handle writes one audit record and returns the announce-to-consume lag.
func (uc *AuditReportEventsUseCase) Handle(ctx context.Context, event domain.ReportCreated) (time.Duration, error) {
	if strings.TrimSpace(event.ReportID) == "" {
		return 0, domain.WrapError(domain.ErrValidation, "audit report event", fmt.Errorf("report_id is required"))
	}

	var lag time.Duration
	if !event.Timestamp.IsZero() {
		lag = uc.now().Sub(event.Timestamp)
	}

	uc.logger.InfoContext(ctx, "report_audit",
		"report_id", event.ReportID,
		"category", event.Category,
		"department", event.Department,
		"privacy_level", string(event.PrivacyLevel),
		"pii_scrubbed", event.PIIScrubbed,
		"lag_ms", lag.Milliseconds(),
	)
	return lag, nil
}
