package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
	"github.com/kirillkom/jagawarga-anonymizer/internal/core/ports"
	"github.com/kirillkom/jagawarga-anonymizer/internal/resilience"
)

const (
	opPersistReport  = "storage.insert_report"
	opAnnounceReport = "eventbus.publish_report_created"
)

type SubmitReportUseCase struct {
	repo     ports.ReportRepository
	bus      ports.EventBus
	scrubber ports.TextScrubber
	executor *resilience.Executor
	subject  string
	now      func() time.Time
}

func NewSubmitReportUseCase(
	repo ports.ReportRepository,
	bus ports.EventBus,
	scrubber ports.TextScrubber,
	executor *resilience.Executor,
	subject string,
) *SubmitReportUseCase {
	if strings.TrimSpace(subject) == "" {
		subject = domain.SubjectReportCreated
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &SubmitReportUseCase{
		repo:     repo,
		bus:      bus,
		scrubber: scrubber,
		executor: executor,
		subject:  subject,
		now:      time.Now,
	}
}

// Submit validates, scrubs, persists and announces one report.
//
// On an announcement failure the returned result is non-nil: the report is
// already stored and is not rolled back.
func (uc *SubmitReportUseCase) Submit(ctx context.Context, payload domain.ReportSubmission) (result *domain.SubmissionResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("report_submit_panic", "panic", fmt.Sprint(rec))
			result = nil
			err = domain.WrapError(domain.ErrInternal, "submit report", fmt.Errorf("panic: %v", rec))
		}
	}()

	submission, err := normalizeSubmission(payload)
	if err != nil {
		return nil, err
	}

	content := uc.scrubber.Scrub(submission.Content)
	location := uc.scrubber.Scrub(submission.Location)
	detected := content.Count() + location.Count()

	record := domain.SanitizedReport{
		Category:            submission.Category,
		Content:             content.ScrubbedText,
		Location:            location.ScrubbedText,
		AuthorityDepartment: submission.AuthorityDepartment,
		PrivacyLevel:        submission.PrivacyLevel,
		Status:              domain.StatusSubmitted,
	}

	// Collaborator calls run to completion even if the client goes away:
	// the insert may already have reached storage.
	callCtx := context.WithoutCancel(ctx)

	persisted, err := resilience.Do(callCtx, uc.executor, opPersistReport, func(ctx context.Context) (*domain.PersistedReport, error) {
		return uc.repo.Insert(ctx, record)
	})
	if err != nil {
		slog.Error("report_persist_failed",
			"category", record.Category,
			"department", record.AuthorityDepartment,
			"retries_exhausted", resilience.IsExhausted(err),
			"max_attempts", uc.executor.MaxAttempts(),
			"circuit_open", resilience.IsCircuitOpen(err),
			"error", err,
		)
		return nil, domain.WrapError(domain.ErrPersistence, "persist report", err)
	}
	if persisted == nil || persisted.ID == "" {
		return nil, domain.WrapError(domain.ErrInternal, "persist report", errors.New("storage returned no report identity"))
	}

	result = &domain.SubmissionResult{
		ReportID:    persisted.ID,
		PIIScrubbed: detected,
		Confidence:  domain.ConfidenceFor(detected),
		CreatedAt:   persisted.CreatedAt,
	}

	category := persisted.Category
	if category == "" {
		category = record.Category
	}
	event := domain.ReportCreated{
		Subject:      uc.subject,
		ReportID:     persisted.ID,
		Category:     category,
		Department:   record.AuthorityDepartment,
		PrivacyLevel: record.PrivacyLevel,
		PIIScrubbed:  detected > 0,
		Timestamp:    uc.now().UTC(),
	}

	err = uc.executor.Execute(callCtx, opAnnounceReport, func(ctx context.Context) error {
		return uc.bus.Publish(ctx, uc.subject, event)
	}, nil)
	if err != nil {
		slog.Error("report_announce_failed",
			"report_id", persisted.ID,
			"subject", uc.subject,
			"retries_exhausted", resilience.IsExhausted(err),
			"max_attempts", uc.executor.MaxAttempts(),
			"circuit_open", resilience.IsCircuitOpen(err),
			"error", err,
		)
		return result, domain.WrapError(domain.ErrAnnouncement, "announce report "+persisted.ID, err)
	}

	slog.Info("report_submitted",
		"report_id", persisted.ID,
		"category", category,
		"pii_detected", detected,
		"confidence", string(result.Confidence),
	)
	return result, nil
}

func normalizeSubmission(payload domain.ReportSubmission) (domain.ReportSubmission, error) {
	out := domain.ReportSubmission{
		Category:            strings.TrimSpace(payload.Category),
		Content:             strings.TrimSpace(payload.Content),
		Location:            strings.TrimSpace(payload.Location),
		AuthorityDepartment: strings.TrimSpace(payload.AuthorityDepartment),
		PrivacyLevel:        domain.PrivacyLevel(strings.ToLower(strings.TrimSpace(string(payload.PrivacyLevel)))),
	}

	verr := &domain.ValidationError{}
	if out.Category == "" {
		verr.Missing = append(verr.Missing, "category")
	}
	if out.Content == "" {
		verr.Missing = append(verr.Missing, "content")
	}
	if out.AuthorityDepartment == "" {
		verr.Missing = append(verr.Missing, "authority_department")
	}
	if out.PrivacyLevel == "" {
		out.PrivacyLevel = domain.PrivacyPublic
	} else if !out.PrivacyLevel.Valid() {
		verr.Invalid = append(verr.Invalid, "privacy_level")
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return domain.ReportSubmission{}, verr
	}
	return out, nil
}
