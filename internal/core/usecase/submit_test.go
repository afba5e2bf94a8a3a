package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
	"github.com/kirillkom/jagawarga-anonymizer/internal/core/ports"
	"github.com/kirillkom/jagawarga-anonymizer/internal/core/redaction"
	"github.com/kirillkom/jagawarga-anonymizer/internal/resilience"
)

type reportRepoFake struct {
	mu        sync.Mutex
	calls     int
	failFirst int
	err       error
	reports   map[string]domain.SanitizedReport
}

var _ ports.ReportRepository = (*reportRepoFake)(nil)

func (f *reportRepoFake) Insert(_ context.Context, report domain.SanitizedReport) (*domain.PersistedReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.failFirst {
		return nil, errors.New("connection reset")
	}
	if f.reports == nil {
		f.reports = make(map[string]domain.SanitizedReport)
	}
	id := fmt.Sprintf("report-%d", len(f.reports)+1)
	f.reports[id] = report
	return &domain.PersistedReport{
		ID:        id,
		Category:  report.Category,
		Status:    report.Status,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func (f *reportRepoFake) GetByID(_ context.Context, id string) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.reports[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrReportNotFound, "get report", errors.New(id))
	}
	return &domain.Report{
		ID:                  id,
		Category:            stored.Category,
		Content:             stored.Content,
		Location:            stored.Location,
		PrivacyLevel:        stored.PrivacyLevel,
		Status:              stored.Status,
		AuthorityDepartment: stored.AuthorityDepartment,
	}, nil
}

type published struct {
	subject string
	payload any
}

type eventBusFake struct {
	mu       sync.Mutex
	calls    int
	err      error
	messages []published
}

func (f *eventBusFake) Publish(_ context.Context, subject string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{subject: subject, payload: payload})
	return nil
}

type panicScrubber struct{}

func (panicScrubber) Scrub(string) domain.ScrubResult { panic("regex table corrupted") }
func (panicScrubber) ContainsPII(string) bool         { return false }

func newTestSubmitter(repo ports.ReportRepository, bus ports.EventBus) *SubmitReportUseCase {
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: 3,
		RetryBaseDelay:   time.Millisecond,
	})
	uc := NewSubmitReportUseCase(repo, bus, redaction.NewDefault(), exec, "")
	uc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC) }
	return uc
}

func validSubmission() domain.ReportSubmission {
	return domain.ReportSubmission{
		Category:            "keamanan",
		Content:             "Hubungi saya di 081234567890 atau ahmad@email.com",
		AuthorityDepartment: "polisi",
		PrivacyLevel:        domain.PrivacyPrivate,
	}
}

func TestSubmitPersistsScrubbedReportAndAnnounces(t *testing.T) {
	repo := &reportRepoFake{}
	bus := &eventBusFake{}
	uc := newTestSubmitter(repo, bus)

	res, err := uc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	require.Equal(t, "report-1", res.ReportID)
	require.Equal(t, 2, res.PIIScrubbed)
	require.Equal(t, domain.ConfidenceMedium, res.Confidence)

	require.Equal(t, 1, repo.calls)
	stored := repo.reports["report-1"]
	require.Equal(t, "Hubungi saya di [PHONE-REDACTED] atau [EMAIL-REDACTED]", stored.Content)
	require.Equal(t, domain.StatusSubmitted, stored.Status)
	require.Equal(t, "polisi", stored.AuthorityDepartment)

	require.Equal(t, 1, bus.calls)
	require.Len(t, bus.messages, 1)
	require.Equal(t, domain.SubjectReportCreated, bus.messages[0].subject)
	event, ok := bus.messages[0].payload.(domain.ReportCreated)
	require.True(t, ok)
	require.Equal(t, domain.ReportCreated{
		Subject:      domain.SubjectReportCreated,
		ReportID:     "report-1",
		Category:     "keamanan",
		Department:   "polisi",
		PrivacyLevel: domain.PrivacyPrivate,
		PIIScrubbed:  true,
		Timestamp:    time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC),
	}, event)
}

func TestSubmitScrubsLocationIndependently(t *testing.T) {
	repo := &reportRepoFake{}
	bus := &eventBusFake{}
	uc := newTestSubmitter(repo, bus)

	payload := validSubmission()
	payload.Location = "Jl. Sudirman No. 5"
	res, err := uc.Submit(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, 3, res.PIIScrubbed)
	require.Equal(t, domain.ConfidenceHigh, res.Confidence)
	require.Equal(t, "[ADDRESS-REDACTED]", repo.reports[res.ReportID].Location)
}

func TestSubmitNeverForwardsRawPII(t *testing.T) {
	repo := &reportRepoFake{}
	bus := &eventBusFake{}
	uc := newTestSubmitter(repo, bus)

	payload := validSubmission()
	payload.Content = "NIK: 3201234567890123, Phone: +6281234567890, Email: john@test.com, Jl. Sudirman No. 123"
	res, err := uc.Submit(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, 4, res.PIIScrubbed)

	stored, err := json.Marshal(repo.reports[res.ReportID])
	require.NoError(t, err)
	announced, err := json.Marshal(bus.messages[0].payload)
	require.NoError(t, err)
	for _, raw := range []string{"3201234567890123", "6281234567890", "john@test.com", "Sudirman"} {
		require.NotContains(t, string(stored), raw)
		require.NotContains(t, string(announced), raw)
	}
}

func TestSubmitMissingCategoryHasNoSideEffects(t *testing.T) {
	repo := &reportRepoFake{}
	bus := &eventBusFake{}
	uc := newTestSubmitter(repo, bus)

	payload := validSubmission()
	payload.Category = "  "
	res, err := uc.Submit(context.Background(), payload)
	require.Nil(t, res)
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"category"}, verr.Missing)

	require.Zero(t, repo.calls)
	require.Zero(t, bus.calls)
}

func TestSubmitNamesEveryMissingField(t *testing.T) {
	uc := newTestSubmitter(&reportRepoFake{}, &eventBusFake{})

	_, err := uc.Submit(context.Background(), domain.ReportSubmission{PrivacyLevel: "secret"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"category", "content", "authority_department"}, verr.Missing)
	require.Equal(t, []string{"privacy_level"}, verr.Invalid)
	require.Contains(t, err.Error(), "missing required fields: category, content, authority_department")
}

func TestSubmitDefaultsPrivacyLevel(t *testing.T) {
	repo := &reportRepoFake{}
	uc := newTestSubmitter(repo, &eventBusFake{})

	payload := validSubmission()
	payload.PrivacyLevel = ""
	res, err := uc.Submit(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, domain.PrivacyPublic, repo.reports[res.ReportID].PrivacyLevel)
}

func TestSubmitStorageExhaustionSkipsAnnouncement(t *testing.T) {
	repo := &reportRepoFake{err: errors.New("storage unreachable")}
	bus := &eventBusFake{}
	uc := newTestSubmitter(repo, bus)

	res, err := uc.Submit(context.Background(), validSubmission())
	require.Nil(t, res)
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.ErrorIs(t, err, domain.ErrRetriesExhausted)
	require.Equal(t, domain.KindPersistence, domain.KindOf(err))

	require.Equal(t, 3, repo.calls)
	require.Zero(t, bus.calls)
}

func TestSubmitRecoversFromTransientStorageFailure(t *testing.T) {
	repo := &reportRepoFake{failFirst: 2}
	bus := &eventBusFake{}
	uc := newTestSubmitter(repo, bus)

	res, err := uc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	require.Equal(t, 3, repo.calls)
	require.Len(t, repo.reports, 1)
	require.Equal(t, "report-1", res.ReportID)
	require.Equal(t, 1, bus.calls)
}

func TestSubmitAnnouncementExhaustionKeepsReport(t *testing.T) {
	repo := &reportRepoFake{}
	bus := &eventBusFake{err: errors.New("nats: connection closed")}
	uc := newTestSubmitter(repo, bus)

	res, err := uc.Submit(context.Background(), validSubmission())
	require.ErrorIs(t, err, domain.ErrAnnouncement)
	require.ErrorIs(t, err, domain.ErrRetriesExhausted)
	require.Equal(t, domain.KindAnnouncement, domain.KindOf(err))
	require.NotNil(t, res)
	require.Equal(t, 3, bus.calls)
	require.Equal(t, 1, repo.calls)

	report, getErr := repo.GetByID(context.Background(), res.ReportID)
	require.NoError(t, getErr)
	require.Equal(t, domain.StatusSubmitted, report.Status)
	require.Equal(t, "Hubungi saya di [PHONE-REDACTED] atau [EMAIL-REDACTED]", report.Content)
}

func TestSubmitCompletesWhenCallerAbandonsRequest(t *testing.T) {
	repo := &reportRepoFake{failFirst: 1}
	bus := &eventBusFake{}
	uc := newTestSubmitter(repo, bus)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := uc.Submit(ctx, validSubmission())
	require.NoError(t, err)
	require.NotEmpty(t, res.ReportID)
	require.Equal(t, 2, repo.calls)
	require.Equal(t, 1, bus.calls)
}

func TestSubmitConvertsPanicToInternalError(t *testing.T) {
	repo := &reportRepoFake{}
	bus := &eventBusFake{}
	exec := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1})
	uc := NewSubmitReportUseCase(repo, bus, panicScrubber{}, exec, "reports.created.test")

	res, err := uc.Submit(context.Background(), validSubmission())
	require.Nil(t, res)
	require.ErrorIs(t, err, domain.ErrInternal)
	require.Equal(t, domain.KindInternal, domain.KindOf(err))
	require.Zero(t, repo.calls)
	require.Zero(t, bus.calls)
}

func TestSubmitConcurrentSubmissionsAreIndependent(t *testing.T) {
	repo := &reportRepoFake{}
	bus := &eventBusFake{}
	uc := newTestSubmitter(repo, bus)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := uc.Submit(context.Background(), validSubmission()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, repo.reports, 16)
	require.Equal(t, 16, bus.calls)
}

func TestSubmitFailureLogCarriesRetryBudget(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	uc := newTestSubmitter(&reportRepoFake{err: errors.New("storage unreachable")}, &eventBusFake{})
	_, err := uc.Submit(context.Background(), validSubmission())
	require.ErrorIs(t, err, domain.ErrPersistence)

	var record map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["msg"] == "report_persist_failed" {
			record = entry
		}
	}
	require.NotNil(t, record, "missing report_persist_failed record in %s", buf.String())
	require.Equal(t, float64(3), record["max_attempts"])
	require.Equal(t, true, record["retries_exhausted"])
	require.Equal(t, false, record["circuit_open"])
}
