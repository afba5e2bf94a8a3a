package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/jagawarga-anonymizer/internal/config"
	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
	"github.com/kirillkom/jagawarga-anonymizer/internal/core/ports"
	"github.com/kirillkom/jagawarga-anonymizer/internal/observability/metrics"
)

const (
	serviceName     = "anonymizer"
	maxRequestBytes = 1 << 20
)

type Router struct {
	cfg       config.Config
	submitter ports.ReportSubmitter
	scrubber  ports.TextScrubber
	reports   ports.ReportReader
	health    ports.HealthReporter
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	submitter ports.ReportSubmitter,
	scrubber ports.TextScrubber,
	reports ports.ReportReader,
	health ports.HealthReporter,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	if httpMetrics == nil {
		httpMetrics = metrics.NewHTTPServerMetrics(serviceName)
	}
	return &Router{
		cfg:       cfg,
		submitter: submitter,
		scrubber:  scrubber,
		reports:   reports,
		health:    health,
		metrics:   httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /health", rt.healthDetail)
	mux.HandleFunc("POST /scrub", rt.submitReport)
	mux.HandleFunc("POST /scrub/text", rt.scrubText)
	mux.HandleFunc("GET /v1/reports/{id}", rt.getReportByID)
	mux.Handle("GET /metrics", rt.metrics.Handler())

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = rt.metrics.Middleware(serviceName, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) healthDetail(w http.ResponseWriter, r *http.Request) {
	report := rt.health.Check(r.Context())
	status := http.StatusOK
	if report.Status == domain.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

type submitResponse struct {
	Success     bool              `json:"success"`
	ReportID    string            `json:"reportId"`
	PIIScrubbed int               `json:"piiScrubbed"`
	Confidence  domain.Confidence `json:"confidence"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func (rt *Router) submitReport(w http.ResponseWriter, r *http.Request) {
	var payload domain.ReportSubmission
	if err := decodeJSONBody(w, r, &payload); err != nil {
		rt.metrics.RecordSubmission(serviceName, domain.KindValidation, 0)
		writeDomainError(w, err, "")
		return
	}

	result, err := rt.submitter.Submit(r.Context(), payload)
	if err != nil {
		reportID := ""
		if result != nil {
			reportID = result.ReportID
		}
		kind := domain.KindOf(err)
		rt.metrics.RecordSubmission(serviceName, kind, 0)
		if kind != domain.KindValidation {
			slog.Error("submission_failed",
				"request_id", requestIDFromContext(r.Context()),
				"kind", kind,
				"report_id", reportID,
				"error", err,
			)
		}
		writeDomainError(w, err, reportID)
		return
	}

	rt.metrics.RecordSubmission(serviceName, "success", result.PIIScrubbed)
	writeJSON(w, http.StatusCreated, submitResponse{
		Success:     true,
		ReportID:    result.ReportID,
		PIIScrubbed: result.PIIScrubbed,
		Confidence:  result.Confidence,
		CreatedAt:   result.CreatedAt,
	})
}

type scrubTextResponse struct {
	OriginalLength int                   `json:"original_length"`
	ScrubbedText   string                `json:"scrubbed_text"`
	ScrubbedLength int                   `json:"scrubbed_length"`
	PIIDetected    int                   `json:"pii_detected"`
	Confidence     domain.Confidence     `json:"confidence"`
	Items          []domain.DetectedItem `json:"items"`
}

func (rt *Router) scrubText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeDomainError(w, err, "")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeDomainError(w, &domain.ValidationError{Missing: []string{"text"}}, "")
		return
	}

	result := rt.scrubber.Scrub(req.Text)
	rt.metrics.RecordScrub(serviceName, "/scrub/text", string(result.Confidence), result.Count())

	writeJSON(w, http.StatusOK, scrubTextResponse{
		OriginalLength: utf8.RuneCountInString(req.Text),
		ScrubbedText:   result.ScrubbedText,
		ScrubbedLength: utf8.RuneCountInString(result.ScrubbedText),
		PIIDetected:    result.Count(),
		Confidence:     result.Confidence,
		Items:          result.DetectedItems,
	})
}

func (rt *Router) getReportByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, kindBadRequest, "report id is required")
		return
	}

	report, err := rt.reports.GetByID(r.Context(), id)
	if err != nil {
		if !domain.IsKind(err, domain.ErrReportNotFound) {
			slog.Error("report_lookup_failed",
				"request_id", requestIDFromContext(r.Context()),
				"report_id", id,
				"error", err,
			)
		}
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return domain.WrapError(domain.ErrValidation, "decode request", errors.New("request body too large"))
		}
		return domain.WrapError(domain.ErrValidation, "decode request", errors.New("invalid json"))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
