package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
)

// Kinds produced by the HTTP layer itself rather than the core.
const (
	kindRateLimited = "rate_limited"
	kindOverloaded  = "overloaded"
	kindBadRequest  = "bad_request"
)

type errorBody struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	ReportID string `json:"report_id,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrReportNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps collaborator details out of 5xx bodies; they are logged instead.
func publicMessage(err error) string {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case domain.IsKind(err, domain.ErrValidation):
		return err.Error()
	case domain.IsKind(err, domain.ErrReportNotFound):
		return "report not found"
	case domain.IsKind(err, domain.ErrPersistence):
		return "report could not be stored, no report was created"
	case domain.IsKind(err, domain.ErrAnnouncement):
		return "report was stored but could not be announced to downstream services"
	default:
		return "internal server error"
	}
}

func writeDomainError(w http.ResponseWriter, err error, reportID string) {
	body := errorBody{
		Kind:    domain.KindOf(err),
		Message: publicMessage(err),
	}
	if domain.IsKind(err, domain.ErrAnnouncement) {
		body.ReportID = reportID
	}
	writeJSON(w, mapErrorToHTTPStatus(err), errorResponse{Error: body})
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: message}})
}
