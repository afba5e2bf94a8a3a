package domain

import "time"

type ReportStatus string

const (
	StatusSubmitted  ReportStatus = "submitted"
	StatusInProgress ReportStatus = "in_progress"
	StatusResolved   ReportStatus = "resolved"
	StatusEscalated  ReportStatus = "escalated"
)

// Valid accepts every lifecycle status. Only submitted is written here; the
// others are set by the authority workflow and show up on read-back.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusInProgress, StatusResolved, StatusEscalated:
		return true
	default:
		return false
	}
}

type PrivacyLevel string

const (
	PrivacyPublic    PrivacyLevel = "public"
	PrivacyPrivate   PrivacyLevel = "private"
	PrivacyAnonymous PrivacyLevel = "anonymous"
)

func (p PrivacyLevel) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyPrivate, PrivacyAnonymous:
		return true
	default:
		return false
	}
}

// ReportSubmission is the inbound citizen payload. Content and Location may carry raw PII.
type ReportSubmission struct {
	Category            string       `json:"category"`
	Content             string       `json:"content"`
	Location            string       `json:"location,omitempty"`
	AuthorityDepartment string       `json:"authority_department"`
	PrivacyLevel        PrivacyLevel `json:"privacy_level"`
}

// SanitizedReport is the only shape of a report allowed to reach storage.
type SanitizedReport struct {
	Category            string
	Content             string
	Location            string
	AuthorityDepartment string
	PrivacyLevel        PrivacyLevel
	Status              ReportStatus
}

// PersistedReport is what the storage collaborator hands back after insert.
type PersistedReport struct {
	ID        string       `json:"id"`
	Category  string       `json:"category"`
	Status    ReportStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// Report is the sanitized read model.
type Report struct {
	ID                  string       `json:"id"`
	Category            string       `json:"category"`
	Content             string       `json:"content"`
	Location            string       `json:"location,omitempty"`
	PrivacyLevel        PrivacyLevel `json:"privacy_level"`
	Status              ReportStatus `json:"status"`
	AuthorityDepartment string       `json:"authority_department"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

type SubmissionResult struct {
	ReportID    string     `json:"report_id"`
	PIIScrubbed int        `json:"pii_scrubbed"`
	Confidence  Confidence `json:"confidence"`
	CreatedAt   time.Time  `json:"created_at"`
}
