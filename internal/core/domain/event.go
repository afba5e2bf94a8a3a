package domain

import "time"

const SubjectReportCreated = "report.created"

// ReportCreated is announced once per successful persist and never mutated afterwards.
type ReportCreated struct {
	Subject      string       `json:"subject"`
	ReportID     string       `json:"report_id"`
	Category     string       `json:"category"`
	Department   string       `json:"department"`
	PrivacyLevel PrivacyLevel `json:"privacy_level"`
	PIIScrubbed  bool         `json:"pii_scrubbed"`
	Timestamp    time.Time    `json:"timestamp"`
}
