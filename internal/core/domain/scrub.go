package domain

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ConfidenceFor maps a detected-item count onto the heuristic confidence band:
// 0 is low, 1-2 medium, 3 or more high.
func ConfidenceFor(detected int) Confidence {
	switch {
	case detected >= 3:
		return ConfidenceHigh
	case detected >= 1:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// DetectedItem records what was redacted. Preview is masked and never holds the full value.
type DetectedItem struct {
	Category string `json:"category"`
	Preview  string `json:"preview"`
}

type ScrubResult struct {
	ScrubbedText  string         `json:"scrubbed_text"`
	DetectedItems []DetectedItem `json:"items"`
	Confidence    Confidence     `json:"confidence"`
}

func (r ScrubResult) Count() int {
	return len(r.DetectedItems)
}
