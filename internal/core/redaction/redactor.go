// Package redaction scrubs personally identifiable information out of free text.
//
// A Redactor holds an immutable, ordered rule table. Each rule runs against the
// text left over by the rules before it, so a span claimed by an earlier
// category is already a placeholder when later categories look at it. Overlap
// between categories is resolved by that order only.
package redaction

import (
	"fmt"

	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
)

// Every pass turns matched characters into placeholders no rule matches, so the
// loop converges long before this cap on any real input.
const maxPasses = 8

// Redactor is safe for concurrent use; it never mutates its rules after construction.
type Redactor struct {
	rules []Rule
}

// New builds a redactor over a copy of rules.
func New(rules []Rule) (*Redactor, error) {
	if err := validateRules(rules); err != nil {
		return nil, fmt.Errorf("redaction rules: %w", err)
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	for i := range out {
		if out[i].Mask == nil {
			out[i].Mask = KeepPrefix(4, "***")
		}
	}
	return &Redactor{rules: out}, nil
}

// NewDefault builds a redactor over DefaultRules.
func NewDefault() *Redactor {
	r, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return r
}

// Categories lists rule categories in application order.
func (r *Redactor) Categories() []string {
	out := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule.Category)
	}
	return out
}

func (r *Redactor) Scrub(text string) domain.ScrubResult {
	items := make([]domain.DetectedItem, 0)
	if text == "" {
		return domain.ScrubResult{DetectedItems: items, Confidence: domain.ConfidenceLow}
	}

	working := text
	for range maxPasses {
		var found bool
		working, items, found = r.applyRules(working, items)
		if !found {
			break
		}
	}

	return domain.ScrubResult{
		ScrubbedText:  working,
		DetectedItems: items,
		Confidence:    domain.ConfidenceFor(len(items)),
	}
}

// applyRules runs the table once over text. A replacement can open a new word
// boundary next to leftover characters, so Scrub repeats passes until one finds nothing.
func (r *Redactor) applyRules(text string, items []domain.DetectedItem) (string, []domain.DetectedItem, bool) {
	found := false
	for _, rule := range r.rules {
		matches := rule.Pattern.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		found = true
		for _, match := range matches {
			items = append(items, domain.DetectedItem{
				Category: rule.Category,
				Preview:  rule.Mask(match),
			})
		}
		text = rule.Pattern.ReplaceAllLiteralString(text, rule.Replacement)
	}
	return text, items, found
}

// ContainsPII reports whether Scrub would detect anything. Until the first rule
// matches no replacement has happened, so every rule sees the original text.
func (r *Redactor) ContainsPII(text string) bool {
	for _, rule := range r.rules {
		if rule.Pattern.MatchString(text) {
			return true
		}
	}
	return false
}
