package redaction

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	CategoryNIK     = "nik"
	CategoryPhone   = "phone"
	CategoryEmail   = "email"
	CategoryAddress = "address"
)

// Rule is one row of the redaction table. Rules are applied in slice order.
type Rule struct {
	Category    string
	Pattern     *regexp.Regexp
	Replacement string
	Mask        func(match string) string
}

// DefaultRules returns the built-in table: NIK, phone, email, address.
// NIK goes first so 16-digit identity numbers are never classified as phones.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category:    CategoryNIK,
			Pattern:     regexp.MustCompile(`\b\d{16}\b`),
			Replacement: "[NIK-REDACTED]",
			Mask:        KeepPrefix(4, "***"),
		},
		{
			Category:    CategoryPhone,
			Pattern:     regexp.MustCompile(`(\+?62|0)\s?-?\d{2,4}[-\s]?\d{3,4}[-\s]?\d{3,4}`),
			Replacement: "[PHONE-REDACTED]",
			Mask:        KeepPrefix(4, "***"),
		},
		{
			Category:    CategoryEmail,
			Pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			Replacement: "[EMAIL-REDACTED]",
			Mask:        MaskEmail,
		},
		{
			Category:    CategoryAddress,
			Pattern:     regexp.MustCompile(`(?i)\b(Jl\.|Jalan|Gg\.|Gang|Rt\.?|Rw\.?)\s+[A-Za-z0-9\s,.-]+`),
			Replacement: "[ADDRESS-REDACTED]",
			Mask:        KeepPrefix(10, "..."),
		},
	}
}

// KeepPrefix keeps at most the first n runes of a match and appends suffix. It
// never keeps more than half the match, so short matches stay partly hidden.
func KeepPrefix(n int, suffix string) func(string) string {
	return func(match string) string {
		runes := []rune(match)
		keep := max(0, min(n, len(runes)/2))
		return string(runes[:keep]) + suffix
	}
}

// MaskEmail keeps two characters of the local part and the full domain.
func MaskEmail(match string) string {
	user, host, ok := strings.Cut(match, "@")
	if !ok {
		return KeepPrefix(2, "***")(match)
	}
	return KeepPrefix(2, "***")(user) + "@" + host
}

func validateRules(rules []Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("redaction table is empty")
	}
	seen := make(map[string]struct{}, len(rules))
	for i, rule := range rules {
		if strings.TrimSpace(rule.Category) == "" {
			return fmt.Errorf("rule[%d]: category is required", i)
		}
		if _, dup := seen[rule.Category]; dup {
			return fmt.Errorf("rule[%d]: duplicate category %q", i, rule.Category)
		}
		seen[rule.Category] = struct{}{}
		if rule.Pattern == nil {
			return fmt.Errorf("rule %q: pattern is required", rule.Category)
		}
		if rule.Pattern.MatchString("") {
			return fmt.Errorf("rule %q: pattern matches empty text", rule.Category)
		}
	}
	// Placeholders must survive a second pass untouched.
	for _, rule := range rules {
		for _, other := range rules {
			if rule.Pattern.MatchString(other.Replacement) {
				return fmt.Errorf("rule %q: pattern matches placeholder %q", rule.Category, other.Replacement)
			}
		}
	}
	return nil
}
