package redaction

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	Category    string `yaml:"category"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Keep        *int   `yaml:"keep"`
	Suffix      string `yaml:"suffix"`
	Email       bool   `yaml:"email"`
}

// LoadRulesFile reads an ordered rule table from YAML. File order is application order.
func LoadRulesFile(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(raw)
}

func ParseRules(raw []byte) ([]Rule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode rules yaml: %w", err)
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, entry := range file.Rules {
		category := strings.ToLower(strings.TrimSpace(entry.Category))
		pattern, err := regexp.Compile(entry.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule[%d] %q: compile pattern: %w", i, category, err)
		}
		replacement := entry.Replacement
		if replacement == "" {
			replacement = "[" + strings.ToUpper(category) + "-REDACTED]"
		}

		keep := 4
		if entry.Keep != nil && *entry.Keep >= 0 {
			keep = *entry.Keep
		}
		suffix := entry.Suffix
		if suffix == "" {
			suffix = "***"
		}
		mask := KeepPrefix(keep, suffix)
		if entry.Email {
			mask = MaskEmail
		}

		rules = append(rules, Rule{
			Category:    category,
			Pattern:     pattern,
			Replacement: replacement,
			Mask:        mask,
		})
	}
	if err := validateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}
