package detector

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity ranks how dangerous a matched pattern is.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// ParseSeverity accepts any casing of LOW, MEDIUM or HIGH.
func ParseSeverity(value string) (Severity, error) {
	switch Severity(strings.ToUpper(strings.TrimSpace(value))) {
	case SeverityLow:
		return SeverityLow, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityHigh:
		return SeverityHigh, nil
	default:
		return "", fmt.Errorf("unknown severity %q (want LOW, MEDIUM or HIGH)", value)
	}
}

// Rank orders severities from 1 (LOW) to 3 (HIGH). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// UnmarshalYAML lets rule files spell severities in any case.
func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported YAML type for severity")
	}
	parsed, err := ParseSeverity(value.Value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Finding is a single rule match against one line of source text.
type Finding struct {
	RuleID   string   `json:"rule_id"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Snippet  string   `json:"snippet"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}
