package detector

import (
	"sort"
	"strings"
)

// RuleSet is a compiled, read-only rule list. It is safe for concurrent use.
type RuleSet struct {
	rules []*compiledRule
}

// Compile validates rules and prepares them for scanning. Registration order
// is preserved.
func Compile(rules []Rule) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, &ConfigError{Reason: "rule set is empty"}
	}

	set := &RuleSet{rules: make([]*compiledRule, 0, len(rules))}
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if _, dup := seen[r.ID]; dup {
			return nil, configErrorf(r.ID, "duplicate rule id")
		}
		cr, err := compileRule(r)
		if err != nil {
			return nil, err
		}
		seen[r.ID] = struct{}{}
		set.rules = append(set.rules, cr)
	}
	return set, nil
}

// Rules returns the rules in registration order.
func (s *RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	for i, cr := range s.rules {
		out[i] = cr.rule
	}
	return out
}

// Len returns the number of rules in the set.
func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Scan is the one-shot form of Compile followed by RuleSet.Scan.
func Scan(source string, rules []Rule) ([]Finding, error) {
	set, err := Compile(rules)
	if err != nil {
		return nil, err
	}
	return set.Scan(source), nil
}

// Scan evaluates every rule against every line of source.
func (s *RuleSet) Scan(source string) []Finding {
	return scanLines(splitLines(source), s.rules)
}

// SkippedFor returns the ids of rules that ScanFile would not run for path.
func (s *RuleSet) SkippedFor(path string) []string {
	var ids []string
	for _, cr := range s.rules {
		if !cr.rule.AppliesTo(path) {
			ids = append(ids, cr.rule.ID)
		}
	}
	return ids
}

// ScanFile is Scan restricted to rules that apply to path.
func (s *RuleSet) ScanFile(path, source string) []Finding {
	active := make([]*compiledRule, 0, len(s.rules))
	for _, cr := range s.rules {
		if cr.rule.AppliesTo(path) {
			active = append(active, cr)
		}
	}
	if len(active) == 0 {
		return []Finding{}
	}
	return scanLines(splitLines(source), active)
}

func scanLines(lines []string, rules []*compiledRule) []Finding {
	findings := make([]Finding, 0)
	for idx, line := range lines {
		for _, cr := range rules {
			column, token, ok := cr.match(lines, idx)
			if !ok {
				continue
			}
			snippet := strings.TrimSpace(line)
			findings = append(findings, Finding{
				RuleID:   cr.rule.ID,
				Line:     idx + 1,
				Column:   column,
				Snippet:  snippet,
				Severity: cr.rule.Severity,
				Message: cr.render(messageData{
					RuleID:   cr.rule.ID,
					Line:     idx + 1,
					Column:   column,
					Snippet:  snippet,
					Token:    token,
					Severity: cr.rule.Severity,
				}),
			})
		}
	}

	// Findings are produced in rule order within a line; the stable sort keeps
	// that order for matches at the same column.
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		return findings[i].Column < findings[j].Column
	})
	return findings
}

func splitLines(source string) []string {
	if source == "" {
		return nil
	}
	lines := strings.Split(source, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
