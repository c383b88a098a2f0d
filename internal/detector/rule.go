package detector

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/template"
	"unicode/utf8"

	regexp "github.com/wasilibs/go-re2"
)

// DefaultLookback is the guard window used when a rule sets guards but no lookback.
const DefaultLookback = 5

// tokenSentinel is rendered in place of the matched token while validating templates.
const tokenSentinel = "\x00token\x00"

// PredicateFunc reports whether a line matches. Column is 1-indexed in runes.
type PredicateFunc func(line string) (column int, token string, ok bool)

// Rule describes one insecure pattern. A rule matches a line when any of its
// Patterns match and none of its Guards match on that line or on the Lookback
// lines before it. Predicate, when set, replaces Patterns.
//
// Message is a text/template rendered with RuleID, Line, Column, Snippet,
// Token and Severity. It must reference {{.Token}}.
type Rule struct {
	ID          string   `yaml:"id" json:"id"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Severity    Severity `yaml:"severity" json:"severity"`
	Message     string   `yaml:"message" json:"message"`
	Patterns    []string `yaml:"patterns" json:"patterns,omitempty"`
	Guards      []string `yaml:"guards" json:"guards,omitempty"`
	Lookback    int      `yaml:"lookback" json:"lookback,omitempty"`
	Extensions  []string `yaml:"extensions" json:"extensions,omitempty"`

	Predicate PredicateFunc `yaml:"-" json:"-"`
}

// AppliesTo reports whether the rule should run against the given file path.
// Rules without extensions apply everywhere.
func (r Rule) AppliesTo(path string) bool {
	if len(r.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range r.Extensions {
		if strings.ToLower(candidate) == ext {
			return true
		}
	}
	return false
}

type messageData struct {
	RuleID   string
	Line     int
	Column   int
	Snippet  string
	Token    string
	Severity Severity
}

type compiledRule struct {
	rule     Rule
	patterns []*regexp.Regexp
	guards   []*regexp.Regexp
	lookback int
	message  *template.Template
}

func compileRule(r Rule) (*compiledRule, error) {
	if strings.TrimSpace(r.ID) == "" {
		return nil, configErrorf("", "rule id cannot be empty")
	}
	if !r.Severity.Valid() {
		return nil, configErrorf(r.ID, "invalid severity %q", r.Severity)
	}
	if r.Predicate == nil && len(r.Patterns) == 0 {
		return nil, configErrorf(r.ID, "rule needs at least one pattern or a predicate")
	}
	if r.Lookback < 0 {
		return nil, configErrorf(r.ID, "lookback cannot be negative (got %d)", r.Lookback)
	}

	cr := &compiledRule{rule: r, lookback: r.Lookback}
	if cr.lookback == 0 && len(r.Guards) > 0 {
		cr.lookback = DefaultLookback
	}

	for _, expr := range r.Patterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, configErrorf(r.ID, "pattern %q: %v", expr, err)
		}
		cr.patterns = append(cr.patterns, re)
	}
	for _, expr := range r.Guards {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, configErrorf(r.ID, "guard %q: %v", expr, err)
		}
		cr.guards = append(cr.guards, re)
	}

	tmpl, err := template.New(r.ID).Option("missingkey=error").Parse(r.Message)
	if err != nil {
		return nil, configErrorf(r.ID, "message template: %v", err)
	}
	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, messageData{RuleID: r.ID, Line: 1, Column: 1, Token: tokenSentinel, Severity: r.Severity}); err != nil {
		return nil, configErrorf(r.ID, "message template: %v", err)
	}
	if !strings.Contains(rendered.String(), tokenSentinel) {
		return nil, configErrorf(r.ID, "message template must reference {{.Token}}")
	}
	// Matches can be a single rune on an otherwise empty line; index and
	// slice calls that only hold for longer input fail here instead of at scan time.
	if err := tmpl.Execute(io.Discard, messageData{RuleID: r.ID, Line: 1, Column: 1, Token: "x", Snippet: "x", Severity: r.Severity}); err != nil {
		return nil, configErrorf(r.ID, "message template: %v", err)
	}
	cr.message = tmpl

	return cr, nil
}

// match evaluates the rule against lines[idx].
func (c *compiledRule) match(lines []string, idx int) (column int, token string, ok bool) {
	line := lines[idx]
	if c.rule.Predicate != nil {
		column, token, ok = c.rule.Predicate(line)
		if ok && column < 1 {
			column = 1
		}
	} else {
		column, token, ok = c.firstPattern(line)
	}
	if !ok {
		return 0, "", false
	}
	if c.guarded(lines, idx) {
		return 0, "", false
	}
	return column, token, true
}

// firstPattern returns the left-most match across all patterns. When a pattern
// has a capture group, the first group is the token.
func (c *compiledRule) firstPattern(line string) (int, string, bool) {
	start, end := -1, -1
	for _, re := range c.patterns {
		loc := re.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		s, e := loc[0], loc[1]
		if len(loc) >= 4 && loc[2] >= 0 {
			s, e = loc[2], loc[3]
		}
		if start == -1 || s < start {
			start, end = s, e
		}
	}
	if start == -1 {
		return 0, "", false
	}
	return utf8.RuneCountInString(line[:start]) + 1, line[start:end], true
}

func (c *compiledRule) guarded(lines []string, idx int) bool {
	if len(c.guards) == 0 {
		return false
	}
	from := idx - c.lookback
	if from < 0 {
		from = 0
	}
	for i := from; i <= idx; i++ {
		for _, re := range c.guards {
			if re.MatchString(lines[i]) {
				return true
			}
		}
	}
	return false
}

func (c *compiledRule) render(data messageData) string {
	var buf bytes.Buffer
	if err := c.message.Execute(&buf, data); err != nil {
		// compileRule already executed the template against a one-rune token,
		// so this only trips on data-dependent calls; keep the token visible.
		return fmt.Sprintf("%s: %s", data.RuleID, data.Token)
	}
	return buf.String()
}
