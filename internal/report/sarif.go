package report

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/example/snipscan/internal/detector"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	toolName     = "snipscan"
)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID                   string             `json:"id"`
	ShortDescription     *sarifMessage      `json:"shortDescription,omitempty"`
	DefaultConfiguration sarifConfiguration `json:"defaultConfiguration"`
}

type sarifConfiguration struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int           `json:"startLine"`
	StartColumn int           `json:"startColumn,omitempty"`
	Snippet     *sarifMessage `json:"snippet,omitempty"`
}

// WriteSARIF emits a SARIF 2.1.0 log with a single run. Driver rules are
// listed for every rule id that appears in records, in first-seen order;
// descriptions come from catalogue when the id is known.
func WriteSARIF(w io.Writer, records []Record, catalogue []detector.Rule, version string) error {
	known := make(map[string]detector.Rule, len(catalogue))
	for _, r := range catalogue {
		known[r.ID] = r
	}

	results := make([]sarifResult, 0, len(records))
	var rules []sarifRule
	listed := map[string]bool{}

	for _, rec := range records {
		if !listed[rec.RuleID] {
			listed[rec.RuleID] = true
			rule := sarifRule{
				ID:                   rec.RuleID,
				DefaultConfiguration: sarifConfiguration{Level: levelFor(rec.Severity)},
			}
			if def, ok := known[rec.RuleID]; ok && def.Description != "" {
				rule.ShortDescription = &sarifMessage{Text: def.Description}
			}
			rules = append(rules, rule)
		}

		uri := toURI(rec.Path)
		if uri == "" {
			uri = "UNKNOWN"
		}
		start := rec.Line
		if start <= 0 {
			start = 1
		}

		region := sarifRegion{StartLine: start, StartColumn: rec.Column}
		if rec.Snippet != "" {
			region.Snippet = &sarifMessage{Text: rec.Snippet}
		}

		results = append(results, sarifResult{
			RuleID:  rec.RuleID,
			Level:   levelFor(rec.Severity),
			Message: sarifMessage{Text: strings.TrimSpace(rec.Message)},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: uri},
					Region:           region,
				},
			}},
		})
	}

	log := sarifLog{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: toolName, Version: version, Rules: rules}},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func levelFor(s detector.Severity) string {
	switch s {
	case detector.SeverityHigh:
		return "error"
	case detector.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func toURI(p string) string {
	p = strings.TrimSpace(p)
	if p == "-" {
		return "stdin"
	}
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}
	return strings.TrimPrefix(p, "./")
}
