// Package report renders scan findings as NDJSON, tables, CSV or SARIF.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/example/snipscan/internal/detector"
)

// Supported output formats.
const (
	FormatNDJSON = "ndjson"
	FormatTable  = "table"
	FormatCSV    = "csv"
	FormatSARIF  = "sarif"
)

// Formats lists every format Write understands.
var Formats = []string{FormatNDJSON, FormatTable, FormatCSV, FormatSARIF}

// Record is a finding tagged with the file it came from.
type Record struct {
	Path string `json:"path,omitempty"`
	detector.Finding
}

// Flatten turns per-file results into records, preserving file and finding order.
func Flatten(results []detector.FileResult) []Record {
	var out []Record
	for _, res := range results {
		for _, f := range res.Findings {
			out = append(out, Record{Path: res.Path, Finding: f})
		}
	}
	return out
}

// Options carries the extra context some formats need.
type Options struct {
	// Rules describes the rule catalogue for SARIF driver metadata.
	Rules       []detector.Rule
	ToolVersion string
}

// Write renders records in the given format.
func Write(w io.Writer, format string, records []Record, opts Options) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatNDJSON:
		return WriteNDJSON(w, records)
	case FormatTable:
		return WriteTable(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatSARIF:
		return WriteSARIF(w, records, opts.Rules, opts.ToolVersion)
	default:
		return fmt.Errorf("unsupported format %s", format)
	}
}

// Extension returns the artifact file extension for a format.
func Extension(format string) string {
	switch format {
	case FormatTable:
		return "txt"
	default:
		return format
	}
}

// WriteNDJSON writes one JSON object per record.
func WriteNDJSON(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// ReadNDJSON parses records written by WriteNDJSON. Blank lines are ignored.
func ReadNDJSON(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var records []Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if rec.RuleID == "" {
			return nil, fmt.Errorf("line %d: record has no rule_id", lineNo)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CountBySeverity tallies records per severity.
func CountBySeverity(records []Record) map[detector.Severity]int {
	counts := map[detector.Severity]int{
		detector.SeverityHigh:   0,
		detector.SeverityMedium: 0,
		detector.SeverityLow:    0,
	}
	for _, rec := range records {
		counts[rec.Severity]++
	}
	return counts
}

// AtOrAbove counts records whose severity ranks at least threshold.
func AtOrAbove(records []Record, threshold detector.Severity) int {
	n := 0
	for _, rec := range records {
		if rec.Severity.Rank() >= threshold.Rank() {
			n++
		}
	}
	return n
}
