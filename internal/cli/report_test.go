package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/snipscan/internal/detector"
	"github.com/example/snipscan/internal/events"
	"github.com/example/snipscan/internal/report"
)

func writeNDJSONInput(t *testing.T) string {
	t.Helper()
	records := []report.Record{
		{Path: "src/App.java", Finding: detector.Finding{
			RuleID: detector.RuleUnsafeDeserialize, Line: 2, Column: 19,
			Snippet: "return (User) ois.readObject();", Message: "Unchecked deserialization via readObject",
			Severity: detector.SeverityHigh,
		}},
		{Path: "web/app.js", Finding: detector.Finding{
			RuleID: detector.RuleEvalInjection, Line: 4, Column: 10,
			Snippet: "return eval(userInput);", Message: "eval executes a runtime string as code",
			Severity: detector.SeverityMedium,
		}},
	}

	var buf bytes.Buffer
	if err := report.WriteNDJSON(&buf, records); err != nil {
		t.Fatalf("write ndjson: %v", err)
	}
	path := filepath.Join(t.TempDir(), "findings.ndjson")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestReportCommandTableToStdout(t *testing.T) {
	input := writeNDJSONInput(t)

	cmd := newReportCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--input", input})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("report command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "src/App.java") || !strings.Contains(out, detector.RuleEvalInjection) {
		t.Fatalf("unexpected table output:\n%s", out)
	}
}

func TestReportCommandSARIFToFileEmitsEvent(t *testing.T) {
	input := writeNDJSONInput(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "findings.sarif")
	summaryPath := filepath.Join(dir, "summary.json")

	cmd := newReportCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--input", input, "--format", "SARIF", "--output", output, "--summary-file", summaryPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("report command failed: %v", err)
	}

	var evt events.Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &evt); err != nil {
		t.Fatalf("decode report event: %v\n%s", err, buf.String())
	}
	if evt.Type != events.TypeReport {
		t.Fatalf("expected report event, got %s", evt.Type)
	}
	if findings, ok := evt.Fields["findings"].(float64); !ok || findings != 2 {
		t.Fatalf("expected 2 findings in event, got %v", evt.Fields["findings"])
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read sarif: %v", err)
	}
	if !bytes.Contains(data, []byte(`"version": "2.1.0"`)) {
		t.Fatalf("output does not look like SARIF: %s", data)
	}

	if _, err := os.Stat(summaryPath); err != nil {
		t.Fatalf("summary not created: %v", err)
	}
}

func TestReportCommandRejectsUnknownFormat(t *testing.T) {
	cmd := newReportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--input", writeNDJSONInput(t), "--format", "xml"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestReportCommandRejectsMalformedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ndjson")
	if err := os.WriteFile(path, []byte("not json\n"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	cmd := newReportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--input", path})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("expected parse error with line number, got %v", err)
	}
}

func TestReportCommandSARIFUsesRuleFileDescriptions(t *testing.T) {
	dir := t.TempDir()
	rulePath := filepath.Join(dir, "rules.yml")
	body := strings.Replace(customRuleFile, "    severity: medium\n", "    description: XStream without type permissions\n    severity: medium\n", 1)
	if err := os.WriteFile(rulePath, []byte(body), 0o600); err != nil {
		t.Fatalf("write rule file: %v", err)
	}

	records := []report.Record{{Path: "src/Load.java", Finding: detector.Finding{
		RuleID: "xstream-untyped", Line: 3, Column: 12,
		Message: "fromXML without XStream type permissions", Severity: detector.SeverityMedium,
	}}}
	var buf bytes.Buffer
	if err := report.WriteNDJSON(&buf, records); err != nil {
		t.Fatalf("write ndjson: %v", err)
	}
	input := filepath.Join(dir, "findings.ndjson")
	if err := os.WriteFile(input, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	tests := []struct {
		name     string
		args     []string
		wantDesc bool
	}{
		{name: "without rule file", args: nil, wantDesc: false},
		{name: "with rule file", args: []string{"--rule-file", rulePath}, wantDesc: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newReportCmd()
			out := &bytes.Buffer{}
			cmd.SetOut(out)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append([]string{"--input", input, "--format", "sarif"}, tt.args...))

			if err := cmd.Execute(); err != nil {
				t.Fatalf("report command failed: %v", err)
			}

			got := strings.Contains(out.String(), "XStream without type permissions")
			if got != tt.wantDesc {
				t.Fatalf("shortDescription present=%v, want %v:\n%s", got, tt.wantDesc, out.String())
			}
		})
	}
}

func TestReportCommandRejectsBadRuleFile(t *testing.T) {
	cmd := newReportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--input", writeNDJSONInput(t), "--rule-file", filepath.Join(t.TempDir(), "missing.yml")})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing rule file")
	}
}
