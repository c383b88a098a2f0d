package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/snipscan/internal/config"
	"github.com/example/snipscan/internal/events"
	"github.com/example/snipscan/internal/report"
)

const vulnerableJava = "ObjectInputStream ois = new ObjectInputStream(in);\nreturn (User) ois.readObject();\n"

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir fixture: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func noConfigLoader(t *testing.T) *config.Loader {
	t.Helper()
	return &config.Loader{ConfigPath: filepath.Join(t.TempDir(), "missing.yml")}
}

func decodeEvents(t *testing.T, data []byte) []events.Event {
	t.Helper()
	var out []events.Event
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var evt events.Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("decode event %q: %v", line, err)
		}
		out = append(out, evt)
	}
	return out
}

func countEvents(evts []events.Event, eventType string) int {
	n := 0
	for _, evt := range evts {
		if evt.Type == eventType {
			n++
		}
	}
	return n
}

func TestScanCommandWritesFindingsAndFailsOnHigh(t *testing.T) {
	srcDir := t.TempDir()
	writeFixture(t, srcDir, "src/App.java", vulnerableJava)
	writeFixture(t, srcDir, "src/Safe.java", "int x = 1;\n")
	writeFixture(t, srcDir, "node_modules/lib/App.java", vulnerableJava)
	outputDir := filepath.Join(t.TempDir(), "out")
	summaryPath := filepath.Join(outputDir, "summary.json")

	cmd := newScanCmd(noConfigLoader(t), &rootOptions{})
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		srcDir,
		"--output-dir", outputDir,
		"--formats", "ndjson,sarif",
		"--summary-file", summaryPath,
		"--workers", "2",
	})

	err := cmd.Execute()
	if !errors.Is(err, ErrFindingsOverThreshold) {
		t.Fatalf("expected ErrFindingsOverThreshold, got %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("Usage:")) {
		t.Fatalf("threshold failure should not print usage on stdout:\n%s", buf.String())
	}

	evts := decodeEvents(t, buf.Bytes())
	if len(evts) == 0 || evts[0].Type != events.TypeScanStart {
		t.Fatalf("expected scan-start first, got %+v", evts)
	}
	if got := countEvents(evts, events.TypeFinding); got != 1 {
		t.Fatalf("expected 1 finding event, got %d", got)
	}
	if got := countEvents(evts, events.TypeArtifactWritten); got != 2 {
		t.Fatalf("expected 2 artifact events, got %d", got)
	}
	if evts[len(evts)-1].Type != events.TypeScanFinished {
		t.Fatalf("expected scan-finished last, got %s", evts[len(evts)-1].Type)
	}

	runID := evts[0].RunID
	if runID == "" {
		t.Fatal("expected events to carry a run id")
	}
	for _, evt := range evts {
		if evt.RunID != runID {
			t.Fatalf("run id changed mid-stream: %s vs %s", evt.RunID, runID)
		}
	}

	files, err := filepath.Glob(filepath.Join(outputDir, "findings_*.ndjson"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one ndjson artifact, got %v (%v)", files, err)
	}

	in, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer in.Close()

	records, err := report.ReadNDJSON(in)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if !strings.HasSuffix(rec.Path, filepath.Join("src", "App.java")) || rec.Line != 2 || rec.Column != 19 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	data, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("summary not created: %v", err)
	}
	var summary report.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.FilesScanned != 2 || summary.Findings != 1 || summary.RunID != runID {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts in summary, got %v", summary.Artifacts)
	}
}

func TestScanCommandFailOnNone(t *testing.T) {
	srcDir := t.TempDir()
	target := writeFixture(t, srcDir, "App.java", vulnerableJava)

	cmd := newScanCmd(noConfigLoader(t), &rootOptions{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{target, "--output-dir", t.TempDir(), "--fail-on", "none"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("scan with --fail-on none should pass, got %v", err)
	}
}

func TestScanCommandDryRunQueuesFiles(t *testing.T) {
	srcDir := t.TempDir()
	writeFixture(t, srcDir, "a.py", "obj = pickle.loads(blob)\n")
	writeFixture(t, srcDir, "b.c", "strcpy(buf, in);\n")
	outputDir := filepath.Join(t.TempDir(), "out")

	cmd := newScanCmd(noConfigLoader(t), &rootOptions{})
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{srcDir, "--dry-run", "--output-dir", outputDir})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}

	evts := decodeEvents(t, buf.Bytes())
	if got := countEvents(evts, events.TypeFileQueued); got != 2 {
		t.Fatalf("expected 2 queued files, got %d", got)
	}
	if got := countEvents(evts, events.TypeFinding); got != 0 {
		t.Fatalf("dry run should not report findings, got %d", got)
	}
	if _, err := os.Stat(outputDir); !os.IsNotExist(err) {
		t.Fatalf("dry run should not create the output directory (stat err=%v)", err)
	}
}

func TestScanCommandReadsStdin(t *testing.T) {
	cmd := newScanCmd(noConfigLoader(t), &rootOptions{})
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("data = yaml.load(stream)\n"))
	cmd.SetArgs([]string{"-", "--output-dir", t.TempDir(), "--fail-on", "none"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("stdin scan failed: %v", err)
	}

	evts := decodeEvents(t, buf.Bytes())
	if got := countEvents(evts, events.TypeFinding); got != 1 {
		t.Fatalf("expected 1 finding from stdin, got %d", got)
	}
}

func TestScanCommandStdinThresholdKeepsStdoutClean(t *testing.T) {
	cmd := newScanCmd(noConfigLoader(t), &rootOptions{})
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(vulnerableJava))
	cmd.SetArgs([]string{"-", "--output-dir", t.TempDir()})

	if err := cmd.Execute(); !errors.Is(err, ErrFindingsOverThreshold) {
		t.Fatalf("expected ErrFindingsOverThreshold, got %v", err)
	}

	// Every stdout line must still be an event.
	evts := decodeEvents(t, stdout.Bytes())
	if got := countEvents(evts, events.TypeFinding); got != 1 {
		t.Fatalf("expected 1 finding, got %d", got)
	}
	if strings.Contains(stderr.String(), "Usage:") {
		t.Fatalf("unexpected usage output: %s", stderr.String())
	}
}

func TestScanCommandStdinName(t *testing.T) {
	input := "strcpy(buffer, input);\nreturn eval(userInput);\n"

	tests := []struct {
		name      string
		args      []string
		wantRules []string
	}{
		{name: "no name skips extension rules", args: nil, wantRules: nil},
		{name: "c name enables strcpy rule", args: []string{"--stdin-name", "snippet.c"}, wantRules: []string{"unbounded-strcpy"}},
		{name: "js name enables eval rule", args: []string{"--stdin-name", "snippet.js"}, wantRules: []string{"eval-injection"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newScanCmd(noConfigLoader(t), &rootOptions{})
			buf := &bytes.Buffer{}
			cmd.SetOut(buf)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetIn(strings.NewReader(input))
			cmd.SetArgs(append([]string{"-", "--output-dir", t.TempDir(), "--fail-on", "none"}, tt.args...))

			if err := cmd.Execute(); err != nil {
				t.Fatalf("scan failed: %v", err)
			}

			var got []string
			for _, evt := range decodeEvents(t, buf.Bytes()) {
				if evt.Type != events.TypeFinding {
					continue
				}
				if evt.Fields["path"] != "-" {
					t.Fatalf("finding should keep the stdin path, got %v", evt.Fields["path"])
				}
				got = append(got, evt.Fields["rule_id"].(string))
			}
			if strings.Join(got, ",") != strings.Join(tt.wantRules, ",") {
				t.Fatalf("expected rules %v, got %v", tt.wantRules, got)
			}
		})
	}
}

func TestScanCommandRequiresTargets(t *testing.T) {
	cmd := newScanCmd(noConfigLoader(t), &rootOptions{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--output-dir", t.TempDir()})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "no targets") {
		t.Fatalf("expected no targets error, got %v", err)
	}
}

func TestScanCommandUnknownRule(t *testing.T) {
	cmd := newScanCmd(noConfigLoader(t), &rootOptions{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{t.TempDir(), "--rules", "no-such-rule"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "no-such-rule") {
		t.Fatalf("expected unknown rule error, got %v", err)
	}
}
