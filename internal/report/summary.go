package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/example/snipscan/internal/detector"
)

// Summary is the JSON document written to --summary-file after a scan.
type Summary struct {
	GeneratedAt  time.Time                 `json:"generatedAt"`
	RunID        string                    `json:"runId"`
	Targets      []string                  `json:"targets"`
	Rules        []string                  `json:"rules"`
	FilesScanned int                       `json:"filesScanned"`
	FilesSkipped int                       `json:"filesSkipped"`
	Findings     int                       `json:"findings"`
	BySeverity   map[detector.Severity]int `json:"bySeverity"`
	Artifacts    []string                  `json:"artifacts"`
	DryRun       bool                      `json:"dryRun"`
}

// WriteSummary stores s as indented JSON, creating parent directories.
func WriteSummary(path string, s Summary) error {
	if s.GeneratedAt.IsZero() {
		s.GeneratedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
