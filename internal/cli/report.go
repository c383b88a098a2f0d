package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/snipscan/internal/config"
	"github.com/example/snipscan/internal/detector"
	"github.com/example/snipscan/internal/events"
	"github.com/example/snipscan/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var inputPath string
	var format string
	var outputPath string
	var summaryPath string
	var ruleFiles []string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render an NDJSON findings artifact as a table, CSV or SARIF",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("--input is required")
			}

			format = strings.ToLower(strings.TrimSpace(format))
			if !isKnownFormat(format) {
				return fmt.Errorf("unsupported format %s (want one of %s)", format, strings.Join(config.KnownFormats, ", "))
			}

			in, err := os.Open(filepath.Clean(inputPath))
			if err != nil {
				return err
			}
			records, err := report.ReadNDJSON(in)
			in.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", inputPath, err)
			}

			catalogue, err := reportCatalogue(ruleFiles)
			if err != nil {
				return err
			}
			opts := report.Options{Rules: catalogue, ToolVersion: version}

			counts := report.CountBySeverity(records)
			summary := report.Summary{Findings: len(records), BySeverity: counts}

			if outputPath == "" {
				// Stdout carries the rendered report only, so no event is emitted.
				if err := report.Write(cmd.OutOrStdout(), format, records, opts); err != nil {
					return err
				}
			} else {
				if err := writeArtifact(outputPath, format, records, opts); err != nil {
					return err
				}
				summary.Artifacts = []string{outputPath}

				emitter := events.NewEmitter(cmd.OutOrStdout())
				if err := emitter.Send(events.TypeReport, "Report generated", events.Fields{
					"input":      inputPath,
					"output":     outputPath,
					"format":     format,
					"findings":   len(records),
					"bySeverity": counts,
				}); err != nil {
					return err
				}
			}

			if summaryPath != "" {
				if err := report.WriteSummary(summaryPath, summary); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Summary written to %s\n", summaryPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to an NDJSON findings artifact")
	cmd.Flags().StringVar(&format, "format", report.FormatTable, "Output format (ndjson, table, csv, sarif)")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write the rendered report to this file instead of stdout")
	cmd.Flags().StringVar(&summaryPath, "summary-file", "", "Optional path to store summary JSON")
	cmd.Flags().StringArrayVar(&ruleFiles, "rule-file", nil, "YAML file with the custom rules used for the scan, for SARIF rule metadata (repeatable)")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}

	return cmd
}

// reportCatalogue returns the built-in rules followed by the rules in ruleFiles.
func reportCatalogue(ruleFiles []string) ([]detector.Rule, error) {
	catalogue := detector.DefaultRegistry().Rules()
	for _, path := range ruleFiles {
		custom, err := detector.LoadRuleFile(path)
		if err != nil {
			return nil, err
		}
		catalogue = append(catalogue, custom...)
	}
	return catalogue, nil
}

func isKnownFormat(format string) bool {
	for _, f := range config.KnownFormats {
		if f == format {
			return true
		}
	}
	return false
}
