package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/example/snipscan/internal/config"
	"github.com/example/snipscan/internal/detector"
	"github.com/example/snipscan/internal/events"
	"github.com/example/snipscan/internal/report"
	"github.com/example/snipscan/internal/source"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newScanCmd(loader *config.Loader, opts *rootOptions) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan files or directories for insecure call patterns",
		// Findings over the fail-on threshold are an outcome, not a usage error.
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Scan walks the given files and directories ("-" reads stdin), evaluates the
active rule set line by line and writes findings as NDJSON events on stdout
plus one artifact per configured format in the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := opts.Logger()

			overrides := flags.toOverrides(cmd, args)
			cfg, err := loader.Load(overrides)
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			threshold, failOn, err := failThreshold(cfg.FailOn)
			if err != nil {
				return err
			}

			set, err := compileRules(cfg, log)
			if err != nil {
				return err
			}

			walker := source.Walker{MaxFileSize: cfg.MaxFileSize, Exclude: cfg.Exclude, Logger: log}
			paths, skipped, err := walker.Collect(cfg.Targets)
			if err != nil {
				return err
			}

			emitter := events.NewRunEmitter(cmd.OutOrStdout(), uuid.NewString())
			ruleIDs := ruleIDs(set.Rules())
			if err := emitter.Send(events.TypeScanStart, "Starting scan", events.Fields{"targets": len(cfg.Targets), "files": len(paths), "rules": ruleIDs, "dryRun": cfg.DryRun}); err != nil {
				return err
			}

			for _, s := range skipped {
				if err := emitter.Send(events.TypeFileSkipped, "", events.Fields{"path": s.Path, "reason": s.Reason}); err != nil {
					return err
				}
			}

			summary := report.Summary{
				RunID:        emitter.RunID(),
				Targets:      cfg.Targets,
				Rules:        ruleIDs,
				FilesSkipped: len(skipped),
				DryRun:       cfg.DryRun,
			}

			if cfg.DryRun {
				for _, path := range paths {
					if err := emitter.Send(events.TypeFileQueued, "", events.Fields{"path": path}); err != nil {
						return err
					}
				}
				summary.BySeverity = report.CountBySeverity(nil)
				if cfg.SummaryFile != "" {
					if err := report.WriteSummary(cfg.SummaryFile, summary); err != nil {
						return err
					}
				}
				return emitter.Send(events.TypeScanFinished, "Dry run complete", events.Fields{"files": len(paths)})
			}

			reader := source.Reader{MaxFileSize: cfg.MaxFileSize, Stdin: cmd.InOrStdin()}
			var runOpts []detector.RunOption
			if slices.Contains(paths, source.StdinPath) {
				if cfg.StdinName != "" {
					runOpts = append(runOpts, detector.WithMatchName(stdinNamer(cfg.StdinName)))
				} else if skippedRules := set.SkippedFor(source.StdinPath); len(skippedRules) > 0 {
					log.Warnw("stdin has no file extension; extension-scoped rules will not run (set --stdin-name)", "rules", skippedRules)
				}
			}
			results, err := detector.Run(cmd.Context(), set, paths, reader.Read, cfg.Workers, runOpts...)
			if err != nil {
				return err
			}

			for _, res := range results {
				if res.Err != nil {
					log.Warnw("skipping unreadable file", "path", res.Path, "error", res.Err)
					summary.FilesSkipped++
					if err := emitter.Send(events.TypeFileSkipped, "", events.Fields{"path": res.Path, "reason": res.Err.Error()}); err != nil {
						return err
					}
					continue
				}
				summary.FilesScanned++
			}

			records := report.Flatten(results)
			for _, rec := range records {
				if err := emitter.Send(events.TypeFinding, rec.Message, findingFields(rec)); err != nil {
					return err
				}
			}

			if err := ensureOutputDir(cfg.OutputDir); err != nil {
				return err
			}

			timestamp := time.Now().UTC().Format("20060102_150405")
			writeOpts := report.Options{Rules: set.Rules(), ToolVersion: version}
			for _, format := range cfg.Formats {
				outputPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("findings_%s.%s", timestamp, report.Extension(format)))
				if err := writeArtifact(outputPath, format, records, writeOpts); err != nil {
					return err
				}
				summary.Artifacts = append(summary.Artifacts, outputPath)
				if err := emitter.Send(events.TypeArtifactWritten, "", events.Fields{"path": outputPath, "format": format}); err != nil {
					return err
				}
			}

			summary.Findings = len(records)
			summary.BySeverity = report.CountBySeverity(records)
			if cfg.SummaryFile != "" {
				if err := report.WriteSummary(cfg.SummaryFile, summary); err != nil {
					return err
				}
			}

			if err := emitter.Send(events.TypeScanFinished, "Scan complete", events.Fields{
				"filesScanned": summary.FilesScanned,
				"filesSkipped": summary.FilesSkipped,
				"findings":     summary.Findings,
				"bySeverity":   summary.BySeverity,
			}); err != nil {
				return err
			}

			if failOn {
				if n := report.AtOrAbove(records, threshold); n > 0 {
					return fmt.Errorf("%w: %d finding(s) at %s or above", ErrFindingsOverThreshold, n, threshold)
				}
			}
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}

func stdinNamer(name string) func(string) string {
	return func(path string) string {
		if path == source.StdinPath {
			return name
		}
		return path
	}
}

func writeArtifact(path, format string, records []report.Record, opts report.Options) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := report.Write(file, format, records, opts); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

func findingFields(rec report.Record) events.Fields {
	return events.Fields{
		"path":     rec.Path,
		"rule_id":  rec.RuleID,
		"line":     rec.Line,
		"column":   rec.Column,
		"severity": string(rec.Severity),
		"snippet":  rec.Snippet,
	}
}

func ruleIDs(rules []detector.Rule) []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}
