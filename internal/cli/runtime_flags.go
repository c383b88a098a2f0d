package cli

import (
	"fmt"

	"github.com/example/snipscan/internal/config"
	"github.com/spf13/cobra"
)

// runtimeFlagSet tracks shared scan/doctor flags before they are converted into config overrides.
type runtimeFlagSet struct {
	targetsFile string
	rules       string
	ruleFiles   []string
	workers     int
	outputDir   string
	formats     string
	maxFileSize int64
	failOn      string
	dryRun      bool
	summaryFile string
	exclude     string
	stdinName   string
}

func bindRuntimeFlags(cmd *cobra.Command, flags *runtimeFlagSet) {
	cmd.Flags().StringVar(&flags.targetsFile, "targets-file", "", "Path to a file with one target path per line")
	cmd.Flags().StringVar(&flags.rules, "rules", "", "Comma-separated built-in rule ids to enable (default: all)")
	cmd.Flags().StringArrayVar(&flags.ruleFiles, "rule-file", nil, "YAML file with custom rules (repeatable)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, fmt.Sprintf("Number of files scanned in parallel (1-%d)", config.MaxWorkers))
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Directory for scan artifacts")
	cmd.Flags().StringVar(&flags.formats, "formats", "", "Comma-separated artifact formats (ndjson,table,csv,sarif)")
	cmd.Flags().Int64Var(&flags.maxFileSize, "max-file-size", 0, "Skip files larger than this many bytes")
	cmd.Flags().StringVar(&flags.failOn, "fail-on", "", "Exit non-zero when a finding is at or above this severity (low, medium, high, none)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "List files that would be scanned without scanning them")
	cmd.Flags().StringVar(&flags.summaryFile, "summary-file", "", "Optional summary JSON output path")
	cmd.Flags().StringVar(&flags.exclude, "exclude", "", "Comma-separated directory names to skip while walking")
	cmd.Flags().StringVar(&flags.stdinName, "stdin-name", "", "File name for \"-\" so extension-scoped rules apply (e.g. snippet.c)")
}

func (f runtimeFlagSet) toOverrides(cmd *cobra.Command, args []string) config.Overrides {
	ov := config.Overrides{}
	if len(args) > 0 {
		ov.Targets = args
	}

	if cmd.Flags().Changed("targets-file") {
		ov.TargetsFile = f.targetsFile
	}

	if cmd.Flags().Changed("rules") {
		ov.Rules = config.ParseList(f.rules)
	}

	if cmd.Flags().Changed("rule-file") {
		ov.RuleFiles = f.ruleFiles
	}

	if cmd.Flags().Changed("workers") {
		ov.Workers = f.workers
		ov.WorkersSet = true
	}

	if cmd.Flags().Changed("output-dir") {
		ov.OutputDir = f.outputDir
	}

	if cmd.Flags().Changed("formats") {
		ov.Formats = config.ParseFormats(f.formats)
	}

	if cmd.Flags().Changed("max-file-size") {
		ov.MaxFileSize = f.maxFileSize
		ov.MaxFileSizeSet = true
	}

	if cmd.Flags().Changed("fail-on") {
		ov.FailOn = f.failOn
	}

	if cmd.Flags().Changed("dry-run") {
		ov.DryRun = &f.dryRun
	}

	if cmd.Flags().Changed("summary-file") {
		ov.SummaryFile = f.summaryFile
	}

	if cmd.Flags().Changed("exclude") {
		ov.Exclude = config.ParseList(f.exclude)
	}

	if cmd.Flags().Changed("stdin-name") {
		ov.StdinName = f.stdinName
	}

	return ov
}
