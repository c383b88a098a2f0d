package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/example/snipscan/internal/config"
	"github.com/example/snipscan/internal/detector"
	"github.com/spf13/cobra"
)

type ruleInfo struct {
	ID          string            `json:"id"`
	Severity    detector.Severity `json:"severity"`
	Description string            `json:"description,omitempty"`
	Extensions  []string          `json:"extensions,omitempty"`
	Guarded     bool              `json:"guarded"`
	Lookback    int               `json:"lookback,omitempty"`
}

func newRulesCmd(loader *config.Loader, opts *rootOptions) *cobra.Command {
	var rules string
	var ruleFiles []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the active detection rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			ov := config.Overrides{}
			if cmd.Flags().Changed("rules") {
				ov.Rules = config.ParseList(rules)
			}
			if cmd.Flags().Changed("rule-file") {
				ov.RuleFiles = ruleFiles
			}

			cfg, err := loader.Load(ov)
			if err != nil {
				return err
			}

			set, err := compileRules(cfg, opts.Logger())
			if err != nil {
				return err
			}

			infos := describeRules(set.Rules())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSEVERITY\tFILES\tDESCRIPTION")
			for _, info := range infos {
				files := "*"
				if len(info.Extensions) > 0 {
					files = strings.Join(info.Extensions, ",")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.ID, info.Severity, files, info.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&rules, "rules", "", "Comma-separated built-in rule ids to list (default: all)")
	cmd.Flags().StringArrayVar(&ruleFiles, "rule-file", nil, "YAML file with custom rules (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rules as JSON")

	return cmd
}

func describeRules(rules []detector.Rule) []ruleInfo {
	infos := make([]ruleInfo, 0, len(rules))
	for _, r := range rules {
		info := ruleInfo{
			ID:          r.ID,
			Severity:    r.Severity,
			Description: r.Description,
			Extensions:  r.Extensions,
			Guarded:     len(r.Guards) > 0,
		}
		if info.Guarded {
			info.Lookback = r.Lookback
			if info.Lookback == 0 {
				info.Lookback = detector.DefaultLookback
			}
		}
		infos = append(infos, info)
	}
	return infos
}
