package cli

import (
	"github.com/example/snipscan/internal/config"
	"github.com/example/snipscan/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.1.0"

// Execute builds the root command tree and runs the CLI.
func Execute() error {
	loader := &config.Loader{ConfigPath: config.DefaultConfigPath}
	rootOpts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "snipscan",
		Short:         "Flag insecure call patterns such as unchecked deserialization in source files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate("snipscan version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&rootOpts.ConfigPath, "config", config.DefaultConfigPath, "Path to snipscan.config.yml (optional)")
	rootCmd.PersistentFlags().BoolVar(&rootOpts.Debug, "debug", false, "Enable debug logging on stderr")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if rootOpts.ConfigPath != "" {
			loader.ConfigPath = rootOpts.ConfigPath
		}
		log, err := logging.New(rootOpts.Debug)
		if err != nil {
			return err
		}
		rootOpts.log = log
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		_ = rootOpts.Logger().Sync()
	}

	rootCmd.AddCommand(
		newInitCmd(loader),
		newScanCmd(loader, rootOpts),
		newRulesCmd(loader, rootOpts),
		newReportCmd(),
		newDoctorCmd(loader, rootOpts),
	)

	return rootCmd.Execute()
}

type rootOptions struct {
	ConfigPath string
	Debug      bool

	log *zap.SugaredLogger
}

// Logger returns the logger built for this invocation, or a no-op logger.
func (o *rootOptions) Logger() *zap.SugaredLogger {
	if o == nil {
		return logging.OrNop(nil)
	}
	return logging.OrNop(o.log)
}
