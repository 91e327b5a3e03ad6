package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/venkatbhat62/JaaduConfig/internal/config"
	"github.com/venkatbhat62/JaaduConfig/internal/logging"
)

var (
	cfgFile    string
	debugLevel int
	logFile    string
	parserName string
	noColor    bool

	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "jcconfig",
	Short: "Host configuration file generator",
	Long: `jcconfig generates per-host configuration files from templates.

Parameters come from a layered environment spec: top-level values, then the
OS, Component and Environment sections. Within each section the All scope
supplies defaults and scopes whose HostName pattern matches this host
override them. Scopes can define dynamic variables from allowed shell
commands and can be gated on a command's output.`,
	SilenceUsage: true, // Don't print usage on errors unrelated to flags
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A log file that cannot be opened is reported by Setup; console
		// logging keeps working.
		logCloser, _ = logging.Setup(debugLevel, logFile, noColor)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default ./jcconfig.yml, then the XDG config dir)")
	rootCmd.PersistentFlags().IntVarP(&debugLevel, "debug", "D", 0, "debug level: 0 warnings, 1 info, 2 debug, 3 trace")
	rootCmd.PersistentFlags().StringVarP(&logFile, "log-file", "l", "", "also append log output to this file")
	rootCmd.PersistentFlags().StringVar(&parserName, "parser", "", "spec parser: auto, yaml, toml or indent (overrides settings)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored log output")
}

// loadConfig discovers the settings file and applies the persistent flag
// overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Discover(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("parser") {
		cfg.Parser = parserName
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("--parser: %w", err)
		}
	}

	return cfg, nil
}
