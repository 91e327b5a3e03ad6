package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/venkatbhat62/JaaduConfig/internal/parser"
	"github.com/venkatbhat62/JaaduConfig/internal/resolver"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate settings and environment specs",
	Long:  "Validate the settings file and environment spec files.",
}

var validateConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate the settings file",
	Long:  "Validate the settings file for correct format and consistent values.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Discover() validates through Load()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if cfg.Path == "" {
			fmt.Fprintln(out, "✅ No settings file found, defaults are valid")
			return nil
		}
		fmt.Fprintf(out, "✅ %s is valid\n", cfg.Path)
		return nil
	},
}

var validateSpecCmd = &cobra.Command{
	Use:   "spec <file>",
	Short: "Validate an environment spec file",
	Long: `Parse an environment spec file and list its sections and scopes.

Problems that resolution would only log, such as invalid HostName patterns,
scopes that can never apply and incomplete Command/Condition pairs, are
reported as errors. The file is checked as written: template expressions are
not rendered and no commands are run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		format, err := parser.ParseFormat(cfg.Parser)
		if err != nil {
			return err
		}

		doc, err := parser.Load(afero.NewOsFs(), args[0], format)
		if err != nil {
			return err
		}

		summaries, issues := resolver.Check(doc)

		out := cmd.OutOrStdout()
		for _, s := range summaries {
			fmt.Fprintf(out, "%s: %s\n", s.Section, strings.Join(s.Scopes, ", "))
		}

		if len(issues) > 0 {
			fmt.Fprintf(out, "\n❌ %d issue(s) found:\n", len(issues))
			for _, issue := range issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			return fmt.Errorf("%s has %d issue(s)", args[0], len(issues))
		}

		fmt.Fprintf(out, "\n✅ %s is valid\n", args[0])
		return nil
	},
}

func init() {
	validateCmd.AddCommand(validateConfigCmd)
	validateCmd.AddCommand(validateSpecCmd)
	rootCmd.AddCommand(validateCmd)
}
