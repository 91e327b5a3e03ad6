package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/venkatbhat62/JaaduConfig/internal/generate"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate configuration files for this host",
	Long: `Generate configuration files for this host.

The environment spec is rendered with the seed parameters, resolved for the
host, and each template is rendered with the result into the config path.
Output files are named <template>.<host> unless -c gives explicit names.`,
	Example: `  jcconfig generate -t app.conf,db.ini
  jcconfig generate -t app.conf -c app.conf --host dfwweb01 -T ./templates -C /etc/app`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		templates := splitList(generateTemplates)
		if len(templates) == 0 {
			return errors.New("no templates given (-t)")
		}

		opts, err := generateFlags.options(cfg, templates, splitList(generateOutputs))
		if err != nil {
			return err
		}

		result, err := generate.New(afero.NewOsFs(), opts).Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("generating config files: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, path := range result.Written {
			fmt.Fprintf(out, "✅ %s\n", path)
		}
		for _, name := range result.Skipped {
			fmt.Fprintf(out, "⚠️  %s: template not found, skipped\n", name)
		}
		fmt.Fprintf(out, "Generated %d of %d config files in %s\n", len(result.Written), len(templates), result.ConfigPath)
		return nil
	},
}

var (
	generateFlags     pipelineFlags
	generateTemplates string
	generateOutputs   string
)

func init() {
	generateCmd.Flags().StringVarP(&generateTemplates, "templates", "t", "", "comma separated template files (required)")
	generateCmd.Flags().StringVarP(&generateOutputs, "outputs", "c", "", "comma separated output file names, one per template")
	generateFlags.register(generateCmd)
	_ = generateCmd.MarkFlagRequired("templates")
	rootCmd.AddCommand(generateCmd)
}
