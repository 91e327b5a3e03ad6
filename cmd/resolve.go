package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/venkatbhat62/JaaduConfig/internal/generate"
	"github.com/venkatbhat62/JaaduConfig/internal/params"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the resolved parameters for this host",
	Long: `Render and resolve the environment spec for this host and print the
resulting parameters, sorted by name, as YAML or TOML. No templates are
rendered and nothing is written to the config path.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts, err := resolveFlags.options(cfg, nil, nil)
		if err != nil {
			return err
		}

		result, err := generate.New(afero.NewOsFs(), opts).Resolve(cmd.Context())
		if err != nil {
			return fmt.Errorf("resolving environment spec: %w", err)
		}

		return writeParameters(cmd.OutOrStdout(), result.Parameters, resolveFormat)
	},
}

var (
	resolveFlags  pipelineFlags
	resolveFormat string
)

func init() {
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "o", "yaml", "output format: yaml or toml")
	resolveFlags.register(resolveCmd)
	rootCmd.AddCommand(resolveCmd)
}

// writeParameters encodes p to w. Both encoders sort map keys.
func writeParameters(w io.Writer, p params.Params, format string) error {
	data := p.Data()

	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "toml":
		if err := toml.NewEncoder(w).Encode(data); err != nil {
			return fmt.Errorf("encoding toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
