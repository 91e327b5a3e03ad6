package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/venkatbhat62/JaaduConfig/internal/config"
	"github.com/venkatbhat62/JaaduConfig/internal/generate"
	"github.com/venkatbhat62/JaaduConfig/internal/parser"
	"github.com/venkatbhat62/JaaduConfig/internal/platform"
	"github.com/venkatbhat62/JaaduConfig/internal/resolver"
)

// pipelineFlags are the flags shared by commands that resolve a spec.
type pipelineFlags struct {
	specFile     string
	hostName     string
	templatePath string
	configPath   string
	sitePrefix   int
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.specFile, "environment-spec", "e", "", "environment spec file in the template path (default from settings)")
	cmd.Flags().StringVar(&f.hostName, "host", "", "host name to generate for (default this host)")
	cmd.Flags().StringVarP(&f.templatePath, "template-path", "T", "", "template directory (default ./templates if present, else .)")
	cmd.Flags().StringVarP(&f.configPath, "config-path", "C", "", "output directory (default ./conf)")
	cmd.Flags().IntVarP(&f.sitePrefix, "site-prefix", "s", 0, "leading host name characters that form JCSiteName (default from settings)")
}

// options builds generation options from settings overridden by flags.
func (f *pipelineFlags) options(cfg *config.Config, templates, outputs []string) (generate.Options, error) {
	format, err := parser.ParseFormat(cfg.Parser)
	if err != nil {
		return generate.Options{}, err
	}

	host := f.hostName
	if host == "" {
		host, err = os.Hostname()
		if err != nil {
			return generate.Options{}, fmt.Errorf("getting host name: %w", err)
		}
	}

	specFile := cfg.EnvironmentSpec
	if f.specFile != "" {
		specFile = f.specFile
	}

	prefix := cfg.SitePrefixLength
	if f.sitePrefix > 0 {
		prefix = f.sitePrefix
	}

	return generate.Options{
		Templates:        templates,
		Outputs:          outputs,
		SpecFile:         specFile,
		HostName:         host,
		SitePrefixLength: prefix,
		TemplatePath:     f.templatePath,
		ConfigPath:       f.configPath,
		OS:               platform.Detect(afero.NewOsFs()),
		Command:          strings.Join(os.Args, " "),
		Resolver: resolver.Options{
			IntegerParameters: cfg.IntegerParameters,
			FloatParameters:   cfg.FloatParameters,
			Format:            format,
			Shell:             cfg.Shell,
			CommandTimeout:    cfg.Timeout(),
			AllowedCommands:   cfg.AllowedCommands,
		},
	}, nil
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
