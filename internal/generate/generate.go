// Package generate renders host configuration files: it seeds the
// parameters for this host, renders and resolves the environment spec, then
// renders each requested template into the config directory.
package generate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/venkatbhat62/JaaduConfig/internal/config"
	"github.com/venkatbhat62/JaaduConfig/internal/logging"
	"github.com/venkatbhat62/JaaduConfig/internal/params"
	"github.com/venkatbhat62/JaaduConfig/internal/platform"
	"github.com/venkatbhat62/JaaduConfig/internal/resolver"
	"github.com/venkatbhat62/JaaduConfig/internal/template"
)

const (
	DefaultTemplateDir = "templates"
	DefaultConfigDir   = "conf"
)

var (
	// ErrSpecUnavailable means the environment spec could not be rendered or resolved.
	ErrSpecUnavailable = errors.New("environment spec unavailable")

	// ErrSamePaths means the template and config directories are the same.
	ErrSamePaths = errors.New("template path and config path must differ")
)

// Options describes one generation run.
type Options struct {
	// Templates are file names relative to TemplatePath.
	Templates []string
	// Outputs are file names relative to ConfigPath, one per template.
	// Empty means "<template>.<host>".
	Outputs []string

	SpecFile         string
	HostName         string
	SitePrefixLength int
	TemplatePath     string
	ConfigPath       string
	OS               platform.Info
	Command          string
	Now              time.Time

	// Resolver carries settings for spec resolution. HostName and OSType
	// are filled from the fields above.
	Resolver resolver.Options

	// TemplateOptions are passed to the template engine.
	TemplateOptions []template.Option
}

// Result reports what a run produced.
type Result struct {
	Parameters params.Params
	// ConfigPath is where outputs were written, after resolution.
	ConfigPath string
	Written    []string
	Skipped    []string
}

// Generator runs the pipeline against a filesystem.
type Generator struct {
	fs   afero.Fs
	opts Options
}

// New creates a Generator. Defaults are applied to opts.
func New(fsys afero.Fs, opts Options) *Generator {
	if opts.SpecFile == "" {
		opts.SpecFile = config.DefaultEnvironmentSpec
	}
	if opts.TemplatePath == "" {
		opts.TemplatePath = DefaultTemplatePath(fsys)
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = DefaultConfigDir
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	opts.HostName = resolver.ShortHostName(opts.HostName)
	opts.Resolver.HostName = opts.HostName
	opts.Resolver.OSType = opts.OS.Type

	return &Generator{fs: fsys, opts: opts}
}

// DefaultTemplatePath is ./templates when that directory exists, else the
// working directory.
func DefaultTemplatePath(fsys afero.Fs) string {
	if ok, _ := afero.DirExists(fsys, DefaultTemplateDir); ok {
		return DefaultTemplateDir
	}
	return "."
}

// OutputNames returns the output file name for each template. Without
// explicit outputs the template's base name gets the host name appended.
func OutputNames(templates, outputs []string, hostName string) ([]string, error) {
	if len(outputs) == 0 {
		names := make([]string, len(templates))
		for i, t := range templates {
			names[i] = filepath.Base(t) + "." + hostName
		}
		return names, nil
	}
	if len(outputs) != len(templates) {
		return nil, fmt.Errorf("%d output names given for %d templates", len(outputs), len(templates))
	}
	return outputs, nil
}

// Resolve seeds the parameters, renders the spec and resolves it.
func (g *Generator) Resolve(ctx context.Context) (*Result, error) {
	logger := logging.GetLogger("generate")

	if samePath(g.opts.TemplatePath, g.opts.ConfigPath) {
		return nil, fmt.Errorf("%w: %s", ErrSamePaths, g.opts.TemplatePath)
	}
	if ok, _ := afero.DirExists(g.fs, g.opts.TemplatePath); !ok {
		return nil, fmt.Errorf("template path %s is not a directory", g.opts.TemplatePath)
	}

	seed := resolver.Seed(resolver.SeedInput{
		HostName:         g.opts.HostName,
		SitePrefixLength: g.opts.SitePrefixLength,
		OS:               g.opts.OS,
		Command:          g.opts.Command,
		Now:              g.opts.Now,
		TemplatePath:     g.opts.TemplatePath,
		ConfigPath:       g.opts.ConfigPath,
	})

	rendered, cleanup, err := g.renderSpec(g.engine(), seed)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	logger.Debug().Str("path", rendered).Msg("Rendered environment spec")

	res := resolver.New(g.fs, g.opts.Resolver)
	resolved, ok := res.ResolveFile(ctx, rendered, seed)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSpecUnavailable, g.opts.SpecFile)
	}

	configPath := g.opts.ConfigPath
	if p, ok := resolved.Lookup("JCConfigPath"); ok && p != "" {
		configPath = p
	}
	return &Result{Parameters: resolved, ConfigPath: configPath}, nil
}

// Run resolves the spec and renders every template.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	logger := logging.GetLogger("generate")

	if len(g.opts.Templates) == 0 {
		return nil, errors.New("no templates given")
	}
	outputs, err := OutputNames(g.opts.Templates, g.opts.Outputs, g.opts.HostName)
	if err != nil {
		return nil, err
	}

	result, err := g.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	if samePath(g.opts.TemplatePath, result.ConfigPath) {
		return nil, fmt.Errorf("%w: %s", ErrSamePaths, result.ConfigPath)
	}
	if err := g.fs.MkdirAll(result.ConfigPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating config path: %w", err)
	}

	engine := g.engine()
	data := result.Parameters.Data()

	for i, name := range g.opts.Templates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		src := g.templateFile(name)
		if ok, _ := afero.Exists(g.fs, src); !ok {
			logger.Error().Str("template", src).Msg("Template file not found, skipped")
			result.Skipped = append(result.Skipped, name)
			continue
		}

		content, err := engine.RenderFile(name, data)
		if err != nil {
			return result, fmt.Errorf("rendering %s: %w", name, err)
		}

		dst := filepath.Join(result.ConfigPath, outputs[i])
		if err := g.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return result, fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
		}
		if err := afero.WriteFile(g.fs, dst, []byte(content), 0o644); err != nil {
			return result, fmt.Errorf("writing %s: %w", dst, err)
		}
		result.Written = append(result.Written, dst)
		logger.Info().Str("template", name).Str("output", dst).Msg("Generated config file")
	}

	return result, nil
}

// templateFile places name under the template path unless it is absolute.
func (g *Generator) templateFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(g.opts.TemplatePath, name)
}

func (g *Generator) engine() *template.Engine {
	return template.New(g.fs, g.opts.TemplatePath, g.opts.TemplateOptions...)
}

// renderSpec renders the spec file as a template with the seed parameters
// and writes the result to a temporary directory, removed by cleanup. The
// spec's extension is kept so the loader still recognises its format.
func (g *Generator) renderSpec(engine *template.Engine, seed params.Params) (string, func(), error) {
	src := g.templateFile(g.opts.SpecFile)
	if ok, _ := afero.Exists(g.fs, src); !ok {
		return "", nil, fmt.Errorf("%w: %s not found", ErrSpecUnavailable, src)
	}

	content, err := engine.RenderFile(g.opts.SpecFile, seed.Data())
	if err != nil {
		return "", nil, fmt.Errorf("%w: rendering %s: %w", ErrSpecUnavailable, src, err)
	}

	dir, err := afero.TempDir(g.fs, "", "jcconfig")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp dir: %w", err)
	}
	cleanup := func() {
		if err := g.fs.RemoveAll(dir); err != nil {
			logger := logging.GetLogger("generate")
			logger.Warn().Err(err).Str("dir", dir).Msg("Cannot remove temp dir")
		}
	}

	base := filepath.Base(g.opts.SpecFile)
	ext := filepath.Ext(base)
	dst := filepath.Join(dir, strings.TrimSuffix(base, ext)+"."+g.opts.HostName+ext)
	if err := afero.WriteFile(g.fs, dst, []byte(content), 0o644); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("writing rendered spec: %w", err)
	}
	return dst, cleanup, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
