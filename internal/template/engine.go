package template

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"
	"time"

	"github.com/spf13/afero"
)

// maxIncludeDepth stops include cycles.
const maxIncludeDepth = 16

// Engine handles template loading and rendering. Templates and included
// files are read from a root directory on an afero filesystem. Referencing a
// variable that is not set is an error.
//
// Sprig functions are available, except that contains, hasPrefix, hasSuffix,
// replace and split take the subject first, as in the strings package.
type Engine struct {
	fs        afero.Fs
	root      string
	templates map[string]*template.Template
	hosts     hostFuncs
}

// Option configures an Engine.
type Option func(*Engine)

// WithLookup replaces the host name resolver used by the JCHostName* functions.
func WithLookup(fn LookupFunc) Option {
	return func(e *Engine) {
		e.hosts.lookup = fn
	}
}

// WithLookupTimeout bounds each host name lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.hosts.timeout = d
	}
}

// New creates a new template engine reading from root on fsys.
func New(fsys afero.Fs, root string, opts ...Option) *Engine {
	e := &Engine{
		fs:        fsys,
		root:      root,
		templates: make(map[string]*template.Template),
		hosts:     hostFuncs{lookup: SystemLookup, timeout: DefaultLookupTimeout},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Root returns the directory templates are read from.
func (e *Engine) Root() string {
	return e.root
}

// LoadFile loads a template from a file path. Relative paths are taken
// from the engine root.
func (e *Engine) LoadFile(name, path string) error {
	content, err := afero.ReadFile(e.fs, e.resolve(path))
	if err != nil {
		return fmt.Errorf("reading template file: %w", err)
	}

	return e.LoadString(name, string(content))
}

// LoadString loads a template from a string.
func (e *Engine) LoadString(name, content string) error {
	tmpl, err := e.parse(name, content)
	if err != nil {
		return err
	}

	e.templates[name] = tmpl
	return nil
}

// Render renders a loaded template with the given data. JCSetVariable
// calls in the template write into data.
func (e *Engine) Render(name string, data map[string]any) (string, error) {
	tmpl, ok := e.templates[name]
	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}

	return e.execute(tmpl, data, 0)
}

// RenderString parses and renders a template string in one step.
func (e *Engine) RenderString(content string, data map[string]any) (string, error) {
	tmpl, err := e.parse("inline", content)
	if err != nil {
		return "", err
	}

	return e.execute(tmpl, data, 0)
}

// RenderFile loads and renders the template at path.
func (e *Engine) RenderFile(path string, data map[string]any) (string, error) {
	if err := e.LoadFile(path, path); err != nil {
		return "", err
	}
	return e.Render(path, data)
}

func (e *Engine) resolve(path string) string {
	if filepath.IsAbs(path) || e.root == "" {
		return path
	}
	return filepath.Join(e.root, path)
}

func (e *Engine) parse(name, content string) (*template.Template, error) {
	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(e.funcs(nil, 0)).
		Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return tmpl, nil
}

func (e *Engine) execute(tmpl *template.Template, data map[string]any, depth int) (string, error) {
	if data == nil {
		data = make(map[string]any)
	}

	bound, err := tmpl.Clone()
	if err != nil {
		return "", fmt.Errorf("cloning template: %w", err)
	}
	bound.Funcs(e.funcs(data, depth))

	var buf bytes.Buffer
	if err := bound.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

// funcs returns the full function map for one render. data receives
// JCSetVariable assignments.
func (e *Engine) funcs(data map[string]any, depth int) template.FuncMap {
	funcs := baseFuncs()

	funcs["JCHostNameToIPAddress"] = e.hosts.ipAddress
	funcs["JCHostNamesToIPAddresses"] = e.hosts.ipAddresses
	funcs["JCHostNameToIPSegment"] = e.hosts.ipSegment

	funcs["JCSetVariable"] = func(name string, value any) string {
		if data != nil {
			data[name] = value
		}
		return ""
	}

	funcs["include"] = func(path string, incData any) (string, error) {
		if depth >= maxIncludeDepth {
			return "", fmt.Errorf("include %s: nested deeper than %d", path, maxIncludeDepth)
		}
		content, err := afero.ReadFile(e.fs, e.resolve(path))
		if err != nil {
			return "", fmt.Errorf("include %s: %w", path, err)
		}
		tmpl, err := e.parse(path, string(content))
		if err != nil {
			return "", fmt.Errorf("include %s: %w", path, err)
		}

		m, ok := incData.(map[string]any)
		if !ok {
			m = data
		}
		return e.execute(tmpl, m, depth+1)
	}

	return funcs
}
