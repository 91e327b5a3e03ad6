package generate

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venkatbhat62/JaaduConfig/internal/params"
	"github.com/venkatbhat62/JaaduConfig/internal/platform"
	"github.com/venkatbhat62/JaaduConfig/internal/resolver"
)

const testSpec = `
LogFilePath: /work/logs
OS:
  Linux:
    Timeout: 30
Component:
  All:
    Retries: 3
    Site: {{ .JCSiteName }}
  db:
    HostName: dfwdb
    Retries: 5
`

func setupFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func testOptions(templates ...string) Options {
	return Options{
		Templates:        templates,
		HostName:         "dfwdb01.example.com",
		SitePrefixLength: 3,
		TemplatePath:     "/work/templates",
		ConfigPath:       "/work/conf",
		OS:               platform.Info{Type: "Linux", Name: "rhel", Version: "8"},
		Command:          "jcconfig generate",
		Now:              time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Resolver: resolver.Options{
			OnFatal: func(err error) { panic(err) },
		},
	}
}

func TestRun(t *testing.T) {
	fs := setupFS(t, map[string]string{
		"/work/templates/JCEnvironment.yml": testSpec,
		"/work/templates/app.conf":          "host={{ .JCHostName }} site={{ .Site }} timeout={{ .Timeout }} retries={{ .Retries }} component={{ .Component }}\n",
	})

	result, err := New(fs, testOptions("app.conf")).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/work/conf/app.conf.dfwdb01"}, result.Written)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, "/work/conf", result.ConfigPath)

	content, err := afero.ReadFile(fs, "/work/conf/app.conf.dfwdb01")
	require.NoError(t, err)
	assert.Equal(t, "host=dfwdb01 site=dfw timeout=30 retries=5 component=db\n", string(content))

	assert.Equal(t, params.Int(5), result.Parameters["Retries"])
	assert.Equal(t, params.String("/work/logs/"), result.Parameters["JCLogFilePath"])
}

func TestRunExplicitOutputsAndSkips(t *testing.T) {
	fs := setupFS(t, map[string]string{
		"/work/templates/JCEnvironment.yml": testSpec,
		"/work/templates/a.tmpl":            "a={{ .Retries }}",
		"/work/templates/c.tmpl":            "{{ JCSetVariable \"Port\" 8080 }}c={{ .Port }}",
	})

	opts := testOptions("a.tmpl", "missing.tmpl", "c.tmpl")
	opts.Outputs = []string{"a.cfg", "b.cfg", "sub/c.cfg"}

	result, err := New(fs, opts).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/work/conf/a.cfg", "/work/conf/sub/c.cfg"}, result.Written)
	assert.Equal(t, []string{"missing.tmpl"}, result.Skipped)

	content, err := afero.ReadFile(fs, "/work/conf/sub/c.cfg")
	require.NoError(t, err)
	assert.Equal(t, "c=8080", string(content))
}

func TestRunRenderFailure(t *testing.T) {
	fs := setupFS(t, map[string]string{
		"/work/templates/JCEnvironment.yml": testSpec,
		"/work/templates/bad.tmpl":          "{{ .NotDefined }}",
	})

	_, err := New(fs, testOptions("bad.tmpl")).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rendering bad.tmpl")
}

func TestRunSpecUnavailable(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		fs := setupFS(t, map[string]string{"/work/templates/app.conf": "x"})
		_, err := New(fs, testOptions("app.conf")).Run(context.Background())
		assert.True(t, errors.Is(err, ErrSpecUnavailable), "got %v", err)
	})

	t.Run("unrenderable", func(t *testing.T) {
		fs := setupFS(t, map[string]string{
			"/work/templates/JCEnvironment.yml": "A: {{ .Unknown }}\n",
			"/work/templates/app.conf":          "x",
		})
		_, err := New(fs, testOptions("app.conf")).Run(context.Background())
		assert.True(t, errors.Is(err, ErrSpecUnavailable), "got %v", err)
	})

	t.Run("unparsable", func(t *testing.T) {
		fs := setupFS(t, map[string]string{
			"/work/templates/JCEnvironment.yml": "A: [broken\n",
			"/work/templates/app.conf":          "x",
		})
		_, err := New(fs, testOptions("app.conf")).Run(context.Background())
		assert.True(t, errors.Is(err, ErrSpecUnavailable), "got %v", err)
	})
}

func TestRunRejectsBadOptions(t *testing.T) {
	fs := setupFS(t, map[string]string{
		"/work/templates/JCEnvironment.yml": testSpec,
		"/work/templates/app.conf":          "x",
	})

	opts := testOptions("app.conf")
	opts.ConfigPath = "/work/templates/"
	_, err := New(fs, opts).Run(context.Background())
	assert.True(t, errors.Is(err, ErrSamePaths), "got %v", err)

	opts = testOptions()
	_, err = New(fs, opts).Run(context.Background())
	assert.ErrorContains(t, err, "no templates given")

	opts = testOptions("app.conf")
	opts.Outputs = []string{"a", "b"}
	_, err = New(fs, opts).Run(context.Background())
	assert.ErrorContains(t, err, "2 output names given for 1 templates")

	opts = testOptions("app.conf")
	opts.TemplatePath = "/nowhere"
	_, err = New(fs, opts).Run(context.Background())
	assert.ErrorContains(t, err, "not a directory")
}

func TestResolveWithInclude(t *testing.T) {
	fs := setupFS(t, map[string]string{
		"/work/templates/JCEnvironment.yml": "Platform: {{ .JCOSName }}\n{{ include \"components.yml\" . }}",
		"/work/templates/components.yml":    "Component:\n  db:\n    HostName: ^{{ .JCSiteName3Chars }}db\n    Role: primary\n",
	})

	result, err := New(fs, testOptions()).Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, params.String("rhel"), result.Parameters["Platform"])
	assert.Equal(t, params.String("primary"), result.Parameters["Role"])
	assert.Equal(t, params.String("db"), result.Parameters["Component"])
	assert.Equal(t, params.String("jcconfig generate"), result.Parameters["JCCommand"])

	entries, err := afero.Glob(fs, os.TempDir()+"/jcconfig*")
	require.NoError(t, err)
	assert.Empty(t, entries, "rendered spec is removed")
}

func TestResolveTOMLSpec(t *testing.T) {
	fs := setupFS(t, map[string]string{
		"/work/templates/env.toml": "[Component.db]\nHostName = \"^dfw\"\nSite = \"{{ .JCSiteName }}\"\n",
	})

	opts := testOptions()
	opts.SpecFile = "env.toml"
	result, err := New(fs, opts).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, params.String("dfw"), result.Parameters["Site"])
}

// stickyFs refuses to remove anything.
type stickyFs struct {
	afero.Fs
}

func (stickyFs) RemoveAll(string) error { return errors.New("device busy") }

func TestResolveKeepsGoingWhenTempDirStays(t *testing.T) {
	fs := stickyFs{setupFS(t, map[string]string{
		"/work/templates/JCEnvironment.yml": testSpec,
	})}

	result, err := New(fs, testOptions()).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, params.Int(5), result.Parameters["Retries"])
}

func TestResolvedConfigPathIsUsed(t *testing.T) {
	fs := setupFS(t, map[string]string{
		"/work/templates/JCEnvironment.yml": "OS:\n  Linux:\n    JCConfigPath: /etc/app\n",
		"/work/templates/app.conf":          "ok",
	})

	result, err := New(fs, testOptions("app.conf")).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/etc/app/app.conf.dfwdb01"}, result.Written)
}

func TestDefaultTemplatePath(t *testing.T) {
	fs := afero.NewMemMapFs()
	assert.Equal(t, ".", DefaultTemplatePath(fs))

	require.NoError(t, fs.MkdirAll(DefaultTemplateDir, 0o755))
	assert.Equal(t, DefaultTemplateDir, DefaultTemplatePath(fs))
}

func TestOutputNames(t *testing.T) {
	names, err := OutputNames([]string{"app.conf", "sub/db.ini"}, nil, "web01")
	require.NoError(t, err)
	assert.Equal(t, []string{"app.conf.web01", "db.ini.web01"}, names)

	names, err = OutputNames([]string{"a"}, []string{"x"}, "web01")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, names)
}
