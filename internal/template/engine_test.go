package template

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeLookup(table map[string][]string) LookupFunc {
	return func(_ context.Context, host string) ([]string, error) {
		if addrs, ok := table[host]; ok {
			return addrs, nil
		}
		return nil, errors.New("no such host")
	}
}

func newTestEngine(t *testing.T, files map[string]string) *Engine {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return New(fs, "/templates", WithLookup(fakeLookup(map[string][]string{
		"db01":  {"fe80::1", "10.1.2.3"},
		"web01": {"10.1.2.4"},
		"v6":    {"::1"},
	})))
}

func TestRenderString(t *testing.T) {
	e := newTestEngine(t, nil)

	tests := []struct {
		name     string
		template string
		data     map[string]any
		want     string
	}{
		{"simple", "{{ .Name }}", map[string]any{"Name": "web"}, "web"},
		{"int", "port={{ .Port }}", map[string]any{"Port": int64(8080)}, "port=8080"},
		{"upper", "{{ upper .Name }}", map[string]any{"Name": "web"}, "WEB"},
		{"title", "{{ title .Name }}", map[string]any{"Name": "web server"}, "Web Server"},
		{"indent", "{{ indent 2 .Text }}", map[string]any{"Text": "a\n\nb"}, "  a\n\n  b"},
		{"sprig default", `{{ .Empty | default "fallback" }}`, map[string]any{"Empty": ""}, "fallback"},
		{"sprig trunc", "{{ trunc 3 .Name }}", map[string]any{"Name": "webserver"}, "web"},
		{"JCString range", "{{ JCString .Host 0 3 }}", map[string]any{"Host": "dfwhost01"}, "dfw"},
		{"JCString open end", "{{ JCString .Host 3 }}", map[string]any{"Host": "dfwhost01"}, "host01"},
		{"JCString negative", "{{ JCString .Host -2 }}", map[string]any{"Host": "dfwhost01"}, "01"},
		{"JCString past end", "{{ JCString .Host 5 100 }}", map[string]any{"Host": "dfw"}, ""},
		{"contains subject first", `{{ contains .Host "db" }}`, map[string]any{"Host": "dfwdb01"}, "true"},
		{"contains piped value is the substring", `{{ "db" | contains .Host }}`, map[string]any{"Host": "dfwdb01"}, "true"},
		{"hasPrefix subject first", `{{ hasPrefix .Host "dfw" }}`, map[string]any{"Host": "dfwdb01"}, "true"},
		{"replace subject first", `{{ replace .Host "db" "web" }}`, map[string]any{"Host": "dfwdb01"}, "dfwweb01"},
		{"split subject first", `{{ index (split .List ",") 1 }}`, map[string]any{"List": "a,b,c"}, "b"},
		{"JCString int64 args", "{{ JCString .Host 0 .Len }}", map[string]any{"Host": "dfwhost01", "Len": int64(4)}, "dfwh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.RenderString(tt.template, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderStringMissingVariable(t *testing.T) {
	e := newTestEngine(t, nil)

	_, err := e.RenderString("{{ .Missing }}", map[string]any{"Name": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing")

	_, err = e.RenderString("{{ .Broken", nil)
	assert.ErrorContains(t, err, "parsing template")
}

func TestJCSetVariable(t *testing.T) {
	e := newTestEngine(t, nil)
	data := map[string]any{"JCHostName": "dfwhost01"}

	got, err := e.RenderString(`{{ JCSetVariable "JCSiteName" (JCString .JCHostName 0 3) }}site={{ .JCSiteName }}`, data)
	require.NoError(t, err)
	assert.Equal(t, "site=dfw", got)
	assert.Equal(t, "dfw", data["JCSiteName"])
}

func TestHostFunctions(t *testing.T) {
	e := newTestEngine(t, nil)
	data := map[string]any{"Hosts": []any{"db01", "missing", "web01"}}

	tests := []struct {
		template string
		want     string
	}{
		{`{{ JCHostNameToIPAddress "db01" }}`, "10.1.2.3"},
		{`{{ JCHostNameToIPAddress "v6" }}`, "::1"},
		{`[{{ JCHostNameToIPAddress "missing" }}]`, "[]"},
		{`{{ JCHostNameToIPSegment "web01" }}`, "10.1.2"},
		{`{{ JCHostNameToIPSegment "missing" }}`, LookupFailed},
		{`{{ join "," (JCHostNamesToIPAddresses .Hosts) }}`, "10.1.2.3," + LookupFailed + ",10.1.2.4"},
		{`{{ join "," (JCHostNamesToIPAddresses "web01, db01") }}`, "10.1.2.4,10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			got, err := e.RenderString(tt.template, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFileAndRender(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"/templates/app.conf": "host={{ .JCHostName }}\n",
		"/abs/other.conf":     "other={{ .JCHostName }}",
	})
	data := map[string]any{"JCHostName": "web01"}

	require.NoError(t, e.LoadFile("app", "app.conf"))
	got, err := e.Render("app", data)
	require.NoError(t, err)
	assert.Equal(t, "host=web01\n", got)

	got, err = e.RenderFile("/abs/other.conf", data)
	require.NoError(t, err)
	assert.Equal(t, "other=web01", got)

	_, err = e.Render("nope", data)
	assert.ErrorContains(t, err, `template "nope" not found`)

	err = e.LoadFile("missing", "missing.conf")
	assert.ErrorContains(t, err, "reading template file")
}

func TestInclude(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"/templates/main.yml":   "A: 1\n{{ include \"common.yml\" . }}",
		"/templates/common.yml": "{{ JCSetVariable \"FromInclude\" \"yes\" }}Host: {{ .JCHostName }}\n",
		"/templates/loop.yml":   "{{ include \"loop.yml\" . }}",
	})
	data := map[string]any{"JCHostName": "web01"}

	got, err := e.RenderFile("main.yml", data)
	require.NoError(t, err)
	assert.Equal(t, "A: 1\nHost: web01\n", got)
	assert.Equal(t, "yes", data["FromInclude"])

	_, err = e.RenderFile("loop.yml", data)
	assert.ErrorContains(t, err, "nested deeper than")

	_, err = e.RenderString(`{{ include "absent.yml" . }}`, data)
	assert.ErrorContains(t, err, "include absent.yml")
}

func TestRenderIsolatesCalls(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.LoadString("set", `{{ JCSetVariable "X" .V }}{{ .X }}`))

	first := map[string]any{"V": "one"}
	second := map[string]any{"V": "two"}

	got, err := e.Render("set", first)
	require.NoError(t, err)
	assert.Equal(t, "one", got)

	got, err = e.Render("set", second)
	require.NoError(t, err)
	assert.Equal(t, "two", got)
	assert.Equal(t, "one", first["X"])
}

func TestRenderNilData(t *testing.T) {
	e := newTestEngine(t, nil)
	got, err := e.RenderString(`{{ JCSetVariable "A" "b" }}{{ .A }}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", got)
}
