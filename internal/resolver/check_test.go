package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venkatbhat62/JaaduConfig/internal/parser"
)

func TestCheck(t *testing.T) {
	doc, err := parser.ParseYAML([]byte(`
LogFilePath: /tmp
OS:
  All:
    A: 1
  Linux:
    B: 2
Component:
  web:
    HostName: web
  broken:
    HostName: "web("
  nohost:
    C: 3
  gated:
    HostName: db
    Command: nproc
  badcond:
    HostName: db
    Command: nproc
    Condition: four
  vars:
    HostName: db
    Variables: uname
Environment: prod
`))
	require.NoError(t, err)

	summaries, issues := Check(doc)

	assert.Equal(t, []ScopeSummary{
		{Section: SectionOS, Scopes: []string{"All", "Linux"}},
		{Section: SectionComponent, Scopes: []string{"web", "broken", "nohost", "gated", "badcond", "vars"}},
	}, summaries)

	var got []string
	for _, issue := range issues {
		got = append(got, issue.String())
	}
	require.Len(t, got, 6)
	assert.Contains(t, got[0], "Component.broken: invalid HostName pattern")
	assert.Equal(t, "Component.nohost: no HostName pattern, scope never applies", got[1])
	assert.Equal(t, "Component.gated: Command and Condition must be given together", got[2])
	assert.Equal(t, `Component.badcond: condition "four" needs an operator followed by a value`, got[3])
	assert.Equal(t, "Component.vars: Variables must be a mapping of name: command", got[4])
	assert.Equal(t, "Environment: section is not a mapping", got[5])
}

func TestCheckCleanSpec(t *testing.T) {
	doc, err := parser.ParseYAML([]byte("OS:\n  Linux:\n    A: 1\nEnvironment:\n  All:\n    B: 2\n  prod:\n    HostName: ^prd\n    Command: nproc\n    Condition: \"> 2\"\n"))
	require.NoError(t, err)

	_, issues := Check(doc)
	assert.Empty(t, issues)
}
