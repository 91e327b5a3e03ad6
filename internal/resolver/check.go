package resolver

import (
	"fmt"

	"github.com/venkatbhat62/JaaduConfig/internal/dynvars"
	"github.com/venkatbhat62/JaaduConfig/internal/hostmatch"
	"github.com/venkatbhat62/JaaduConfig/internal/parser"
)

// Issue is a problem in a spec document that resolution would skip over
// with only a log line.
type Issue struct {
	Section string
	Scope   string
	Message string
}

func (i Issue) String() string {
	switch {
	case i.Scope != "":
		return fmt.Sprintf("%s.%s: %s", i.Section, i.Scope, i.Message)
	case i.Section != "":
		return fmt.Sprintf("%s: %s", i.Section, i.Message)
	default:
		return i.Message
	}
}

// ScopeSummary lists the scopes of one section in file order.
type ScopeSummary struct {
	Section string
	Scopes  []string
}

// Check inspects doc without running anything and returns its sections
// with their scopes, plus any issues found.
func Check(doc *parser.Mapping) ([]ScopeSummary, []Issue) {
	var summaries []ScopeSummary
	var issues []Issue

	for _, section := range sections {
		v, present := doc.Get(section)
		if !present {
			continue
		}
		scopes, ok := v.(*parser.Mapping)
		if !ok {
			issues = append(issues, Issue{Section: section, Message: "section is not a mapping"})
			continue
		}

		summary := ScopeSummary{Section: section}
		for _, key := range scopes.Keys() {
			summary.Scopes = append(summary.Scopes, key)

			scope, ok := scopes.Mapping(key)
			if !ok {
				issues = append(issues, Issue{Section: section, Scope: key, Message: "scope is not a mapping"})
				continue
			}
			issues = append(issues, checkScope(section, key, scope)...)
		}
		summaries = append(summaries, summary)
	}

	return summaries, issues
}

func checkScope(section, key string, scope *parser.Mapping) []Issue {
	var issues []Issue
	add := func(format string, args ...any) {
		issues = append(issues, Issue{Section: section, Scope: key, Message: fmt.Sprintf(format, args...)})
	}

	if section != SectionOS && !isAll(key) {
		pattern, ok := scope.String(KeyHostName)
		switch {
		case !ok:
			add("no %s pattern, scope never applies", KeyHostName)
		default:
			if _, err := hostmatch.Compile(pattern); err != nil {
				add("invalid %s pattern: %v", KeyHostName, err)
			}
		}
	}

	_, hasCommand := scope.String(KeyCommand)
	condition, hasCondition := scope.String(KeyCondition)
	switch {
	case hasCommand != hasCondition:
		add("%s and %s must be given together", KeyCommand, KeyCondition)
	case hasCondition && !dynvars.ValidCondition(condition):
		add("condition %q needs an operator followed by a value", condition)
	}

	if v, ok := scope.Get(KeyVariables); ok {
		if _, isMapping := v.(*parser.Mapping); !isMapping {
			add("%s must be a mapping of name: command", KeyVariables)
		}
	}

	return issues
}
