// Package dynvars computes parameter values by running commands on the host
// and evaluates the conditions that gate spec scopes.
package dynvars

import (
	"context"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/venkatbhat62/JaaduConfig/internal/command"
	"github.com/venkatbhat62/JaaduConfig/internal/logging"
	"github.com/venkatbhat62/JaaduConfig/internal/params"
	"github.com/venkatbhat62/JaaduConfig/internal/parser"
)

// ShellParameter names the parameter that overrides the configured shell.
const ShellParameter = "JCCommandShell"

var referencePattern = regexp.MustCompile(`\{\{ (\w+) \}\}`)

// Evaluator runs variable and condition commands.
type Evaluator struct {
	Runner          command.Runner
	Shell           string
	Timeout         time.Duration
	AllowedCommands []string
	OSType          string
	Coercer         params.Coercer
}

// Stats counts the outcome of one ParseVariables call.
type Stats struct {
	Stored   int
	Warnings int
}

// ParseVariables computes every name: command entry of defs and stores the
// first output line of each into p. Commands that are not allowed, fail or
// time out are logged and leave the variable absent.
func (e *Evaluator) ParseVariables(ctx context.Context, scope string, defs *parser.Mapping, overwrite bool, p params.Params) Stats {
	logger := logging.GetLogger("dynvars")

	var stats Stats
	for _, name := range defs.Keys() {
		cmdText, ok := defs.String(name)
		if !ok {
			logger.Warn().Str("scope", scope).Str("variable", name).Msg("Variable definition is not a command string, skipped")
			stats.Warnings++
			continue
		}

		res, ok := e.run(ctx, scope, name, cmdText, p)
		if !ok {
			stats.Warnings++
			continue
		}

		value := e.Coercer.Coerce(name, res.FirstLine())
		if p.Store(name, value, overwrite) {
			stats.Stored++
		}
		logger.Debug().
			Str("scope", scope).
			Str("variable", name).
			Str("command", cmdText).
			Stringer("value", value).
			Msg("Computed variable")
	}

	logger.Debug().
		Str("scope", scope).
		Int("stored", stats.Stored).
		Int("warnings", stats.Warnings).
		Msg("Parsed variables")
	return stats
}

// EvaluateCondition runs cmdText and compares its output with condition.
// A failing or disallowed command never meets the condition.
func (e *Evaluator) EvaluateCondition(ctx context.Context, scope, cmdText, condition string, p params.Params) bool {
	logger := logging.GetLogger("dynvars")

	res, ok := e.run(ctx, scope, "Condition", cmdText, p)
	if !ok {
		return false
	}

	met, err := Compare(res.Lines, condition)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("scope", scope).
			Str("condition", condition).
			Msg("Cannot evaluate condition")
		return false
	}

	logger.Debug().
		Str("scope", scope).
		Str("command", cmdText).
		Str("condition", condition).
		Bool("met", met).
		Msg("Evaluated condition")
	return met
}

func (e *Evaluator) run(ctx context.Context, scope, name, cmdText string, p params.Params) (command.Result, bool) {
	logger := logging.GetLogger("dynvars")

	if ok, msg := command.IsSupported(cmdText, e.AllowedCommands, e.OSType); !ok {
		logger.Warn().
			Str("scope", scope).
			Str("variable", name).
			Str("command", cmdText).
			Str("reason", msg).
			Msg("Command not allowed")
		return command.Result{}, false
	}

	expanded, _ := Substitute(p, cmdText)
	expanded = ExpandEnv(expanded)

	shell := e.Shell
	if s, ok := p.Lookup(ShellParameter); ok && s != "" {
		shell = s
	}

	res := e.Runner.Execute(ctx, shell, expanded, e.Timeout, e.OSType)
	if !res.OK {
		logger.Warn().
			Str("scope", scope).
			Str("variable", name).
			Str("command", expanded).
			Bool("timedOut", res.TimedOut).
			Str("error", res.Err).
			Msg("Command failed, value unavailable")
		return res, false
	}
	return res, true
}

// Substitute replaces each {{ name }} in s with the value of name from p.
// References to unknown names are left as they are. It reports whether any
// reference was replaced.
func Substitute(p params.Params, s string) (string, bool) {
	replaced := false
	out := referencePattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := referencePattern.FindStringSubmatch(ref)[1]
		value, ok := p.Lookup(name)
		if !ok {
			return ref
		}
		replaced = true
		return value
	})
	return out, replaced
}

// ExpandEnv expands $name and ${name} from the process environment. Unset
// variables are kept verbatim so the result still shows what was missing.
func ExpandEnv(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return os.Expand(s, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "${" + name + "}"
	})
}
