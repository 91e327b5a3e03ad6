// Package resolver turns an environment spec into the flat parameter set for
// one host.
//
// Sections are applied in a fixed order: top-level scalars, OS, Component,
// Environment. Inside a section an All (or ALL) scope only fills parameters
// that are still unset, while a scope selected for this host (by OS type for
// OS, by HostName pattern otherwise) overwrites. Environment therefore wins
// over Component, which wins over OS, and a host-specific value always beats
// an All default.
package resolver

import (
	"context"
	"errors"
	"io/fs"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/venkatbhat62/JaaduConfig/internal/command"
	"github.com/venkatbhat62/JaaduConfig/internal/config"
	"github.com/venkatbhat62/JaaduConfig/internal/dynvars"
	"github.com/venkatbhat62/JaaduConfig/internal/hostmatch"
	"github.com/venkatbhat62/JaaduConfig/internal/logging"
	"github.com/venkatbhat62/JaaduConfig/internal/params"
	"github.com/venkatbhat62/JaaduConfig/internal/parser"
)

// Section names in the spec.
const (
	SectionOS          = "OS"
	SectionComponent   = "Component"
	SectionEnvironment = "Environment"
)

// Scope keys with a special meaning. HostName is stored like any other
// entry; Variables, Command and Condition are not.
const (
	KeyHostName  = "HostName"
	KeyVariables = "Variables"
	KeyCommand   = "Command"
	KeyCondition = "Condition"
)

var sections = []string{SectionOS, SectionComponent, SectionEnvironment}

// Options configures a Resolver.
type Options struct {
	HostName          string
	OSType            string
	IntegerParameters []string
	FloatParameters   []string
	Format            parser.Format

	Shell           string
	CommandTimeout  time.Duration
	AllowedCommands []string
	Runner          command.Runner

	// OnFatal is called when the log directory cannot be created. It
	// defaults to logging at fatal level, which exits the process.
	OnFatal func(error)
}

// Resolver resolves spec documents for one host.
type Resolver struct {
	fs      afero.Fs
	opts    Options
	coercer params.Coercer
	eval    *dynvars.Evaluator
	logger  zerolog.Logger
}

// New creates a Resolver reading files from fsys.
func New(fsys afero.Fs, opts Options) *Resolver {
	logger := logging.GetLogger("resolver")

	if opts.Shell == "" {
		opts.Shell = config.DefaultShell
	}
	if opts.CommandTimeout == 0 {
		opts.CommandTimeout = config.DefaultCommandTimeout * time.Second
	}
	if opts.Runner == nil {
		opts.Runner = command.ShellRunner{}
	}
	if opts.OnFatal == nil {
		opts.OnFatal = func(err error) {
			logger.Fatal().Err(err).Msg("Cannot continue")
		}
	}
	opts.HostName = ShortHostName(opts.HostName)

	coercer := params.NewCoercer(opts.IntegerParameters, opts.FloatParameters)
	return &Resolver{
		fs:      fsys,
		opts:    opts,
		coercer: coercer,
		eval: &dynvars.Evaluator{
			Runner:          opts.Runner,
			Shell:           opts.Shell,
			Timeout:         opts.CommandTimeout,
			AllowedCommands: opts.AllowedCommands,
			OSType:          opts.OSType,
			Coercer:         coercer,
		},
		logger: logger,
	}
}

// ResolveFile reads the spec at path and resolves it on top of seed. It
// reports false, returning an unmodified copy of seed, when the file is
// missing or cannot be parsed. seed itself is never modified.
func (r *Resolver) ResolveFile(ctx context.Context, path string, seed params.Params) (params.Params, bool) {
	if _, err := r.fs.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Error().Str("path", path).Msg("Environment spec not found")
		} else {
			r.logger.Error().Err(err).Str("path", path).Msg("Cannot access environment spec")
		}
		return seed.Clone(), false
	}

	doc, err := parser.Load(r.fs, path, r.opts.Format)
	if err != nil {
		r.logger.Error().Err(err).Str("path", path).Msg("Cannot parse environment spec")
		return seed.Clone(), false
	}

	r.logger.Info().Str("path", path).Str("host", r.opts.HostName).Str("os", r.opts.OSType).Msg("Resolving environment spec")
	return r.Resolve(ctx, doc, seed), true
}

// Resolve applies doc on top of a copy of seed and runs post-processing.
func (r *Resolver) Resolve(ctx context.Context, doc *parser.Mapping, seed params.Params) params.Params {
	p := seed.Clone()

	r.applyGlobals(doc, p)
	for _, section := range sections {
		scopes, ok := doc.Mapping(section)
		if !ok {
			if _, present := doc.Get(section); present {
				r.logger.Warn().Str("section", section).Msg("Section is not a mapping, skipped")
			}
			continue
		}
		r.applySection(ctx, section, scopes, p)
	}

	r.postProcess(p)

	r.logger.Debug().Int("parameters", len(p)).Msg("Resolved parameters")
	return p
}

// applyGlobals copies top-level scalars such as LogFilePath and Platform.
func (r *Resolver) applyGlobals(doc *parser.Mapping, p params.Params) {
	for _, key := range doc.Keys() {
		if isSection(key) {
			continue
		}
		raw, ok := doc.String(key)
		if !ok {
			continue
		}
		p.Store(key, r.coercer.Coerce(key, raw), true)
	}
}

func (r *Resolver) applySection(ctx context.Context, section string, scopes *parser.Mapping, p params.Params) {
	for _, key := range scopes.Keys() {
		scope, ok := scopes.Mapping(key)
		if !ok {
			r.logger.Debug().Str("section", section).Str("scope", key).Msg("Scope is not a mapping, skipped")
			continue
		}

		if isAll(key) {
			r.applyScope(ctx, section, key, scope, false, p)
			continue
		}

		if !r.selected(section, key, scope) {
			continue
		}
		if r.applyScope(ctx, section, key, scope, true, p) {
			p.Store(section, params.String(key), true)
			r.logger.Info().Str("section", section).Str("scope", key).Msg("Scope matched")
		}
	}
}

// selected reports whether a non-All scope applies to this host.
func (r *Resolver) selected(section, key string, scope *parser.Mapping) bool {
	if section == SectionOS {
		return key == r.opts.OSType
	}

	pattern, ok := scope.String(KeyHostName)
	if !ok {
		return false
	}
	matched := hostmatch.Matches(pattern, r.opts.HostName)
	r.logger.Trace().
		Str("section", section).
		Str("scope", key).
		Str("pattern", pattern).
		Str("host", r.opts.HostName).
		Bool("matched", matched).
		Msg("HostName pattern checked")
	return matched
}

// applyScope stores the scope's parameters with the given precedence. It
// reports false when the scope's condition kept it from being applied.
func (r *Resolver) applyScope(ctx context.Context, section, key string, scope *parser.Mapping, overwrite bool, p params.Params) bool {
	name := section + "." + key

	if !r.conditionMet(ctx, name, scope, p) {
		r.logger.Debug().Str("scope", name).Msg("Condition not met, scope skipped")
		return false
	}

	for _, k := range scope.Keys() {
		if isReserved(k) {
			continue
		}
		raw, ok := scope.String(k)
		if !ok {
			r.logger.Debug().Str("scope", name).Str("key", k).Msg("Non-scalar value skipped")
			continue
		}
		if p.Store(k, r.coercer.Coerce(k, raw), overwrite) {
			r.logger.Trace().Str("scope", name).Str("key", k).Bool("overwrite", overwrite).Msg("Parameter stored")
		}
	}

	if v, ok := scope.Get(KeyVariables); ok {
		defs, isMapping := v.(*parser.Mapping)
		if !isMapping {
			r.logger.Warn().Str("scope", name).Msg("Variables must be a mapping of name: command, skipped")
		} else {
			r.eval.ParseVariables(ctx, name, defs, overwrite, p)
		}
	}
	return true
}

// conditionMet evaluates Command/Condition gating. Scopes without either
// key are always applied.
func (r *Resolver) conditionMet(ctx context.Context, name string, scope *parser.Mapping, p params.Params) bool {
	cmdText, hasCommand := scope.String(KeyCommand)
	condition, hasCondition := scope.String(KeyCondition)

	switch {
	case !hasCommand && !hasCondition:
		return true
	case hasCommand != hasCondition:
		r.logger.Warn().
			Str("scope", name).
			Msgf("%s and %s must be given together, scope skipped", KeyCommand, KeyCondition)
		return false
	}
	return r.eval.EvaluateCondition(ctx, name, cmdText, condition, p)
}

func isAll(key string) bool {
	return key == "All" || key == "ALL"
}

func isSection(key string) bool {
	return slices.Contains(sections, key)
}

func isReserved(key string) bool {
	switch key {
	case KeyVariables, KeyCommand, KeyCondition:
		return true
	}
	return false
}
