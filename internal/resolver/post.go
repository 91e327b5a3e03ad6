package resolver

import (
	"fmt"
	"strings"

	"github.com/venkatbhat62/JaaduConfig/internal/dynvars"
	"github.com/venkatbhat62/JaaduConfig/internal/params"
)

const (
	// PowerShellPath is tried on Windows when no CommandShell was resolved.
	PowerShellPath = "C:/Program Files/PowerShell/7/pwsh.exe"
	// PowerShellCommand is the CommandShell value used when PowerShellPath exists.
	PowerShellCommand = PowerShellPath + " -NonInteractive -command"
	// UndeterminedShell marks a Windows host without a known shell.
	UndeterminedShell = "TBD"

	// LogSubdir is appended to JCHome when no log path was given.
	LogSubdir = "Logs"

	DefaultSitePrefixLength = 3
)

// pathParameters may reference environment variables.
var pathParameters = []string{"JCHome", "JCLogFilePath", "JCConfigPath", "JCTemplatePath"}

// postProcess derives host-specific settings once all sections are applied.
func (r *Resolver) postProcess(p params.Params) {
	if r.opts.OSType == "Windows" && !p.Has("CommandShell") {
		shell := UndeterminedShell
		if _, err := r.fs.Stat(PowerShellPath); err == nil {
			shell = PowerShellCommand
		}
		p["CommandShell"] = params.String(shell)
		r.logger.Debug().Str("shell", shell).Msg("Windows command shell selected")
	}

	for _, name := range pathParameters {
		v, ok := p[name]
		if !ok {
			continue
		}
		if s, isString := v.AsString(); isString {
			p[name] = params.String(dynvars.ExpandEnv(s))
		}
	}

	logDir := r.logDirectory(p)
	p["JCLogFilePath"] = params.String(logDir)
	if err := r.fs.MkdirAll(logDir, 0o755); err != nil {
		r.opts.OnFatal(fmt.Errorf("creating log directory %s: %w", logDir, err))
	}

	if !p.Has("SitePrefixLength") {
		p["SitePrefixLength"] = params.Int(DefaultSitePrefixLength)
	}
}

// logDirectory picks the log directory: JCLogFilePath, then LogFilePath,
// then JCHome/Logs, then ./Logs. The result always ends with a separator.
func (r *Resolver) logDirectory(p params.Params) string {
	var dir string
	switch {
	case nonEmpty(p, "JCLogFilePath"):
		dir, _ = p.Lookup("JCLogFilePath")
	case nonEmpty(p, "LogFilePath"):
		dir, _ = p.Lookup("LogFilePath")
		dir = dynvars.ExpandEnv(dir)
	case nonEmpty(p, "JCHome"):
		home, _ := p.Lookup("JCHome")
		dir = strings.TrimRight(home, `/\`) + "/" + LogSubdir
	default:
		dir = "./" + LogSubdir
	}

	if !strings.HasSuffix(dir, "/") && !strings.HasSuffix(dir, `\`) {
		dir += "/"
	}
	return dir
}

func nonEmpty(p params.Params, name string) bool {
	s, ok := p.Lookup(name)
	return ok && s != ""
}
