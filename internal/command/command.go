// Package command runs the shell commands behind dynamic variables and
// condition checks, and decides which commands a spec may run at all.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/venkatbhat62/JaaduConfig/internal/logging"
)

// Result is the outcome of one command execution.
type Result struct {
	// OK is true when the command produced usable output. A non-zero exit
	// with nothing on stderr still counts, since tools such as diff and
	// grep report data through their exit status.
	OK bool

	// Lines holds stdout split into lines, trailing newlines removed.
	Lines []string

	// Err describes the failure when OK is false.
	Err string

	// TimedOut is set when the command was killed after the timeout.
	TimedOut bool
}

// FirstLine returns the first output line, or "" when there is none.
func (r Result) FirstLine() string {
	if len(r.Lines) == 0 {
		return ""
	}
	return r.Lines[0]
}

// Runner executes a command through a shell.
type Runner interface {
	Execute(ctx context.Context, shell, command string, timeout time.Duration, osType string) Result
}

// ShellRunner runs commands with os/exec.
type ShellRunner struct{}

// Execute runs command through shell. On Windows the shell and command
// form one command line; elsewhere the shell is split on spaces and the
// command passed as its last argument.
func (ShellRunner) Execute(ctx context.Context, shell, command string, timeout time.Duration, osType string) Result {
	logger := logging.GetLogger("command")

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := strings.Fields(shell)
	if osType == "Windows" {
		args = append(args, strings.Fields(command)...)
	} else {
		args = append(args, command)
	}
	if len(args) == 0 {
		return Result{Err: "no shell or command given"}
	}

	logger.Trace().Str("shell", shell).Str("command", command).Msg("Executing command")

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children of the shell may keep the output pipes open after a kill.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{
			TimedOut: true,
			Err:      fmt.Sprintf("timeout after %s executing %s %s", timeout, shell, command),
		}
	}

	lines := splitLines(stdout.String())
	if err == nil {
		return Result{OK: true, Lines: lines}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		errText := strings.TrimRight(normalizeNewlines(stderr.String()), "\n")
		if errText == "" {
			return Result{OK: true, Lines: lines}
		}
		return Result{
			Lines: lines,
			Err:   fmt.Sprintf("executing %s %s: %s", shell, command, errText),
		}
	}

	return Result{Err: fmt.Sprintf("executing %s %s: %v", shell, command, err)}
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func splitLines(s string) []string {
	s = strings.TrimRight(normalizeNewlines(s), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
