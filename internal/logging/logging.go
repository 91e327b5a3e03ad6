package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelForDebug maps the -D debug level onto a zerolog level:
// 0 warn, 1 info, 2 debug, 3 and above trace.
func LevelForDebug(debugLevel int) zerolog.Level {
	switch {
	case debugLevel <= 0:
		return zerolog.WarnLevel
	case debugLevel == 1:
		return zerolog.InfoLevel
	case debugLevel == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// Setup configures the global logger. Output goes to stderr through a
// console writer and, when logFile is set, is appended to that file too.
// The returned closer releases the log file; it is never nil.
func Setup(debugLevel int, logFile string, noColor bool) (io.Closer, error) {
	zerolog.SetGlobalLevel(LevelForDebug(debugLevel))

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}

	writers := []io.Writer{consoleWriter}
	var closer io.Closer = nopCloser{}
	var fileErr error

	if logFile != "" {
		f, err := openLogFile(logFile)
		if err != nil {
			fileErr = err
		} else {
			writers = append(writers, f)
			closer = f
		}
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()

	if debugLevel >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	if fileErr != nil {
		log.Warn().Err(fileErr).Str("path", logFile).Msg("Failed to open log file, logging to console only")
	}

	log.Debug().Int("debugLevel", debugLevel).Str("logFile", logFile).Msg("Logger initialized")
	return closer, fileErr
}

// GetLogger returns a logger tagged with the given component name.
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// openLogFile opens logPath for appending, creating parent directories.
func openLogFile(logPath string) (*os.File, error) {
	if dir := filepath.Dir(logPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
