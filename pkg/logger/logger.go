package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/charliechat-core/server/internal/core"
)

type LoggerOpts struct {
	Environment core.Environment
	// Debug forces debug level regardless of environment.
	Debug bool
	// Output overrides the destination writer (stderr by default).
	Output io.Writer
}

// Init replaces the global logger. Production writes JSON at info level;
// every other environment writes colored console lines with callers at
// debug level.
func Init(opts LoggerOpts) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.DebugLevel
	var logger zerolog.Logger
	if opts.Environment.IsProduction() {
		level = zerolog.InfoLevel
		logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Caller().Logger()
	}
	if opts.Debug {
		level = zerolog.DebugLevel
	}
	log.Logger = logger.Level(level)
}

// DebugEnabled reports whether debug events are emitted.
func DebugEnabled() bool {
	return log.Logger.GetLevel() <= zerolog.DebugLevel
}

func Debug() *zerolog.Event { return log.Debug() }
func Info() *zerolog.Event  { return log.Info() }
func Warn() *zerolog.Event  { return log.Warn() }
func Error() *zerolog.Event { return log.Error() }
func Fatal() *zerolog.Event { return log.Fatal() }
