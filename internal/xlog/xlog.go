// Package xlog wraps log/slog the way malbeclabs-doublezero's CLI tree
// does: a leveled constructor that picks a colorized console handler for
// interactive use (tint) and plain JSON for everything else. This
// generalizes the teacher's hand-rolled LogLevel/ANSI-color logger into
// slog's structured-attribute model instead of reimplementing it.
package xlog

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Level names match the CLI's -v/-q flags and the teacher's DEBUG..ERROR scale.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a *slog.Logger. pretty selects the tint console handler
// (used by upload and download); when false a JSON handler is used, as
// start-server does, suited to piping server logs into log aggregation.
func New(level Level, pretty bool, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := level.slogLevel()
	if pretty {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			AddSource:  level == LevelDebug,
			NoColor:    false,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: level == LevelDebug,
	}))
}

// FromFlags maps the CLI's -v/-q booleans onto a Level, matching
// start-server/upload/download's documented flags.
func FromFlags(verbose, quiet bool) Level {
	switch {
	case verbose:
		return LevelDebug
	case quiet:
		return LevelError
	default:
		return LevelInfo
	}
}
