// Package logx builds the program's pslog loggers and adds the fields the
// viewer and chat layers annotate their log lines with.
package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
)

// New returns a logger writing to w. Structured output is JSON lines;
// otherwise the console format is used.
func New(w io.Writer, level string, structured bool) pslog.Logger {
	opts := pslog.Options{Mode: pslog.ModeConsole, NoColor: true, MinLevel: pslog.InfoLevel}
	if structured {
		opts.Mode = pslog.ModeStructured
		opts.VerboseFields = true
	}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "warn", "warning":
		opts.MinLevel = pslog.WarnLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	}
	return pslog.NewWithOptions(w, opts)
}

// Discard returns a logger that drops everything.
func Discard() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true, MinLevel: pslog.ErrorLevel})
}

// Or returns log, or a discarding logger when log is nil.
func Or(log pslog.Logger) pslog.Logger {
	if log == nil {
		return Discard()
	}
	return log
}

// Ctx returns the logger bound to ctx.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// OpenFile opens path for appending, creating parent directories.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// WithDocument annotates the logger with the document path when known.
func WithDocument(log pslog.Logger, path string) pslog.Logger {
	if path != "" {
		log = log.With("document", filepath.Base(path))
	}
	return log
}

// WithPage annotates the logger with a render tag.
func WithPage(log pslog.Logger, seq uint64, page int, scale float64) pslog.Logger {
	return log.With("render_seq", seq, "page", page, "scale", scale)
}

// WithJob annotates the logger with a background job.
func WithJob(log pslog.Logger, kind, id string) pslog.Logger {
	if kind != "" {
		log = log.With("job", kind)
	}
	if id != "" {
		log = log.With("job_id", id)
	}
	return log
}
