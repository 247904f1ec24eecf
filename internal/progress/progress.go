// Package progress implements a progress-sink capability: a
// `Report(message, increment)` method the pipeline calls after each file
// and a `Done` method called once at the end,
// decoupled from how progress is actually displayed. The CLI wires this to
// a terminal bar; a headless caller wires it to a no-op or to structured
// log lines.
package progress

import (
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Sink is the capability the pipeline depends on. Report is called once
// per unit of work completed; message is a short human-readable label
// (typically the file just processed), increment is usually 1.
type Sink interface {
	Report(message string, increment int)
	Done()
}

// noop discards all progress reports; used by callers that don't want
// terminal output (tests, library embedding, non-interactive CI).
type noop struct{}

func (noop) Report(string, int) {}
func (noop) Done()              {}

// Noop returns a Sink that does nothing.
func Noop() Sink { return noop{} }

// bar wraps schollz/progressbar/v3 for an interactive terminal.
type bar struct {
	pb *progressbar.ProgressBar
}

// NewBar returns a terminal progress bar sink sized to total units of
// work, with colored status via fatih/color. If out is not a terminal
// (isatty reports false, e.g. piped output or a log file), it falls back
// to plain structured log lines via slog so redirected output stays
// readable instead of filling with control codes.
func NewBar(out io.Writer, fd uintptr, total int) Sink {
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return &logSink{total: total}
	}
	pb := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(color.CyanString("analyzing")),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &bar{pb: pb}
}

func (b *bar) Report(message string, increment int) {
	b.pb.Describe(color.CyanString(message))
	_ = b.pb.Add(increment)
}

func (b *bar) Done() {
	_ = b.pb.Finish()
}

// logSink reports progress as structured log lines, for non-interactive
// output streams.
type logSink struct {
	total int
	done  int
}

func (l *logSink) Report(message string, increment int) {
	l.done += increment
	slog.Info("progress", "message", message, "done", l.done, "total", l.total)
}

func (l *logSink) Done() {
	slog.Info("progress.done", "total", l.total)
}
