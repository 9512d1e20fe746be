package provision

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// ProgressFunc receives download progress. total is -1 when the server did not
// declare a Content-Length.
type ProgressFunc func(artifact Artifact, received, total int64)

// progressWriter counts bytes flowing through an io.TeeReader.
type progressWriter struct {
	report   ProgressFunc
	artifact Artifact
	total    int64
	received int64
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.received += int64(len(p))
	if w.report != nil {
		w.report(w.artifact, w.received, w.total)
	}
	return len(p), nil
}

// ConsoleReporter renders concurrent download progress on a single console line
// when out is a terminal, and logs every 10% otherwise.
type ConsoleReporter struct {
	out      io.Writer
	logger   *slog.Logger
	state    map[Artifact]progressState
	logged   map[Artifact]int64
	mu       sync.Mutex
	terminal bool
}

type progressState struct {
	received int64
	total    int64
}

// NewConsoleReporter creates a reporter writing to out. Off a terminal, milestones go
// to logger; nil selects slog.Default.
func NewConsoleReporter(out io.Writer, logger *slog.Logger) *ConsoleReporter {
	if logger == nil {
		logger = slog.Default()
	}

	terminal := false
	if f, ok := out.(*os.File); ok {
		terminal = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return &ConsoleReporter{
		out:      out,
		logger:   logger,
		terminal: terminal,
		state:    make(map[Artifact]progressState),
		logged:   make(map[Artifact]int64),
	}
}

// Report implements ProgressFunc.
func (r *ConsoleReporter) Report(artifact Artifact, received, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state[artifact] = progressState{received: received, total: total}

	if r.terminal {
		fmt.Fprintf(r.out, "\r%s", r.line())
		return
	}

	if total <= 0 {
		return
	}

	decile := received * 10 / total
	if decile >= r.logged[artifact] {
		r.logged[artifact] = decile + 1
		r.logger.Info("Download progress",
			"artifact", artifact.String(),
			"received", humanize.Bytes(uint64(received)),
			"total", humanize.Bytes(uint64(total)),
			"percent", decile*10,
		)
	}
}

// Done terminates the progress line.
func (r *ConsoleReporter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.terminal && len(r.state) > 0 {
		fmt.Fprintln(r.out)
	}
}

// line renders every artifact seen so far, in a stable order.
func (r *ConsoleReporter) line() string {
	parts := make([]string, 0, len(r.state))
	for _, a := range []Artifact{ArtifactExecutable, ArtifactWeights} {
		s, ok := r.state[a]
		if !ok {
			continue
		}
		parts = append(parts, FormatProgress(a, s.received, s.total))
	}

	return strings.Join(parts, "  |  ")
}

// FormatProgress renders a single progress entry, e.g.
// "weights 1.2 GB / 4.2 GB (28.6%)".
func FormatProgress(artifact Artifact, received, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("%s %s", artifact, humanize.Bytes(uint64(received)))
	}

	pct := float64(received) / float64(total) * 100
	return fmt.Sprintf("%s %s / %s (%.1f%%)",
		artifact,
		humanize.Bytes(uint64(received)),
		humanize.Bytes(uint64(total)),
		pct,
	)
}
