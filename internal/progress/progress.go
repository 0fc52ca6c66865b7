// Package progress renders terminal feedback for long-running steps:
// a byte-count bar for archive downloads and a spinner for subprocesses
// (git clone, 7z extraction) that give no incremental output of their own.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// IsTerminalFunc reports whether a file descriptor is a terminal.
// Tests override it.
var IsTerminalFunc = term.IsTerminal

const (
	lineWidth      = 80
	barWidth       = 30
	redrawInterval = 100 * time.Millisecond
)

// Writer wraps an io.Writer and redraws a progress line on output as bytes
// pass through.
type Writer struct {
	mu        sync.Mutex
	dst       io.Writer
	output    io.Writer
	label     string
	total     int64
	written   int64
	startTime time.Time
	lastDraw  time.Time
}

// NewWriter creates a progress writer for a transfer of total bytes.
// A total <= 0 means the size is unknown and only throughput is shown.
func NewWriter(dst io.Writer, total int64, output io.Writer) *Writer {
	return &Writer{
		dst:       dst,
		output:    output,
		total:     total,
		startTime: time.Now(),
	}
}

// WithLabel sets a short prefix (typically the archive name) shown before the bar.
func (pw *Writer) WithLabel(label string) *Writer {
	pw.label = label
	return pw
}

// Write implements io.Writer.
func (pw *Writer) Write(p []byte) (int, error) {
	n, err := pw.dst.Write(p)
	if n > 0 {
		pw.mu.Lock()
		pw.written += int64(n)
		pw.draw(time.Now())
		pw.mu.Unlock()
	}
	return n, err
}

// Written returns the number of bytes passed through so far.
func (pw *Writer) Written() int64 {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.written
}

// Finish clears the progress line.
func (pw *Writer) Finish() {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	fmt.Fprintf(pw.output, "\r%s\r", strings.Repeat(" ", lineWidth))
}

func (pw *Writer) draw(now time.Time) {
	if now.Sub(pw.lastDraw) < redrawInterval {
		return
	}
	elapsed := now.Sub(pw.startTime).Seconds()
	if elapsed < redrawInterval.Seconds() {
		return
	}
	pw.lastDraw = now

	speed := float64(pw.written) / elapsed
	prefix := "   "
	if pw.label != "" {
		prefix += pw.label + " "
	}

	var line string
	if pw.total > 0 {
		percent := min(float64(pw.written)/float64(pw.total)*100, 100)
		eta := "--:--"
		if speed > 0 {
			eta = formatDuration(float64(pw.total-pw.written) / speed)
		}
		line = fmt.Sprintf("\r%s[%s] %3.0f%% (%s/%s) %s/s ETA: %s",
			prefix, renderBar(percent), percent,
			formatBytes(pw.written), formatBytes(pw.total),
			formatBytes(int64(speed)), eta)
	} else {
		line = fmt.Sprintf("\r%sDownloaded: %s (%s/s)",
			prefix, formatBytes(pw.written), formatBytes(int64(speed)))
	}

	if len(line) < lineWidth {
		line += strings.Repeat(" ", lineWidth-len(line))
	}
	_, _ = fmt.Fprint(pw.output, line)
}

func renderBar(percent float64) string {
	filled := min(int(percent/100*barWidth), barWidth)
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-filled-1)
	}
	return bar
}

// formatBytes renders a byte count with binary units ("1.5 MiB").
func formatBytes(b int64) string {
	if b < 0 {
		b = 0
	}
	return humanize.IBytes(uint64(b))
}

// formatDuration formats seconds as M:SS or H:MM:SS.
func formatDuration(seconds float64) string {
	s := max(int(seconds), 0)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// ShouldShowProgress reports whether stdout is a terminal.
func ShouldShowProgress() bool {
	return IsTerminalFunc(int(os.Stdout.Fd()))
}
