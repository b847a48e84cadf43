package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"itcharchive/pkg/scraper"
)

const barWidth = 20

// ProgressDisplay renders scrape progress. On a terminal it redraws a single
// status line; otherwise it prints one line per processed project.
type ProgressDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	redraw    bool
	quiet     bool
	debug     bool
	startTime time.Time
	printed   int // messages already printed in line mode
	lastLen   int
}

// NewProgressDisplay creates a display writing to the UI output
func NewProgressDisplay(debug bool) *ProgressDisplay {
	w, quiet := writer()
	return &ProgressDisplay{
		out:       w,
		redraw:    IsInteractive() && !debug,
		quiet:     quiet,
		debug:     debug,
		startTime: time.Now(),
	}
}

// newProgressDisplayTo is used by tests to render into a buffer
func newProgressDisplayTo(w io.Writer, redraw bool) *ProgressDisplay {
	return &ProgressDisplay{out: w, redraw: redraw, startTime: time.Now()}
}

// Attach subscribes the display to p
func (d *ProgressDisplay) Attach(p *scraper.Progress) {
	p.OnChange(d.Update)
}

// Update renders a snapshot
func (d *ProgressDisplay) Update(s scraper.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.quiet {
		return
	}
	if d.redraw {
		d.printStatusLine(s)
		return
	}
	for ; d.printed < len(s.Messages); d.printed++ {
		fmt.Fprintf(d.out, "%s %s\n", Dim(fmt.Sprintf("[%d/%d]", s.Processed(), s.Total)), s.Messages[d.printed])
	}
}

func (d *ProgressDisplay) printStatusLine(s scraper.Snapshot) {
	line := fmt.Sprintf("%s %s %d/%d", Cyan(s.Creator), Bar(s.Processed(), s.Total, barWidth), s.Processed(), s.Total)
	if s.Skipped > 0 {
		line += " • " + Yellow(fmt.Sprintf("%d skipped", s.Skipped))
	}
	if s.Current != "" {
		line += " • " + Dim(shorten(s.Current, 50))
	}

	pad := ""
	if n := visibleLen(line); n < d.lastLen {
		pad = strings.Repeat(" ", d.lastLen-n)
	}
	d.lastLen = visibleLen(line)
	fmt.Fprintf(d.out, "\r%s%s", line, pad)
}

// Complete prints the closing summary for a finished run
func (d *ProgressDisplay) Complete(s scraper.Snapshot, archivePath string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.quiet {
		return
	}
	if d.redraw {
		fmt.Fprintln(d.out)
	}

	elapsed := time.Since(d.startTime)
	fmt.Fprintf(d.out, "\n%s Archived %d of %d projects from %s\n",
		Green("✓"), s.Completed, s.Total, s.Creator)
	fmt.Fprintf(d.out, "  %s %s in %s\n", Dim("•"), filepath.Base(archivePath), FormatDuration(elapsed))
	if s.Skipped > 0 {
		fmt.Fprintf(d.out, "  %s %d projects skipped\n", Dim("•"), s.Skipped)
	}
}

// Bar returns a text progress bar of width cells
func Bar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("━", filled) + strings.Repeat("─", width-filled) + "]"
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// visibleLen counts runes outside ANSI escape sequences
func visibleLen(s string) int {
	n, inEscape := 0, false
	for _, r := range s {
		switch {
		case r == '\033':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			n++
		}
	}
	return n
}
