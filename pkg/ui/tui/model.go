package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"itcharchive/pkg/scraper"
)

const maxLogLines = 50

// LogLine is one entry in the activity panel
type LogLine struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the dashboard state. Bubble Tea calls Update and View from a
// single goroutine, so the model needs no locking.
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	creator  string
	snapshot scraper.Snapshot
	seen     int // snapshot messages already copied into logs
	logs     []LogLine

	startTime   time.Time
	finished    bool
	archivePath string
	err         error
	cancel      func()

	width    int
	height   int
	showHelp bool
}

// NewModel creates a dashboard for creator. cancel is called when the user
// quits before the run finishes.
func NewModel(creator string, cancel func()) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return &Model{
		spinner:   s,
		bar:       bar,
		creator:   creator,
		snapshot:  scraper.Snapshot{Status: scraper.StatusPending, Creator: creator},
		startTime: time.Now(),
		cancel:    cancel,
	}
}

// Init starts the spinner
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Snapshot returns the last progress snapshot received
func (m *Model) Snapshot() scraper.Snapshot {
	return m.snapshot
}

// Finished reports whether the run has ended
func (m *Model) Finished() bool {
	return m.finished
}

func (m *Model) applySnapshot(s scraper.Snapshot) {
	m.snapshot = s
	for ; m.seen < len(s.Messages); m.seen++ {
		m.addLog("INFO", s.Messages[m.seen])
	}
}

func (m *Model) addLog(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logs = append(m.logs, LogLine{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
}

// percent returns the processed fraction of the listing
func (m *Model) percent() float64 {
	if m.snapshot.Total == 0 {
		if m.finished {
			return 1
		}
		return 0
	}
	p := float64(m.snapshot.Processed()) / float64(m.snapshot.Total)
	if p > 1 {
		p = 1
	}
	return p
}

// eta estimates the time left from the average time per processed project
func (m *Model) eta() time.Duration {
	done := m.snapshot.Processed()
	if done == 0 || m.snapshot.Total <= done {
		return 0
	}
	perProject := time.Since(m.startTime) / time.Duration(done)
	return perProject * time.Duration(m.snapshot.Total-done)
}
