package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"itcharchive/pkg/scraper"
)

// SnapshotMsg carries a fresh progress snapshot
type SnapshotMsg scraper.Snapshot

// LogMsg adds a line to the activity panel
type LogMsg struct {
	Level   string
	Message string
}

// FinishedMsg ends the dashboard once the run has returned
type FinishedMsg struct {
	ArchivePath string
	Err         error
}

// TickMsg refreshes elapsed time and ETA
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.finished {
			return m, nil
		}
		return m, tickCmd()

	case SnapshotMsg:
		m.applySnapshot(scraper.Snapshot(msg))
		return m, nil

	case LogMsg:
		m.addLog(msg.Level, msg.Message)
		return m, nil

	case FinishedMsg:
		m.finished = true
		m.archivePath = msg.ArchivePath
		m.err = msg.Err
		if msg.Err != nil {
			m.addLog("ERROR", msg.Err.Error())
		} else {
			m.addLog("SUCCESS", "Archive written to "+msg.ArchivePath)
		}
		return m, tea.Quit
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if !m.finished && m.cancel != nil {
			m.addLog("WARN", "Cancelling run")
			m.cancel()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logs = nil
		return m, nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
