package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire dashboard
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	half := (m.width - 4) / 2

	main := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderStatsPanel(half),
		"  ",
		m.renderLogsPanel(half),
	)

	sections := []string{m.renderHeader(), main}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q quit • ? help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderHeader() string {
	title := fmt.Sprintf("itcharchive · %s", m.creator)
	if !m.finished {
		title = m.spinner.View() + " " + title
	}
	return headerStyle.Width(m.width).Render(title)
}

func (m *Model) renderStatsPanel(width int) string {
	s := m.snapshot
	m.bar.Width = width - 8
	if m.bar.Width < 10 {
		m.bar.Width = 10
	}

	rows := []string{
		m.stat("Status:", StatusStyle(s.Status).Render(string(s.Status))),
		m.stat("Projects:", fmt.Sprintf("%d / %d", s.Processed(), s.Total)),
		m.stat("Archived:", successStyle.Render(fmt.Sprintf("%d", s.Completed))),
		m.stat("Skipped:", warningStyle.Render(fmt.Sprintf("%d", s.Skipped))),
		m.stat("Elapsed:", formatDuration(time.Since(m.startTime))),
		m.stat("ETA:", formatDuration(m.eta())),
		"",
		m.bar.ViewAs(m.percent()),
	}

	if s.Current != "" {
		rows = append(rows, "", currentStyle.Render("→ "+s.Current))
	}
	if m.archivePath != "" {
		rows = append(rows, "", successStyle.Render("✓ "+m.archivePath))
	}
	if s.Error != "" {
		rows = append(rows, "", errorStyle.Render("✗ "+s.Error))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" RUN "), lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

func (m *Model) stat(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

func (m *Model) renderLogsPanel(width int) string {
	start := len(m.logs) - 12
	if start < 0 {
		start = 0
	}

	maxMsgLen := width - 25
	var lines []string
	for _, l := range m.logs[start:] {
		msg := l.Message
		if maxMsgLen > 3 && len([]rune(msg)) > maxMsgLen {
			msg = string([]rune(msg)[:maxMsgLen-3]) + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			logTimestampStyle.Render(l.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(l.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", l.Level)),
			logMessageStyle.Render(msg),
		))
	}

	content := strings.Join(lines, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("Waiting for the project listing...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" ACTIVITY "), content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  q/Q/ctrl+c  cancel the run and quit
  ctrl+l      clear the activity panel
  ?           toggle this help

  ` + successStyle.Render("done") + `       archive written
  ` + warningStyle.Render("cancelled") + `  partial archive discarded
  ` + errorStyle.Render("error") + `      run aborted
`
	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}
