package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"itcharchive/pkg/scraper"
)

// TUI is a full-screen dashboard following one archive run
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a dashboard for creator. cancel stops the run when the user
// quits early.
func NewTUI(creator string, cancel func()) *TUI {
	model := NewModel(creator, cancel)
	program := tea.NewProgram(model, tea.WithAltScreen())

	return &TUI{
		program: program,
		model:   model,
	}
}

// Attach forwards every progress update to the dashboard
func (t *TUI) Attach(p *scraper.Progress) {
	p.OnChange(func(s scraper.Snapshot) {
		t.Send(SnapshotMsg(s))
	})
}

// Run blocks until the run finishes or the user quits
func (t *TUI) Run() error {
	go t.Send(TickMsg{})
	_, err := t.program.Run()
	return err
}

// Finish reports the run outcome and closes the dashboard
func (t *TUI) Finish(archivePath string, err error) {
	t.Send(FinishedMsg{ArchivePath: archivePath, Err: err})
}

// Send sends a message to the dashboard. It returns immediately once the
// program has exited.
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// LogInfo adds an info line to the activity panel. Like Send, it blocks
// until the program is running.
func (t *TUI) LogInfo(message string) {
	t.Send(LogMsg{Level: "INFO", Message: message})
}
