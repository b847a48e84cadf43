package scraper

import (
	"fmt"
	"sync"
	"time"
)

// Status is the lifecycle state of a scrape run
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further progress will be made
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusCancelled
}

// Snapshot is a point-in-time copy of a run's progress
type Snapshot struct {
	Status       Status     `json:"status"`
	Creator      string     `json:"creator"`
	Total        int        `json:"total"`
	Completed    int        `json:"completed"`
	Skipped      int        `json:"skipped"`
	Current      string     `json:"current,omitempty"`
	Messages     []string   `json:"progress"`
	Error        string     `json:"error,omitempty"`
	ArchiveReady bool       `json:"archive_ready"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Processed returns how many projects have been handled either way
func (s Snapshot) Processed() int {
	return s.Completed + s.Skipped
}

// Progress tracks a single run. The scraper is its only writer; any number
// of readers may call Snapshot concurrently.
type Progress struct {
	mu          sync.Mutex
	state       Snapshot
	archivePath string
	onChange    func(Snapshot)
}

// NewProgress creates a pending progress tracker
func NewProgress() *Progress {
	return &Progress{state: Snapshot{Status: StatusPending, Messages: []string{}}}
}

// OnChange registers fn to be called with a fresh snapshot after every
// update. fn runs on the scraper goroutine and must not block for long.
func (p *Progress) OnChange(fn func(Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// Snapshot returns a copy of the current state
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copyLocked()
}

// ArchivePath returns the finished archive path, or "" until the run is done
func (p *Progress) ArchivePath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.archivePath
}

func (p *Progress) copyLocked() Snapshot {
	s := p.state
	s.Messages = append([]string(nil), p.state.Messages...)
	return s
}

func (p *Progress) update(fn func(s *Snapshot)) {
	p.mu.Lock()
	fn(&p.state)
	snap := p.copyLocked()
	hook := p.onChange
	p.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
}

func (p *Progress) start(creator string) {
	now := time.Now()
	p.update(func(s *Snapshot) {
		s.Status = StatusRunning
		s.Creator = creator
		s.StartedAt = &now
	})
}

func (p *Progress) setTotal(total int) {
	p.update(func(s *Snapshot) {
		s.Total = total
		s.Messages = append(s.Messages, fmt.Sprintf("found %d projects", total))
	})
}

func (p *Progress) begin(projectURL string) {
	p.update(func(s *Snapshot) { s.Current = projectURL })
}

func (p *Progress) completed(title string) {
	p.update(func(s *Snapshot) {
		s.Completed++
		s.Current = ""
		s.Messages = append(s.Messages, title)
	})
}

func (p *Progress) skipped(projectURL, reason string) {
	p.update(func(s *Snapshot) {
		s.Skipped++
		s.Current = ""
		s.Messages = append(s.Messages, fmt.Sprintf("skipped %s: %s", projectURL, reason))
	})
}

func (p *Progress) finish(archivePath string) {
	now := time.Now()
	p.mu.Lock()
	p.archivePath = archivePath
	p.mu.Unlock()

	p.update(func(s *Snapshot) {
		s.Status = StatusDone
		s.ArchiveReady = true
		s.Current = ""
		s.FinishedAt = &now
	})
}

func (p *Progress) fail(err error) {
	now := time.Now()
	p.update(func(s *Snapshot) {
		s.Status = StatusError
		s.Error = err.Error()
		s.Current = ""
		s.FinishedAt = &now
	})
}

func (p *Progress) cancel() {
	now := time.Now()
	p.update(func(s *Snapshot) {
		s.Status = StatusCancelled
		s.Error = "cancelled"
		s.Current = ""
		s.FinishedAt = &now
	})
}
