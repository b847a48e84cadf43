package server

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"itcharchive/pkg/logger"
	"itcharchive/pkg/scraper"
)

// Job is one archive run started through the API
type Job struct {
	ID        string
	Creator   string
	WorkDir   string
	CreatedAt time.Time
	Progress  *scraper.Progress

	cancel context.CancelFunc
}

// Cancel stops the run if it is still in progress
func (j *Job) Cancel() {
	if j.cancel != nil {
		j.cancel()
	}
}

// JobRegistry keeps jobs in memory. A running job never expires; once it
// finishes, Touch gives it ttl before it is evicted. Expired or deleted jobs
// are cancelled and their work directory removed.
type JobRegistry struct {
	jobs   *cache.Cache
	mu     sync.Mutex // orders Touch against Delete
	wg     sync.WaitGroup
	logger logger.Logger
}

// NewJobRegistry creates a registry whose finished jobs live for ttl
func NewJobRegistry(ttl time.Duration, log logger.Logger) *JobRegistry {
	cleanup := ttl / 2
	if cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	if cleanup <= 0 {
		cleanup = time.Minute
	}

	r := &JobRegistry{
		jobs:   cache.New(ttl, cleanup),
		logger: log,
	}
	r.jobs.OnEvicted(r.evicted)
	return r
}

func (r *JobRegistry) evicted(id string, value interface{}) {
	job, ok := value.(*Job)
	if !ok {
		return
	}
	job.Cancel()
	if err := os.RemoveAll(job.WorkDir); err != nil {
		r.logger.WithError(err).WithField("job_id", id).Warn("Failed to remove job directory")
		return
	}
	r.logger.DebugWithFields("Job evicted", map[string]interface{}{
		"job_id":  id,
		"creator": job.Creator,
	})
}

// Create registers a new job working in its own directory under baseDir and
// returns it with a cancellable context derived from parent
func (r *JobRegistry) Create(parent context.Context, creator, baseDir string) (*Job, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	job := &Job{
		ID:        id,
		Creator:   creator,
		WorkDir:   filepath.Join(baseDir, id),
		CreatedAt: time.Now().UTC(),
		Progress:  scraper.NewProgress(),
		cancel:    cancel,
	}
	r.jobs.Set(job.ID, job, cache.NoExpiration)
	return job, ctx
}

// Get returns the job with the given id
func (r *JobRegistry) Get(id string) (*Job, bool) {
	v, found := r.jobs.Get(id)
	if !found {
		return nil, false
	}
	job, ok := v.(*Job)
	return job, ok
}

// Touch starts the expiry clock of a job. It is called when a run finishes so
// the archive stays downloadable for a full TTL.
func (r *JobRegistry) Touch(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.jobs.Get(job.ID); found {
		r.jobs.SetDefault(job.ID, job)
	}
}

// Delete removes a job, cancelling it and removing its files
func (r *JobRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs.Delete(id)
}

// Count returns the number of known jobs
func (r *JobRegistry) Count() int {
	return r.jobs.ItemCount()
}

// Go runs fn in a tracked goroutine
func (r *JobRegistry) Go(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

// Close cancels every job, waits for running jobs to return and removes all
// job directories
func (r *JobRegistry) Close() {
	for _, item := range r.jobs.Items() {
		if job, ok := item.Object.(*Job); ok {
			job.Cancel()
		}
	}
	r.wg.Wait()
	// Flush does not call OnEvicted
	for id := range r.jobs.Items() {
		r.jobs.Delete(id)
	}
}
