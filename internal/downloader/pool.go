package downloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"itcharchive/pkg/logger"
)

// Job represents a single asset download task
type Job struct {
	// Index is the position of the asset within its project; results are
	// put back in this order
	Index    int
	URL      string
	Filename string
}

// Result represents the outcome of a download job
type Result struct {
	Job      Job
	Data     []byte
	Error    error
	Duration time.Duration
}

// Success reports whether the asset was downloaded
func (r Result) Success() bool {
	return r.Error == nil
}

// AssetFetcher downloads a single asset
type AssetFetcher interface {
	FetchAsset(ctx context.Context, url string) ([]byte, error)
}

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     AssetFetcher
	logger      logger.Logger
}

// NewWorkerPool creates a new download worker pool bound to ctx
func NewWorkerPool(ctx context.Context, numWorkers int, fetcher AssetFetcher, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2), // Buffer size = 2x workers
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		logger:      log,
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for in-flight jobs and closes Results.
// Results must be drained concurrently or Stop can block.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Debug("Worker pool stopped")
}

// Submit adds a new download job to the queue
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel for consuming download results
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

// worker is the main worker routine
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			wp.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob handles a single download job
func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()

	data, err := wp.fetcher.FetchAsset(wp.ctx, job.URL)
	result := Result{Job: job, Data: data, Error: err, Duration: time.Since(start)}

	if err != nil {
		wp.logger.WithError(err).WarnWithFields("Asset download failed", map[string]interface{}{
			"worker_id": workerID,
			"url":       job.URL,
			"duration":  result.Duration,
		})
		return result
	}

	wp.logger.DebugWithFields("Worker completed job", map[string]interface{}{
		"worker_id": workerID,
		"filename":  job.Filename,
		"size":      len(data),
		"duration":  result.Duration,
	})
	return result
}

// FetchAll downloads every job through a pool of numWorkers workers and
// returns one result per job, ordered by Job.Index. Jobs that never ran
// because ctx was cancelled carry the context error.
func FetchAll(ctx context.Context, numWorkers int, fetcher AssetFetcher, jobs []Job, log logger.Logger) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	position := make(map[int]int, len(jobs))
	for i, job := range jobs {
		position[job.Index] = i
		results[i] = Result{Job: job}
	}
	done := make([]bool, len(jobs))

	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}
	pool := NewWorkerPool(ctx, numWorkers, fetcher, log)
	pool.Start()

	go func() {
		defer pool.Stop()
		for _, job := range jobs {
			if err := pool.Submit(job); err != nil {
				return
			}
		}
	}()

	for result := range pool.Results() {
		i := position[result.Job.Index]
		results[i] = result
		done[i] = true
	}

	for i := range results {
		if !done[i] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i].Error = err
		}
	}
	return results
}
