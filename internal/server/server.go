package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"itcharchive/pkg/config"
	"itcharchive/pkg/logger"
	"itcharchive/pkg/scraper"
)

// Runner performs one archive run. *scraper.Scraper satisfies it.
type Runner interface {
	Run(ctx context.Context, creator string, progress *scraper.Progress) (*scraper.Report, string, error)
}

// RunnerFactory builds a Runner for a job-specific configuration
type RunnerFactory func(cfg *config.Config, log logger.Logger) Runner

// DefaultRunner builds a Scraper talking to itch.io
func DefaultRunner(cfg *config.Config, log logger.Logger) Runner {
	return scraper.New(cfg, nil, log)
}

// Server exposes archive runs over HTTP
type Server struct {
	config  *config.Config
	version string
	logger  logger.Logger
	jobs    *JobRegistry
	runner  RunnerFactory
	engine  *gin.Engine

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New creates a Server. runner may be nil to use DefaultRunner.
func New(cfg *config.Config, version string, runner RunnerFactory, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	if runner == nil {
		runner = DefaultRunner
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:  cfg,
		version: version,
		logger:  log.WithField("component", "server"),
		jobs:    NewJobRegistry(cfg.Server.JobTTL, log),
		runner:  runner,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.engine = s.setupRouter()
	return s
}

// Handler returns the http.Handler serving the API
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Jobs returns the job registry
func (s *Server) Jobs() *JobRegistry {
	return s.jobs
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))
	router.Use(corsMiddleware(s.config.Server.AllowedOrigins))
	router.Use(compression())

	NewHealthHandler(s.version).RegisterRoutes(router)
	router.GET("/", s.handleIndex)

	api := router.Group("/api")
	{
		api.POST("/scrape", s.handleScrape)
		api.GET("/status/:id", s.handleStatus)
		api.GET("/download/:id", s.handleDownload)
		api.DELETE("/jobs/:id", s.handleDeleteJob)
	}

	return router
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully and stops every job
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close cancels all running jobs, waits for them and removes their files
func (s *Server) Close() {
	s.once.Do(func() {
		s.cancel()
		s.jobs.Close()
	})
}

// startJob registers a job and runs it in the background. Each job writes
// into its own directory under the output directory.
func (s *Server) startJob(creator string) *Job {
	job, ctx := s.jobs.Create(s.ctx, creator, s.config.Output.Directory)
	jobCfg := *s.config
	jobCfg.Output.Directory = job.WorkDir

	log := s.logger.WithFields(map[string]interface{}{
		"job_id":  job.ID,
		"creator": creator,
	})
	runner := s.runner(&jobCfg, log)

	s.jobs.Go(func() {
		defer job.Cancel()
		if _, _, err := runner.Run(ctx, creator, job.Progress); err != nil {
			log.WithError(err).Warn("Job finished with error")
		} else {
			log.Info("Job finished")
		}
		s.jobs.Touch(job)
	})

	return job
}
