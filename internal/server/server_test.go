package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"itcharchive/internal/itchtest"
	"itcharchive/pkg/archive"
	"itcharchive/pkg/config"
	"itcharchive/pkg/logger"
	"itcharchive/pkg/scraper"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type blockingRunner struct {
	started chan struct{}
	stopped chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context, creator string, progress *scraper.Progress) (*scraper.Report, string, error) {
	close(r.started)
	<-ctx.Done()
	close(r.stopped)
	return nil, "", ctx.Err()
}

func newTestServer(t *testing.T, cfg *config.Config, runner RunnerFactory) *Server {
	t.Helper()
	s := New(cfg, "test", runner, logger.NewNopLogger())
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func startScrape(t *testing.T, s *Server, creator string) string {
	t.Helper()
	w := do(t, s, http.MethodPost, "/api/scrape", map[string]string{"creator": creator})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp scrapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)
	return resp.JobID
}

func pollStatus(t *testing.T, s *Server, id string) statusResponse {
	t.Helper()
	var status statusResponse
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/status/"+id, nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
			return false
		}
		return status.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return status
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, config.DefaultConfig(), nil)

	for _, path := range []string{"/health", "/healthz"} {
		w := do(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "test", resp.Version)
	}
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, config.DefaultConfig(), nil)

	w := do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `fetch("/api/scrape"`)
	assert.Contains(t, w.Body.String(), `"/api/download/"`)
}

func TestScrapeRejectsInvalidCreator(t *testing.T) {
	s := newTestServer(t, config.DefaultConfig(), nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing creator", map[string]string{}},
		{"bad characters", map[string]string{"creator": "bad name!"}},
		{"blank", map[string]string{"creator": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/scrape", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
	assert.Equal(t, 0, s.Jobs().Count())
}

func TestUnknownJob(t *testing.T) {
	s := newTestServer(t, config.DefaultConfig(), nil)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/status/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/download/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/jobs/nope", nil).Code)
}

func TestScrapeAndDownload(t *testing.T) {
	fake := itchtest.NewServer()
	defer fake.Close()
	fake.AddImage("cover.png", []byte("cover-bytes"))
	fake.AddCreator("some-dev",
		itchtest.Project{Slug: "alpha", Title: "Alpha", Cover: "cover.png", Tags: []string{"rpg"}},
		itchtest.Project{Slug: "beta", Title: "Beta", Price: "$2.00"},
	)

	cfg := fake.Config(t.TempDir())
	s := newTestServer(t, cfg, nil)

	id := startScrape(t, s, "Some-Dev")
	status := pollStatus(t, s, id)
	assert.Equal(t, scraper.StatusDone, status.Status)
	assert.Equal(t, "some-dev", status.Creator)
	assert.Equal(t, 2, status.Total)
	assert.Equal(t, 2, status.Completed)
	assert.True(t, status.ArchiveReady)
	assert.Contains(t, status.Messages, "Alpha")

	w := do(t, s, http.MethodGet, "/api/download/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "some-dev_itch.zip")

	downloaded := filepath.Join(t.TempDir(), "download.zip")
	require.NoError(t, os.WriteFile(downloaded, w.Body.Bytes(), 0o644))
	index, err := archive.ReadIndex(downloaded)
	require.NoError(t, err)
	assert.Equal(t, 2, index.ProjectCount)
	assert.Equal(t, "Alpha", index.Projects[0].Title)
}

func TestDownloadBeforeReady(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), stopped: make(chan struct{})}
	s := newTestServer(t, config.DefaultConfig(), func(*config.Config, logger.Logger) Runner { return runner })

	id := startScrape(t, s, "some-dev")
	<-runner.started

	w := do(t, s, http.MethodGet, "/api/download/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not ready")
}

func TestCancelRunningJob(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), stopped: make(chan struct{})}
	s := newTestServer(t, config.DefaultConfig(), func(*config.Config, logger.Logger) Runner { return runner })

	id := startScrape(t, s, "some-dev")
	<-runner.started

	w := do(t, s, http.MethodDelete, "/api/jobs/"+id, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-runner.stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("runner was not cancelled")
	}

	// the job stays registered so its status can still be read
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/status/"+id, nil).Code)
}

func TestDeleteFinishedJobRemovesFiles(t *testing.T) {
	fake := itchtest.NewServer()
	defer fake.Close()
	fake.AddCreator("some-dev", itchtest.Project{Slug: "alpha", Title: "Alpha"})

	s := newTestServer(t, fake.Config(t.TempDir()), nil)
	id := startScrape(t, s, "some-dev")
	pollStatus(t, s, id)

	job, ok := s.Jobs().Get(id)
	require.True(t, ok)
	require.DirExists(t, job.WorkDir)

	w := do(t, s, http.MethodDelete, "/api/jobs/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoDirExists(t, job.WorkDir)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/status/"+id, nil).Code)
}

func TestUnknownCreatorReportsError(t *testing.T) {
	fake := itchtest.NewServer()
	defer fake.Close()

	s := newTestServer(t, fake.Config(t.TempDir()), nil)
	id := startScrape(t, s, "ghost")

	status := pollStatus(t, s, id)
	assert.Equal(t, scraper.StatusError, status.Status)
	assert.Contains(t, status.Error, "not found")
	assert.False(t, status.ArchiveReady)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/download/"+id, nil).Code)
}

func TestJobExpiry(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Directory = t.TempDir()
	cfg.Server.JobTTL = 50 * time.Millisecond

	registry := NewJobRegistry(cfg.Server.JobTTL, logger.NewNopLogger())
	job, ctx := registry.Create(context.Background(), "some-dev", cfg.Output.Directory)
	require.NoError(t, os.MkdirAll(job.WorkDir, 0o755))
	registry.Touch(job)

	require.Eventually(t, func() bool {
		return ctx.Err() != nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.NoDirExists(t, job.WorkDir)
	_, ok := registry.Get(job.ID)
	assert.False(t, ok)
}

func TestRunningJobDoesNotExpire(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Directory = t.TempDir()
	cfg.Server.JobTTL = 50 * time.Millisecond

	runner := &blockingRunner{started: make(chan struct{}), stopped: make(chan struct{})}
	s := newTestServer(t, cfg, func(*config.Config, logger.Logger) Runner { return runner })

	id := startScrape(t, s, "some-dev")
	<-runner.started

	// several cleanup intervals pass while the run is still going
	time.Sleep(300 * time.Millisecond)

	select {
	case <-runner.stopped:
		t.Fatal("running job was cancelled by expiry")
	default:
	}
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/status/"+id, nil).Code)

	s.Jobs().Delete(id)
	<-runner.stopped
}

func TestCORSPreflight(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.AllowedOrigins = []string{"https://archive.example"}
	s := newTestServer(t, cfg, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/scrape", nil)
	req.Header.Set("Origin", "https://archive.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "https://archive.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGzipJSONResponses(t *testing.T) {
	s := newTestServer(t, config.DefaultConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}
