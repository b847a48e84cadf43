package server

import (
	_ "embed"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"itcharchive/pkg/itch"
	"itcharchive/pkg/scraper"
)

//go:embed web/index.html
var indexPage []byte

// handleIndex serves the browser front end for the API
func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
}

type scrapeRequest struct {
	Creator string `json:"creator" binding:"required"`
}

type scrapeResponse struct {
	JobID   string `json:"job_id"`
	Creator string `json:"creator"`
}

type statusResponse struct {
	JobID string `json:"job_id"`
	scraper.Snapshot
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// handleScrape handles POST /api/scrape
func (s *Server) handleScrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "request body must be JSON with a creator field")
		return
	}

	creator, err := itch.NormalizeCreator(req.Creator)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	job := s.startJob(creator)
	s.logger.WithFields(map[string]interface{}{
		"job_id":  job.ID,
		"creator": creator,
	}).Info("Job started")

	c.JSON(http.StatusAccepted, scrapeResponse{JobID: job.ID, Creator: creator})
}

// handleStatus handles GET /api/status/:id
func (s *Server) handleStatus(c *gin.Context) {
	job, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		errorJSON(c, http.StatusNotFound, "job not found")
		return
	}

	c.JSON(http.StatusOK, statusResponse{JobID: job.ID, Snapshot: job.Progress.Snapshot()})
}

// handleDownload handles GET /api/download/:id
func (s *Server) handleDownload(c *gin.Context) {
	job, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		errorJSON(c, http.StatusNotFound, "job not found")
		return
	}

	path := job.Progress.ArchivePath()
	if path == "" {
		errorJSON(c, http.StatusNotFound, "archive not ready")
		return
	}
	if _, err := os.Stat(path); err != nil {
		errorJSON(c, http.StatusNotFound, "archive no longer available")
		return
	}

	c.Header("Content-Type", "application/zip")
	c.FileAttachment(path, filepath.Base(path))
}

// handleDeleteJob handles DELETE /api/jobs/:id. A running job is cancelled
// and kept so its final status can still be polled; a finished job is
// removed along with its archive.
func (s *Server) handleDeleteJob(c *gin.Context) {
	job, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		errorJSON(c, http.StatusNotFound, "job not found")
		return
	}

	if !job.Progress.Snapshot().Status.Terminal() {
		job.Cancel()
		c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": "cancelling"})
		return
	}

	s.jobs.Delete(job.ID)
	c.JSON(http.StatusOK, gin.H{"job_id": job.ID, "status": "deleted"})
}
