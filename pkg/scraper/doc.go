// Package scraper archives a creator's public itch.io projects.
//
// A run lists the creator's projects, then for each project in order fetches
// and parses the page, downloads its images through a bounded worker pool and
// streams the result into a ZIP archive. Per-project failures are recorded as
// ItemResults in the Report and skipped; only a missing or invalid creator,
// cancellation, or an archive write error stop the run.
//
// Progress is an explicit object owned by the caller. The HTTP API polls
// Snapshot from other goroutines while the CLI registers an OnChange hook to
// render a progress line.
//
//	s := scraper.New(cfg, nil, logger.GetLogger())
//	progress := scraper.NewProgress()
//	report, path, err := s.Run(ctx, "some-creator", progress)
package scraper
