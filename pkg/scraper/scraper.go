package scraper

import (
	"context"
	"fmt"

	"itcharchive/internal/downloader"
	"itcharchive/pkg/archive"
	"itcharchive/pkg/config"
	"itcharchive/pkg/errors"
	"itcharchive/pkg/itch"
	"itcharchive/pkg/logger"
	"itcharchive/pkg/metadata"
)

// Scraper orchestrates archiving one creator: list projects, fetch and parse
// each page, download its images and stream everything into the archive.
type Scraper struct {
	client ItchClient
	config *config.Config
	logger logger.Logger
}

// New creates a Scraper. A nil client builds an itch.io client from cfg.
func New(cfg *config.Config, client ItchClient, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	if client == nil {
		client = itch.NewClient(cfg, log)
	}
	return &Scraper{client: client, config: cfg, logger: log}
}

// Run archives every public project of creator and returns the run report
// and the archive path. Projects are processed one at a time; a project that
// fails to fetch or parse is recorded in the report and skipped. A missing
// or invalid creator aborts the run before any archive is created, and a
// cancelled ctx stops before the next project and discards the partial
// archive. progress may be nil.
func (s *Scraper) Run(ctx context.Context, creator string, progress *Progress) (*Report, string, error) {
	if progress == nil {
		progress = NewProgress()
	}

	creator, err := itch.NormalizeCreator(creator)
	if err != nil {
		progress.fail(err)
		return nil, "", err
	}

	log := s.logger.WithField("creator", creator)
	progress.start(creator)
	log.Info("Starting archive run")

	urls, err := s.client.ListProjects(ctx, creator)
	if err != nil {
		return nil, "", s.abort(ctx, log, progress, nil, fmt.Errorf("failed to list projects: %w", err))
	}
	progress.setTotal(len(urls))
	log.InfoWithFields("Project listing complete", map[string]interface{}{
		"projects": len(urls),
	})

	writer, err := archive.NewWriter(s.config.Output.Directory, s.config.ArchiveName(creator))
	if err != nil {
		return nil, "", s.abort(ctx, log, progress, nil, err)
	}

	report := &Report{Creator: creator, Items: make([]ItemResult, 0, len(urls))}

	for i, projectURL := range urls {
		if ctx.Err() != nil {
			return report, "", s.abort(ctx, log, progress, writer, errors.Canceled(projectURL, ctx.Err()))
		}

		progress.begin(projectURL)
		item, err := s.archiveProject(ctx, writer, report, projectURL)
		if err != nil {
			return report, "", s.abort(ctx, log, progress, writer, err)
		}
		report.Items = append(report.Items, item)

		if item.Success() {
			logger.LogProjectResult(log, creator, projectURL, nil)
			progress.completed(item.Summary.Title)
		} else {
			log.WarnWithFields("Project skipped", map[string]interface{}{
				"project": projectURL,
				"kind":    string(item.Kind),
				"reason":  item.Reason,
			})
			progress.skipped(projectURL, item.Reason)
		}
		logger.LogScrapeProgress(log, creator, i+1, len(urls))
	}

	path, err := writer.Finalize(creator, report.SkippedItems())
	if err != nil {
		return report, "", s.abort(ctx, log, progress, nil, err)
	}

	progress.finish(path)
	log.InfoWithFields("Archive complete", map[string]interface{}{
		"archive":  path,
		"archived": report.Archived(),
		"skipped":  len(report.Failures()),
	})
	return report, path, nil
}

// archiveProject fetches, parses and writes one project. Fetch and parse
// failures become a failed ItemResult; only cancellation and archive write
// errors are returned as errors.
func (s *Scraper) archiveProject(ctx context.Context, writer *archive.Writer, report *Report, projectURL string) (ItemResult, error) {
	project, err := s.client.FetchProject(ctx, projectURL)
	if err != nil {
		if errors.IsCanceled(err) {
			return ItemResult{}, err
		}
		return failed(projectURL, err), nil
	}

	if s.config.Download.SkipScreenshots {
		project.Screenshots = []metadata.Asset{}
	}

	if err := s.fetchAssets(ctx, project, report); err != nil {
		return ItemResult{}, err
	}

	summary, err := writer.AddProject(project)
	if err != nil {
		return ItemResult{}, fmt.Errorf("failed to write project %s: %w", project.Slug, err)
	}
	return succeeded(projectURL, summary), nil
}

// fetchAssets downloads the cover and screenshots of project through the
// worker pool. Assets that fail are dropped from the record and noted in the
// report so the metadata never references a missing file.
func (s *Scraper) fetchAssets(ctx context.Context, project *metadata.Project, report *Report) error {
	assets := project.Assets()
	if len(assets) == 0 {
		return nil
	}

	jobs := make([]downloader.Job, len(assets))
	for i, asset := range assets {
		jobs[i] = downloader.Job{Index: i, URL: asset.SourceURL, Filename: asset.Filename}
	}

	results := downloader.FetchAll(ctx, s.config.Download.ConcurrentDownloads, s.client, jobs, s.logger)
	if ctx.Err() != nil {
		return errors.Canceled(project.URL, ctx.Err())
	}

	hasCover := project.Cover != nil
	var cover *metadata.Asset
	screenshots := []metadata.Asset{}

	for i, result := range results {
		asset := assets[i]
		if !result.Success() {
			report.AssetSkips = append(report.AssetSkips, archive.SkippedItem{
				URL:     asset.SourceURL,
				Project: project.URL,
				Kind:    string(errors.TypeOf(result.Error)),
				Reason:  result.Error.Error(),
			})
			continue
		}

		asset.Data = result.Data
		asset.Size = int64(len(result.Data))
		if hasCover && i == 0 {
			cover = &asset
		} else {
			screenshots = append(screenshots, asset)
		}
	}

	project.Cover = cover
	project.Screenshots = screenshots
	return nil
}

// abort discards the partial archive, marks progress and passes err through
func (s *Scraper) abort(ctx context.Context, log logger.Logger, progress *Progress, writer *archive.Writer, err error) error {
	if writer != nil {
		if abortErr := writer.Abort(); abortErr != nil {
			log.WithError(abortErr).Warn("Failed to discard partial archive")
		}
	}

	if ctx.Err() != nil || errors.IsCanceled(err) {
		progress.cancel()
		log.Warn("Archive run cancelled")
		return err
	}

	progress.fail(err)
	log.WithError(err).Error("Archive run failed")
	return err
}
