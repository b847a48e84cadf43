package itch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"itcharchive/pkg/config"
	"itcharchive/pkg/errors"
	"itcharchive/pkg/logger"
	"itcharchive/pkg/metadata"
	"itcharchive/pkg/ratelimit"
)

// Client fetches creator listings, project pages and images from itch.io
type Client struct {
	httpClient   *http.Client
	headers      map[string]string
	config       *config.Config
	maxPages     int
	maxAssetSize int64
	limiter      ratelimit.Limiter
	logger       logger.Logger
}

// NewClient creates a client from the itch, http and download sections of cfg
func NewClient(cfg *config.Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	maxPages := cfg.Itch.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTP.Timeout,
		},
		headers: map[string]string{
			"User-Agent":      cfg.Itch.UserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		config:       cfg,
		maxPages:     maxPages,
		maxAssetSize: cfg.Download.MaxAssetSize,
		limiter:      ratelimit.New(cfg.HTTP.RequestsPerSecond, cfg.HTTP.BurstSize),
		logger:       log,
	}
}

// CreatorURL returns the listing URL for a normalized creator identifier
func (c *Client) CreatorURL(creator string) string {
	return c.config.CreatorURL(creator)
}

// doRequest performs a GET request with the configured headers and maps
// transport failures and non-2xx statuses onto typed errors. The caller owns
// the response body on success.
func (c *Client) doRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Canceled(rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Fetch(rawURL, 0, fmt.Errorf("failed to create request: %w", err))
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Canceled(rawURL, ctx.Err())
		}
		c.logger.WithError(err).WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":         rawURL,
			"duration_ms": duration.Milliseconds(),
		})
		return nil, errors.Fetch(rawURL, 0, err)
	}

	logger.LogRequest(c.logger, req.Method, rawURL, resp.StatusCode, duration)

	if err := checkResponseStatus(resp, rawURL); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// checkResponseStatus maps the HTTP status to the error taxonomy
func checkResponseStatus(resp *http.Response, rawURL string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return errors.NotFound(rawURL, "page does not exist")
	default:
		return errors.Fetch(rawURL, resp.StatusCode, nil)
	}
}

// fetchPage downloads an HTML page body
func (c *Client) fetchPage(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.doRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil && !isHTML(mediaType) {
			return nil, errors.Parse(rawURL, fmt.Sprintf("expected HTML, got %s", mediaType), nil)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Canceled(rawURL, ctx.Err())
		}
		return nil, errors.Fetch(rawURL, 0, fmt.Errorf("failed to read response body: %w", err))
	}
	return body, nil
}

func isHTML(mediaType string) bool {
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// ListProjects returns the ordered, de-duplicated project URLs of a creator.
// It follows pagination while a next-page link exists and the previous page
// contributed new links. A missing creator page yields a NotFound error; a
// creator without public projects yields an empty slice.
func (c *Client) ListProjects(ctx context.Context, creator string) ([]string, error) {
	creator, err := NormalizeCreator(creator)
	if err != nil {
		return nil, err
	}

	base := c.CreatorURL(creator)
	log := c.logger.WithField("creator", creator)

	urls := []string{}
	seen := make(map[string]bool)

	for page := 1; page <= c.maxPages; page++ {
		pageURL := CreatorPageURL(base, page)

		body, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			if page == 1 {
				if errors.IsNotFound(err) {
					return nil, errors.NotFound(base, fmt.Sprintf("creator %q not found", creator))
				}
				return nil, err
			}
			if errors.IsCanceled(err) {
				return nil, err
			}
			// keep what earlier pages produced
			log.WithError(err).WarnWithFields("Stopping pagination early", map[string]interface{}{
				"page": page,
			})
			break
		}

		listing, err := ParseListing(bytes.NewReader(body), pageURL)
		if err != nil {
			return nil, err
		}

		found := 0
		for _, link := range listing.Links {
			if !seen[link] {
				seen[link] = true
				urls = append(urls, link)
				found++
			}
		}

		log.DebugWithFields("Parsed listing page", map[string]interface{}{
			"page":     page,
			"new":      found,
			"has_next": listing.HasNext,
		})

		if !listing.HasNext || found == 0 {
			break
		}
	}

	return urls, nil
}

// FetchProject downloads and parses a single project page
func (c *Client) FetchProject(ctx context.Context, projectURL string) (*metadata.Project, error) {
	body, err := c.fetchPage(ctx, projectURL)
	if err != nil {
		return nil, err
	}
	return ParseProject(bytes.NewReader(body), projectURL)
}

// FetchAsset downloads an image. Any non-2xx status, including 404, is a
// FetchError, as is a body larger than the configured maximum asset size.
func (c *Client) FetchAsset(ctx context.Context, assetURL string) ([]byte, error) {
	resp, err := c.doRequest(ctx, assetURL)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.Fetch(assetURL, http.StatusNotFound, nil)
		}
		return nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if c.maxAssetSize > 0 {
		if resp.ContentLength > c.maxAssetSize {
			return nil, errors.Fetch(assetURL, 0, fmt.Errorf("asset size %d exceeds limit %d", resp.ContentLength, c.maxAssetSize))
		}
		reader = io.LimitReader(resp.Body, c.maxAssetSize+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Canceled(assetURL, ctx.Err())
		}
		return nil, errors.Fetch(assetURL, 0, fmt.Errorf("failed to read asset: %w", err))
	}
	if c.maxAssetSize > 0 && int64(len(data)) > c.maxAssetSize {
		return nil, errors.Fetch(assetURL, 0, fmt.Errorf("asset exceeds limit %d", c.maxAssetSize))
	}

	c.logger.DebugWithFields("Downloaded asset", map[string]interface{}{
		"url":  assetURL,
		"size": len(data),
	})
	return data, nil
}
