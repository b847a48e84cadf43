package metadata

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// DefaultImageExt is used when an image URL carries no usable extension
const DefaultImageExt = ".jpg"

// Project represents all metadata extracted from a single project page
type Project struct {
	// Core identifiers
	URL  string `json:"url"`
	Slug string `json:"slug"`

	// Content
	Title            string            `json:"title"`
	ShortDescription string            `json:"short_description,omitempty"`
	Description      string            `json:"description"`
	Tags             []string          `json:"tags"`
	Info             map[string]string `json:"info,omitempty"`

	// Storefront
	Price     string   `json:"price"`
	Platforms []string `json:"platforms"`

	// Engagement
	Rating      *float64 `json:"rating"`
	RatingCount *int     `json:"rating_count,omitempty"`

	// Images
	Cover       *Asset  `json:"cover"`
	Screenshots []Asset `json:"screenshots"`

	ScrapedAt time.Time `json:"scraped_at"`
}

// Asset is one image belonging to a project. Data is held in memory only
// until the asset is written to the archive.
type Asset struct {
	SourceURL string `json:"source_url"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	Data      []byte `json:"-"`
}

// Summary is the per-project entry written to the archive index
type Summary struct {
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	URL             string   `json:"url"`
	Price           string   `json:"price"`
	Platforms       []string `json:"platforms"`
	Tags            []string `json:"tags"`
	Rating          *float64 `json:"rating"`
	HasCover        bool     `json:"has_cover"`
	ScreenshotCount int      `json:"screenshot_count"`
	MetadataPath    string   `json:"metadata_path"`
}

// Normalize replaces nil slices with empty ones so metadata files always
// carry "tags": [] and "screenshots": [] instead of null.
func (p *Project) Normalize() {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Platforms == nil {
		p.Platforms = []string{}
	}
	if p.Screenshots == nil {
		p.Screenshots = []Asset{}
	}
}

// Marshal encodes the project as indented JSON
func (p *Project) Marshal() ([]byte, error) {
	p.Normalize()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}

// Summary builds the index entry for the project
func (p *Project) Summary() Summary {
	p.Normalize()
	return Summary{
		Title:           p.Title,
		Slug:            p.Slug,
		URL:             p.URL,
		Price:           p.Price,
		Platforms:       p.Platforms,
		Tags:            p.Tags,
		Rating:          p.Rating,
		HasCover:        p.Cover != nil,
		ScreenshotCount: len(p.Screenshots),
		MetadataPath:    p.Slug + "/metadata.json",
	}
}

// Assets returns the cover followed by the screenshots
func (p *Project) Assets() []Asset {
	var assets []Asset
	if p.Cover != nil {
		assets = append(assets, *p.Cover)
	}
	return append(assets, p.Screenshots...)
}

// ReleaseData drops image bytes once they have been written
func (p *Project) ReleaseData() {
	if p.Cover != nil {
		p.Cover.Data = nil
	}
	for i := range p.Screenshots {
		p.Screenshots[i].Data = nil
	}
}

// SlugFromURL returns the last non-empty path segment of a project URL,
// cleaned with SanitizeSlug
func SlugFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	return SanitizeSlug(segments[len(segments)-1])
}

// SanitizeSlug lowercases s and keeps only [a-z0-9_-], replacing runs of
// anything else with a single hyphen. The result is safe to use as an archive
// directory name; it is empty when nothing usable remains.
func SanitizeSlug(s string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// ImageExt returns the lowercase extension of the image URL path, or
// DefaultImageExt when there is none.
func ImageExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DefaultImageExt
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 5 {
		return DefaultImageExt
	}
	return ext
}

// CoverFilename returns the archive-relative filename of a cover image
func CoverFilename(rawURL string) string {
	return "images/cover" + ImageExt(rawURL)
}

// ScreenshotFilename returns the archive-relative filename of the i-th
// screenshot, counting from 0.
func ScreenshotFilename(i int, rawURL string) string {
	return fmt.Sprintf("images/screenshot_%d%s", i, ImageExt(rawURL))
}
