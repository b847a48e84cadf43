package scraper

import (
	"itcharchive/pkg/archive"
	"itcharchive/pkg/errors"
	"itcharchive/pkg/metadata"
)

// ItemResult is the outcome of one project: either a summary of what was
// archived or the reason it was skipped.
type ItemResult struct {
	URL     string
	Summary *metadata.Summary
	Kind    errors.ErrorType
	Reason  string
}

// Success reports whether the project made it into the archive
func (r ItemResult) Success() bool {
	return r.Summary != nil
}

func succeeded(url string, summary metadata.Summary) ItemResult {
	return ItemResult{URL: url, Summary: &summary}
}

func failed(url string, err error) ItemResult {
	return ItemResult{URL: url, Kind: errors.TypeOf(err), Reason: err.Error()}
}

// Report collects per-project results in listing order plus the assets that
// could not be fetched.
type Report struct {
	Creator    string
	Items      []ItemResult
	AssetSkips []archive.SkippedItem
}

// Archived returns the number of projects written to the archive
func (r *Report) Archived() int {
	n := 0
	for _, item := range r.Items {
		if item.Success() {
			n++
		}
	}
	return n
}

// Failures returns the skipped projects
func (r *Report) Failures() []ItemResult {
	var out []ItemResult
	for _, item := range r.Items {
		if !item.Success() {
			out = append(out, item)
		}
	}
	return out
}

// SkippedItems returns skipped projects followed by skipped assets, in the
// form recorded in the archive index
func (r *Report) SkippedItems() []archive.SkippedItem {
	skipped := []archive.SkippedItem{}
	for _, item := range r.Failures() {
		skipped = append(skipped, archive.SkippedItem{
			URL:    item.URL,
			Kind:   string(item.Kind),
			Reason: item.Reason,
		})
	}
	return append(skipped, r.AssetSkips...)
}

// Titles returns the titles of archived projects in listing order
func (r *Report) Titles() []string {
	var titles []string
	for _, item := range r.Items {
		if item.Success() {
			titles = append(titles, item.Summary.Title)
		}
	}
	return titles
}
