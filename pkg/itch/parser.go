package itch

import (
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"itcharchive/pkg/errors"
	"itcharchive/pkg/metadata"
)

// Selectors used against creator and project pages
const (
	selProjectLinks         = ".game_cell a.game_link, .game_cell a.title"
	selProjectThumbLinks    = ".game_cell .game_thumb a"
	selNextPage             = "a.next_page"
	selTitle                = "h1.game_title"
	selOGTitle              = `meta[property="og:title"]`
	selOGDescription        = `meta[property="og:description"]`
	selOGImage              = `meta[property="og:image"]`
	selDescription          = ".formatted_description"
	selTags                 = ".game_info_panel_widget a[href*='/tag-']"
	selInfoRows             = ".game_info_panel_widget table tr"
	selPrice                = ".buy_btn_widget .price"
	selPlatformIcons        = ".game_info_panel_widget .icon"
	selRatingValue          = `meta[itemprop="ratingValue"]`
	selRatingCount          = `meta[itemprop="ratingCount"]`
	selCoverImage           = ".header img, .game_cover img"
	selScreenshotLinks      = ".screenshot_list a[href]"
	selScreenshotImages     = ".screenshot_list img"
	platformIconClassPrefix = "icon-"
)

var whitespace = regexp.MustCompile(`\s+`)

// clean collapses runs of whitespace and trims the result
func clean(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// ListingPage is the result of parsing one creator listing page
type ListingPage struct {
	Links   []string
	HasNext bool
}

// ParseListing extracts project links from a creator listing page. Links are
// resolved against pageURL and returned in document order without duplicates.
func ParseListing(r io.Reader, pageURL string) (*ListingPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Parse(pageURL, "failed to parse listing page", err)
	}
	return parseListingDocument(doc, pageURL), nil
}

func parseListingDocument(doc *goquery.Document, pageURL string) *ListingPage {
	base, _ := url.Parse(pageURL)

	cells := doc.Find(selProjectLinks)
	if cells.Length() == 0 {
		cells = doc.Find(selProjectThumbLinks)
	}

	page := &ListingPage{HasNext: doc.Find(selNextPage).Length() > 0}
	seen := make(map[string]bool)
	cells.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		link := resolve(base, href)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		page.Links = append(page.Links, link)
	})
	return page
}

// ParseProject extracts a project record from a project page. Every field is
// best effort; a missing field is left empty and never fails the parse. Assets
// on the returned record carry their source URL and archive filename but no
// data.
func ParseProject(r io.Reader, pageURL string) (*metadata.Project, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Parse(pageURL, "failed to parse project page", err)
	}
	return parseProjectDocument(doc, pageURL)
}

func parseProjectDocument(doc *goquery.Document, pageURL string) (*metadata.Project, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.Parse(pageURL, "invalid project URL", err)
	}
	slug := metadata.SlugFromURL(pageURL)
	if slug == "" {
		return nil, errors.Parse(pageURL, "project URL has no slug", nil)
	}

	p := &metadata.Project{
		URL:         pageURL,
		Slug:        slug,
		Title:       clean(doc.Find(selTitle).First().Text()),
		Description: clean(doc.Find(selDescription).First().Text()),
		Price:       clean(doc.Find(selPrice).First().Text()),
		Tags:        []string{},
		Platforms:   []string{},
		Screenshots: []metadata.Asset{},
		ScrapedAt:   time.Now().UTC(),
	}

	if p.Title == "" {
		p.Title = clean(metaContent(doc, selOGTitle))
	}
	if p.Title == "" {
		p.Title = slug
	}
	p.ShortDescription = clean(metaContent(doc, selOGDescription))

	p.Tags = collectTags(doc)
	p.Info = collectInfo(doc)
	p.Platforms = collectPlatforms(doc)

	if v, err := strconv.ParseFloat(metaContent(doc, selRatingValue), 64); err == nil {
		p.Rating = &v
	}
	if v, err := strconv.Atoi(metaContent(doc, selRatingCount)); err == nil {
		p.RatingCount = &v
	}

	if cover := coverURL(doc, base); cover != "" {
		p.Cover = &metadata.Asset{SourceURL: cover, Filename: metadata.CoverFilename(cover)}
	}
	for i, shot := range screenshotURLs(doc, base) {
		p.Screenshots = append(p.Screenshots, metadata.Asset{
			SourceURL: shot,
			Filename:  metadata.ScreenshotFilename(i, shot),
		})
	}

	return p, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

func collectTags(doc *goquery.Document) []string {
	tags := []string{}
	seen := make(map[string]bool)
	doc.Find(selTags).Each(func(_ int, s *goquery.Selection) {
		tag := clean(s.Text())
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	})
	return tags
}

func collectInfo(doc *goquery.Document) map[string]string {
	info := make(map[string]string)
	doc.Find(selInfoRows).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() != 2 {
			return
		}
		key := strings.TrimSuffix(clean(cells.Eq(0).Text()), ":")
		if key == "" {
			return
		}
		info[key] = clean(cells.Eq(1).Text())
	})
	if len(info) == 0 {
		return nil
	}
	return info
}

func collectPlatforms(doc *goquery.Document) []string {
	platforms := []string{}
	seen := make(map[string]bool)
	doc.Find(selPlatformIcons).Each(func(_ int, s *goquery.Selection) {
		for _, class := range strings.Fields(s.AttrOr("class", "")) {
			name := strings.TrimPrefix(class, platformIconClassPrefix)
			if name == class || name == "" || seen[name] {
				continue
			}
			seen[name] = true
			platforms = append(platforms, name)
		}
	})
	return platforms
}

func coverURL(doc *goquery.Document, base *url.URL) string {
	if cover := resolve(base, metaContent(doc, selOGImage)); cover != "" {
		return cover
	}
	img := doc.Find(selCoverImage).First()
	src := img.AttrOr("src", "")
	if src == "" {
		src = img.AttrOr("data-lazy_src", "")
	}
	return resolve(base, src)
}

func screenshotURLs(doc *goquery.Document, base *url.URL) []string {
	var urls []string
	doc.Find(selScreenshotLinks).Each(func(_ int, s *goquery.Selection) {
		if u := resolve(base, s.AttrOr("href", "")); u != "" {
			urls = append(urls, u)
		}
	})
	if len(urls) > 0 {
		return urls
	}
	doc.Find(selScreenshotImages).Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" {
			src = s.AttrOr("data-lazy_src", "")
		}
		if u := resolve(base, src); u != "" {
			urls = append(urls, u)
		}
	})
	return urls
}
