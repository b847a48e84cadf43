// Package itchtest runs a fake itch.io over httptest for package tests.
//
// Creator pages live at /<creator>, projects at /<creator>/<slug> and images
// at /img/<name>, so a client configured with BaseURL() resolves everything
// against the fake server.
package itchtest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"itcharchive/pkg/config"
)

// Project describes one fake project page
type Project struct {
	Slug        string
	Title       string
	Description string
	Price       string // empty renders no price element
	Tags        []string
	Platforms   []string
	Rating      string
	RatingCount string
	Info        map[string]string
	Cover       string   // image name served under /img/
	Screenshots []string // image names served under /img/
	Status      int      // non-zero overrides the page status
}

// Server is a fake itch.io
type Server struct {
	*httptest.Server

	// PageSize controls how many projects each listing page shows
	PageSize int

	mu       sync.Mutex
	creators map[string][]Project
	images   map[string][]byte
	statuses map[string]int
	hits     map[string]int
}

// NewServer starts a fake itch.io. Close it when done.
func NewServer() *Server {
	s := &Server{
		PageSize: 30,
		creators: make(map[string][]Project),
		images:   make(map[string][]byte),
		statuses: make(map[string]int),
		hits:     make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// BaseURL returns the creator page template pointing at this server
func (s *Server) BaseURL() string {
	return s.URL + "/" + config.CreatorPlaceholder
}

// Config returns a configuration wired to the fake server with pacing off
func (s *Server) Config(outputDir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Itch.BaseURL = s.BaseURL()
	cfg.HTTP.RequestsPerSecond = 0
	cfg.Output.Directory = outputDir
	cfg.Logging.Level = "disabled"
	return cfg
}

// AddCreator registers a creator and its projects in listing order
func (s *Server) AddCreator(creator string, projects ...Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creators[creator] = append(s.creators[creator], projects...)
}

// AddImage serves data at /img/<name>
func (s *Server) AddImage(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[name] = data
}

// SetStatus forces the response status for a path
func (s *Server) SetStatus(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[path] = status
}

// Hits returns how many times path was requested
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// ProjectURL returns the absolute URL of a project page
func (s *Server) ProjectURL(creator, slug string) string {
	return fmt.Sprintf("%s/%s/%s", s.URL, creator, slug)
}

// ImageURL returns the absolute URL of an image
func (s *Server) ImageURL(name string) string {
	return s.URL + "/img/" + name
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits[r.URL.Path]++
	if status, ok := s.statuses[r.URL.Path]; ok {
		w.WriteHeader(status)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "img":
		data, ok := s.images[parts[1]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)

	case len(parts) == 1:
		projects, ok := s.creators[parts[0]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		page := 1
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
		s.writeListing(w, parts[0], projects, page)

	case len(parts) == 2:
		for _, p := range s.creators[parts[0]] {
			if p.Slug != parts[1] {
				continue
			}
			if p.Status != 0 {
				w.WriteHeader(p.Status)
				return
			}
			s.writeProject(w, p)
			return
		}
		http.NotFound(w, r)

	default:
		http.NotFound(w, r)
	}
}

func (s *Server) writeListing(w http.ResponseWriter, creator string, projects []Project, page int) {
	start := (page - 1) * s.PageSize
	end := start + s.PageSize
	if start > len(projects) {
		start = len(projects)
	}
	if end > len(projects) {
		end = len(projects)
	}

	var b strings.Builder
	b.WriteString("<html><body><div class=\"game_grid_widget\">")
	for _, p := range projects[start:end] {
		// both link styles point at the same page, the lister must de-duplicate
		fmt.Fprintf(&b, `<div class="game_cell"><div class="game_thumb"><a href="/%s/%s">thumb</a></div>`, creator, p.Slug)
		fmt.Fprintf(&b, `<a class="title game_link" href="/%s/%s">%s</a></div>`, creator, p.Slug, html.EscapeString(p.Title))
	}
	b.WriteString("</div>")
	if end < len(projects) {
		fmt.Fprintf(&b, `<a class="next_page" href="?page=%d">Next</a>`, page+1)
	}
	b.WriteString("</body></html>")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(b.String()))
}

func (s *Server) writeProject(w http.ResponseWriter, p Project) {
	var b strings.Builder
	b.WriteString("<html><head>")
	fmt.Fprintf(&b, `<meta property="og:title" content="%s">`, html.EscapeString(p.Title))
	fmt.Fprintf(&b, `<meta property="og:description" content="%s">`, html.EscapeString(p.Description))
	if p.Cover != "" {
		fmt.Fprintf(&b, `<meta property="og:image" content="%s">`, s.ImageURL(p.Cover))
	}
	b.WriteString("</head><body>")
	fmt.Fprintf(&b, `<h1 class="game_title">%s</h1>`, html.EscapeString(p.Title))
	if p.Price != "" {
		fmt.Fprintf(&b, `<div class="buy_btn_widget"><span class="price">%s</span></div>`, html.EscapeString(p.Price))
	}
	fmt.Fprintf(&b, `<div class="formatted_description"><p>%s</p></div>`, html.EscapeString(p.Description))

	if len(p.Screenshots) > 0 {
		b.WriteString(`<div class="screenshot_list">`)
		for _, shot := range p.Screenshots {
			fmt.Fprintf(&b, `<a href="%s"><img src="%s"></a>`, s.ImageURL(shot), s.ImageURL(shot))
		}
		b.WriteString("</div>")
	}

	b.WriteString(`<div class="game_info_panel_widget"><table>`)
	for k, v := range p.Info {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td></tr>", html.EscapeString(k), html.EscapeString(v))
	}
	if len(p.Tags) > 0 {
		b.WriteString("<tr><td>Tags</td><td>")
		for _, tag := range p.Tags {
			fmt.Fprintf(&b, `<a href="https://itch.io/games/tag-%s">%s</a>`, strings.ToLower(tag), html.EscapeString(tag))
		}
		b.WriteString("</td></tr>")
	}
	b.WriteString("</table>")
	for _, platform := range p.Platforms {
		fmt.Fprintf(&b, `<span class="icon icon-%s"></span>`, platform)
	}
	if p.Rating != "" {
		fmt.Fprintf(&b, `<meta itemprop="ratingValue" content="%s">`, p.Rating)
		fmt.Fprintf(&b, `<meta itemprop="ratingCount" content="%s">`, p.RatingCount)
	}
	b.WriteString("</div></body></html>")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(b.String()))
}
