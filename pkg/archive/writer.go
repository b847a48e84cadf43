package archive

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"itcharchive/pkg/metadata"
)

const (
	// IndexFile is the name of the manifest at the archive root
	IndexFile = "index.json"

	// MetadataFile is the per-project metadata file name
	MetadataFile = "metadata.json"
)

// Index is the manifest written to the archive root
type Index struct {
	Creator      string             `json:"creator"`
	GeneratedAt  time.Time          `json:"generated_at"`
	ProjectCount int                `json:"project_count"`
	Projects     []metadata.Summary `json:"projects"`
	Skipped      []SkippedItem      `json:"skipped"`
}

// SkippedItem records a project or asset left out of the archive
type SkippedItem struct {
	URL     string `json:"url"`
	Project string `json:"project,omitempty"`
	Kind    string `json:"kind"`
	Reason  string `json:"reason"`
}

// Writer streams projects into a ZIP archive. The archive is built in a
// temporary file next to its final path and only renamed into place by
// Finalize, so an aborted run never leaves a partial archive behind.
type Writer struct {
	path     string
	tempPath string
	file     *os.File
	zw       *zip.Writer

	mu       sync.Mutex
	slugs    map[string]bool
	projects []metadata.Summary
	closed   bool
}

// NewWriter creates the output directory if needed and opens a temporary
// archive that will become dir/name on Finalize.
func NewWriter(dir, name string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary archive: %w", err)
	}

	return &Writer{
		path:     filepath.Join(dir, name),
		tempPath: file.Name(),
		file:     file,
		zw:       zip.NewWriter(file),
		slugs:    make(map[string]bool),
	}, nil
}

// ProjectCount returns the number of projects written so far
func (w *Writer) ProjectCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.projects)
}

// AddProject writes <slug>/metadata.json and the project's images. Slugs are
// made unique within the archive by suffixing -2, -3 and so on; p.Slug is
// updated to the slug actually used. Image bytes are released once written.
func (w *Writer) AddProject(p *metadata.Project) (metadata.Summary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return metadata.Summary{}, fmt.Errorf("archive already closed")
	}

	p.Slug = w.uniqueSlug(p.Slug)
	p.Normalize()

	for _, asset := range p.Assets() {
		if err := w.writeEntry(path.Join(p.Slug, asset.Filename), asset.Data, zip.Store); err != nil {
			return metadata.Summary{}, err
		}
	}
	p.ReleaseData()

	data, err := p.Marshal()
	if err != nil {
		return metadata.Summary{}, err
	}
	if err := w.writeEntry(path.Join(p.Slug, MetadataFile), data, zip.Deflate); err != nil {
		return metadata.Summary{}, err
	}

	summary := p.Summary()
	w.projects = append(w.projects, summary)
	return summary, nil
}

func (w *Writer) uniqueSlug(slug string) string {
	slug = metadata.SanitizeSlug(slug)
	if slug == "" {
		slug = "project"
	}
	candidate := slug
	for n := 2; w.slugs[candidate]; n++ {
		candidate = slug + "-" + strconv.Itoa(n)
	}
	w.slugs[candidate] = true
	return candidate
}

func (w *Writer) writeEntry(name string, data []byte, method uint16) error {
	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}
	return nil
}

// Finalize writes index.json, closes the archive and atomically moves it to
// its final path, which it returns.
func (w *Writer) Finalize(creator string, skipped []SkippedItem) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return "", fmt.Errorf("archive already closed")
	}
	w.closed = true

	if skipped == nil {
		skipped = []SkippedItem{}
	}
	projects := w.projects
	if projects == nil {
		projects = []metadata.Summary{}
	}

	index := Index{
		Creator:      creator,
		GeneratedAt:  time.Now().UTC(),
		ProjectCount: len(projects),
		Projects:     projects,
		Skipped:      skipped,
	}
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		w.discard()
		return "", fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := w.writeEntry(IndexFile, data, zip.Deflate); err != nil {
		w.discard()
		return "", err
	}
	if err := w.zw.Close(); err != nil {
		w.discard()
		return "", fmt.Errorf("failed to close archive: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tempPath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(w.tempPath, w.path); err != nil {
		os.Remove(w.tempPath)
		return "", fmt.Errorf("failed to rename temporary archive: %w", err)
	}

	return w.path, nil
}

// Abort discards the temporary archive. It is safe to call after Finalize.
func (w *Writer) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.discard()
}

func (w *Writer) discard() error {
	w.file.Close()
	if err := os.Remove(w.tempPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temporary archive: %w", err)
	}
	return nil
}

// ReadIndex opens a finished archive and decodes its index.json
func ReadIndex(archivePath string) (*Index, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	f, err := r.Open(IndexFile)
	if err != nil {
		return nil, fmt.Errorf("archive has no %s: %w", IndexFile, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", IndexFile, err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", IndexFile, err)
	}
	return &index, nil
}

// Entries lists the file names inside an archive in write order
func Entries(archivePath string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}
