// Package workspace handles file operations and status reporting for a
// research project directory.
package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/nickng/bibtex"

	"github.com/yf176/Polyhedra/internal/paths"
)

// standardFiles are the documents a fully developed project carries.
var standardFiles = []string{
	"literature/papers.json",
	"literature/review.md",
	"literature/gaps.md",
	"ideas/hypotheses.md",
	"method/design.md",
	"paper/abstract.md",
	"paper/introduction.md",
	"paper/related_work.md",
	"paper/method.md",
	"paper/experiments.md",
	"paper/conclusion.md",
	"references.bib",
}

// Status summarizes the project's artifacts.
type Status struct {
	Root           string          `json:"root"`
	PapersCount    int             `json:"papers_count"`
	CitationsCount int             `json:"citations_count"`
	RAGIndexed     bool            `json:"rag_indexed"`
	StandardFiles  map[string]bool `json:"standard_files"`
}

// Workspace performs file operations relative to a project root.
type Workspace struct {
	root string
}

// New creates a workspace rooted at dir.
func New(dir string) *Workspace {
	return &Workspace{root: dir}
}

// Root returns the project root directory.
func (w *Workspace) Root() string {
	return w.root
}

// ReadFiles reads several project-relative files at once, reporting which
// ones could not be read.
func (w *Workspace) ReadFiles(relPaths []string) (contents map[string]string, missing []string) {
	contents = map[string]string{}
	for _, rel := range relPaths {
		data, err := os.ReadFile(filepath.Join(w.root, rel))
		if err != nil {
			missing = append(missing, rel)
			continue
		}
		contents[rel] = string(data)
	}
	return contents, missing
}

// WriteFile writes content to a project-relative path, creating parent
// directories as needed. It returns the number of bytes written.
func (w *Workspace) WriteFile(relPath, content string, append bool) (int, error) {
	path := filepath.Join(w.root, relPath)
	if err := paths.EnsureDir(filepath.Dir(path)); err != nil {
		return 0, err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if append {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := f.WriteString(content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// GetStatus reports counts and file presence for the project. Unreadable
// or malformed artifacts count as absent rather than failing the report.
func (w *Workspace) GetStatus() *Status {
	status := &Status{
		Root:          w.root,
		StandardFiles: map[string]bool{},
	}

	if data, err := os.ReadFile(paths.PapersPath(w.root)); err == nil {
		var papers []any
		if json.Unmarshal(data, &papers) == nil {
			status.PapersCount = len(papers)
		}
	}

	if f, err := os.Open(paths.ReferencesPath(w.root)); err == nil {
		if bib, err := bibtex.Parse(f); err == nil {
			status.CitationsCount = len(bib.Entries)
		}
		f.Close()
	}

	indexFile := filepath.Join(paths.EmbeddingsDir(w.root), "papers.json")
	if _, err := os.Stat(indexFile); err == nil {
		status.RAGIndexed = true
	}

	for _, rel := range standardFiles {
		_, err := os.Stat(filepath.Join(w.root, rel))
		status.StandardFiles[rel] = err == nil
	}

	return status
}
