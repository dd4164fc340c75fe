// Package citations manages the project bibliography in references.bib.
package citations

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nickng/bibtex"
)

// Entry is a bibliography entry with its common fields lifted out.
// Less common fields (journal, doi, pages, ...) stay in Fields.
type Entry struct {
	Key    string            `json:"key"`
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Author string            `json:"author"`
	Year   string            `json:"year"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Manager reads and writes BibTeX entries in a project's references.bib.
type Manager struct {
	path string
}

// NewManager creates a manager for the references.bib under projectRoot.
func NewManager(projectRoot string) *Manager {
	return &Manager{path: filepath.Join(projectRoot, "references.bib")}
}

// Path returns the bibliography file location.
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) load() (*bibtex.BibTex, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return bibtex.NewBibTex(), nil
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return bibtex.NewBibTex(), nil
	}
	bib, err := bibtex.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", m.path, err)
	}
	return bib, nil
}

func (m *Manager) save(bib *bibtex.BibTex) error {
	return os.WriteFile(m.path, []byte(bib.String()), 0o644)
}

// AddEntry parses a BibTeX string and appends its first entry to the
// bibliography. Adding an entry whose key already exists is a no-op;
// the second return value reports whether anything was written.
func (m *Manager) AddEntry(bibtexStr string) (string, bool, error) {
	parsed, err := bibtex.Parse(strings.NewReader(bibtexStr))
	if err != nil {
		return "", false, fmt.Errorf("invalid BibTeX format: %w", err)
	}
	if len(parsed.Entries) == 0 {
		return "", false, fmt.Errorf("no valid BibTeX entries found in input")
	}

	entry := parsed.Entries[0]
	if entry.CiteName == "" {
		return "", false, fmt.Errorf("BibTeX entry missing citation key")
	}

	bib, err := m.load()
	if err != nil {
		return "", false, err
	}
	for _, existing := range bib.Entries {
		if existing.CiteName == entry.CiteName {
			return entry.CiteName, false, nil
		}
	}

	bib.Entries = append(bib.Entries, entry)
	if err := m.save(bib); err != nil {
		return "", false, err
	}
	return entry.CiteName, true, nil
}

// AllKeys returns every citation key, sorted.
func (m *Manager) AllKeys() ([]string, error) {
	bib, err := m.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(bib.Entries))
	for _, entry := range bib.Entries {
		if entry.CiteName != "" {
			keys = append(keys, entry.CiteName)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// AllEntries returns every entry with its metadata.
func (m *Manager) AllEntries() ([]Entry, error) {
	bib, err := m.load()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(bib.Entries))
	for _, raw := range bib.Entries {
		entry := Entry{
			Key:  raw.CiteName,
			Type: raw.Type,
		}
		if entry.Type == "" {
			entry.Type = "misc"
		}
		for name, value := range raw.Fields {
			switch name {
			case "title":
				entry.Title = value.String()
			case "author":
				entry.Author = value.String()
			case "year":
				entry.Year = value.String()
			default:
				if entry.Fields == nil {
					entry.Fields = map[string]string{}
				}
				entry.Fields[name] = value.String()
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
