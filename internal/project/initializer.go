// Package project creates the standard research project layout.
package project

import (
	"os"
	"path/filepath"

	"github.com/yf176/Polyhedra/internal/config"
	"github.com/yf176/Polyhedra/internal/paths"
)

// standardDirs is the directory skeleton every project gets.
var standardDirs = []string{
	"literature",
	"ideas",
	"method",
	"paper",
	filepath.Join(paths.PolyDirName, "embeddings"),
}

// Report lists what Initialize created versus what already existed.
type Report struct {
	Root          string   `json:"root"`
	CreatedDirs   []string `json:"created_dirs"`
	CreatedFiles  []string `json:"created_files"`
	ExistingDirs  []string `json:"existing_dirs"`
	ExistingFiles []string `json:"existing_files"`
}

// Initializer sets up new research projects.
type Initializer struct {
	root string
}

// NewInitializer creates an initializer rooted at dir.
func NewInitializer(dir string) *Initializer {
	return &Initializer{root: dir}
}

// Initialize creates the standard directories, an empty references.bib and
// a default .poly/config.yaml. Running it on an initialized project is a
// no-op per artifact; the report shows what was created this time.
func (in *Initializer) Initialize(projectName string) (*Report, error) {
	if projectName == "" {
		projectName = filepath.Base(in.root)
	}

	report := &Report{
		Root:          in.root,
		CreatedDirs:   []string{},
		CreatedFiles:  []string{},
		ExistingDirs:  []string{},
		ExistingFiles: []string{},
	}

	for _, dir := range standardDirs {
		full := filepath.Join(in.root, dir)
		if _, err := os.Stat(full); err == nil {
			report.ExistingDirs = append(report.ExistingDirs, dir)
			continue
		}
		if err := paths.EnsureDir(full); err != nil {
			return nil, err
		}
		report.CreatedDirs = append(report.CreatedDirs, dir)
	}

	bibPath := paths.ReferencesPath(in.root)
	if _, err := os.Stat(bibPath); err == nil {
		report.ExistingFiles = append(report.ExistingFiles, "references.bib")
	} else {
		if err := os.WriteFile(bibPath, []byte(""), 0o644); err != nil {
			return nil, err
		}
		report.CreatedFiles = append(report.CreatedFiles, "references.bib")
	}

	configPath := paths.ConfigPath(in.root)
	configRel := filepath.Join(paths.PolyDirName, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		report.ExistingFiles = append(report.ExistingFiles, configRel)
	} else {
		settings := config.DefaultSettings(projectName)
		if err := config.Save(in.root, settings); err != nil {
			return nil, err
		}
		report.CreatedFiles = append(report.CreatedFiles, configRel)
	}

	return report, nil
}
