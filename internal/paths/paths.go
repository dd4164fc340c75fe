package paths

import (
	"os"
	"path/filepath"
)

// PolyDirName is the hidden directory holding Polyhedra metadata inside a
// research project.
const PolyDirName = ".poly"

// PolyDir returns the metadata directory for a project root.
func PolyDir(projectRoot string) string {
	return filepath.Join(projectRoot, PolyDirName)
}

// ConfigPath returns the project config file location.
func ConfigPath(projectRoot string) string {
	return filepath.Join(PolyDir(projectRoot), "config.yaml")
}

// EmbeddingsDir returns the semantic index storage directory.
func EmbeddingsDir(projectRoot string) string {
	return filepath.Join(PolyDir(projectRoot), "embeddings")
}

// StateDir returns the workflow state directory.
func StateDir(projectRoot string) string {
	return filepath.Join(PolyDir(projectRoot), "state")
}

// ReferencesPath returns the BibTeX store location.
func ReferencesPath(projectRoot string) string {
	return filepath.Join(projectRoot, "references.bib")
}

// PapersPath returns the default search-results file.
func PapersPath(projectRoot string) string {
	return filepath.Join(projectRoot, "literature", "papers.json")
}

// EnsureDir creates the directory and all parents if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
