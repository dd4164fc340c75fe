package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yf176/Polyhedra/internal/config"
)

func TestInitializeCreatesStructure(t *testing.T) {
	root := t.TempDir()
	init := NewInitializer(root)

	report, err := init.Initialize("my-research")
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if len(report.CreatedDirs) != 5 {
		t.Errorf("created dirs = %v", report.CreatedDirs)
	}
	for _, dir := range []string{"literature", "ideas", "method", "paper", filepath.Join(".poly", "embeddings")} {
		info, err := os.Stat(filepath.Join(root, dir))
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s not created", dir)
		}
	}

	if _, err := os.Stat(filepath.Join(root, "references.bib")); err != nil {
		t.Error("references.bib not created")
	}
	if _, err := os.Stat(filepath.Join(root, ".poly", "config.yaml")); err != nil {
		t.Error("config.yaml not created")
	}

	settings, err := config.Load(root)
	if err != nil {
		t.Fatalf("Load config: %v", err)
	}
	if settings.Project.Name != "my-research" {
		t.Errorf("project name = %q", settings.Project.Name)
	}
	if settings.Project.Version != "2.0.0" {
		t.Errorf("version = %q", settings.Project.Version)
	}
}

func TestInitializeIdempotent(t *testing.T) {
	root := t.TempDir()
	init := NewInitializer(root)

	if _, err := init.Initialize(""); err != nil {
		t.Fatalf("first Initialize: %v", err)
	}
	report, err := init.Initialize("")
	if err != nil {
		t.Fatalf("second Initialize: %v", err)
	}

	if len(report.CreatedDirs) != 0 || len(report.CreatedFiles) != 0 {
		t.Errorf("second run created dirs=%v files=%v", report.CreatedDirs, report.CreatedFiles)
	}
	if len(report.ExistingDirs) != 5 {
		t.Errorf("existing dirs = %v", report.ExistingDirs)
	}
	if len(report.ExistingFiles) != 2 {
		t.Errorf("existing files = %v", report.ExistingFiles)
	}
}

func TestInitializeDefaultsNameToDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "quantum-survey")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := NewInitializer(root).Initialize(""); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	settings, err := config.Load(root)
	if err != nil {
		t.Fatalf("Load config: %v", err)
	}
	if settings.Project.Name != "quantum-survey" {
		t.Errorf("project name = %q", settings.Project.Name)
	}
}

func TestInitializePreservesExistingFiles(t *testing.T) {
	root := t.TempDir()
	existing := "@article{key2020,\n  title = {Kept}\n}\n"
	if err := os.WriteFile(filepath.Join(root, "references.bib"), []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewInitializer(root).Initialize(""); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "references.bib"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != existing {
		t.Error("existing references.bib was overwritten")
	}
}
