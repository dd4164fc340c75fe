package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.Project.Version != "2.0.0" {
		t.Errorf("Expected version 2.0.0, got %s", s.Project.Version)
	}
	if s.Files.Papers != "literature/papers.json" {
		t.Errorf("Unexpected papers path: %s", s.Files.Papers)
	}
	if s.Agent.AutoApproveBelow != 0.10 {
		t.Errorf("Unexpected auto-approve band: %f", s.Agent.AutoApproveBelow)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := DefaultSettings("my-project")
	s.Agent.CostThreshold = 1.25
	if err := Save(dir, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".poly", "config.yaml")); err != nil {
		t.Fatalf("config.yaml not written: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Project.Name != "my-project" {
		t.Errorf("Expected project name my-project, got %s", loaded.Project.Name)
	}
	if loaded.Agent.CostThreshold != 1.25 {
		t.Errorf("Expected cost threshold 1.25, got %f", loaded.Agent.CostThreshold)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POLYHEDRA_LLM_API_KEY", "sk-test")
	t.Setenv("POLYHEDRA_LLM_MODEL", "gpt-4o-mini")

	s, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.LLM.APIKey != "sk-test" {
		t.Errorf("API key not taken from env")
	}
	if s.LLM.Model != "gpt-4o-mini" {
		t.Errorf("Model not taken from env, got %s", s.LLM.Model)
	}
}
