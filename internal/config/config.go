package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/yf176/Polyhedra/internal/paths"
)

// LLMSettings configures the language-model provider used for the intent
// fallback, literature reviews, and embeddings.
type LLMSettings struct {
	Provider       string  `yaml:"provider"` // "openai", "openrouter", ...
	Model          string  `yaml:"model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	BaseURL        string  `yaml:"base_url,omitempty"`
	APIKey         string  `yaml:"-"` // env only, never persisted
	MaxTokens      int     `yaml:"max_tokens,omitempty"`
	Temperature    float64 `yaml:"temperature,omitempty"`
}

// AgentSettings configures the orchestration engine.
type AgentSettings struct {
	CheckpointsEnabled bool    `yaml:"checkpoints_enabled"`
	CostThreshold      float64 `yaml:"cost_threshold"`
	AutoApproveBelow   float64 `yaml:"auto_approve_below"`
	StateRetentionDays int     `yaml:"state_retention_days"`
}

// Settings is the project configuration stored in .poly/config.yaml.
type Settings struct {
	Project struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"project"`
	Files struct {
		Papers     string `yaml:"papers"`
		References string `yaml:"references"`
	} `yaml:"files"`
	LLM   LLMSettings   `yaml:"llm"`
	Agent AgentSettings `yaml:"agent"`
}

// DefaultSettings returns the settings written by project initialization.
func DefaultSettings(projectName string) *Settings {
	s := &Settings{}
	s.Project.Name = projectName
	s.Project.Version = "2.0.0"
	s.Files.Papers = "literature/papers.json"
	s.Files.References = "references.bib"
	s.LLM = LLMSettings{
		Provider:       "openai",
		Model:          "gpt-4o",
		EmbeddingModel: "text-embedding-3-small",
		MaxTokens:      4096,
		Temperature:    0.3,
	}
	s.Agent = AgentSettings{
		CheckpointsEnabled: true,
		CostThreshold:      0.50,
		AutoApproveBelow:   0.10,
		StateRetentionDays: 7,
	}
	return s
}

// Load reads project settings, falling back to defaults when no config file
// exists yet. Environment variables always win for credentials.
func Load(projectRoot string) (*Settings, error) {
	s := DefaultSettings(filepath.Base(projectRoot))

	data, err := os.ReadFile(paths.ConfigPath(projectRoot))
	if err == nil {
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse %s: %w", paths.ConfigPath(projectRoot), err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(s)
	return s, nil
}

// Save writes settings to .poly/config.yaml.
func Save(projectRoot string, s *Settings) error {
	if err := paths.EnsureDir(paths.PolyDir(projectRoot)); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(paths.ConfigPath(projectRoot), data, 0644)
}

func applyEnv(s *Settings) {
	if v := os.Getenv("POLYHEDRA_LLM_API_KEY"); v != "" {
		s.LLM.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		s.LLM.APIKey = v
	}
	if v := os.Getenv("POLYHEDRA_LLM_MODEL"); v != "" {
		s.LLM.Model = v
	}
	if v := os.Getenv("POLYHEDRA_LLM_BASE_URL"); v != "" {
		s.LLM.BaseURL = v
	}
	if v := os.Getenv("POLYHEDRA_COST_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.Agent.CostThreshold = f
		}
	}
}
