// Package server exposes the Polyhedra research tools over MCP stdio.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yf176/Polyhedra/internal/agent"
	"github.com/yf176/Polyhedra/internal/citations"
	"github.com/yf176/Polyhedra/internal/config"
	"github.com/yf176/Polyhedra/internal/llm"
	"github.com/yf176/Polyhedra/internal/paths"
	"github.com/yf176/Polyhedra/internal/rag"
	"github.com/yf176/Polyhedra/internal/review"
	"github.com/yf176/Polyhedra/internal/scholar"
	"github.com/yf176/Polyhedra/internal/workspace"
)

// getArgs extracts arguments from request as map[string]any
func getArgs(request mcp.CallToolRequest) map[string]any {
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		return args
	}
	return make(map[string]any)
}

// Server wires the research services behind an MCP tool surface.
type Server struct {
	mcpServer *server.MCPServer
	root      string
	settings  *config.Settings

	provider llm.Provider // nil when no API key is configured
	search   *scholar.Client
	files    *workspace.Workspace
	cites    *citations.Manager
	index    *rag.Service
	reviews  *review.Service
	research *agent.ResearchAgent
	states   *agent.StateManager
	approver agent.ApprovalProvider
}

// ServerOption customizes server construction.
type ServerOption func(*Server)

// WithApprover installs the approval provider used for checkpoint gates.
// Without one, checkpoints are logged and auto-approved.
func WithApprover(approver agent.ApprovalProvider) ServerOption {
	return func(s *Server) { s.approver = approver }
}

// WithScholarClient replaces the default Semantic Scholar client.
func WithScholarClient(c *scholar.Client) ServerOption {
	return func(s *Server) { s.search = c }
}

// WithProvider replaces the configured LLM provider.
func WithProvider(p llm.Provider) ServerOption {
	return func(s *Server) { s.provider = p }
}

// NewServer builds all services rooted at the given project directory and
// registers the MCP tools.
func NewServer(projectRoot string, opts ...ServerOption) (*Server, error) {
	settings, err := config.Load(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	s := &Server{
		root:     projectRoot,
		settings: settings,
	}

	if provider, err := llm.NewOpenAIProvider(settings.LLM); err == nil {
		s.provider = provider
	} else if errors.Is(err, llm.ErrNotConfigured) {
		log.Printf("[server] no LLM API key configured, running with pattern-only parsing")
	} else {
		return nil, fmt.Errorf("configure llm provider: %w", err)
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.search == nil {
		s.search = scholar.NewClient()
	}
	s.files = workspace.New(projectRoot)
	s.cites = citations.NewManager(projectRoot)
	if s.index == nil {
		var embedder rag.Embedder
		if s.provider != nil {
			embedder = s.provider
		}
		s.index = rag.NewService(projectRoot, embedder)
	}
	s.reviews = review.NewService(s.provider, settings.LLM.Model)

	states, err := agent.NewStateManager(paths.StateDir(projectRoot))
	if err != nil {
		return nil, fmt.Errorf("init state manager: %w", err)
	}
	s.states = states

	checkpoints := agent.NewCheckpointManager(agent.CheckpointConfig{
		Enabled:          settings.Agent.CheckpointsEnabled,
		CostThreshold:    settings.Agent.CostThreshold,
		AutoApproveBelow: settings.Agent.AutoApproveBelow,
	}, s.estimateOperationCost, s.approver)

	s.research = agent.NewResearchAgent(s.buildToolRegistry(),
		agent.WithIntentParser(agent.NewIntentParser(s.provider)),
		agent.WithCheckpointManager(checkpoints),
		agent.WithStateManager(states),
	)

	mcpServer := server.NewMCPServer(
		"polyhedra",
		settings.Project.Version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.mcpServer = mcpServer
	return s, nil
}

// Agent returns the research agent, for hosts that drive commands directly
// instead of over MCP.
func (s *Server) Agent() *agent.ResearchAgent {
	return s.research
}

// States returns the workflow state manager.
func (s *Server) States() *agent.StateManager {
	return s.states
}

// Run starts the MCP server in stdio mode.
func (s *Server) Run(ctx context.Context) error {
	log.Println("Starting Polyhedra MCP server in stdio mode...")
	return server.ServeStdio(s.mcpServer)
}

// jsonResult marshals a tool result into pretty-printed JSON text content.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// intArg reads an integer argument; JSON numbers arrive as float64.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func boolArg(args map[string]any, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}
