package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yf176/Polyhedra/internal/project"
	"github.com/yf176/Polyhedra/internal/review"
	"github.com/yf176/Polyhedra/internal/scholar"
)

// registerTools adds all MCP tools
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	// Tool: search_papers - Search Semantic Scholar
	searchTool := mcp.NewTool("search_papers",
		mcp.WithDescription("Search for academic papers on Semantic Scholar"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query, e.g. 'transformer architectures'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (1-100, default 20)"),
		),
		mcp.WithNumber("year_start",
			mcp.Description("Only papers published in or after this year"),
		),
		mcp.WithNumber("year_end",
			mcp.Description("Only papers published in or before this year"),
		),
		mcp.WithArray("fields_of_study",
			mcp.Description("Filter by fields of study, e.g. ['Computer Science']"),
		),
	)
	mcpServer.AddTool(searchTool, s.handleSearchPapers)

	// Tool: get_paper - Fetch one paper by id
	getPaperTool := mcp.NewTool("get_paper",
		mcp.WithDescription("Get details for a single paper by its Semantic Scholar ID"),
		mcp.WithString("paper_id",
			mcp.Required(),
			mcp.Description("Semantic Scholar paper ID"),
		),
	)
	mcpServer.AddTool(getPaperTool, s.handleGetPaper)

	// Tool: get_context - Read project files
	getContextTool := mcp.NewTool("get_context",
		mcp.WithDescription("Read one or more project files relative to the project root"),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("Relative file paths to read, e.g. ['literature/review.md']"),
		),
	)
	mcpServer.AddTool(getContextTool, s.handleGetContext)

	// Tool: save_file - Write a project file
	saveFileTool := mcp.NewTool("save_file",
		mcp.WithDescription("Write content to a project file, creating parent directories as needed"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Relative file path to write"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("File content"),
		),
		mcp.WithBoolean("append",
			mcp.Description("Append instead of overwrite (default false)"),
		),
	)
	mcpServer.AddTool(saveFileTool, s.handleSaveFile)

	// Tool: add_citation - Add a BibTeX entry to references.bib
	addCitationTool := mcp.NewTool("add_citation",
		mcp.WithDescription("Add a BibTeX entry to references.bib, skipping duplicates by key"),
		mcp.WithString("bibtex",
			mcp.Required(),
			mcp.Description("Complete BibTeX entry"),
		),
	)
	mcpServer.AddTool(addCitationTool, s.handleAddCitation)

	// Tool: get_citations - List references.bib entries
	getCitationsTool := mcp.NewTool("get_citations",
		mcp.WithDescription("List all citation entries in references.bib"),
	)
	mcpServer.AddTool(getCitationsTool, s.handleGetCitations)

	// Tool: index_papers - Build the semantic index
	indexPapersTool := mcp.NewTool("index_papers",
		mcp.WithDescription("Build the semantic search index from a saved papers file"),
		mcp.WithString("papers_path",
			mcp.Description("Relative path to the papers JSON file (default literature/papers.json)"),
		),
	)
	mcpServer.AddTool(indexPapersTool, s.handleIndexPapers)

	// Tool: query_similar_papers - Semantic search over indexed papers
	querySimilarTool := mcp.NewTool("query_similar_papers",
		mcp.WithDescription("Find indexed papers semantically similar to a query"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of results to return (default 5)"),
		),
	)
	mcpServer.AddTool(querySimilarTool, s.handleQuerySimilarPapers)

	// Tool: get_project_status - Workspace overview
	statusTool := mcp.NewTool("get_project_status",
		mcp.WithDescription("Get project status: paper count, citations, index state, standard files"),
	)
	mcpServer.AddTool(statusTool, s.handleGetProjectStatus)

	// Tool: init_project - Create the standard layout
	initTool := mcp.NewTool("init_project",
		mcp.WithDescription("Initialize the standard research project layout in the project root"),
		mcp.WithString("project_name",
			mcp.Description("Project name (defaults to the directory name)"),
		),
	)
	mcpServer.AddTool(initTool, s.handleInitProject)

	// Tool: generate_literature_review - LLM review over saved papers
	reviewTool := mcp.NewTool("generate_literature_review",
		mcp.WithDescription("Generate a structured literature review from saved papers and write it to a file"),
		mcp.WithString("papers_file",
			mcp.Description("Relative path to the papers JSON file (default literature/papers.json)"),
		),
		mcp.WithString("focus",
			mcp.Description("Optional topical focus for the review"),
		),
		mcp.WithString("structure",
			mcp.Description("Organization: 'thematic', 'chronological' or 'methodological' (default thematic)"),
		),
		mcp.WithString("depth",
			mcp.Description("Depth: 'brief', 'standard' or 'comprehensive' (default standard)"),
		),
		mcp.WithBoolean("include_gaps",
			mcp.Description("Include a research gaps section (default true)"),
		),
		mcp.WithString("output_path",
			mcp.Description("Where to write the review (default literature/review.md)"),
		),
		mcp.WithString("llm_model",
			mcp.Description("Override the configured model for this generation"),
		),
	)
	mcpServer.AddTool(reviewTool, s.handleGenerateReview)

	// Tool: execute_research_command - Run a natural language workflow
	executeTool := mcp.NewTool("execute_research_command",
		mcp.WithDescription("Execute a natural language research command as a multi-step workflow, e.g. 'research papers on quantum error correction'"),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The research command to execute"),
		),
	)
	mcpServer.AddTool(executeTool, s.handleExecuteResearchCommand)

	// Tool: resume_workflow - Continue a paused workflow
	resumeTool := mcp.NewTool("resume_workflow",
		mcp.WithDescription("Resume a paused workflow from its saved position"),
		mcp.WithString("workflow_id",
			mcp.Required(),
			mcp.Description("The workflow ID to resume"),
		),
	)
	mcpServer.AddTool(resumeTool, s.handleResumeWorkflow)

	// Tool: list_workflows - Show persisted workflow states
	listTool := mcp.NewTool("list_workflows",
		mcp.WithDescription("List persisted workflows with their status and position"),
	)
	mcpServer.AddTool(listTool, s.handleListWorkflows)
}

// handleSearchPapers queries Semantic Scholar
func (s *Server) handleSearchPapers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	opts := scholar.SearchOptions{
		Limit:         intArg(args, "limit", 0),
		YearStart:     intArg(args, "year_start", 0),
		YearEnd:       intArg(args, "year_end", 0),
		FieldsOfStudy: stringSliceArg(args, "fields_of_study"),
	}

	papers, err := s.search.Search(ctx, query, opts)
	if err != nil {
		log.Printf("[server] paper search failed: %v", err)
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"count":  len(papers),
		"papers": papers,
	}), nil
}

// handleGetPaper fetches a single paper by id
func (s *Server) handleGetPaper(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	paperID, ok := args["paper_id"].(string)
	if !ok || paperID == "" {
		return mcp.NewToolResultError("paper_id parameter is required"), nil
	}

	paper, err := s.search.GetPaper(ctx, paperID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get paper: %v", err)), nil
	}

	return jsonResult(paper), nil
}

// handleGetContext reads project files
func (s *Server) handleGetContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	relPaths := stringSliceArg(args, "paths")
	if len(relPaths) == 0 {
		return mcp.NewToolResultError("paths parameter is required"), nil
	}

	contents, missing := s.files.ReadFiles(relPaths)
	return jsonResult(map[string]any{
		"contents": contents,
		"missing":  missing,
	}), nil
}

// handleSaveFile writes a project file
func (s *Server) handleSaveFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return mcp.NewToolResultError("path parameter is required"), nil
	}
	content, ok := args["content"].(string)
	if !ok {
		return mcp.NewToolResultError("content parameter is required"), nil
	}

	written, err := s.files.WriteFile(path, content, boolArg(args, "append", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save file: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"success":       true,
		"path":          path,
		"bytes_written": written,
	}), nil
}

// handleAddCitation appends a BibTeX entry to references.bib
func (s *Server) handleAddCitation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	entry, ok := args["bibtex"].(string)
	if !ok || entry == "" {
		return mcp.NewToolResultError("bibtex parameter is required"), nil
	}

	key, added, err := s.cites.AddEntry(entry)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to add citation: %v", err)), nil
	}

	message := fmt.Sprintf("Citation '%s' added", key)
	if !added {
		message = fmt.Sprintf("Citation '%s' already exists", key)
	}
	return jsonResult(map[string]any{
		"key":     key,
		"added":   added,
		"message": message,
	}), nil
}

// handleGetCitations lists references.bib entries
func (s *Server) handleGetCitations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.cites.AllEntries()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read citations: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"count":   len(entries),
		"entries": entries,
	}), nil
}

// handleIndexPapers builds the semantic index from a papers file
func (s *Server) handleIndexPapers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	papersPath := stringArg(args, "papers_path", "literature/papers.json")
	papers, err := s.loadPapers(papersPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	indexed, err := s.index.IndexPapers(ctx, papers)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Indexing failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"success":       true,
		"indexed_count": indexed,
	}), nil
}

// handleQuerySimilarPapers performs semantic search over the index
func (s *Server) handleQuerySimilarPapers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	if !s.index.IsIndexed() {
		return mcp.NewToolResultError("Papers not indexed. Run index_papers first."), nil
	}

	results, err := s.index.Query(ctx, query, intArg(args, "k", 5))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Query failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"count":   len(results),
		"results": results,
	}), nil
}

// handleGetProjectStatus reports the workspace overview
func (s *Server) handleGetProjectStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.files.GetStatus()), nil
}

// handleInitProject creates the standard project layout
func (s *Server) handleInitProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	name := stringArg(args, "project_name", "")
	report, err := project.NewInitializer(s.root).Initialize(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Initialization failed: %v", err)), nil
	}

	return jsonResult(report), nil
}

// handleGenerateReview generates a literature review from saved papers,
// writes it to the output path and records citations for every paper that
// carries a BibTeX entry.
func (s *Server) handleGenerateReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	papersFile := stringArg(args, "papers_file", "literature/papers.json")
	papers, err := s.loadPapers(papersFile)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(papers) == 0 {
		return mcp.NewToolResultError("Papers file is empty. Run search_papers first."), nil
	}

	opts := review.Options{
		Focus:       stringArg(args, "focus", ""),
		Structure:   stringArg(args, "structure", ""),
		Depth:       stringArg(args, "depth", ""),
		IncludeGaps: boolArg(args, "include_gaps", true),
	}

	svc := s.reviews
	if model := stringArg(args, "llm_model", ""); model != "" {
		svc = review.NewService(s.provider, model)
	}

	result, err := svc.GenerateReview(ctx, papers, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Review generation failed: %v", err)), nil
	}

	outputPath := stringArg(args, "output_path", "literature/review.md")
	if _, err := s.files.WriteFile(outputPath, result.Review, false); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save review: %v", err)), nil
	}

	citationsAdded := 0
	for _, paper := range papers {
		entry, _ := paper["bibtex_entry"].(string)
		if entry == "" {
			continue
		}
		if _, added, err := s.cites.AddEntry(entry); err == nil && added {
			citationsAdded++
		}
	}

	return jsonResult(map[string]any{
		"success":         true,
		"saved_to":        outputPath,
		"metadata":        result.Metadata,
		"cost":            result.Cost,
		"citations_added": citationsAdded,
	}), nil
}

// handleExecuteResearchCommand runs a workflow from a natural language command
func (s *Server) handleExecuteResearchCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	command, ok := args["command"].(string)
	if !ok || command == "" {
		return mcp.NewToolResultError("command parameter is required"), nil
	}

	return jsonResult(s.research.ExecuteCommand(ctx, command)), nil
}

// handleResumeWorkflow continues a paused workflow
func (s *Server) handleResumeWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	workflowID, ok := args["workflow_id"].(string)
	if !ok || workflowID == "" {
		return mcp.NewToolResultError("workflow_id parameter is required"), nil
	}

	result, err := s.research.Resume(ctx, workflowID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resume workflow: %v", err)), nil
	}

	return jsonResult(result), nil
}

// handleListWorkflows lists persisted workflow states
func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.states.ListWorkflows()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list workflows: %v", err)), nil
	}

	workflows := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		state, _ := s.states.Load(id)
		if state == nil {
			continue
		}
		entry := map[string]any{
			"workflow_id": state.WorkflowID,
			"status":      state.Status,
			"updated_at":  state.UpdatedAt,
		}
		if state.Workflow != nil {
			entry["name"] = state.Workflow.Name
		}
		if state.CurrentStep != "" {
			entry["current_step"] = state.CurrentStep
		}
		workflows = append(workflows, entry)
	}

	return jsonResult(map[string]any{
		"count":     len(workflows),
		"workflows": workflows,
	}), nil
}

// loadPapers reads and decodes a papers JSON file relative to the project
// root. Error text distinguishes a missing file from a malformed one.
func (s *Server) loadPapers(relPath string) ([]map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(s.root, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("Papers file not found: %s. Run search_papers first.", relPath)
		}
		return nil, fmt.Errorf("Failed to read papers file: %v", err)
	}

	var papers []map[string]any
	if err := json.Unmarshal(data, &papers); err != nil {
		return nil, fmt.Errorf("Failed to parse papers file %s: %v", relPath, err)
	}
	return papers, nil
}
