package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/yf176/Polyhedra/internal/agent"
	"github.com/yf176/Polyhedra/internal/format"
	"github.com/yf176/Polyhedra/internal/paths"
	"github.com/yf176/Polyhedra/internal/project"
	"github.com/yf176/Polyhedra/internal/server"
	"github.com/yf176/Polyhedra/internal/workspace"
)

var projectRoot string

var rootCmd = &cobra.Command{
	Use:   "polyhedra",
	Short: "MCP server and CLI for agentic academic research workflows",
	RunE: func(cmd *cobra.Command, args []string) error {
		// When launched by an MCP host, stdin is a pipe; serve. In a
		// terminal with no subcommand, show help instead of hanging.
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return cmd.Help()
		}
		return serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var runCmd = &cobra.Command{
	Use:   "run <command...>",
	Short: "Execute a research command, e.g. 'research papers on quantum error correction'",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := server.NewServer(projectRoot, server.WithApprover(terminalApprover{}))
		if err != nil {
			return err
		}

		result := srv.Agent().ExecuteCommand(cmd.Context(), strings.Join(args, " "))
		fmt.Print(format.WorkflowResult(result))

		// Render any generated review inline.
		for _, stepResult := range result.Results {
			if review, ok := stepResult["review"].(string); ok && review != "" {
				fmt.Print(format.Markdown(review))
			}
		}
		if !result.Success {
			os.Exit(1)
		}
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Initialize the standard research project layout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		report, err := project.NewInitializer(projectRoot).Initialize(name)
		if err != nil {
			return err
		}

		for _, dir := range report.CreatedDirs {
			fmt.Printf("created %s/\n", dir)
		}
		for _, file := range report.CreatedFiles {
			fmt.Printf("created %s\n", file)
		}
		if len(report.CreatedDirs) == 0 && len(report.CreatedFiles) == 0 {
			fmt.Println("project already initialized")
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project status",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := workspace.New(projectRoot).GetStatus()

		fmt.Printf("project:   %s\n", status.Root)
		fmt.Printf("papers:    %d\n", status.PapersCount)
		fmt.Printf("citations: %d\n", status.CitationsCount)
		fmt.Printf("indexed:   %v\n", status.RAGIndexed)

		files := make([]string, 0, len(status.StandardFiles))
		for file := range status.StandardFiles {
			files = append(files, file)
		}
		sort.Strings(files)
		for _, file := range files {
			mark := " "
			if status.StandardFiles[file] {
				mark = "x"
			}
			fmt.Printf("  [%s] %s\n", mark, file)
		}
		return nil
	},
}

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List persisted workflows",
	RunE: func(cmd *cobra.Command, args []string) error {
		states, err := agent.NewStateManager(paths.StateDir(projectRoot))
		if err != nil {
			return err
		}
		ids, err := states.ListWorkflows()
		if err != nil {
			return err
		}

		var loaded []*agent.WorkflowState
		for _, id := range ids {
			if state, _ := states.Load(id); state != nil {
				loaded = append(loaded, state)
			}
		}
		sort.Slice(loaded, func(i, j int) bool {
			return loaded[i].UpdatedAt.After(loaded[j].UpdatedAt)
		})

		fmt.Print(format.WorkflowTable(loaded))
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <workflow-id>",
	Short: "Resume a paused workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := server.NewServer(projectRoot, server.WithApprover(terminalApprover{}))
		if err != nil {
			return err
		}

		result, err := srv.Agent().Resume(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Print(format.WorkflowResult(result))
		if !result.Success {
			os.Exit(1)
		}
		return nil
	},
}

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old completed and failed workflow states",
	RunE: func(cmd *cobra.Command, args []string) error {
		states, err := agent.NewStateManager(paths.StateDir(projectRoot))
		if err != nil {
			return err
		}
		deleted, err := states.CleanupOlderThan(cleanupDays)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d workflow state(s)\n", deleted)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectRoot, "project", "C", ".", "Project root directory")
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 7, "Delete terminal states older than this many days")

	rootCmd.AddCommand(serveCmd, runCmd, initCmd, statusCmd, workflowsCmd, resumeCmd, cleanupCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve() error {
	// Stdio carries the MCP protocol; checkpoints cannot prompt a terminal
	// here, so the default logging approver applies.
	srv, err := server.NewServer(projectRoot)
	if err != nil {
		return err
	}
	return srv.Run(context.Background())
}

// terminalApprover asks for checkpoint approval on the controlling terminal.
type terminalApprover struct{}

func (terminalApprover) RequestApproval(ctx context.Context, prompt string) (bool, error) {
	fmt.Print(prompt)
	fmt.Print("Proceed? [y/N]: ")

	answerCh := make(chan string, 1)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answerCh <- strings.ToLower(strings.TrimSpace(answer))
	}()

	select {
	case <-ctx.Done():
		fmt.Println()
		return false, ctx.Err()
	case answer := <-answerCh:
		return answer == "y" || answer == "yes", nil
	}
}
