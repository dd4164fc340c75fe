package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ResearchAgent executes multi-step research workflows end to end: it
// parses commands into intents, generates workflows, runs them step by
// step with retry and circuit breaking, gates expensive steps behind
// checkpoints, and persists progress so interrupted workflows can resume.
type ResearchAgent struct {
	adapter     *ToolAdapter
	parser      *IntentParser
	generator   *WorkflowGenerator
	retryConfig RetryConfig
	breaker     *CircuitBreaker
	checkpoints *CheckpointManager
	states      *StateManager // nil disables persistence
}

// AgentOption customizes a ResearchAgent.
type AgentOption func(*ResearchAgent)

// WithIntentParser replaces the default pattern-only parser.
func WithIntentParser(p *IntentParser) AgentOption {
	return func(a *ResearchAgent) { a.parser = p }
}

// WithRetryConfig replaces the default retry policy.
func WithRetryConfig(cfg RetryConfig) AgentOption {
	return func(a *ResearchAgent) { a.retryConfig = cfg }
}

// WithCircuitBreaker replaces the default breaker.
func WithCircuitBreaker(cb *CircuitBreaker) AgentOption {
	return func(a *ResearchAgent) { a.breaker = cb }
}

// WithCheckpointManager installs an approval gate for expensive steps.
func WithCheckpointManager(cm *CheckpointManager) AgentOption {
	return func(a *ResearchAgent) { a.checkpoints = cm }
}

// WithStateManager enables durable workflow state and resume support.
func WithStateManager(sm *StateManager) AgentOption {
	return func(a *ResearchAgent) { a.states = sm }
}

// NewResearchAgent creates an agent over the given tool registry.
func NewResearchAgent(adapter *ToolAdapter, opts ...AgentOption) *ResearchAgent {
	a := &ResearchAgent{
		adapter:     adapter,
		parser:      NewIntentParser(nil),
		generator:   NewWorkflowGenerator(),
		retryConfig: DefaultRetryConfig(),
		breaker:     NewCircuitBreaker(5, 60*time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ExecuteCommand runs a natural language research command. It never
// returns an error: every failure mode is folded into the result.
func (a *ResearchAgent) ExecuteCommand(ctx context.Context, command string) *WorkflowResult {
	log.Printf("[agent] executing command: %s", command)
	start := time.Now()

	intent := a.parser.Parse(ctx, command)
	log.Printf("[agent] parsed intent: %s, topic: %q", intent.Type, intent.Topic)

	workflow, err := a.generator.Generate(intent)
	if err != nil {
		return &WorkflowResult{
			Success:        false,
			Results:        map[string]map[string]any{},
			Errors:         []string{err.Error()},
			Message:        fmt.Sprintf("Command failed: %v", err),
			ElapsedSeconds: time.Since(start).Seconds(),
		}
	}
	log.Printf("[agent] generated workflow %s with %d steps", workflow.Name, len(workflow.Steps))

	result := a.execute(ctx, workflow, intent)
	result.ElapsedSeconds = time.Since(start).Seconds()
	return result
}

// ExecuteWorkflow validates and runs a workflow from its first step.
func (a *ResearchAgent) ExecuteWorkflow(ctx context.Context, workflow *Workflow) *WorkflowResult {
	return a.execute(ctx, workflow, nil)
}

func (a *ResearchAgent) execute(ctx context.Context, workflow *Workflow, intent *Intent) *WorkflowResult {
	if err := workflow.Validate(); err != nil {
		return &WorkflowResult{
			Success: false,
			Results: map[string]map[string]any{},
			Errors:  []string{err.Error()},
			Message: fmt.Sprintf("Invalid workflow: %v", err),
		}
	}

	var state *WorkflowState
	if a.states != nil {
		state = &WorkflowState{
			WorkflowID:  uuid.NewString(),
			Intent:      intent,
			Workflow:    workflow,
			StepResults: map[string]map[string]any{},
			Status:      StatusRunning,
		}
	}
	return a.run(ctx, workflow, state)
}

// Resume continues a paused workflow from its saved position. Results of
// already-completed steps are kept and remain referenceable.
func (a *ResearchAgent) Resume(ctx context.Context, workflowID string) (*WorkflowResult, error) {
	if a.states == nil {
		return nil, fmt.Errorf("state persistence is not enabled")
	}
	state, err := a.states.Load(workflowID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("workflow %s not found", workflowID)
	}
	if state.Status != StatusPaused {
		return nil, fmt.Errorf("workflow %s is %s, only paused workflows can resume", workflowID, state.Status)
	}

	state.Status = StatusRunning
	log.Printf("[agent] resuming workflow %s at step %q", workflowID, state.CurrentStep)
	return a.run(ctx, state.Workflow, state), nil
}

// run is the sequential executor. state may be nil when persistence is
// disabled; otherwise progress is saved after every step.
func (a *ResearchAgent) run(ctx context.Context, workflow *Workflow, state *WorkflowState) *WorkflowResult {
	log.Printf("[agent] executing workflow: %s", workflow.Name)

	results := map[string]map[string]any{}
	var errs []string
	startIdx := 0

	if state != nil {
		for name, res := range state.StepResults {
			results[name] = res
		}
		startIdx = stepIndex(workflow, state.CurrentStep)
	}

	for i := startIdx; i < len(workflow.Steps); i++ {
		step := workflow.Steps[i]
		log.Printf("[agent] step %d/%d: %s", i+1, len(workflow.Steps), step.Name)
		a.persist(state, func(s *WorkflowState) { s.CurrentStep = step.Name })

		if denied, result := a.gateStep(ctx, step); denied {
			a.persist(state, func(s *WorkflowState) {
				s.Status = StatusPaused
				s.LastError = "approval denied for step " + step.Name
			})
			result.Results = results
			result.Errors = append(errs, result.Errors...)
			return result
		}

		stepResult := a.executeStep(ctx, step, results)
		results[step.Name] = stepResult

		success, _ := stepResult["success"].(bool)
		if !success {
			errMsg := fmt.Sprintf("Step '%s' failed: %v", step.Name, stepError(stepResult))
			errs = append(errs, errMsg)
			a.persist(state, func(s *WorkflowState) {
				s.StepResults[step.Name] = stepResult
				s.ErrorCount++
				s.LastError = errMsg
			})

			if step.Critical {
				log.Printf("[agent] critical step failed: %s", step.Name)
				a.persist(state, func(s *WorkflowState) { s.Status = StatusFailed })
				return &WorkflowResult{
					Success: false,
					Results: results,
					Errors:  errs,
					Message: "Workflow failed at critical step: " + step.Name,
				}
			}
			continue
		}

		a.persist(state, func(s *WorkflowState) {
			s.StepResults[step.Name] = stepResult
			s.CompletedSteps = append(s.CompletedSteps, step.Name)
		})
	}

	a.persist(state, func(s *WorkflowState) {
		s.Status = StatusCompleted
		s.CurrentStep = ""
	})
	return &WorkflowResult{
		Success: true,
		Results: results,
		Errors:  errs,
		Message: fmt.Sprintf("Workflow '%s' completed successfully", workflow.Name),
	}
}

// gateStep runs the checkpoint gate for a step. When approval is denied it
// returns a terminal result; otherwise execution proceeds.
func (a *ResearchAgent) gateStep(ctx context.Context, step WorkflowStep) (bool, *WorkflowResult) {
	if a.checkpoints == nil {
		return false, nil
	}
	if !a.checkpoints.ShouldCheckpoint(ctx, step.Tool, step.Arguments) {
		return false, nil
	}

	cost, err := a.checkpoints.EstimateCost(ctx, step.Tool, step.Arguments)
	if err != nil {
		cost = 0 // estimation failed, the gate already decided to ask
	}
	approved := a.checkpoints.RequestApproval(ctx, &Checkpoint{
		StepName:      step.Name,
		Operation:     step.Tool,
		EstimatedCost: cost,
		Rationale:     step.Description,
	})
	if approved {
		return false, nil
	}

	log.Printf("[agent] approval denied for step: %s", step.Name)
	return true, &WorkflowResult{
		Success: false,
		Errors:  []string{"approval denied for step " + step.Name},
		Message: "Workflow paused: approval denied for step " + step.Name,
	}
}

// executeStep resolves arguments and invokes the tool with retry, circuit
// breaking and the step timeout applied. Tool errors never propagate; they
// become failed step results.
func (a *ResearchAgent) executeStep(ctx context.Context, step WorkflowStep, previous map[string]map[string]any) map[string]any {
	tool, err := a.adapter.GetTool(step.Tool)
	if err != nil {
		return map[string]any{"success": false, "error": fmt.Sprintf("Tool '%s' not found", step.Tool)}
	}

	args := resolveArguments(step.Arguments, previous)

	cfg := a.retryConfig
	if step.RetryCount > 0 {
		cfg.MaxAttempts = step.RetryCount + 1
	}

	stepCtx := ctx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, time.Duration(step.Timeout*float64(time.Second)))
		defer cancel()
	}

	result, err := RetryWithBackoff(stepCtx, func(ctx context.Context) (map[string]any, error) {
		return tool(ctx, args)
	}, cfg, a.breaker)
	if err != nil {
		log.Printf("[agent] tool %s execution failed: %v", step.Tool, err)
		return map[string]any{"success": false, "error": err.Error()}
	}
	if result == nil {
		result = map[string]any{}
	}
	if _, ok := result["success"]; !ok {
		result["success"] = true
	}
	return result
}

// resolveArguments substitutes ${step} and ${step.key} references with
// values from earlier step results. Unresolvable references become nil,
// matching the behavior of a missing map key.
func resolveArguments(arguments map[string]any, previous map[string]map[string]any) map[string]any {
	resolved := make(map[string]any, len(arguments))
	for key, value := range arguments {
		str, ok := value.(string)
		if !ok || !strings.HasPrefix(str, "${") || !strings.HasSuffix(str, "}") {
			resolved[key] = value
			continue
		}

		ref := str[2 : len(str)-1]
		if stepName, resultKey, found := strings.Cut(ref, "."); found {
			resolved[key] = previous[stepName][resultKey]
		} else if stepResult, ok := previous[ref]; ok {
			resolved[key] = stepResult
		} else {
			resolved[key] = nil
		}
	}
	return resolved
}

// persist applies a mutation to the workflow state and saves it. A nil
// state or a failed save only logs; execution is never interrupted by
// persistence problems.
func (a *ResearchAgent) persist(state *WorkflowState, mutate func(*WorkflowState)) {
	if state == nil || a.states == nil {
		return
	}
	mutate(state)
	if err := a.states.Save(state); err != nil {
		log.Printf("[agent] failed to persist workflow state %s: %v", state.WorkflowID, err)
	}
}

// stepIndex maps a saved step name back to its position; unknown or empty
// names restart from the beginning.
func stepIndex(workflow *Workflow, name string) int {
	if name == "" {
		return 0
	}
	for i, step := range workflow.Steps {
		if step.Name == name {
			return i
		}
	}
	return 0
}

func stepError(result map[string]any) any {
	if err, ok := result["error"]; ok {
		return err
	}
	return "Unknown error"
}
