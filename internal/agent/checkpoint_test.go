package agent

import (
	"context"
	"errors"
	"testing"
)

type recordingApprover struct {
	decision bool
	err      error
	prompts  []string
}

func (a *recordingApprover) RequestApproval(_ context.Context, prompt string) (bool, error) {
	a.prompts = append(a.prompts, prompt)
	return a.decision, a.err
}

func TestCheckpointAutoApproveSmallCost(t *testing.T) {
	cfg := DefaultCheckpointConfig()
	cfg.AutoApproveBelow = 0.10
	approver := &recordingApprover{decision: false}
	manager := NewCheckpointManager(cfg, nil, approver)

	cp := &Checkpoint{
		StepName:      "generate_review",
		Operation:     "generate_review",
		EstimatedCost: 0.05,
		Rationale:     "Small cost",
	}

	if !manager.RequestApproval(context.Background(), cp) {
		t.Fatal("Expected auto-approval below the band")
	}
	if !cp.AutoApproved {
		t.Error("Expected AutoApproved to be set")
	}
	if len(approver.prompts) != 0 {
		t.Error("Approver should not be consulted for auto-approved checkpoints")
	}
	if len(manager.History()) != 1 {
		t.Errorf("Expected 1 history entry, got %d", len(manager.History()))
	}
}

func TestCheckpointAsksApproverAboveBand(t *testing.T) {
	cfg := DefaultCheckpointConfig()
	approver := &recordingApprover{decision: true}
	manager := NewCheckpointManager(cfg, nil, approver)

	cp := &Checkpoint{StepName: "step", Operation: "generate_review", EstimatedCost: 1.00}

	if !manager.RequestApproval(context.Background(), cp) {
		t.Fatal("Expected approval from provider")
	}
	if cp.AutoApproved {
		t.Error("Large cost should not be auto-approved")
	}
	if cp.UserApproved == nil || !*cp.UserApproved {
		t.Error("Expected UserApproved=true recorded on checkpoint")
	}
	if len(approver.prompts) != 1 {
		t.Fatalf("Expected 1 prompt, got %d", len(approver.prompts))
	}
}

func TestCheckpointDenial(t *testing.T) {
	manager := NewCheckpointManager(DefaultCheckpointConfig(), nil, &recordingApprover{decision: false})

	cp := &Checkpoint{StepName: "step", Operation: "op", EstimatedCost: 2.00}
	if manager.RequestApproval(context.Background(), cp) {
		t.Fatal("Expected denial")
	}
	if cp.UserApproved == nil || *cp.UserApproved {
		t.Error("Expected UserApproved=false recorded")
	}
	// Denied checkpoints still land in history.
	if len(manager.History()) != 1 {
		t.Errorf("Expected 1 history entry, got %d", len(manager.History()))
	}
}

func TestCheckpointApproverErrorDenies(t *testing.T) {
	manager := NewCheckpointManager(DefaultCheckpointConfig(), nil, &recordingApprover{decision: true, err: errors.New("channel down")})

	cp := &Checkpoint{StepName: "step", Operation: "op", EstimatedCost: 2.00}
	if manager.RequestApproval(context.Background(), cp) {
		t.Fatal("Approver failure must deny, not approve")
	}
}

func TestShouldCheckpointDisabled(t *testing.T) {
	cfg := DefaultCheckpointConfig()
	cfg.Enabled = false
	manager := NewCheckpointManager(cfg, nil, nil)

	if manager.ShouldCheckpoint(context.Background(), "generate_review", nil) {
		t.Error("Disabled gate should never checkpoint")
	}
}

func TestShouldCheckpointKnownExpensiveOps(t *testing.T) {
	manager := NewCheckpointManager(DefaultCheckpointConfig(), nil, nil)

	if !manager.ShouldCheckpoint(context.Background(), "generate_review", nil) {
		t.Error("generate_review should checkpoint without an estimator")
	}
	if manager.ShouldCheckpoint(context.Background(), "search_papers", nil) {
		t.Error("search_papers should not checkpoint without an estimator")
	}
}

func TestShouldCheckpointWithEstimator(t *testing.T) {
	cfg := DefaultCheckpointConfig()
	cfg.CostThreshold = 0.50

	estimator := func(_ context.Context, op string, _ map[string]any) (float64, error) {
		if op == "cheap" {
			return 0.10, nil
		}
		return 0.75, nil
	}
	manager := NewCheckpointManager(cfg, estimator, nil)

	if manager.ShouldCheckpoint(context.Background(), "cheap", nil) {
		t.Error("Below-threshold estimate should not checkpoint")
	}
	if !manager.ShouldCheckpoint(context.Background(), "pricey", nil) {
		t.Error("Above-threshold estimate should checkpoint")
	}
}

func TestShouldCheckpointEstimatorFailureFailsSafe(t *testing.T) {
	estimator := func(_ context.Context, _ string, _ map[string]any) (float64, error) {
		return 0, errors.New("estimation broke")
	}
	manager := NewCheckpointManager(DefaultCheckpointConfig(), estimator, nil)

	if !manager.ShouldCheckpoint(context.Background(), "anything", nil) {
		t.Error("Estimation failure must require a checkpoint")
	}
}

func TestCheckpointHistoryOrderAndClear(t *testing.T) {
	manager := NewCheckpointManager(DefaultCheckpointConfig(), nil, nil)

	manager.RequestApproval(context.Background(), &Checkpoint{StepName: "step1", Operation: "op1", EstimatedCost: 0.05})
	manager.RequestApproval(context.Background(), &Checkpoint{StepName: "step2", Operation: "op2", EstimatedCost: 0.06})

	history := manager.History()
	if len(history) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(history))
	}
	if history[0].StepName != "step1" || history[1].StepName != "step2" {
		t.Error("History must preserve chronological order")
	}

	manager.ClearHistory()
	if len(manager.History()) != 0 {
		t.Error("ClearHistory should empty the trail")
	}
}
