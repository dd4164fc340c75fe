package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Checkpoint is a single approval record for a cost-bearing operation.
type Checkpoint struct {
	StepName      string    `json:"step_name"`
	Operation     string    `json:"operation"`
	EstimatedCost float64   `json:"estimated_cost"`
	Rationale     string    `json:"rationale"`
	AutoApproved  bool      `json:"auto_approved"`
	UserApproved  *bool     `json:"user_approved,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CostEstimator predicts the USD cost of an operation before it runs.
type CostEstimator func(ctx context.Context, operation string, opContext map[string]any) (float64, error)

// ApprovalProvider obtains a human decision for a checkpoint. Hosts supply
// an implementation (interactive terminal, IDE integration, queued
// approval); the default logs the prompt and approves.
type ApprovalProvider interface {
	RequestApproval(ctx context.Context, prompt string) (bool, error)
}

// LogApprover approves everything after writing the prompt to the log.
// It is the development-mode placeholder, not a production policy.
type LogApprover struct{}

func (LogApprover) RequestApproval(_ context.Context, prompt string) (bool, error) {
	log.Printf("[checkpoint] auto-approving (no approval provider configured):\n%s", prompt)
	return true, nil
}

// CheckpointConfig controls the gate.
type CheckpointConfig struct {
	Enabled          bool
	CostThreshold    float64
	AutoApproveBelow float64
	ApprovalTimeout  time.Duration
}

// DefaultCheckpointConfig matches the project defaults.
func DefaultCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		Enabled:          true,
		CostThreshold:    0.50,
		AutoApproveBelow: 0.10,
		ApprovalTimeout:  5 * time.Minute,
	}
}

// expensiveOperations trigger checkpointing when no cost estimator is
// configured.
var expensiveOperations = map[string]bool{
	"generate_review":            true,
	"generate_literature_review": true,
}

// CheckpointManager decides when execution must pause for approval and
// keeps an append-only audit history of every decision.
type CheckpointManager struct {
	config    CheckpointConfig
	estimator CostEstimator
	approver  ApprovalProvider

	mu      sync.Mutex
	history []*Checkpoint
}

// NewCheckpointManager creates a gate. estimator and approver may be nil;
// a nil approver falls back to LogApprover.
func NewCheckpointManager(config CheckpointConfig, estimator CostEstimator, approver ApprovalProvider) *CheckpointManager {
	if approver == nil {
		approver = LogApprover{}
	}
	return &CheckpointManager{
		config:    config,
		estimator: estimator,
		approver:  approver,
	}
}

// ShouldCheckpoint reports whether the named operation requires approval
// before proceeding. When cost estimation itself fails the gate fails safe
// and requires a checkpoint.
func (cm *CheckpointManager) ShouldCheckpoint(ctx context.Context, operation string, opContext map[string]any) bool {
	if !cm.config.Enabled {
		return false
	}
	if cm.estimator == nil {
		return expensiveOperations[operation]
	}

	cost, err := cm.estimator(ctx, operation, opContext)
	if err != nil {
		log.Printf("[checkpoint] cost estimation failed for %s, requiring approval: %v", operation, err)
		return true
	}
	return cost >= cm.config.CostThreshold
}

// EstimateCost runs the configured estimator. Without one it reports zero
// cost so the caller falls back to the known-expensive operation set.
func (cm *CheckpointManager) EstimateCost(ctx context.Context, operation string, opContext map[string]any) (float64, error) {
	if cm.estimator == nil {
		return 0, nil
	}
	return cm.estimator(ctx, operation, opContext)
}

// RequestApproval records the checkpoint and obtains a decision. Checkpoints
// below the auto-approve band are approved without interaction; everything
// is appended to history first, approved or not.
func (cm *CheckpointManager) RequestApproval(ctx context.Context, cp *Checkpoint) bool {
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}

	cm.mu.Lock()
	cm.history = append(cm.history, cp)
	cm.mu.Unlock()

	if cp.EstimatedCost < cm.config.AutoApproveBelow {
		cp.AutoApproved = true
		return true
	}

	if cm.config.ApprovalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cm.config.ApprovalTimeout)
		defer cancel()
	}

	approved, err := cm.approver.RequestApproval(ctx, cm.formatPrompt(cp))
	if err != nil {
		log.Printf("[checkpoint] approval request for %s failed, denying: %v", cp.Operation, err)
		approved = false
	}
	cp.UserApproved = &approved
	return approved
}

// History returns the checkpoints in chronological order.
func (cm *CheckpointManager) History() []*Checkpoint {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	out := make([]*Checkpoint, len(cm.history))
	copy(out, cm.history)
	return out
}

// ClearHistory discards the audit trail.
func (cm *CheckpointManager) ClearHistory() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.history = nil
}

func (cm *CheckpointManager) formatPrompt(cp *Checkpoint) string {
	var sb strings.Builder
	sb.WriteString("Approval required before continuing:\n")
	fmt.Fprintf(&sb, "  Step:           %s\n", cp.StepName)
	fmt.Fprintf(&sb, "  Operation:      %s\n", cp.Operation)
	fmt.Fprintf(&sb, "  Estimated cost: $%.4f\n", cp.EstimatedCost)
	if cp.Rationale != "" {
		fmt.Fprintf(&sb, "  Rationale:      %s\n", cp.Rationale)
	}
	return sb.String()
}
