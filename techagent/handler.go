package techagent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/northbridge-ins/agentcore/a2a"
	"github.com/northbridge-ins/agentcore/internal/taskerr"
	"github.com/northbridge-ins/agentcore/internal/toolclient"
	"github.com/northbridge-ins/agentcore/internal/toolregistry"
	"github.com/northbridge-ins/agentcore/llmclient"
	"github.com/northbridge-ins/agentcore/promptstore"
	"github.com/northbridge-ins/agentcore/toolpb"
)

// Agent implements a2a.Handler: HandleTask is the Technical Agent's sole
// externally-callable operation (§4.3).
type Agent struct {
	Registry     *toolregistry.Registry
	Clients      *toolclient.Registry
	LLM          *llmclient.Client
	Prompts      *promptstore.Store
	PlanDeadline time.Duration
	Logger       *slog.Logger
}

func New(registry *toolregistry.Registry, clients *toolclient.Registry, llm *llmclient.Client, prompts *promptstore.Store, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{Registry: registry, Clients: clients, LLM: llm, Prompts: prompts, PlanDeadline: 15 * time.Second, Logger: logger}
}

// HandleTask implements the algorithm described in §4.3: recover the
// customer id, plan, execute, aggregate. State machine: received ->
// planning -> executing -> aggregating -> replied, with a terminal failed
// branch from planning on MissingCustomerContext/PlanUnavailable/
// NoToolsDiscovered.
func (a *Agent) HandleTask(ctx context.Context, task a2a.Task) (a2a.Reply, error) {
	logger := a.Logger.With("task_id", task.TaskID)

	// Step 1: customer ID recovery.
	customerID, _, ok := RecoverCustomerID(ctx, a.LLM, task)
	if !ok {
		logger.Warn("missing customer context", "component", "techagent")
		return a2a.FailedReply(task.TaskID, string(taskerr.MissingCustomerContext),
			"no customer_id recoverable from task"), nil
	}

	// Registry empty: fatal, triggers an async forced refresh (§4.3 failure
	// semantics).
	if a.Registry.Empty() {
		go func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.Registry.Refresh(refreshCtx)
		}()
		return a2a.FailedReply(task.TaskID, string(taskerr.NoToolsDiscovered),
			"tool registry has no discovered tools"), nil
	}

	// Step 2: intent to tool mapping — LLM planner first, rule fallback on
	// any failure or invalid plan.
	plan, err := a.plan(ctx, task.Text, customerID)
	if err != nil {
		logger.Warn("planning failed", "component", "techagent", "error", err.Error())
		return a2a.FailedReply(task.TaskID, string(taskerr.PlanUnavailable), err.Error()), nil
	}

	// Step 3: execution.
	results := Execute(ctx, plan, a.Registry, a.Clients, a.PlanDeadline)

	// Step 4: aggregation.
	bundle := toolpb.NewBundle(results)
	bundleJSON, err := json.Marshal(bundle)
	if err != nil {
		return a2a.FailedReply(task.TaskID, string(taskerr.ProtocolMismatch), "failed to marshal bundle"), nil
	}

	return a2a.Reply{
		TaskID: task.TaskID,
		Status: a2a.StatusCompleted,
		Parts: []a2a.Part{{
			Text: string(bundleJSON),
			Metadata: map[string]interface{}{
				"human_summary": humanSummary(bundle),
			},
		}},
	}, nil
}

// humanSummary renders a terse one-line summary of a bundle's outcome for
// the reply's metadata, ahead of the Domain Agent's own synthesis pass.
func humanSummary(bundle toolpb.Bundle) string {
	return fmt.Sprintf("%d ok, %d error across %d tool call(s)",
		bundle.SummaryCounts.OK, bundle.SummaryCounts.Error, len(bundle.Results))
}

func (a *Agent) plan(ctx context.Context, requestText, customerID string) (Plan, error) {
	if a.LLM != nil && a.Prompts != nil {
		plan, err := LLMPlan(ctx, a.LLM, a.Prompts, a.Registry, requestText, customerID)
		if err == nil {
			if verr := plan.Validate(a.Registry); verr == nil {
				return plan, nil
			}
		}
	}

	fallback := RuleFallbackPlan(requestText, customerID)
	if err := fallback.Validate(a.Registry); err != nil {
		return Plan{}, err
	}
	return fallback, nil
}
