package techagent

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/northbridge-ins/agentcore/internal/taskerr"
	"github.com/northbridge-ins/agentcore/internal/toolclient"
	"github.com/northbridge-ins/agentcore/internal/toolregistry"
	"github.com/northbridge-ins/agentcore/toolpb"
)

// Execute runs a Plan's steps respecting dependencies: steps without
// unresolved dependencies run concurrently (via errgroup, §5); steps with
// dependencies wait for their predecessors. Results are committed to the
// bundle sink in completion order, which per §5 does not affect
// correctness since the sink is keyed by step_id. Tool-level failures are
// encoded as non-ok CallResults, never returned as an error from Execute.
func Execute(ctx context.Context, plan Plan, registry *toolregistry.Registry, clients *toolclient.Registry, planDeadline time.Duration) []toolpb.CallResult {
	if planDeadline <= 0 {
		planDeadline = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, planDeadline)
	defer cancel()

	done := make(map[string]chan struct{}, len(plan.Steps))
	for _, s := range plan.Steps {
		done[s.StepID] = make(chan struct{})
	}

	var mu sync.Mutex
	results := make([]toolpb.CallResult, 0, len(plan.Steps))

	g, gctx := errgroup.WithContext(ctx)
	for _, step := range plan.Steps {
		step := step
		g.Go(func() error {
			defer close(done[step.StepID])

			for _, dep := range step.Dependencies {
				depCh, exists := done[dep]
				if !exists {
					continue
				}
				select {
				case <-depCh:
				case <-gctx.Done():
					mu.Lock()
					results = append(results, toolpb.CallResult{
						StepID: step.StepID, ToolName: step.ToolName, Status: toolpb.StatusTimeout,
					})
					mu.Unlock()
					return nil
				}
			}

			result := executeStep(gctx, step, registry, clients)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func executeStep(ctx context.Context, step Step, registry *toolregistry.Registry, clients *toolclient.Registry) toolpb.CallResult {
	started := time.Now()

	descriptor, ok := registry.Lookup(step.ToolName)
	if !ok {
		return toolpb.CallResult{StepID: step.StepID, ToolName: step.ToolName, Status: toolpb.StatusNotFound, LatencyMs: time.Since(started).Milliseconds(), Attempts: 0}
	}

	client, ok := clients.Get(descriptor.ServerID)
	if !ok {
		return toolpb.CallResult{StepID: step.StepID, ToolName: step.ToolName, Status: toolpb.StatusUpstreamError, LatencyMs: time.Since(started).Milliseconds(), Attempts: 0}
	}

	data, err := client.CallTool(ctx, step.ToolName, descriptor.ParameterSchema, step.Parameters)
	latency := time.Since(started).Milliseconds()
	if err == nil {
		status := toolpb.StatusOK
		if isNotFoundData(data) {
			status = toolpb.StatusNotFound
		}
		return toolpb.CallResult{StepID: step.StepID, ToolName: step.ToolName, Status: status, Data: data, LatencyMs: latency, Attempts: 1}
	}

	status := toolpb.StatusUpstreamError
	switch taskerr.KindOf(err) {
	case taskerr.InvalidParameters:
		status = toolpb.StatusInvalidParams
	case taskerr.Timeout:
		status = toolpb.StatusTimeout
	case taskerr.ServerUnreachable:
		status = toolpb.StatusUpstreamError
	}
	return toolpb.CallResult{StepID: step.StepID, ToolName: step.ToolName, Status: status, LatencyMs: latency, Attempts: 1}
}

// isNotFoundData reports whether a successful tool call's data encodes a
// "record not found" business answer ({"found": false}) rather than an
// actual result — §3's status set and §8 scenario S2 require this to land
// in the not_found bucket, not ok, since it is a correct answer about a
// nonexistent customer or policy, not a tool-level failure.
func isNotFoundData(data interface{}) bool {
	m, ok := data.(map[string]interface{})
	if !ok {
		return false
	}
	found, ok := m["found"].(bool)
	return ok && !found
}
