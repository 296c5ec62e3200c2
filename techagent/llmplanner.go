package techagent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/northbridge-ins/agentcore/internal/idgen"
	"github.com/northbridge-ins/agentcore/internal/toolregistry"
	"github.com/northbridge-ins/agentcore/llmclient"
	"github.com/northbridge-ins/agentcore/promptstore"
)

var planPromptKey = promptstore.Key{Agent: "technical", TaskKind: "tool_call_plan", Version: "v1"}

type llmPlanStep struct {
	StepID       string                 `json:"step_id"`
	ToolName     string                 `json:"tool_name"`
	Parameters   map[string]interface{} `json:"parameters"`
	Purpose      string                 `json:"purpose"`
	Dependencies []string               `json:"dependencies"`
}

type llmPlanDocument struct {
	Steps []llmPlanStep `json:"steps"`
}

// LLMPlan prompts the LLM with the request and the current Registry
// snapshot (name + description + parameter schema), per §4.3 step 2.i.
// The caller is responsible for validating the returned Plan before
// accepting it — this function only parses.
func LLMPlan(ctx context.Context, llm *llmclient.Client, prompts *promptstore.Store, registry *toolregistry.Registry, requestText, customerID string) (Plan, error) {
	catalog := describeCatalog(registry)

	prompt, err := prompts.Render(planPromptKey, map[string]interface{}{
		"RequestText": requestText,
		"CustomerID":  customerID,
		"ToolCatalog": catalog,
	})
	if err != nil {
		return Plan{}, err
	}

	result, err := llm.Complete(ctx, []llmclient.Message{{Role: "user", Content: prompt}}, llmclient.Options{
		ResponseFormat: llmclient.FormatJSON,
	})
	if err != nil {
		return Plan{}, err
	}

	var doc llmPlanDocument
	if err := json.Unmarshal([]byte(result.Text), &doc); err != nil {
		return Plan{}, fmt.Errorf("unparseable plan document: %w", err)
	}
	if len(doc.Steps) == 0 {
		return Plan{}, fmt.Errorf("plan document has no steps")
	}

	plan := Plan{Steps: make([]Step, 0, len(doc.Steps))}
	for i, s := range doc.Steps {
		stepID := s.StepID
		if stepID == "" {
			stepID = idgen.StepID(i)
		}
		plan.Steps = append(plan.Steps, Step{
			StepID:       stepID,
			ToolName:     s.ToolName,
			Parameters:   s.Parameters,
			Purpose:      s.Purpose,
			Dependencies: s.Dependencies,
		})
	}
	return plan, nil
}

func describeCatalog(registry *toolregistry.Registry) string {
	var b strings.Builder
	for _, d := range registry.AllTools() {
		fmt.Fprintf(&b, "- %s: %s (params: %v)\n", d.Name, d.Description, d.ParameterSchema)
	}
	return b.String()
}
