// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package techagent implements the Technical Agent (§4.3): it accepts an
// A2A task, derives a Tool Call Plan over the Tool Registry, executes it
// concurrently respecting dependencies, and returns an aggregated bundle.
package techagent

import (
	"fmt"

	"github.com/northbridge-ins/agentcore/internal/idgen"
	"github.com/northbridge-ins/agentcore/internal/rules"
	"github.com/northbridge-ins/agentcore/internal/toolregistry"
)

// Step is one node of a Tool Call Plan (§3).
type Step struct {
	StepID       string
	ToolName     string
	Parameters   map[string]interface{}
	Purpose      string
	Dependencies []string
}

// Plan is an ordered sequence of Steps.
type Plan struct {
	Steps []Step
}

// requiredParams lists the required parameters per canonical tool (§6):
// every tool except get_policy_details needs only customer_id;
// get_policy_details additionally needs policy_id.
func requiredParams(toolName string) []string {
	if toolName == "get_policy_details" {
		return []string{"customer_id", "policy_id"}
	}
	return []string{"customer_id"}
}

// RuleFallbackPlan builds the single-step plan from the keyword table
// (§4.3 step 2.ii), used when the LLM planner fails or yields an invalid
// plan.
func RuleFallbackPlan(requestText, customerID string) Plan {
	tool := rules.ToolForKeywords(requestText)
	params := map[string]interface{}{"customer_id": customerID}
	return Plan{Steps: []Step{{
		StepID:     idgen.StepID(0),
		ToolName:   tool,
		Parameters: params,
		Purpose:    fmt.Sprintf("rule fallback for keyword match -> %s", tool),
	}}}
}

// Validate checks the invariant from §3: every referenced tool_name exists
// in the Registry at planning time, and every dependency precedes its step.
func (p Plan) Validate(registry *toolregistry.Registry) error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("empty plan")
	}
	seen := make(map[string]bool, len(p.Steps))
	for _, step := range p.Steps {
		if _, ok := registry.Lookup(step.ToolName); !ok {
			return fmt.Errorf("plan references unknown tool %q", step.ToolName)
		}
		for _, dep := range step.Dependencies {
			if !seen[dep] {
				return fmt.Errorf("step %s depends on %s which does not precede it", step.StepID, dep)
			}
		}
		seen[step.StepID] = true
	}
	return nil
}
