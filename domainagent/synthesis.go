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

package domainagent

import (
	"context"
	"fmt"

	"github.com/northbridge-ins/agentcore/llmclient"
	"github.com/northbridge-ins/agentcore/promptstore"
)

var synthesisPromptKey = promptstore.Key{Agent: "domain", TaskKind: "response_synthesis", Version: "v1"}

// synthesize renders the response-formatting prompt and calls the LLM in
// text mode (§4.7 step 5). Its three fabrication contracts are enforced by
// the prompt itself, not by code. On any failure it falls back to a
// last-resort templated reply that only prints technicalData verbatim.
func synthesize(ctx context.Context, llm *llmclient.Client, prompts *promptstore.Store, userText, customerID string, primaryIntents []string, technicalData string) string {
	if llm != nil && prompts != nil {
		prompt, err := prompts.Render(synthesisPromptKey, map[string]interface{}{
			"UserText":       userText,
			"CustomerID":     customerID,
			"PrimaryIntents": primaryIntents,
			"TechnicalData":  technicalData,
		})
		if err == nil {
			result, err := llm.Complete(ctx, []llmclient.Message{{Role: "user", Content: prompt}}, llmclient.Options{
				ResponseFormat: llmclient.FormatText,
				Deadline:       synthesisDeadline,
			})
			if err == nil {
				return result.Text
			}
		}
	}

	if technicalData == "" {
		return "I wasn't able to generate a full response right now, but I can confirm your request was received."
	}
	return fmt.Sprintf("Here is what I found: %s", technicalData)
}
