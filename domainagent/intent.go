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

// Package domainagent implements the Domain Agent (§4.7): session-aware
// intent analysis, A2A delegation to the Technical Agent, and response
// synthesis, behind a single Chat(session_id, user_text) operation.
package domainagent

import (
	"context"
	"encoding/json"

	"github.com/northbridge-ins/agentcore/internal/rules"
	"github.com/northbridge-ins/agentcore/llmclient"
	"github.com/northbridge-ins/agentcore/promptstore"
)

var intentPromptKey = promptstore.Key{Agent: "domain", TaskKind: "intent_analysis", Version: "v1"}

// Intent is the parsed result of intent analysis (§3's Intent schema).
type Intent struct {
	PrimaryIntents    []rules.Intent `json:"primary_intents"`
	Confidence        float64        `json:"confidence"`
	RequiresAuth      bool           `json:"requires_auth"`
	RequiresTechnical bool           `json:"requires_technical"`
}

// analyzeIntent renders the intent-analysis prompt, calls the LLM in JSON
// mode, and validates the result. On any failure (render, LLM, or parse)
// it falls back to the shared keyword table with confidence=0.5, per
// §4.7 step 2.
func analyzeIntent(ctx context.Context, llm *llmclient.Client, prompts *promptstore.Store, userText string) Intent {
	if llm != nil && prompts != nil {
		if prompt, err := prompts.Render(intentPromptKey, map[string]interface{}{"UserText": userText}); err == nil {
			result, err := llm.Complete(ctx, []llmclient.Message{{Role: "user", Content: prompt}}, llmclient.Options{
				ResponseFormat: llmclient.FormatJSON,
			})
			if err == nil {
				var parsed Intent
				if json.Unmarshal([]byte(result.Text), &parsed) == nil && len(parsed.PrimaryIntents) > 0 {
					return parsed
				}
			}
		}
	}

	intent := rules.IntentForKeywords(userText)
	return Intent{
		PrimaryIntents:    []rules.Intent{intent},
		Confidence:        0.5,
		RequiresTechnical: rules.RequiresTechnical(intent),
	}
}

// needsTechnical implements §4.7 step 3's delegation decision.
func needsTechnical(intent Intent) bool {
	if intent.RequiresTechnical {
		return true
	}
	for _, i := range intent.PrimaryIntents {
		if rules.RequiresTechnical(i) {
			return true
		}
	}
	return false
}
