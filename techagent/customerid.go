package techagent

import (
	"context"
	"strings"

	"github.com/northbridge-ins/agentcore/a2a"
	"github.com/northbridge-ins/agentcore/internal/rules"
	"github.com/northbridge-ins/agentcore/llmclient"
)

// RecoverCustomerID implements §4.3 step 1's precedence order:
// (a) task.metadata["customer_id"]; (b) the canonical marker regex;
// (c) any bare "customer_id:" occurrence; (d) LLM extraction as last
// resort. Returns ok=false if no ID was recoverable by any method.
func RecoverCustomerID(ctx context.Context, llm *llmclient.Client, task a2a.Task) (id string, viaLLM bool, ok bool) {
	if task.Metadata != nil {
		if v, present := task.Metadata["customer_id"]; present {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
				return s, false, true
			}
		}
	}

	if m := rules.CustomerIDMarker.FindStringSubmatch(task.Text); len(m) == 2 {
		return m[1], false, true
	}

	if m := rules.CustomerIDField.FindStringSubmatch(task.Text); len(m) == 2 {
		return m[1], false, true
	}

	if llm == nil {
		return "", false, false
	}
	result, err := llm.Complete(ctx, []llmclient.Message{{
		Role:    "user",
		Content: "Extract a customer id from this text. Respond with only the id or NONE: " + task.Text,
	}}, llmclient.Options{ResponseFormat: llmclient.FormatText})
	if err != nil {
		return "", true, false
	}
	extracted := strings.TrimSpace(result.Text)
	if extracted == "" || strings.EqualFold(extracted, "NONE") {
		return "", true, false
	}
	return extracted, true, true
}
