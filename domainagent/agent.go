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
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/northbridge-ins/agentcore/a2a"
	"github.com/northbridge-ins/agentcore/internal/idgen"
	"github.com/northbridge-ins/agentcore/internal/taskerr"
	"github.com/northbridge-ins/agentcore/llmclient"
	"github.com/northbridge-ins/agentcore/promptstore"
	"github.com/northbridge-ins/agentcore/sessionstore"
)

const (
	chatDeadline      = 30 * time.Second // §5: per DA Chat overall
	intentDeadline    = 10 * time.Second // §5: per LLM call (intent)
	synthesisDeadline = 10 * time.Second // §5: per LLM call (synthesis)
	a2aDeadline       = 20 * time.Second // §5: per A2A call

	turnHistoryCap = 200 // in-process ring buffer, never persisted (§9 Open Question)
)

// Turn is a Conversation Turn (§3), retained only for the DA process's
// lifetime — never a durable store.
type Turn struct {
	TurnID            string
	SessionID         string
	UserText          string
	Intent            Intent
	TAReply           *a2a.Reply
	SynthesizedReply  string
	StartedAt         time.Time
	FinishedAt        time.Time
	Error             string
}

// Diagnostics is the optional detail attached to a Chat result when the
// caller asked for it (§4.7 step 6).
type Diagnostics struct {
	Intent        Intent `json:"intent"`
	A2ATaskID     string `json:"a2a_task_id,omitempty"`
	ToolCallCount int    `json:"tool_call_count"`
}

// Result is what Chat returns.
type Result struct {
	ReplyText   string       `json:"reply"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}

// A2ASender is the subset of a2a.Client the Domain Agent needs — an
// interface so tests can substitute a fake peer without standing up HTTP.
type A2ASender interface {
	Send(ctx context.Context, task a2a.Task) (a2a.Reply, error)
}

// Agent is the Domain Agent (§4.7): session resolution, intent analysis,
// technical delegation, and response synthesis behind a single Chat
// operation.
type Agent struct {
	Sessions *sessionstore.Store
	TA       A2ASender
	LLM      *llmclient.Client
	Prompts  *promptstore.Store
	Logger   *slog.Logger

	turnsMu sync.Mutex
	turns   []Turn
}

func New(sessions *sessionstore.Store, ta A2ASender, llm *llmclient.Client, prompts *promptstore.Store, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{Sessions: sessions, TA: ta, LLM: llm, Prompts: prompts, Logger: logger}
}

// Chat implements §4.7's five-step algorithm end to end. The state machine
// is idle -> intent -> (a2a ->)? synthesis -> done; cancellation is
// cooperative via ctx, which should carry a chatDeadline-bounded deadline
// (callers may impose a tighter one; Chat enforces its own as a backstop).
func (a *Agent) Chat(ctx context.Context, sessionID, userText string, withDiagnostics bool) Result {
	ctx, cancel := context.WithTimeout(ctx, chatDeadline)
	defer cancel()

	turn := Turn{TurnID: idgen.New(), SessionID: sessionID, UserText: userText, StartedAt: time.Now()}
	defer a.recordTurn(&turn)

	// Step 1: session resolution.
	session, ok := a.Sessions.Lookup(sessionID)
	if !ok {
		turn.SynthesizedReply = "Authentication required: please log in again to continue."
		turn.FinishedAt = time.Now()
		return Result{ReplyText: turn.SynthesizedReply}
	}

	// Step 2: intent analysis. llmclient.Complete applies its own
	// per-call Options.Deadline internally, so ctx here only needs to carry
	// the overall Chat deadline.
	intent := analyzeIntent(ctx, a.LLM, a.Prompts, userText)
	turn.Intent = intent

	// Step 3/4: technical delegation decision + A2A call.
	var technicalData string
	var taTaskID string
	var toolCallCount int
	if needsTechnical(intent) {
		taTaskID = idgen.New()
		bundleText, replyErr := a.delegate(ctx, taTaskID, sessionID, session.CustomerID, userText, intent)
		switch {
		case replyErr != nil:
			technicalData = ""
			turn.Error = replyErr.Error()
		default:
			technicalData = bundleText
			toolCallCount = countToolCalls(bundleText)
		}
	}

	// Step 5: response synthesis. An A2A failure already produced a calm,
	// final user-facing message (§4.7 failure semantics: "do not invent
	// data") — skip the LLM call entirely rather than synthesizing over it.
	var reply string
	if turn.Error != "" {
		reply = turn.Error
	} else {
		primaryIntents := make([]string, len(intent.PrimaryIntents))
		for i, p := range intent.PrimaryIntents {
			primaryIntents[i] = string(p)
		}
		reply = synthesize(ctx, a.LLM, a.Prompts, userText, session.CustomerID, primaryIntents, technicalData)
	}

	turn.SynthesizedReply = reply
	turn.FinishedAt = time.Now()

	result := Result{ReplyText: reply}
	if withDiagnostics {
		result.Diagnostics = &Diagnostics{Intent: intent, A2ATaskID: taTaskID, ToolCallCount: toolCallCount}
	}
	return result
}

// delegate builds the A2A task with the canonical marker (§6), sends it,
// and interprets the reply per §4.7 step 4's error_kind table. It returns
// the raw JSON bundle text on success, or a calm user-facing message as an
// error when the technical tier could not help.
func (a *Agent) delegate(ctx context.Context, taskID, sessionID, customerID, userText string, intent Intent) (string, error) {
	buildTask := func() a2a.Task {
		primaryIntents := make([]interface{}, len(intent.PrimaryIntents))
		for i, p := range intent.PrimaryIntents {
			primaryIntents[i] = string(p)
		}
		return a2a.Task{
			TaskID:    taskID,
			FromAgent: "domain",
			ToAgent:   "technical",
			Text:      fmt.Sprintf("%s (session_customer_id: %s)", userText, customerID),
			Metadata: map[string]interface{}{
				"customer_id":     customerID,
				"session_id":      sessionID,
				"primary_intents": primaryIntents,
			},
			CreatedAt: time.Now().UTC(),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, a2aDeadline)
	defer cancel()

	reply, err := a.TA.Send(ctx, buildTask())
	if err != nil {
		a.Logger.Warn("a2a call failed", "component", "domainagent", "task_id", taskID, "error", err.Error())
		return "", fmt.Errorf("we're experiencing a temporary issue reaching our records system, please try again shortly")
	}

	if reply.Status == a2a.StatusCompleted {
		if len(reply.Parts) == 0 {
			return "", fmt.Errorf("we're experiencing a temporary issue reaching our records system, please try again shortly")
		}
		return reply.Parts[0].Text, nil
	}

	errorKind := errorKindOf(reply)
	switch taskerr.Kind(errorKind) {
	case taskerr.MissingCustomerContext:
		// §4.7 step 4: the marker should always be present; this indicates
		// an internal defect. Log it, retry once with a freshly-built task.
		a.Logger.Error("missing customer context on a2a retry path, this is a defect",
			"component", "domainagent", "task_id", taskID)
		retryReply, retryErr := a.TA.Send(ctx, buildTask())
		if retryErr == nil && retryReply.Status == a2a.StatusCompleted && len(retryReply.Parts) > 0 {
			return retryReply.Parts[0].Text, nil
		}
		return "", fmt.Errorf("we are unable to verify your identity right now, please try again")
	case taskerr.NoToolsDiscovered, taskerr.PlanUnavailable:
		return "", fmt.Errorf("our records system is temporarily unavailable, please try again shortly")
	default:
		if len(reply.Parts) > 0 {
			return reply.Parts[0].Text, nil
		}
		return "", fmt.Errorf("we're experiencing a temporary issue reaching our records system, please try again shortly")
	}
}

func errorKindOf(reply a2a.Reply) string {
	if len(reply.Parts) == 0 || reply.Parts[0].Metadata == nil {
		return ""
	}
	kind, _ := reply.Parts[0].Metadata["error_kind"].(string)
	return kind
}

func countToolCalls(bundleText string) int {
	var doc struct {
		Results map[string]interface{} `json:"results"`
	}
	if json.Unmarshal([]byte(bundleText), &doc) != nil {
		return 0
	}
	return len(doc.Results)
}

func (a *Agent) recordTurn(t *Turn) {
	a.turnsMu.Lock()
	defer a.turnsMu.Unlock()
	a.turns = append(a.turns, *t)
	if len(a.turns) > turnHistoryCap {
		a.turns = a.turns[len(a.turns)-turnHistoryCap:]
	}
}

// RecentTurns returns a snapshot copy of retained turns, for diagnostics
// only (§3: "retained only for the lifetime of the DA process").
func (a *Agent) RecentTurns() []Turn {
	a.turnsMu.Lock()
	defer a.turnsMu.Unlock()
	out := make([]Turn, len(a.turns))
	copy(out, a.turns)
	return out
}
