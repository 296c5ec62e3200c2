package domainagent

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbridge-ins/agentcore/a2a"
	"github.com/northbridge-ins/agentcore/internal/httpx"
	"github.com/northbridge-ins/agentcore/internal/policyfixture"
	"github.com/northbridge-ins/agentcore/internal/taskerr"
	"github.com/northbridge-ins/agentcore/internal/toolclient"
	"github.com/northbridge-ins/agentcore/internal/toolregistry"
	"github.com/northbridge-ins/agentcore/sessionstore"
	"github.com/northbridge-ins/agentcore/techagent"
)

// taAdapter lets a real techagent.Agent (an a2a.Handler) stand in for an
// A2ASender in tests, the same way an a2a.Client would wrap it over HTTP
// in production — here it's called in-process.
type taAdapter struct{ agent *techagent.Agent }

func (t taAdapter) Send(ctx context.Context, task a2a.Task) (a2a.Reply, error) {
	return t.agent.HandleTask(ctx, task)
}

type fakeSender func(ctx context.Context, task a2a.Task) (a2a.Reply, error)

func (f fakeSender) Send(ctx context.Context, task a2a.Task) (a2a.Reply, error) {
	return f(ctx, task)
}

func realTechAgent(t *testing.T) *techagent.Agent {
	t.Helper()
	fx := policyfixture.NewServer()
	url := fx.Start()
	t.Cleanup(fx.Close)

	clients := toolclient.NewRegistry()
	clients.Add(toolclient.New("server-a", url, httpx.New(), 32, 2*time.Second))
	reg := toolregistry.New([]string{"server-a"}, clients, slog.Default())
	require.NoError(t, reg.Refresh(context.Background()))

	return techagent.New(reg, clients, nil, nil, slog.Default())
}

// TestChat_PolicyLookupHappyPath implements §8 scenario S1.
func TestChat_PolicyLookupHappyPath(t *testing.T) {
	sessions := sessionstore.New(time.Hour)
	sessions.Create("sess-1", "CUST-001")

	agent := New(sessions, taAdapter{realTechAgent(t)}, nil, nil, slog.Default())
	result := agent.Chat(context.Background(), "sess-1", "What policies do I have?", true)

	assert.Contains(t, result.ReplyText, "POL-AUTO-1")
	require.NotNil(t, result.Diagnostics)
	assert.Equal(t, 1, result.Diagnostics.ToolCallCount)
}

// TestChat_UnknownCustomer implements §8 scenario S2: the tool call itself
// succeeds, but returns a not-found business answer rather than fabricated
// policy data.
func TestChat_UnknownCustomer(t *testing.T) {
	sessions := sessionstore.New(time.Hour)
	sessions.Create("sess-2", "INVALID-999")

	agent := New(sessions, taAdapter{realTechAgent(t)}, nil, nil, slog.Default())
	result := agent.Chat(context.Background(), "sess-2", "What does my auto policy cover?", false)

	assert.Contains(t, result.ReplyText, "found")
	assert.NotContains(t, result.ReplyText, "Honda")
}

// TestChat_MissingSessionRequiresAuth covers the session-resolution failure
// branch of §4.7 step 1: an unknown/expired session never reaches intent
// analysis or delegation.
func TestChat_MissingSessionRequiresAuth(t *testing.T) {
	sessions := sessionstore.New(time.Hour)
	agent := New(sessions, taAdapter{realTechAgent(t)}, nil, nil, slog.Default())

	result := agent.Chat(context.Background(), "no-such-session", "What policies do I have?", false)
	assert.Contains(t, strings.ToLower(result.ReplyText), "authentication required")
}

// TestChat_GeneralInquirySkipsDelegation verifies that an intent outside
// RequiresTechnical's set never reaches the TA at all.
func TestChat_GeneralInquirySkipsDelegation(t *testing.T) {
	sessions := sessionstore.New(time.Hour)
	sessions.Create("sess-3", "CUST-001")

	calledTA := false
	sender := fakeSender(func(ctx context.Context, task a2a.Task) (a2a.Reply, error) {
		calledTA = true
		return a2a.Reply{}, nil
	})

	agent := New(sessions, sender, nil, nil, slog.Default())
	agent.Chat(context.Background(), "sess-3", "hello, just saying hi", false)
	assert.False(t, calledTA)
}

// TestChat_A2ANetworkFailureYieldsCalmMessage verifies §4.7's failure
// semantics: on an A2A transport failure, the DA returns a canned
// transient message and never fabricates an answer.
func TestChat_A2ANetworkFailureYieldsCalmMessage(t *testing.T) {
	sessions := sessionstore.New(time.Hour)
	sessions.Create("sess-4", "CUST-001")

	sender := fakeSender(func(ctx context.Context, task a2a.Task) (a2a.Reply, error) {
		return a2a.Reply{}, taskerr.New(taskerr.ServerUnreachable, "connection refused")
	})

	agent := New(sessions, sender, nil, nil, slog.Default())
	result := agent.Chat(context.Background(), "sess-4", "What are my deductibles?", false)
	assert.Contains(t, result.ReplyText, "temporary issue")
}

// TestChat_MissingCustomerContextRetriesOnce implements §8 scenario S6: a
// defect reply from the TA (marker absent on its end) triggers exactly one
// DA-side retry with a freshly-built task; here the retry succeeds and its
// bundle is used.
func TestChat_MissingCustomerContextRetriesOnce(t *testing.T) {
	sessions := sessionstore.New(time.Hour)
	sessions.Create("sess-5", "CUST-001")

	attempts := 0
	sender := fakeSender(func(ctx context.Context, task a2a.Task) (a2a.Reply, error) {
		attempts++
		if attempts == 1 {
			return a2a.FailedReply(task.TaskID, string(taskerr.MissingCustomerContext), "no marker"), nil
		}
		return a2a.Reply{
			TaskID: task.TaskID,
			Status: a2a.StatusCompleted,
			Parts:  []a2a.Part{{Text: `{"results":{"s0":{}}}`}},
		}, nil
	})

	agent := New(sessions, sender, nil, nil, slog.Default())
	result := agent.Chat(context.Background(), "sess-5", "What is my premium due?", false)
	assert.Equal(t, 2, attempts)
	assert.Contains(t, result.ReplyText, "results")
}

// TestChat_MissingCustomerContextRetryAlsoFails verifies the second-failure
// branch: if the retry itself fails, the DA falls back to an
// identity-verification message rather than retrying indefinitely.
func TestChat_MissingCustomerContextRetryAlsoFails(t *testing.T) {
	sessions := sessionstore.New(time.Hour)
	sessions.Create("sess-6", "CUST-001")

	attempts := 0
	sender := fakeSender(func(ctx context.Context, task a2a.Task) (a2a.Reply, error) {
		attempts++
		return a2a.FailedReply(task.TaskID, string(taskerr.MissingCustomerContext), "no marker"), nil
	})

	agent := New(sessions, sender, nil, nil, slog.Default())
	result := agent.Chat(context.Background(), "sess-6", "What is my premium due?", false)
	assert.Equal(t, 2, attempts)
	assert.Contains(t, strings.ToLower(result.ReplyText), "verify your identity")
}

// TestChat_NoToolsDiscoveredYieldsCalmMessage covers the TA-side
// registry-empty failure branch.
func TestChat_NoToolsDiscoveredYieldsCalmMessage(t *testing.T) {
	sessions := sessionstore.New(time.Hour)
	sessions.Create("sess-7", "CUST-001")

	sender := fakeSender(func(ctx context.Context, task a2a.Task) (a2a.Reply, error) {
		return a2a.FailedReply(task.TaskID, string(taskerr.NoToolsDiscovered), "registry empty"), nil
	})

	agent := New(sessions, sender, nil, nil, slog.Default())
	result := agent.Chat(context.Background(), "sess-7", "What are my deductibles?", false)
	assert.Contains(t, result.ReplyText, "temporarily unavailable")
}

// TestChat_RecentTurnsRetainsHistory verifies the in-process ring buffer
// records each Chat call.
func TestChat_RecentTurnsRetainsHistory(t *testing.T) {
	sessions := sessionstore.New(time.Hour)
	sessions.Create("sess-8", "CUST-001")

	agent := New(sessions, taAdapter{realTechAgent(t)}, nil, nil, slog.Default())
	agent.Chat(context.Background(), "sess-8", "What policies do I have?", false)
	agent.Chat(context.Background(), "sess-8", "When is my premium due?", false)

	turns := agent.RecentTurns()
	require.Len(t, turns, 2)
	assert.Equal(t, "sess-8", turns[0].SessionID)
}
