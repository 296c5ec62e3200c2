package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbridge-ins/agentcore/internal/taskerr"
)

func fakeServer(t *testing.T, handle func(req chatRequest) (int, chatResponse)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		status, resp := handle(req)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

// TestComplete_PrimarySucceeds is the plain happy path, no fallback needed.
func TestComplete_PrimarySucceeds(t *testing.T) {
	ts := fakeServer(t, func(req chatRequest) (int, chatResponse) {
		return http.StatusOK, chatResponse{Choices: []struct {
			Message Message `json:"message"`
		}{{Message: Message{Role: "assistant", Content: "hello there"}}}}
	})
	defer ts.Close()

	client := New(ts.URL, "test-key", "primary", "", nil)
	result, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{Model: "primary"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", result.Text)
}

// TestComplete_UsesClientConfiguredModelsByDefault verifies that the
// process-wide PrimaryModel/FallbackModel (§6's LLM_PRIMARY_MODEL/
// LLM_FALLBACK_MODEL) populate Options when a caller leaves Model/
// FallbackModel unset, so every call site is wired without repeating the
// configured names.
func TestComplete_UsesClientConfiguredModelsByDefault(t *testing.T) {
	ts := fakeServer(t, func(req chatRequest) (int, chatResponse) {
		if req.Model == "client-primary" {
			return http.StatusInternalServerError, chatResponse{}
		}
		return http.StatusOK, chatResponse{Choices: []struct {
			Message Message `json:"message"`
		}{{Message: Message{Content: "from " + req.Model}}}}
	})
	defer ts.Close()

	client := New(ts.URL, "test-key", "client-primary", "client-fallback", nil)
	result, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "from client-fallback", result.Text)
}

// TestComplete_FallsBackOnPrimaryFailure verifies §4.5's {model,
// fallback_model} retry-once contract: a 500 from the primary model
// triggers exactly one retry against the fallback model.
func TestComplete_FallsBackOnPrimaryFailure(t *testing.T) {
	ts := fakeServer(t, func(req chatRequest) (int, chatResponse) {
		if req.Model == "primary" {
			return http.StatusInternalServerError, chatResponse{}
		}
		return http.StatusOK, chatResponse{Choices: []struct {
			Message Message `json:"message"`
		}{{Message: Message{Content: "from fallback"}}}}
	})
	defer ts.Close()

	client := New(ts.URL, "test-key", "primary", "fallback", nil)
	result, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}},
		Options{Model: "primary", FallbackModel: "fallback"})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", result.Text)
}

// TestComplete_NoFallbackConfiguredFailsOutright verifies that without a
// FallbackModel, a primary failure propagates directly.
func TestComplete_NoFallbackConfiguredFailsOutright(t *testing.T) {
	ts := fakeServer(t, func(req chatRequest) (int, chatResponse) {
		return http.StatusInternalServerError, chatResponse{}
	})
	defer ts.Close()

	client := New(ts.URL, "test-key", "primary", "", nil)
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{Model: "primary"})
	require.Error(t, err)
	assert.Equal(t, taskerr.UpstreamError, taskerr.KindOf(err))
}

// TestComplete_JSONRepairSucceeds verifies the one-shot repair path: a
// non-JSON first reply triggers exactly one repair request, which succeeds.
func TestComplete_JSONRepairSucceeds(t *testing.T) {
	calls := 0
	ts := fakeServer(t, func(req chatRequest) (int, chatResponse) {
		calls++
		if calls == 1 {
			return http.StatusOK, chatResponse{Choices: []struct {
				Message Message `json:"message"`
			}{{Message: Message{Content: "not json at all"}}}}
		}
		return http.StatusOK, chatResponse{Choices: []struct {
			Message Message `json:"message"`
		}{{Message: Message{Content: `{"intent":"policy_inquiry"}`}}}}
	})
	defer ts.Close()

	client := New(ts.URL, "test-key", "primary", "", nil)
	result, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}},
		Options{Model: "primary", ResponseFormat: FormatJSON})
	require.NoError(t, err)
	assert.JSONEq(t, `{"intent":"policy_inquiry"}`, result.Text)
	assert.Equal(t, 2, calls)
}

// TestComplete_JSONRepairFailsYieldsLLMParseError verifies that two
// consecutive non-JSON replies surface taskerr.LLMParseError, not a generic
// upstream error.
func TestComplete_JSONRepairFailsYieldsLLMParseError(t *testing.T) {
	ts := fakeServer(t, func(req chatRequest) (int, chatResponse) {
		return http.StatusOK, chatResponse{Choices: []struct {
			Message Message `json:"message"`
		}{{Message: Message{Content: "still not json"}}}}
	})
	defer ts.Close()

	client := New(ts.URL, "test-key", "primary", "", nil)
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}},
		Options{Model: "primary", ResponseFormat: FormatJSON})
	require.Error(t, err)
	assert.Equal(t, taskerr.LLMParseError, taskerr.KindOf(err))
}
