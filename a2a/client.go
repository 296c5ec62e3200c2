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

package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/northbridge-ins/agentcore/internal/httpx"
	"github.com/northbridge-ins/agentcore/internal/taskerr"
)

// Client sends Tasks to a peer agent's /a2a/tasks endpoint and correlates
// the Reply by task_id. Retries only on network/5xx (§4.4), reusing the
// same backoff policy as the Tool-Protocol client.
type Client struct {
	BaseURL  string
	HTTP     *httpx.Client
	Deadline time.Duration // default request deadline, 20s per §4.4/§5
}

func NewClient(baseURL string, httpClient *httpx.Client, deadline time.Duration) *Client {
	if deadline <= 0 {
		deadline = 20 * time.Second
	}
	if httpClient == nil {
		httpClient = httpx.New()
	}
	// Copy rather than mutate the caller's Client: a 503 from a peer agent
	// at capacity must surface as Overloaded, not be retried and then
	// reported as ServerUnreachable, but other callers of the same shared
	// httpx.Client (e.g. the Tool-Protocol client) should keep retrying 503.
	withoutRetryOn503 := *httpClient
	withoutRetryOn503.Strategy = overloadAwareStrategy
	return &Client{BaseURL: baseURL, HTTP: &withoutRetryOn503, Deadline: deadline}
}

// overloadAwareStrategy matches httpx.DefaultStrategy except it never retries
// a 503: a peer agent signaling capacity backpressure (§5) should be reported
// as Overloaded on the first response, not retried into ServerUnreachable.
func overloadAwareStrategy(statusCode int, err error) httpx.Strategy {
	if statusCode == http.StatusServiceUnavailable {
		return httpx.NoRetry
	}
	return httpx.DefaultStrategy(statusCode, err)
}

// Send POSTs task to the peer's /a2a/tasks endpoint and returns its Reply.
func (c *Client) Send(ctx context.Context, task Task) (Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Deadline)
	defer cancel()

	body, err := json.Marshal(task)
	if err != nil {
		return Reply{}, taskerr.Wrap(taskerr.ProtocolMismatch, "marshal task", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/a2a/tasks", bytes.NewReader(body))
	if err != nil {
		return Reply{}, taskerr.Wrap(taskerr.ServerUnreachable, "build a2a request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Reply{}, taskerr.Wrap(taskerr.Timeout, "a2a call deadline exceeded", err)
		}
		return Reply{}, taskerr.Wrap(taskerr.ServerUnreachable, "a2a call unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, taskerr.Wrap(taskerr.ProtocolMismatch, "a2a read reply body", err)
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		return Reply{}, taskerr.New(taskerr.Overloaded, "peer agent at capacity")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Reply{}, taskerr.New(taskerr.UpstreamError, fmt.Sprintf("a2a call status %d", resp.StatusCode))
	}

	var reply Reply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return Reply{}, taskerr.Wrap(taskerr.ProtocolMismatch, "a2a malformed reply", err)
	}
	if reply.TaskID != task.TaskID {
		return Reply{}, taskerr.New(taskerr.ProtocolMismatch, "a2a reply task_id mismatch")
	}
	return reply, nil
}
