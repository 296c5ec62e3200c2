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

// Package toolclient implements the Tool-Protocol Client (TPC): it speaks
// the Tool Protocol with one or more tool servers over HTTP/JSON.
package toolclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/northbridge-ins/agentcore/internal/httpx"
	"github.com/northbridge-ins/agentcore/internal/taskerr"
	"github.com/northbridge-ins/agentcore/toolpb"
)

// Client speaks the Tool Protocol with a single named tool server, enforcing
// the per-call deadline and bounded-queue backpressure from §5.
type Client struct {
	ServerID   string
	BaseURL    string
	HTTP       *httpx.Client
	CallDeadline time.Duration

	queue chan struct{} // bounded semaphore, refuse-not-queue beyond capacity
}

// New creates a TPC for one tool server. queueSize bounds the number of
// concurrent in-flight calls to this server (default 32 per §5); callDeadline
// defaults to 5s per §4.1/§5.
func New(serverID, baseURL string, httpClient *httpx.Client, queueSize int, callDeadline time.Duration) *Client {
	if queueSize <= 0 {
		queueSize = 32
	}
	if callDeadline <= 0 {
		callDeadline = 5 * time.Second
	}
	return &Client{
		ServerID:     serverID,
		BaseURL:      baseURL,
		HTTP:         httpClient,
		CallDeadline: callDeadline,
		queue:        make(chan struct{}, queueSize),
	}
}

func (c *Client) acquire() (func(), error) {
	select {
	case c.queue <- struct{}{}:
		return func() { <-c.queue }, nil
	default:
		return nil, taskerr.New(taskerr.Overloaded, fmt.Sprintf("tool server %s queue full", c.ServerID))
	}
}

// ListTools performs GET /tools and returns descriptors stamped with this
// server's id and the current time.
func (c *Client) ListTools(ctx context.Context) ([]toolpb.Descriptor, error) {
	release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, c.CallDeadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/tools", nil)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.ServerUnreachable, "build list_tools request", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.ServerUnreachable, "list_tools unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.ProtocolMismatch, "list_tools read body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, taskerr.New(taskerr.UpstreamError, fmt.Sprintf("list_tools status %d", resp.StatusCode))
	}

	var raw toolpb.ListToolsResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, taskerr.Wrap(taskerr.ProtocolMismatch, "list_tools malformed reply", err)
	}

	now := time.Now().UTC()
	out := make([]toolpb.Descriptor, 0, len(raw))
	for _, t := range raw {
		out = append(out, toolpb.Descriptor{
			ServerID:        c.ServerID,
			Name:            t.Name,
			Description:     t.Description,
			ParameterSchema: t.ParameterSchema,
			ReturnSchema:    t.ReturnSchema,
			DiscoveredAt:    now,
		})
	}
	return out, nil
}

// CallTool validates params against schema locally, then performs
// POST /tools/<name>/invoke, retrying as the httpx client's strategy decides
// (the default retries network errors and 429/5xx responses). A parameter
// validation failure is never sent or retried.
func (c *Client) CallTool(ctx context.Context, name string, schema map[string]interface{}, params map[string]interface{}) (interface{}, error) {
	if err := ValidateParameters(schema, params); err != nil {
		return nil, taskerr.Wrap(taskerr.InvalidParameters, "parameter validation failed", err)
	}

	release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, c.CallDeadline)
	defer cancel()

	body, err := json.Marshal(toolpb.InvokeRequest{Parameters: params})
	if err != nil {
		return nil, taskerr.Wrap(taskerr.InvalidParameters, "marshal call parameters", err)
	}

	url := fmt.Sprintf("%s/tools/%s/invoke", c.BaseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, taskerr.Wrap(taskerr.ServerUnreachable, "build invoke request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, taskerr.Wrap(taskerr.Timeout, "invoke deadline exceeded", err)
		}
		return nil, taskerr.Wrap(taskerr.ServerUnreachable, "invoke unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.ProtocolMismatch, "invoke read body", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var ok toolpb.InvokeSuccess
		if err := json.Unmarshal(respBody, &ok); err != nil {
			return nil, taskerr.Wrap(taskerr.ProtocolMismatch, "invoke malformed success reply", err)
		}
		return ok.Data, nil
	}

	var failure toolpb.InvokeFailure
	if err := json.Unmarshal(respBody, &failure); err == nil && failure.ErrorKind != "" {
		return nil, taskerr.New(taskerr.Kind(failure.ErrorKind), failure.Message)
	}
	return nil, taskerr.New(taskerr.UpstreamError, fmt.Sprintf("invoke status %d", resp.StatusCode))
}

// Registry is the set of TPC clients keyed by server id, shared by the Tool
// Registry's refresh loop.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ServerID] = c
}

func (r *Registry) Get(serverID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[serverID]
	return c, ok
}

func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}
