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

// Package llmclient is the chat-completion abstraction (§4.5): a single
// provider-agnostic Client over an OpenAI-compatible chat/completions
// endpoint, with {model, fallback_model} retry and JSON-mode repair.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/northbridge-ins/agentcore/internal/taskerr"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat is the closed set from §4.5.
type ResponseFormat string

const (
	FormatText ResponseFormat = "text"
	FormatJSON ResponseFormat = "json"
)

// Options configures a single Complete call.
type Options struct {
	Model          string
	FallbackModel  string
	MaxTokens      int
	Temperature    float64
	ResponseFormat ResponseFormat
	Deadline       time.Duration
}

// Usage records token accounting for one call; recorded but never affects
// correctness, per §4.5.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is what Complete returns.
type Result struct {
	Text  string
	Usage Usage
}

// Client is a thin client over an OpenAI-compatible /chat/completions
// endpoint, grounded on the teacher's llms/openai.go request/response
// shapes but collapsed to a single provider (no multi-provider registry:
// the spec asks for one LLM Client with model+fallback, not a provider zoo).
// PrimaryModel/FallbackModel are the process-wide defaults (§6's
// LLM_PRIMARY_MODEL/LLM_FALLBACK_MODEL); callers only need to override
// Options.Model/FallbackModel for a one-off call.
type Client struct {
	APIBase        string
	APIKey         string
	PrimaryModel   string
	FallbackModel  string
	HTTP           *http.Client
	enc            *tiktoken.Tiktoken
}

func New(apiBase, apiKey, primaryModel, fallbackModel string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	enc, _ := tiktoken.GetEncoding("cl100k_base")
	return &Client{
		APIBase:       apiBase,
		APIKey:        apiKey,
		PrimaryModel:  primaryModel,
		FallbackModel: fallbackModel,
		HTTP:          httpClient,
		enc:           enc,
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements §4.5's contract: on the primary model's Timeout or
// UpstreamError, retry once with FallbackModel; if ResponseFormat is json,
// parse-and-validate with one repair attempt before failing LLMParseError.
func (c *Client) Complete(ctx context.Context, messages []Message, opts Options) (Result, error) {
	if opts.Deadline <= 0 {
		opts.Deadline = 10 * time.Second
	}
	if opts.Model == "" {
		opts.Model = c.PrimaryModel
	}
	if opts.FallbackModel == "" {
		opts.FallbackModel = c.FallbackModel
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Deadline)
	defer cancel()

	result, err := c.complete(ctx, messages, opts.Model, opts)
	if err != nil {
		kind := taskerr.KindOf(err)
		if (kind == taskerr.Timeout || kind == taskerr.UpstreamError) && opts.FallbackModel != "" {
			result, err = c.complete(ctx, messages, opts.FallbackModel, opts)
		}
	}
	if err != nil {
		return Result{}, err
	}

	if opts.ResponseFormat == FormatJSON {
		if json.Valid([]byte(result.Text)) {
			return result, nil
		}
		repairMessages := append(append([]Message{}, messages...), Message{
			Role:    "user",
			Content: "Your previous reply was not valid JSON. Return ONLY valid JSON, no prose, no markdown fences.",
		})
		repaired, err := c.complete(ctx, repairMessages, opts.Model, opts)
		if err != nil || !json.Valid([]byte(repaired.Text)) {
			return Result{}, taskerr.New(taskerr.LLMParseError, "LLM did not return valid JSON after one repair attempt")
		}
		return repaired, nil
	}

	return result, nil
}

func (c *Client) complete(ctx context.Context, messages []Message, model string, opts Options) (Result, error) {
	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, taskerr.Wrap(taskerr.UpstreamError, "marshal chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBase+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, taskerr.Wrap(taskerr.UpstreamError, "build chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, taskerr.Wrap(taskerr.Timeout, "llm call deadline exceeded", err)
		}
		return Result{}, taskerr.Wrap(taskerr.UpstreamError, "llm call failed", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, taskerr.Wrap(taskerr.UpstreamError, "read llm response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, taskerr.New(taskerr.UpstreamError, fmt.Sprintf("llm call status %d", resp.StatusCode))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return Result{}, taskerr.Wrap(taskerr.UpstreamError, "malformed llm response", err)
	}
	if parsed.Error != nil {
		return Result{}, taskerr.New(taskerr.UpstreamError, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, taskerr.New(taskerr.UpstreamError, "llm returned no choices")
	}

	return Result{
		Text: parsed.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

// CountTokens returns a real token count for text via tiktoken-go, grounded
// on the teacher's pkg/utils/tokens.go — used for diagnostics, never for
// correctness decisions.
func (c *Client) CountTokens(text string) int {
	if c.enc == nil {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}
