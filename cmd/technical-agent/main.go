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

// Command technical-agent starts the Technical Agent's A2A server: tool
// discovery, plan-and-execute over the Tool Registry, and bundle
// aggregation, behind POST /a2a/tasks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/northbridge-ins/agentcore/a2a"
	"github.com/northbridge-ins/agentcore/internal/config"
	"github.com/northbridge-ins/agentcore/internal/httpx"
	"github.com/northbridge-ins/agentcore/internal/toolclient"
	"github.com/northbridge-ins/agentcore/internal/toolregistry"
	"github.com/northbridge-ins/agentcore/llmclient"
	"github.com/northbridge-ins/agentcore/promptstore"

	"github.com/northbridge-ins/agentcore/techagent"
)

// CLI defines the technical-agent command-line interface.
type CLI struct {
	Serve ServeCmd `cmd:"" default:"1" help:"Start the Technical Agent A2A server."`
}

// ServeCmd starts the Technical Agent server.
type ServeCmd struct {
	Prompts string `help:"Path to the prompt catalog YAML." default:"promptstore/prompts.yaml"`
}

func (c *ServeCmd) Run() error {
	if err := config.LoadEnvFiles(); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	prompts, err := promptstore.Load(c.Prompts)
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	callTimeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	httpClient := httpx.New(httpx.WithLogger(logger))
	llm := llmclient.New(cfg.LLMAPIBase, cfg.LLMAPIKey, cfg.LLMPrimaryModel, cfg.LLMFallbackModel,
		&http.Client{Timeout: callTimeout * 4})

	clients := toolclient.NewRegistry()
	serverIDs := cfg.PolicyServerURLsList()
	if len(serverIDs) == 0 {
		logger.Warn("no policy server URLs configured", "component", "technical-agent")
	}
	for i, url := range serverIDs {
		serverID := fmt.Sprintf("policy-server-%d", i)
		clients.Add(toolclient.New(serverID, url, httpClient, 32, callTimeout))
	}

	registryServerIDs := make([]string, len(serverIDs))
	for i := range serverIDs {
		registryServerIDs[i] = fmt.Sprintf("policy-server-%d", i)
	}
	registry := toolregistry.New(registryServerIDs, clients, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registry.StartPeriodicRefresh(ctx, time.Duration(cfg.RegistryRefreshSeconds)*time.Second)

	agent := techagent.New(registry, clients, llm, prompts, logger)

	card := a2a.AgentCard{
		AgentID:      "technical",
		Name:         "Technical Agent",
		Capabilities: []string{"tool_discovery", "tool_planning", "tool_execution"},
		TaskURL:      fmt.Sprintf("http://localhost:%d/a2a/tasks", cfg.TechnicalAgentPort),
	}
	srv := a2a.NewServer(fmt.Sprintf(":%d", cfg.TechnicalAgentPort), card, agent, cfg.A2AConcurrency, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down technical agent", "component", "technical-agent")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Stop(shutdownCtx)
		cancel()
	}()

	return srv.Start()
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	cli := kong.Parse(&CLI{}, kong.Name("technical-agent"),
		kong.Description("Technical Agent: tool discovery, planning, and execution."))
	if err := cli.Run(); err != nil {
		cli.FatalIfErrorf(err)
	}
}
