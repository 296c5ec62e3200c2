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

// Command domain-agent starts the Domain Agent's HTTP server: session-aware
// intent analysis, A2A delegation to the Technical Agent, and response
// synthesis, behind POST /chat.
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
	"github.com/northbridge-ins/agentcore/llmclient"
	"github.com/northbridge-ins/agentcore/promptstore"
	"github.com/northbridge-ins/agentcore/sessionstore"

	"github.com/northbridge-ins/agentcore/domainagent"
)

// CLI defines the domain-agent command-line interface, grounded on
// cmd/hector/main.go's kong.CLI shape but trimmed to this agent's surface.
type CLI struct {
	Serve ServeCmd `cmd:"" default:"1" help:"Start the Domain Agent HTTP server."`
}

// ServeCmd starts the Domain Agent server.
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

	httpClient := httpx.New(httpx.WithLogger(logger))
	llm := llmclient.New(cfg.LLMAPIBase, cfg.LLMAPIKey, cfg.LLMPrimaryModel, cfg.LLMFallbackModel,
		&http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSeconds*4) * time.Second})

	sessions := sessionstore.New(time.Duration(cfg.SessionTTLSeconds) * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessions.StartSweeper(ctx, time.Minute)

	taClient := a2a.NewClient(cfg.TechnicalAgentURL, httpClient, 20*time.Second)
	agent := domainagent.New(sessions, taClient, llm, prompts, logger)

	srv := domainagent.NewServer(fmt.Sprintf(":%d", cfg.DomainAgentPort), agent, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down domain agent", "component", "domain-agent")
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
	cli := kong.Parse(&CLI{}, kong.Name("domain-agent"),
		kong.Description("Domain Agent: session-aware intent analysis and response synthesis."))
	if err := cli.Run(); err != nil {
		cli.FatalIfErrorf(err)
	}
}
