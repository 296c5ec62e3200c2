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

// Package config loads the fixed set of environment variables that
// configure the Domain Agent and Technical Agent. Configuration is
// process-wide, read once at startup; there is no hot reload.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
)

// Config is the fully decoded process configuration. Every field maps
// directly to one environment variable (see envKeys); POLICY_SERVER_URLS is
// an optional multi-server override on top of POLICY_SERVER_URL.
type Config struct {
	DomainAgentPort        int    `mapstructure:"domain_agent_port"`
	TechnicalAgentPort     int    `mapstructure:"technical_agent_port"`
	PolicyServerURL        string `mapstructure:"policy_server_url"`
	PolicyServerURLs       string `mapstructure:"policy_server_urls"`
	TechnicalAgentURL      string `mapstructure:"technical_agent_url"`
	LLMPrimaryModel        string `mapstructure:"llm_primary_model"`
	LLMFallbackModel       string `mapstructure:"llm_fallback_model"`
	LLMAPIBase             string `mapstructure:"llm_api_base"`
	LLMAPIKey              string `mapstructure:"llm_api_key"`
	SessionTTLSeconds      int    `mapstructure:"session_ttl_seconds"`
	RegistryRefreshSeconds int    `mapstructure:"registry_refresh_seconds"`
	HTTPTimeoutSeconds     int    `mapstructure:"http_timeout_seconds"`
	A2AConcurrency         int    `mapstructure:"a2a_concurrency"`
	LogLevel               string `mapstructure:"log_level"`
}

// defaults mirrors the defaults named in §6: SESSION_TTL_SECONDS=1800,
// REGISTRY_REFRESH_SECONDS=300, HTTP_TIMEOUT_SECONDS=5, A2A_CONCURRENCY=64.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"domain_agent_port":        8080,
		"technical_agent_port":     8081,
		"policy_server_url":        "",
		"policy_server_urls":       "",
		"technical_agent_url":      "",
		"llm_primary_model":        "",
		"llm_fallback_model":       "",
		"llm_api_base":             "",
		"llm_api_key":              "",
		"session_ttl_seconds":      1800,
		"registry_refresh_seconds": 300,
		"http_timeout_seconds":     5,
		"a2a_concurrency":          64,
		"log_level":                "info",
	}
}

var envKeys = map[string]string{
	"domain_agent_port":        "DOMAIN_AGENT_PORT",
	"technical_agent_port":     "TECHNICAL_AGENT_PORT",
	"policy_server_url":        "POLICY_SERVER_URL",
	"policy_server_urls":       "POLICY_SERVER_URLS",
	"technical_agent_url":      "TECHNICAL_AGENT_URL",
	"llm_primary_model":        "LLM_PRIMARY_MODEL",
	"llm_fallback_model":       "LLM_FALLBACK_MODEL",
	"llm_api_base":             "LLM_API_BASE",
	"llm_api_key":              "LLM_API_KEY",
	"session_ttl_seconds":      "SESSION_TTL_SECONDS",
	"registry_refresh_seconds": "REGISTRY_REFRESH_SECONDS",
	"http_timeout_seconds":     "HTTP_TIMEOUT_SECONDS",
	"a2a_concurrency":          "A2A_CONCURRENCY",
	"log_level":                "LOG_LEVEL",
}

// LoadEnvFiles loads .env.local (highest priority) then .env, leaving
// already-set process environment variables untouched, exactly as the
// teacher's config/env.go orders its two dotenv layers.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Load builds a Config from defaults overlaid with whatever environment
// variables are actually set, decoded via mapstructure the way the
// teacher's pkg/config loader turns a raw map into a typed struct.
func Load() (*Config, error) {
	raw := defaults()
	for key, envName := range envKeys {
		v, ok := os.LookupEnv(envName)
		if !ok || v == "" {
			continue
		}
		raw[key] = parseValue(v)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PolicyServerURLsList returns the configured tool server URLs: the
// comma-separated PolicyServerURLs override if set, otherwise the single
// PolicyServerURL, matching the Open-Question decision recorded in
// SPEC_FULL.md (multi-server is implemented but single-server by default).
func (c *Config) PolicyServerURLsList() []string {
	if strings.TrimSpace(c.PolicyServerURLs) != "" {
		parts := strings.Split(c.PolicyServerURLs, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	if c.PolicyServerURL != "" {
		return []string{c.PolicyServerURL}
	}
	return nil
}

func parseValue(v string) interface{} {
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return v
}
