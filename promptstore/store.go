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

// Package promptstore supplies parameterized prompts keyed by
// (agent, task_kind, version) (§4.6). Prompts are loaded once at process
// start from a flat YAML catalog; there is no hot reload.
package promptstore

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/northbridge-ins/agentcore/internal/taskerr"
)

// Key identifies one prompt template.
type Key struct {
	Agent    string
	TaskKind string
	Version  string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Agent, k.TaskKind, k.Version)
}

// entry is one catalog row as it appears in YAML.
type entry struct {
	Agent    string `yaml:"agent"`
	TaskKind string `yaml:"task_kind"`
	Version  string `yaml:"version"`
	Template string `yaml:"template"`
}

type catalogFile struct {
	Prompts []entry `yaml:"prompts"`
}

// Store holds parsed templates, indexed by Key, built once at startup.
type Store struct {
	mu        sync.RWMutex
	templates map[Key]*template.Template
}

// Load reads a flat YAML catalog from path and parses every template in
// strict missing-key mode, so Render's "missing variable is a PromptError"
// contract (§4.6) is enforced by text/template itself rather than
// hand-rolled interpolation — see DESIGN.md for why the standard library is
// used here rather than a third-party engine.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.PromptError, "read prompt catalog", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, taskerr.Wrap(taskerr.PromptError, "parse prompt catalog", err)
	}

	s := &Store{templates: make(map[Key]*template.Template, len(file.Prompts))}
	for _, e := range file.Prompts {
		key := Key{Agent: e.Agent, TaskKind: e.TaskKind, Version: e.Version}
		tmpl, err := template.New(key.String()).Option("missingkey=error").Parse(e.Template)
		if err != nil {
			return nil, taskerr.Wrap(taskerr.PromptError, fmt.Sprintf("parse template %s", key), err)
		}
		s.templates[key] = tmpl
	}
	return s, nil
}

// Render fills the named template with variables. Any variable referenced
// by the template but absent from variables produces a PromptError.
func (s *Store) Render(key Key, variables map[string]interface{}) (string, error) {
	s.mu.RLock()
	tmpl, ok := s.templates[key]
	s.mu.RUnlock()
	if !ok {
		return "", taskerr.New(taskerr.PromptError, fmt.Sprintf("no prompt registered for %s", key))
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, variables); err != nil {
		return "", taskerr.Wrap(taskerr.PromptError, fmt.Sprintf("render %s", key), err)
	}
	return buf.String(), nil
}
