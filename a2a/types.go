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

// Package a2a implements the Agent-to-Agent (A2A) task protocol between the
// Domain Agent and the Technical Agent: a flat JSON task/reply envelope
// over HTTP POST /a2a/tasks, matching the wire shape in the specification's
// External Interfaces section exactly (not the a2a-protocol.org object
// model of Messages/Parts/Artifacts).
package a2a

import "time"

// Task is the request envelope, wire shape: {task_id, from_agent, to_agent,
// text, metadata, created_at}.
type Task struct {
	TaskID    string                 `json:"task_id"`
	FromAgent string                 `json:"from_agent"`
	ToAgent   string                 `json:"to_agent"`
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ReplyStatus is the closed set of reply statuses.
type ReplyStatus string

const (
	StatusCompleted ReplyStatus = "completed"
	StatusFailed    ReplyStatus = "failed"
)

// Part is one element of a Reply's parts array.
type Part struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Reply is the response envelope: {task_id, status, parts: [{text, metadata}]}.
type Reply struct {
	TaskID string      `json:"task_id"`
	Status ReplyStatus `json:"status"`
	Parts  []Part      `json:"parts"`
}

// FailedReply builds a one-part failure Reply carrying an error_kind in its
// part metadata, the shape TA/DA both use to signal §7 error kinds.
func FailedReply(taskID, errorKind, message string) Reply {
	return Reply{
		TaskID: taskID,
		Status: StatusFailed,
		Parts: []Part{{
			Text: message,
			Metadata: map[string]interface{}{
				"error_kind": errorKind,
			},
		}},
	}
}

// AgentCard advertises an agent's identity for discovery — a supplemented
// feature (not in the distilled spec) grounded on the teacher's own
// AgentCard/AgentDirectory shape, trimmed to what a test harness needs to
// assert agent identity without hardcoding URLs.
type AgentCard struct {
	AgentID      string   `json:"agent_id"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	TaskURL      string   `json:"task_url"`
}
