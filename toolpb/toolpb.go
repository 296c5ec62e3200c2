// Package toolpb defines the wire types exchanged between the Technical
// Agent and a Tool-Protocol server: tool descriptors and call results.
// Field names match the JSON wire shape in the specification's External
// Interfaces section exactly.
package toolpb

import "time"

// Descriptor is a tool as advertised by GET /tools, enriched at registration
// time with the server that offered it and when it was discovered.
type Descriptor struct {
	ServerID        string                 `json:"server_id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	ParameterSchema map[string]interface{} `json:"parameter_schema"`
	ReturnSchema    map[string]interface{} `json:"return_schema,omitempty"`
	DiscoveredAt    time.Time              `json:"discovered_at"`
}

// ListToolsResponse is the raw GET /tools wire body.
type ListToolsResponse []struct {
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	ParameterSchema map[string]interface{} `json:"parameter_schema"`
	ReturnSchema    map[string]interface{} `json:"return_schema,omitempty"`
}

// InvokeRequest is the POST /tools/<name>/invoke request body.
type InvokeRequest struct {
	Parameters map[string]interface{} `json:"parameters"`
}

// InvokeSuccess is the success-shaped invoke response.
type InvokeSuccess struct {
	Data interface{} `json:"data"`
}

// InvokeFailure is the failure-shaped invoke response (non-2xx).
type InvokeFailure struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

// Status is the closed set of Tool Call Result statuses (§3).
type Status string

const (
	StatusOK              Status = "ok"
	StatusNotFound        Status = "not_found"
	StatusInvalidParams   Status = "invalid_params"
	StatusUpstreamError   Status = "upstream_error"
	StatusTimeout         Status = "timeout"
)

// CallResult is a single Tool Call Result as defined in §3.
type CallResult struct {
	StepID    string      `json:"step_id"`
	ToolName  string      `json:"tool_name"`
	Status    Status      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	LatencyMs int64       `json:"latency_ms"`
	Attempts  int         `json:"attempts"`
}

// Bundle aggregates CallResults keyed by step_id with summary counts, the
// payload that becomes the A2A reply's text part (§4.3 step 4).
type Bundle struct {
	Results       map[string]CallResult `json:"results"`
	SummaryCounts SummaryCounts         `json:"summary_counts"`
}

type SummaryCounts struct {
	OK       int `json:"ok"`
	NotFound int `json:"not_found"`
	Error    int `json:"error"`
}

// NewBundle aggregates a slice of CallResults into a Bundle, computing the
// three summary_counts buckets named in §4.3 step 4 verbatim: ok, not_found,
// error. A not_found result is a correct answer about a nonexistent
// customer, not a tool-level failure (§8 scenario S2), so it gets its own
// bucket rather than folding into either ok or error.
func NewBundle(results []CallResult) Bundle {
	b := Bundle{Results: make(map[string]CallResult, len(results))}
	for _, r := range results {
		b.Results[r.StepID] = r
		switch r.Status {
		case StatusOK:
			b.SummaryCounts.OK++
		case StatusNotFound:
			b.SummaryCounts.NotFound++
		default:
			b.SummaryCounts.Error++
		}
	}
	return b
}
