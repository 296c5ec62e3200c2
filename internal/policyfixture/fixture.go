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

// Package policyfixture is an in-memory reference Policy Server
// implementing the nine canonical tools named in §6. It is test-support
// only: spec.md §1 explicitly classifies mock data sources as an external
// collaborator, so this package is imported by package tests and the
// end-to-end scenario suite, never by cmd/.
package policyfixture

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
)

// Customer is one fixture customer record, keyed by customer_id.
type Customer struct {
	Policies    []Policy
	Payment     map[string]interface{}
	Deductibles map[string]interface{}
	Agent       map[string]interface{}
}

// Policy is a minimal policy record, the shape S1 in §8 expects (a 2019
// Honda Civic auto policy and a Term Life policy).
type Policy struct {
	PolicyID string                 `json:"policy_id"`
	Type     string                 `json:"type"`
	Details  map[string]interface{} `json:"details"`
}

// Server is the fixture Policy Server. Unknown customer ids resolve to a
// not_found data shape, matching §8 scenario S2.
type Server struct {
	Customers map[string]Customer
	// FailNextCalls, when > 0, makes the next N invoke calls to any tool
	// return HTTP 503, used to exercise per-step upstream failures without
	// network flakiness.
	FailNextCalls int

	httpServer *httptest.Server
}

// NewServer builds a fixture with a default customer set: CUST-001 (the
// S1/S3/S4 scenarios' customer, with two policies, payment info, and
// deductibles) and no entry for INVALID-999 (the S2 scenario's unknown
// customer, which every tool resolves as not_found).
func NewServer() *Server {
	return &Server{
		Customers: map[string]Customer{
			"CUST-001": {
				Policies: []Policy{
					{PolicyID: "POL-AUTO-1", Type: "auto", Details: map[string]interface{}{
						"vehicle": "2019 Honda Civic",
					}},
					{PolicyID: "POL-LIFE-1", Type: "term_life", Details: map[string]interface{}{
						"term_years": 20,
					}},
				},
				Payment: map[string]interface{}{
					"premium_due":  125.00,
					"due_date":     "2026-08-15",
					"payment_mode": "monthly",
				},
				Deductibles: map[string]interface{}{
					"POL-AUTO-1": 500,
					"POL-LIFE-1": 0,
				},
				Agent: map[string]interface{}{
					"name":  "Jamie Rivera",
					"phone": "+1-555-0100",
					"email": "jamie.rivera@example-agency.test",
				},
			},
		},
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/tools", s.handleListTools)
	r.Post("/tools/{name}/invoke", s.handleInvoke)
	return r
}

// Start binds the fixture to an httptest.Server and returns its base URL.
func (s *Server) Start() string {
	s.httpServer = httptest.NewServer(s.router())
	return s.httpServer.URL
}

func (s *Server) Close() {
	if s.httpServer != nil {
		s.httpServer.Close()
	}
}

type toolDescriptor struct {
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	ParameterSchema map[string]interface{} `json:"parameter_schema"`
}

func customerIDSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"customer_id": map[string]interface{}{"type": "string"},
		},
		"required": []interface{}{"customer_id"},
	}
}

func policyDetailsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"customer_id": map[string]interface{}{"type": "string"},
			"policy_id":   map[string]interface{}{"type": "string"},
		},
		"required": []interface{}{"customer_id", "policy_id"},
	}
}

// catalog is the nine canonical tools from §6. get_policy_details uses the
// two-field schema; every other tool requires only customer_id.
var catalog = []toolDescriptor{
	{Name: "get_customer_policies", Description: "List a customer's policies", ParameterSchema: customerIDSchema()},
	{Name: "get_policy_details", Description: "Get details for one policy", ParameterSchema: policyDetailsSchema()},
	{Name: "get_coverage_information", Description: "Get coverage limits for a customer", ParameterSchema: customerIDSchema()},
	{Name: "get_payment_information", Description: "Get payment/premium information", ParameterSchema: customerIDSchema()},
	{Name: "get_agent", Description: "Get the customer's assigned agent", ParameterSchema: customerIDSchema()},
	{Name: "get_deductibles", Description: "Get deductibles by policy", ParameterSchema: customerIDSchema()},
	{Name: "get_policy_types", Description: "List policy types available", ParameterSchema: customerIDSchema()},
	{Name: "get_policy_list", Description: "List policy ids for a customer", ParameterSchema: customerIDSchema()},
	{Name: "get_recommendations", Description: "Get product recommendations", ParameterSchema: customerIDSchema()},
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if s.FailNextCalls > 0 {
		s.FailNextCalls--
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Parameters map[string]interface{} `json:"parameters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error_kind": "InvalidParameters", "message": "malformed body"})
		return
	}

	customerID, _ := req.Parameters["customer_id"].(string)
	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error_kind": "InvalidParameters", "message": "customer_id required"})
		return
	}

	customer, ok := s.Customers[customerID]
	if !ok {
		// §8 scenario S2: unknown customer resolves as a not_found data
		// shape, HTTP 200 — the "not found" is a business answer, not a
		// transport failure.
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{"found": false}})
		return
	}

	data, err := s.resolve(name, customer, req.Parameters)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error_kind": "InvalidParameters", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

func (s *Server) resolve(name string, customer Customer, params map[string]interface{}) (interface{}, error) {
	switch name {
	case "get_customer_policies", "get_policy_list":
		return map[string]interface{}{"policies": customer.Policies}, nil
	case "get_policy_details":
		policyID, _ := params["policy_id"].(string)
		for _, p := range customer.Policies {
			if p.PolicyID == policyID {
				return p, nil
			}
		}
		return map[string]interface{}{"found": false}, nil
	case "get_coverage_information":
		out := make(map[string]interface{}, len(customer.Policies))
		for _, p := range customer.Policies {
			out[p.PolicyID] = p.Details
		}
		return out, nil
	case "get_payment_information":
		return customer.Payment, nil
	case "get_deductibles":
		return customer.Deductibles, nil
	case "get_agent":
		return customer.Agent, nil
	case "get_policy_types":
		types := make(map[string]bool)
		for _, p := range customer.Policies {
			types[p.Type] = true
		}
		out := make([]string, 0, len(types))
		for t := range types {
			out = append(out, t)
		}
		return out, nil
	case "get_recommendations":
		return []string{"umbrella_policy"}, nil
	default:
		return nil, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
