// Package rules holds the keyword -> tool/intent mapping table shared
// verbatim by the Technical Agent's rule-fallback planner (§4.3 step 2.ii)
// and the Domain Agent's intent rule fallback (§4.7 step 2), so the two
// tiers can never drift out of sync on what each keyword means.
package rules

import (
	"regexp"
	"strings"
)

// CustomerIDMarker is the canonical marker regex from §6: the exact
// pattern mandated for recovering customer_id from A2A task text.
var CustomerIDMarker = regexp.MustCompile(`session_customer_id:\s*([^\s,)]+)`)

// CustomerIDField matches a bare "customer_id: <value>" occurrence
// anywhere in text, §4.3 step 1(c).
var CustomerIDField = regexp.MustCompile(`customer_id:\s*([^\s,)]+)`)

// ToolForKeywords returns the canonical tool name for a free-text request,
// by keyword, exactly as §4.3 step 2.ii and §4.7 step 2 both specify:
// payment/premium/due -> get_payment_information; deductible ->
// get_deductibles; coverage/limit -> get_coverage_information;
// agent/contact -> get_agent; policy/policies -> get_customer_policies;
// otherwise -> get_customer_policies. "billing"/"bill" join the payment
// family per §8 scenario S4 ("billing?" -> get_payment_information), which
// the spec's literal keyword list omits but its worked example requires.
func ToolForKeywords(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "payment") || strings.Contains(lower, "premium") ||
		strings.Contains(lower, "due") || strings.Contains(lower, "bill"):
		return "get_payment_information"
	case strings.Contains(lower, "deductible"):
		return "get_deductibles"
	case strings.Contains(lower, "coverage") || strings.Contains(lower, "limit"):
		return "get_coverage_information"
	case strings.Contains(lower, "agent") || strings.Contains(lower, "contact"):
		return "get_agent"
	case strings.Contains(lower, "policy") || strings.Contains(lower, "policies"):
		return "get_customer_policies"
	default:
		return "get_customer_policies"
	}
}

// Intent is the closed set of primary intents from §3.
type Intent string

const (
	IntentPayment    Intent = "payment_inquiry"
	IntentDeductible Intent = "deductible_inquiry"
	IntentCoverage   Intent = "coverage_inquiry"
	IntentPolicy     Intent = "policy_inquiry"
	IntentAgent      Intent = "agent_contact"
	IntentClaim      Intent = "claim_status"
	IntentGeneral    Intent = "general_inquiry"
)

// IntentForKeywords maps free text to a primary intent using the same
// keyword families as ToolForKeywords, for the DA's rule fallback.
func IntentForKeywords(text string) Intent {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "payment") || strings.Contains(lower, "premium") ||
		strings.Contains(lower, "due") || strings.Contains(lower, "bill"):
		return IntentPayment
	case strings.Contains(lower, "deductible"):
		return IntentDeductible
	case strings.Contains(lower, "coverage") || strings.Contains(lower, "limit"):
		return IntentCoverage
	case strings.Contains(lower, "agent") || strings.Contains(lower, "contact"):
		return IntentAgent
	case strings.Contains(lower, "claim"):
		return IntentClaim
	case strings.Contains(lower, "policy") || strings.Contains(lower, "policies"):
		return IntentPolicy
	default:
		return IntentGeneral
	}
}

// RequiresTechnical reports whether an intent requires TA delegation,
// per §4.7 step 3's set.
func RequiresTechnical(intent Intent) bool {
	switch intent {
	case IntentPolicy, IntentCoverage, IntentDeductible, IntentPayment, IntentAgent, IntentClaim:
		return true
	default:
		return false
	}
}
