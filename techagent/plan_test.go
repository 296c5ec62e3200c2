package techagent

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbridge-ins/agentcore/internal/httpx"
	"github.com/northbridge-ins/agentcore/internal/policyfixture"
	"github.com/northbridge-ins/agentcore/internal/toolclient"
	"github.com/northbridge-ins/agentcore/internal/toolregistry"
)

func testRegistry(t *testing.T) (*toolregistry.Registry, *toolclient.Registry, func()) {
	t.Helper()
	fx := policyfixture.NewServer()
	url := fx.Start()

	clients := toolclient.NewRegistry()
	clients.Add(toolclient.New("server-a", url, httpx.New(), 32, 2*time.Second))

	reg := toolregistry.New([]string{"server-a"}, clients, slog.Default())
	require.NoError(t, reg.Refresh(context.Background()))

	return reg, clients, fx.Close
}

func TestRuleFallbackPlan(t *testing.T) {
	plan := RuleFallbackPlan("When is my premium due?", "CUST-001")
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "get_payment_information", plan.Steps[0].ToolName)
	assert.Equal(t, "CUST-001", plan.Steps[0].Parameters["customer_id"])
}

// TestPlan_Validate checks property 4: every plan accepted by the TA
// references only tool names present in the Registry at planning time, and
// dependencies must precede the step that names them.
func TestPlan_Validate(t *testing.T) {
	reg, _, closeFn := testRegistry(t)
	defer closeFn()

	valid := Plan{Steps: []Step{{StepID: "s0", ToolName: "get_customer_policies"}}}
	assert.NoError(t, valid.Validate(reg))

	unknownTool := Plan{Steps: []Step{{StepID: "s0", ToolName: "not_a_real_tool"}}}
	assert.Error(t, unknownTool.Validate(reg))

	badDependency := Plan{Steps: []Step{
		{StepID: "s0", ToolName: "get_customer_policies", Dependencies: []string{"s1"}},
		{StepID: "s1", ToolName: "get_deductibles"},
	}}
	assert.Error(t, badDependency.Validate(reg))

	empty := Plan{}
	assert.Error(t, empty.Validate(reg))
}
