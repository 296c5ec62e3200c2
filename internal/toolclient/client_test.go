package toolclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbridge-ins/agentcore/internal/httpx"
	"github.com/northbridge-ins/agentcore/internal/policyfixture"
	"github.com/northbridge-ins/agentcore/internal/taskerr"
)

func TestClient_ListTools(t *testing.T) {
	fx := policyfixture.NewServer()
	url := fx.Start()
	defer fx.Close()

	c := New("server-a", url, httpx.New(), 32, 2*time.Second)
	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tools)
	for _, d := range tools {
		assert.Equal(t, "server-a", d.ServerID)
	}
}

func TestClient_CallTool_OK(t *testing.T) {
	fx := policyfixture.NewServer()
	url := fx.Start()
	defer fx.Close()

	c := New("server-a", url, httpx.New(), 32, 2*time.Second)
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"customer_id"},
	}
	data, err := c.CallTool(context.Background(), "get_customer_policies", schema, map[string]interface{}{"customer_id": "CUST-001"})
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestClient_CallTool_InvalidParameters(t *testing.T) {
	fx := policyfixture.NewServer()
	url := fx.Start()
	defer fx.Close()

	c := New("server-a", url, httpx.New(), 32, 2*time.Second)
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"customer_id"},
	}
	_, err := c.CallTool(context.Background(), "get_customer_policies", schema, map[string]interface{}{})
	require.Error(t, err)
	assert.Equal(t, taskerr.InvalidParameters, taskerr.KindOf(err))
}

func TestClient_CallTool_ServerUnreachable(t *testing.T) {
	fx := policyfixture.NewServer()
	url := fx.Start()
	fx.Close() // shut down immediately

	c := New("server-a", url, httpx.New(httpx.WithMaxRetries(0)), 32, 500*time.Millisecond)
	_, err := c.CallTool(context.Background(), "get_customer_policies", nil, map[string]interface{}{"customer_id": "CUST-001"})
	require.Error(t, err)
	assert.Equal(t, taskerr.ServerUnreachable, taskerr.KindOf(err))
}

func TestClient_QueueBackpressure(t *testing.T) {
	fx := policyfixture.NewServer()
	url := fx.Start()
	defer fx.Close()

	c := New("server-a", url, httpx.New(), 1, 2*time.Second)
	release, err := c.acquire()
	require.NoError(t, err)
	defer release()

	_, err = c.acquire()
	require.Error(t, err)
	assert.Equal(t, taskerr.Overloaded, taskerr.KindOf(err))
}
