package toolclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateParameters(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"customer_id": map[string]interface{}{"type": "string"},
			"policy_id":   map[string]interface{}{"type": "string"},
		},
		"required": []interface{}{"customer_id"},
	}

	assert.NoError(t, ValidateParameters(schema, map[string]interface{}{"customer_id": "CUST-001"}))
	assert.Error(t, ValidateParameters(schema, map[string]interface{}{}))
	assert.Error(t, ValidateParameters(schema, map[string]interface{}{"customer_id": 42}))
	assert.NoError(t, ValidateParameters(nil, map[string]interface{}{"anything": true}))
}
