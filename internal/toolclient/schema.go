package toolclient

import "fmt"

// ValidateParameters checks params against a shallow JSON-schema-shaped
// object: {type: object, properties: {...}, required: [...]}. This covers
// the tool parameter schemas named in §6 (string-typed customer_id/
// policy_id fields) without pulling in a schema-generation library whose
// direction (Go struct -> schema) is the opposite of what is needed here
// (untyped JSON -> validate against a remote schema); see DESIGN.md.
func ValidateParameters(schema map[string]interface{}, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	required, _ := schema["required"].([]interface{})
	for _, r := range required {
		name, ok := r.(string)
		if !ok {
			continue
		}
		if _, present := params[name]; !present {
			return fmt.Errorf("missing required parameter %q", name)
		}
	}

	properties, _ := schema["properties"].(map[string]interface{})
	for name, value := range params {
		propSchema, ok := properties[name]
		if !ok {
			continue // unknown params are passed through, not rejected
		}
		propMap, ok := propSchema.(map[string]interface{})
		if !ok {
			continue
		}
		wantType, _ := propMap["type"].(string)
		if wantType == "" {
			continue
		}
		if !matchesType(value, wantType) {
			return fmt.Errorf("parameter %q: want type %s", name, wantType)
		}
	}

	return nil
}

func matchesType(value interface{}, want string) bool {
	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "integer":
		switch v := value.(type) {
		case int, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "object":
		_, ok := value.(map[string]interface{})
		return ok
	case "array":
		_, ok := value.([]interface{})
		return ok
	default:
		return true
	}
}
