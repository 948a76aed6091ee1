package operation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// checkInput applies the minimal schema rules (required keys and
// additionalProperties:false) to input. Input that is not a JSON object is left
// for the executor, which reports it as a deserialization failure.
func checkInput(schemaRaw json.RawMessage, input string) error {
	var schema map[string]any
	if err := json.Unmarshal(schemaRaw, &schema); err != nil {
		return fmt.Errorf("%w: invalid input schema", ErrInputValidationFailed)
	}
	if !constrains(schema) {
		return nil
	}

	var in map[string]any
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return nil
	}
	return validateAgainstMinimalSchema(in, schema)
}

func constrains(schema map[string]any) bool {
	if len(extractStringSlice(schema["required"])) > 0 {
		return true
	}
	allowAdditional, ok := schema["additionalProperties"].(bool)
	return ok && !allowAdditional
}

func validateAgainstMinimalSchema(input, schema map[string]any) error {
	for _, key := range extractStringSlice(schema["required"]) {
		if _, ok := input[key]; !ok {
			return fmt.Errorf("%w: missing required field %q", ErrInputValidationFailed, key)
		}
	}

	allowAdditional := true
	if v, ok := schema["additionalProperties"].(bool); ok {
		allowAdditional = v
	}
	if allowAdditional {
		return nil
	}

	allowedProps := map[string]struct{}{}
	if props, ok := schema["properties"].(map[string]any); ok {
		for key := range props {
			allowedProps[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(input))
	for key := range input {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := allowedProps[key]; !ok {
			return fmt.Errorf("%w: unknown field %q", ErrInputValidationFailed, key)
		}
	}
	return nil
}

func extractStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
