package imgcli

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// getStringParam safely extracts a string parameter from a config params map
func getStringParam(params map[string]any, key string, defaultValue string) string {
	if val, ok := params[key]; ok {
		if strVal, ok := val.(string); ok {
			return strVal
		}
	}
	return defaultValue
}

// getIntParam safely extracts an int parameter from a config params map
func getIntParam(params map[string]any, key string, defaultValue int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultValue
}

// getFloatParam safely extracts a float parameter from a config params map
func getFloatParam(params map[string]any, key string, defaultValue float64) float64 {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	}
	return defaultValue
}

// getBoolParam safely extracts a bool parameter from a config params map.
// Accepts booleans and the strings true/false (case-insensitive).
func getBoolParam(params map[string]any, key string, defaultValue bool) bool {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case bool:
			return v
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true":
				return true
			case "false":
				return false
			}
		}
	}
	return defaultValue
}

var paramsValidator = validator.New()

// validateParams enforces validate struct tags on a bound params struct
// before the wrapped function runs.
func validateParams(params any) error {
	if err := paramsValidator.Struct(params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
