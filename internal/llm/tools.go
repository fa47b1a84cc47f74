package llm

import (
	"fmt"
	"strconv"
)

// FunctionTool wraps a JSON-schema parameter object into a function tool.
func FunctionTool(name, description string, parameters map[string]interface{}) Tool {
	return Tool{
		Type: "function",
		Function: Function{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// ArgString reads a string argument. Numbers are formatted.
func ArgString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	default:
		return "", fmt.Errorf("argument %q has unsupported type %T", key, v)
	}
}

// ArgNumber reads a numeric argument. Numeric strings are accepted since
// some models quote numbers.
func ArgNumber(args map[string]interface{}, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("argument %q is not a number: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("argument %q has unsupported type %T", key, v)
	}
}
