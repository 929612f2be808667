package tools

import (
	"encoding/json"
	"fmt"
)

// Args wraps tool arguments with typed accessor methods.
// Eliminates repetitive type assertions and improves error messages.
type Args map[string]interface{}

// String gets a required string argument.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	return s, nil
}

// StringOr gets an optional string argument with a default.
func (a Args) StringOr(key, defaultVal string) string {
	v, ok := a[key]
	if !ok {
		return defaultVal
	}
	s, ok := v.(string)
	if !ok {
		return defaultVal
	}
	return s
}

// IntOr gets an optional integer argument with a default.
// Handles both int and float64 (JSON numbers decode as float64).
func (a Args) IntOr(key string, defaultVal int) int {
	v, ok := a[key]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	default:
		return defaultVal
	}
}

// IntSliceOr gets an optional integer slice argument with a default.
// Handles []interface{} of float64 (JSON arrays decode that way).
func (a Args) IntSliceOr(key string, defaultVal []int) []int {
	v, ok := a[key]
	if !ok {
		return defaultVal
	}
	switch arr := v.(type) {
	case []int:
		return arr
	case []interface{}:
		result := make([]int, 0, len(arr))
		for _, item := range arr {
			switch n := item.(type) {
			case int:
				result = append(result, n)
			case float64:
				result = append(result, int(n))
			case json.Number:
				i, err := n.Int64()
				if err != nil {
					return defaultVal
				}
				result = append(result, int(i))
			default:
				return defaultVal
			}
		}
		return result
	default:
		return defaultVal
	}
}

// Has returns true if the key exists in the arguments.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}
