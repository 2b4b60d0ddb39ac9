package utils

import (
	"sort"
)

// NormalizeValue recursively normalizes a value for consistent JSON marshaling.
// This is necessary to ensure a consistent cache key regardless of how the
// value was constructed.
func NormalizeValue(value interface{}) interface{} {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case map[string]interface{}:
		// Sort map keys to ensure consistent ordering
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		result := make(map[string]interface{}, len(v))
		for _, k := range keys {
			result[k] = NormalizeValue(v[k])
		}
		return result
	case map[string]string:
		result := make(map[string]interface{}, len(v))
		for k, s := range v {
			result[k] = s
		}
		return result
	case []interface{}:
		// Make a copy to avoid modifying the original
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = NormalizeValue(item)
		}
		return result
	default:
		return v
	}
}

// ToPtr returns a pointer to a copy of v.
func ToPtr[T any](v T) *T {
	return &v
}
