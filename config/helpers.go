package config

import (
	"strconv"
	"strings"
)

// Safe type assertion helpers prevent panics when reading segment detail.
// Sources vary (JSON numbers arrive as float64, YAML as int, hand-written
// files quote scalars), so the numeric and boolean helpers also coerce
// string forms.

// GetString safely extracts a string value from a detail map
func GetString(cfg map[string]any, key string, defaultVal string) string {
	if val, ok := cfg[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultVal
}

// GetInt safely extracts an integer value from a detail map
func GetInt(cfg map[string]any, key string, defaultVal int) int {
	if val, ok := cfg[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case int32:
			return int(v)
		case float64:
			return int(v)
		case float32:
			return int(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return defaultVal
}

// GetFloat64 safely extracts a float64 value from a detail map
func GetFloat64(cfg map[string]any, key string, defaultVal float64) float64 {
	if val, ok := cfg[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case int32:
			return float64(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return defaultVal
}

// GetBool safely extracts a boolean value from a detail map
func GetBool(cfg map[string]any, key string, defaultVal bool) bool {
	if val, ok := cfg[key]; ok {
		switch v := val.(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v))); err == nil {
				return b
			}
		}
	}
	return defaultVal
}

// GetStringSlice safely extracts a string slice from a detail map
func GetStringSlice(cfg map[string]any, key string, defaultVal []string) []string {
	if val, ok := cfg[key]; ok {
		if slice, ok := val.([]string); ok {
			return slice
		}
		// Decoded lists arrive as []any
		if interfaceSlice, ok := val.([]any); ok {
			result := make([]string, 0, len(interfaceSlice))
			for _, item := range interfaceSlice {
				if str, ok := item.(string); ok {
					result = append(result, str)
				}
			}
			if len(result) == len(interfaceSlice) {
				return result
			}
		}
	}
	return defaultVal
}

// GetStringMap safely extracts a string-to-string mapping from a detail map.
// Entries with non-string values are dropped.
func GetStringMap(cfg map[string]any, key string) map[string]string {
	val, ok := cfg[key]
	if !ok {
		return nil
	}
	raw, ok := val.(map[string]any)
	if !ok {
		return nil
	}
	result := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}

// HasKey checks if a key exists in the detail map
func HasKey(cfg map[string]any, key string) bool {
	_, ok := cfg[key]
	return ok
}
