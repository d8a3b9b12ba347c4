package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

func first(obj map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func hasAny(obj map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func firstObject(obj map[string]any, keys []string) (map[string]any, bool) {
	for _, k := range keys {
		if m, ok := obj[k].(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}

// firstList returns the first list present under keys, even when empty.
func firstList(obj map[string]any, keys []string) []any {
	for _, k := range keys {
		if l, ok := obj[k].([]any); ok {
			return l
		}
	}
	return nil
}

func firstNonEmptyList(obj map[string]any, keys []string) []any {
	for _, k := range keys {
		if l, ok := obj[k].([]any); ok && len(l) > 0 {
			return l
		}
	}
	return nil
}

// firstString returns the first non-empty scalar under keys as a string.
// Numeric ids are stringified so identity survives the conversion.
func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64, json.Number, int, int64, bool:
			s, _ := Stringify(v)
			return s
		}
	}
	return ""
}

func str(obj map[string]any, key string) string {
	return firstString(obj, []string{key})
}

func num(obj map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func strList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case string:
		if t == "" {
			return []string{}
		}
		return strings.Split(t, "\n")
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			if s, ok := Stringify(it); ok && it != nil {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	}
	return []string{}
}

func contains(keys []string, k string) bool {
	for _, c := range keys {
		if c == k {
			return true
		}
	}
	return false
}
