package common

import (
	"encoding/json"
	"strings"
)

// ParseFlexibleList accepts the several shapes target and job keyword fields
// arrive in across config files, LLM JSON output, and form posts: a JSON
// array, a comma-separated string, or a single bare string. Anything else
// returns nil.
func ParseFlexibleList(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return dedupeNonEmpty(val)
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return dedupeNonEmpty(out)
	case json.RawMessage:
		return ParseFlexibleList([]byte(val))
	case []byte:
		trimmed := strings.TrimSpace(string(val))
		if strings.HasPrefix(trimmed, "[") {
			var arr []string
			if err := json.Unmarshal(val, &arr); err == nil {
				return dedupeNonEmpty(arr)
			}
			var rawArr []interface{}
			if err := json.Unmarshal(val, &rawArr); err == nil {
				return ParseFlexibleList(rawArr)
			}
			return nil
		}
		return ParseFlexibleList(trimmed)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return nil
		}
		if strings.HasPrefix(trimmed, "[") {
			return ParseFlexibleList([]byte(trimmed))
		}
		parts := strings.Split(trimmed, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return dedupeNonEmpty(out)
	default:
		return nil
	}
}

func dedupeNonEmpty(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
