package common

import "strings"

// FirstJSONObject returns the text of the first balanced {...} block in s,
// used to pull a JSON object out of an LLM response that may wrap it in
// prose or markdown code fences. Returns "" if no balanced object is found.
func FirstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
