package ai

import "strings"

// ExtractJSON strips markdown fences and surrounding prose from a model answer
// and returns the text between the first '{' and the last '}'. It returns an
// empty string when the answer holds no object.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return ""
	}
	return strings.TrimSpace(raw[start : end+1])
}
