package llm

import "strings"

// ExtractJSON strips a markdown code fence from around a model response.
// Models occasionally wrap JSON output in ```json fences even when told not
// to; everything outside the fence is discarded.
func ExtractJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if i := strings.LastIndex(trimmed, "```"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.TrimSpace(trimmed)
}
