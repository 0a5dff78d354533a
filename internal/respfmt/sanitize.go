package respfmt

import "strings"

// sensitiveSubstrings are lowercase key fragments whose values are
// redacted recursively, per spec §4.3.
var sensitiveSubstrings = []string{
	"password", "token", "key", "secret", "credential",
	"auth", "api_key", "access_token", "refresh_token",
}

const redacted = "[REDACTED]"

// Sanitize walks v (maps, slices, or scalars) and replaces the value
// of any map key whose lowercased name contains a sensitive
// substring with "[REDACTED]", recursing into nested maps and slices.
func Sanitize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if isSensitiveKey(k) {
				out[k] = redacted
				continue
			}
			out[k] = Sanitize(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = Sanitize(inner)
		}
		return out
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sub := range sensitiveSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// Truncate shortens s to maxLen runes, appending an ellipsis, if s
// exceeds maxLen. maxLen <= 0 disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}
