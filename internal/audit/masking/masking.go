// Package masking redacts credentials before audit metadata is persisted.
package masking

import "strings"

const redacted = "[redacted]"

var sensitiveKeys = []string{"password", "secret", "token", "session", "authorization", "cookie"}

// IsSensitiveKey reports whether values stored under key must never be written verbatim.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	for _, needle := range sensitiveKeys {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

// Redact copies metadata, replacing every value under a sensitive key.
// Nested objects and lists are walked. Blank keys are dropped.
func Redact(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if IsSensitiveKey(key) {
			out[key] = redacted
			continue
		}
		out[key] = redactValue(value)
	}
	return out
}

func redactValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return Redact(typed)
	case []any:
		items := make([]any, len(typed))
		for i, item := range typed {
			items[i] = redactValue(item)
		}
		return items
	default:
		return value
	}
}
