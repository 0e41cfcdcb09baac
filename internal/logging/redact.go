package logging

import (
	"log/slog"
	"strings"
)

const RedactedValue = "[REDACTED]"

var sensitiveKeys = []string{"private_key", "privatekey", "private_keys", "secret", "mnemonic", "seed"}

// IsSensitive reports whether values logged under key must never be emitted.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, candidate := range sensitiveKeys {
		if normalized == candidate || strings.HasSuffix(normalized, "_"+candidate) {
			return true
		}
	}
	return false
}

// MaskValue returns the placeholder for non-empty values.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

func MaskField(key, value string) slog.Attr {
	return slog.String(key, MaskValue(value))
}
