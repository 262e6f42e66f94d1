package telemetry

import (
	"log/slog"
	"strings"
)

// Key fragments whose string values are never written in cleartext.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apikey",
	"credential",
	"cst",
}

const redactedValue = "***REDACTED***"

func redact(a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	v := a.Value.String()
	if v == "" || isMasked(v) {
		return a
	}
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, p := range sensitiveKeyPatterns {
		if strings.Contains(k, p) {
			return true
		}
	}
	return false
}

// Mask renders a secret of length n as n '*' characters. A zero length
// renders as "NOT SET".
func Mask(n int) string {
	if n == 0 {
		return "NOT SET"
	}
	return strings.Repeat("*", n)
}

func isMasked(v string) bool {
	return v == "NOT SET" || v == redactedValue || strings.Trim(v, "*") == ""
}
