package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces sensitive values.
const RedactedPlaceholder = "[REDACTED]"

var sensitivePatterns = []*regexp.Regexp{
	// OpenAI keys
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),
	// Authorization headers
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{20,}`),
	regexp.MustCompile(`(?i)(api_?key|token|secret|password)\s*[:=]\s*[^\s,;&]{8,}`),
}

var sensitiveKeyParts = []string{"API_KEY", "APIKEY", "TOKEN", "SECRET", "PASSWORD", "AUTHORIZATION"}

// RedactSensitiveData replaces credentials found in value.
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	for _, p := range sensitivePatterns {
		value = p.ReplaceAllString(value, RedactedPlaceholder)
	}
	return value
}

// IsSensitiveField reports whether a field name suggests a credential.
// Matching ignores case and treats '-' like '_'.
func IsSensitiveField(name string) bool {
	upper := strings.ReplaceAll(strings.ToUpper(name), "-", "_")
	for _, part := range sensitiveKeyParts {
		if strings.Contains(upper, part) {
			return true
		}
	}
	return false
}
