// Package redact strips credentials from strings before they are logged,
// stored in task history or returned in error responses. Analyzer and
// database errors can echo connection strings or API keys back to the
// caller; image paths are deliberately left intact because they identify
// the task an error belongs to.
package redact

import "regexp"

// Constants for redaction placeholders
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Precompiled patterns, applied in order
var rules = []rule{
	// user:password@ in connection strings keeps the scheme
	{regexp.MustCompile(`(?i)\b((?:postgres|postgresql|mysql|mongodb|redis|https?)://)[^/@\s]+@`), "${1}" + RedactedCredentialPlaceholder + "@"},
	// key=... query parameters, as sent by Google APIs
	{regexp.MustCompile(`(?i)([?&](?:key|api_key|apikey|access_token|token)=)[^&\s"']+`), "${1}" + RedactedKeyPlaceholder},
	// Google API keys anywhere in free text
	{regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`), RedactedKeyPlaceholder},
	// Authorization: Bearer ...
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9_\-.~+/]{8,}=*`), "${1}" + RedactedKeyPlaceholder},
	// password=..., api_key: ..., secret "..."
	{regexp.MustCompile(`(?i)\b(password|passwd|pwd|api[_-]?key|secret)(\s*[=:]\s*['"]?)[^'"&\s]{3,}`), "${1}${2}" + RedactedCredentialPlaceholder},
}

// String redacts credentials from the input string
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts credentials from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
