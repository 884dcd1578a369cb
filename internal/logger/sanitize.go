package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Log field sanitization. Request paths and client-supplied strings go through
// here before they reach a log line, so a hostile value cannot inject control
// characters or blow up the log volume.

const (
	// MaxPathLength caps URL paths in log fields.
	MaxPathLength = 500
	// MaxGeneralStringLength caps other client-supplied strings.
	MaxGeneralStringLength = 2000
	// MaxErrorMessageLength caps error strings.
	MaxErrorMessageLength = 1000
)

// SanitizePath prepares a URL path for logging.
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeString strips control characters, repairs invalid UTF-8 and
// truncates to maxLength (MaxGeneralStringLength when maxLength <= 0).
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	s = filterRunes(s)
	if len(s) > maxLength {
		s = s[:maxLength] + "..."
	}
	return s
}

// SanitizeError prepares an error for logging as a string field.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// filterRunes repairs invalid UTF-8 and drops control characters, keeping
// printable runes plus space, tab, newline and carriage return.
func filterRunes(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
