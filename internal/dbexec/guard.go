package dbexec

import "strings"

var allowedPrefixes = []string{"select", "with", "show", "describe", "desc", "explain"}

var deniedKeywords = map[string]struct{}{
	"insert":   {},
	"update":   {},
	"delete":   {},
	"drop":     {},
	"alter":    {},
	"truncate": {},
	"create":   {},
	"replace":  {},
	"grant":    {},
	"revoke":   {},
	"attach":   {},
	"call":     {},
	"merge":    {},
	"set":      {},
	"use":      {},
}

// IsReadOnly reports whether the statement may be executed: a single
// statement that starts like a read and never mentions a mutating keyword.
// The check is deliberately conservative; a legitimate SELECT quoting the
// word "delete" inside a string literal is refused rather than risked.
func IsReadOnly(sqlText string) bool {
	statement := StripTrailingSemicolons(sqlText)
	if statement == "" {
		return false
	}
	if strings.Contains(statement, ";") {
		return false
	}

	lower := strings.ToLower(statement)
	if !hasAllowedPrefix(lower) {
		return false
	}
	for _, word := range splitWords(lower) {
		if _, denied := deniedKeywords[word]; denied {
			return false
		}
	}
	return true
}

func hasAllowedPrefix(lower string) bool {
	for _, prefix := range allowedPrefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		if len(lower) == len(prefix) {
			return true
		}
		switch lower[len(prefix)] {
		case ' ', '\t', '\n', '(', '*':
			return true
		}
	}
	return false
}

func splitWords(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r == '_':
			return false
		default:
			return true
		}
	})
}

// StripTrailingSemicolons trims the statement and removes any trailing
// semicolons so it can be wrapped or suffixed safely.
func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
