// internal/app/system/normalize/normalize.go
package normalize

import "strings"

// Email lowercases and trims an email address. Emails are compared
// case-insensitively everywhere, so they are stored normalized.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name. Case is preserved; case-insensitive matching
// goes through the folded _ci fields instead.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Approval lowercases and trims a membership approval value so request
// payloads like "Approved" match the stored constants.
func Approval(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Verdict lowercases and trims a validation verdict.
func Verdict(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a free-form query parameter, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
