// Package htmlsanitize strips unsafe markup from user-authored HTML before
// it is stored. Log entry bodies pass through here on every write.
package htmlsanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	once   sync.Once
	policy *bluemonday.Policy
)

// ugcPolicy builds the shared sanitization policy: user-generated-content
// defaults plus inline styles on table markup, which the rich-text editor
// emits for alignment.
func ugcPolicy() *bluemonday.Policy {
	once.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("style").OnElements("table", "thead", "tbody", "tr", "th", "td")
		p.AllowElements("hr")
		policy = p
	})
	return policy
}

// Sanitize returns the input with disallowed tags and attributes removed.
// Plain text passes through unchanged.
func Sanitize(input string) string {
	if input == "" {
		return ""
	}
	return ugcPolicy().Sanitize(input)
}
