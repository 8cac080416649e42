// internal/app/system/limits/limits.go
package limits

// Request body size limits. These limits help prevent memory exhaustion
// from oversized requests.
const (
	// MaxJSONBody is the maximum size for API request bodies. Log entry
	// bodies carry sanitized HTML and dominate the payloads, so the cap
	// is generous.
	MaxJSONBody = 1 << 20 // 1 MB
)
