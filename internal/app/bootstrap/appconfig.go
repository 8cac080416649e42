// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS,
// logging level, request limits); AppConfig is everything specific to
// BadgeHub. The struct is passed to the lifecycle hooks, so any value
// needed during startup, request handling, or shutdown lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // secret for signing session cookies
	SessionName   string        // cookie name
	SessionDomain string        // cookie domain (blank means current host)
	SessionTTL    time.Duration // session lifetime

	// Audit logging modes: "all" (db+log), "db", "log", or "off".
	AuditLogMembership string
	AuditLogValidation string
	AuditRetention     time.Duration // how long audit events are kept

	// Background maintenance
	SweepInterval         time.Duration // back-validation sweep cadence
	TokenCleanupThreshold time.Duration // revoked tokens unused this long are pruned

	// RateLimitPerMinute caps API requests per client IP; 0 disables.
	RateLimitPerMinute int
}
