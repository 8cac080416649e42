// Package gates provides authorization gate functions for HTTP handlers.
// Gates check authentication and authorization, writing the appropriate
// JSON error when a check fails.
//
// Authorization runs in three tiers, and gates are the middle one:
//
//  1. Route-level middleware (auth.SessionManager.RequireSignedIn,
//     IdentityResolver.Middleware) for coarse access control in routes.go.
//  2. Handler-level gates (this package) for permission-set checks and
//     identity requirements that differ per handler.
//  3. The policy layer (internal/app/policy/*) for per-record role and
//     field decisions, which need the loaded record.
//
// A denial here is a value, not an error: the gate writes the response and
// returns ok=false, and the handler simply returns.
package gates

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/system/auth"
	"github.com/dalemusser/badgehub/internal/app/system/authz"
)

type errorBody struct {
	Error string `json:"error"`
}

// WriteError writes a JSON error body with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

// Unauthorized writes the standard 401 body.
func Unauthorized(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, "unauthorized")
}

// Forbidden writes the standard 403 body.
func Forbidden(w http.ResponseWriter) {
	WriteError(w, http.StatusForbidden, "forbidden")
}

// NotFound writes the standard 404 body. Handlers use it both for missing
// records and for records the caller may not know exist.
func NotFound(w http.ResponseWriter) {
	WriteError(w, http.StatusNotFound, "not found")
}

// RequireIdentity ensures the request carries a non-anonymous identity.
// Writes 401 and returns ok=false otherwise.
func RequireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, ok := authz.IdentityCtx(r)
	if !ok || id.Actor.IsAnonymous() {
		Unauthorized(w)
		return nil, false
	}
	return id, true
}

// RequirePermission resolves the request's grant and checks it holds every
// named permission set. Anonymous callers may pass if their context grants
// the sets. Writes 403 and returns ok=false on denial.
func RequirePermission(w http.ResponseWriter, r *http.Request, cfg *policy.Config, sets ...string) (policy.Grant, bool) {
	grant := authz.Grant(cfg, r)
	if !grant.Has(sets...) {
		Forbidden(w)
		return grant, false
	}
	return grant, true
}
