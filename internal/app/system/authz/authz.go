// Package authz bridges resolved identities to the policy layer: it pulls
// the Identity from the request context and resolves its permission grant
// against the registered permission-set configuration.
package authz

import (
	"net/http"

	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/system/auth"
)

// IdentityCtx returns the request's identity. The identity middleware
// installs one on every request; ok is false only when the middleware was
// bypassed.
func IdentityCtx(r *http.Request) (*auth.Identity, bool) {
	return auth.CurrentIdentity(r)
}

// ActorCtx returns the request's actor, nil for visitors.
func ActorCtx(r *http.Request) *policy.Actor {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		return nil
	}
	return id.Actor
}

// Grant resolves the request's permission grant: the identity's access
// context intersected with its token's declared sets (session requests
// carry no token and get everything their context allows).
func Grant(cfg *policy.Config, r *http.Request) policy.Grant {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		// No middleware ran; treat as an anonymous API caller.
		return cfg.Resolve(policy.ContextAPIVisitor, nil)
	}
	return cfg.Resolve(id.AccessContext, id.TokenSets)
}
