// internal/app/policy/actor.go

// Package policy implements the request-scoped authorization core:
// permission-set resolution, per-model role evaluation, action decisions,
// and field-level visibility/editability tables.
//
// # Three-Tier Authorization Pattern
//
// BadgeHub authorizes in three tiers, cheapest first:
//
//  1. Permission sets (Resolve + Grant.Has) gate coarse API-surface access
//     from the request's access context and token. Pure computation, no DB.
//  2. Roles (Table.EvaluateRoles) are per-record predicates over
//     (actor, record). Pure functions of already-loaded state; side-effect
//     free and idempotent.
//  3. Field tables (Table.VisibleFields / Table.CheckWrite) filter the
//     response payload and reject unauthorized writes field by field.
//
// Denial at any tier is a value, never an error: callers render it as a
// 403 or 404. Only programming errors (unknown permission-set or action
// names) panic.
package policy

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor kinds.
const (
	ActorIndividual = "individual"
	ActorGroupProxy = "group_proxy"
	ActorAppProxy   = "app_proxy"
	ActorAnonymous  = "anonymous"
)

// Actor is the authenticated subject of a request, with its relation id-sets
// preloaded so role predicates never touch the database. A nil *Actor means
// an anonymous visitor; every predicate and helper tolerates nil.
type Actor struct {
	Kind string

	UserID  primitive.ObjectID // set for individual actors
	GroupID primitive.ObjectID // set for group-proxy actors
	AppID   primitive.ObjectID // set for app-proxy actors

	// Group relations of the underlying user (individual actors only).
	AdminGroupIDs  []primitive.ObjectID
	MemberGroupIDs []primitive.ObjectID

	// App relations, read from the App aggregate's mirrored id-lists.
	AdminAppIDs  []primitive.ObjectID
	ActiveAppIDs []primitive.ObjectID
}

// IsAnonymous reports whether the actor is absent or an anonymous visitor.
func (a *Actor) IsAnonymous() bool {
	return a == nil || a.Kind == ActorAnonymous
}

// Is reports whether the actor is the given individual user.
func (a *Actor) Is(userID primitive.ObjectID) bool {
	return a != nil && a.Kind == ActorIndividual && a.UserID == userID
}

// IsGroupAdmin reports whether the actor administers the given group.
// A group-proxy actor administers its own group.
func (a *Actor) IsGroupAdmin(groupID primitive.ObjectID) bool {
	if a == nil {
		return false
	}
	if a.Kind == ActorGroupProxy {
		return a.GroupID == groupID
	}
	return hasID(a.AdminGroupIDs, groupID)
}

// IsGroupMember reports whether the actor belongs to the given group in any
// capacity. Admins count as members.
func (a *Actor) IsGroupMember(groupID primitive.ObjectID) bool {
	if a == nil {
		return false
	}
	if a.Kind == ActorGroupProxy {
		return a.GroupID == groupID
	}
	return hasID(a.MemberGroupIDs, groupID) || hasID(a.AdminGroupIDs, groupID)
}

// IsAppAdmin reports whether the actor administers the given app.
// An app-proxy actor administers its own app.
func (a *Actor) IsAppAdmin(appID primitive.ObjectID) bool {
	if a == nil {
		return false
	}
	if a.Kind == ActorAppProxy {
		return a.AppID == appID
	}
	return hasID(a.AdminAppIDs, appID)
}

// IsAppMember reports whether the actor holds an active membership in the
// given app.
func (a *Actor) IsAppMember(appID primitive.ObjectID) bool {
	if a == nil {
		return false
	}
	if a.Kind == ActorAppProxy {
		return a.AppID == appID
	}
	return hasID(a.ActiveAppIDs, appID) || hasID(a.AdminAppIDs, appID)
}

func hasID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
