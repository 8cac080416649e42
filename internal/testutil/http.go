package testutil

import (
	"net/http"
	"net/http/httptest"

	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IndividualIdentity returns a web-user identity for the given user id with
// no group or app relations. Extend the actor in the test when relations
// matter.
func IndividualIdentity(userID primitive.ObjectID) *auth.Identity {
	return &auth.Identity{
		Actor: &policy.Actor{
			Kind:   policy.ActorIndividual,
			UserID: userID,
		},
		AccessContext: policy.ContextWebUser,
		SessionUser: &auth.SessionUser{
			ID:    userID.Hex(),
			Name:  "Test User",
			Email: "user@test.com",
		},
	}
}

// GroupAdminIdentity returns a web-user identity administering the given
// group.
func GroupAdminIdentity(userID, groupID primitive.ObjectID) *auth.Identity {
	id := IndividualIdentity(userID)
	id.Actor.AdminGroupIDs = []primitive.ObjectID{groupID}
	return id
}

// GroupMemberIdentity returns a web-user identity belonging to the given
// group as a plain member.
func GroupMemberIdentity(userID, groupID primitive.ObjectID) *auth.Identity {
	id := IndividualIdentity(userID)
	id.Actor.MemberGroupIDs = []primitive.ObjectID{groupID}
	return id
}

// VisitorIdentity returns an anonymous identity in the given access context.
func VisitorIdentity(accessContext string) *auth.Identity {
	return &auth.Identity{AccessContext: accessContext}
}

// APIIdentity returns a token-authenticated identity with the given actor,
// context, and declared permission sets.
func APIIdentity(actor *policy.Actor, accessContext string, sets ...string) *auth.Identity {
	return &auth.Identity{
		Actor:         actor,
		AccessContext: accessContext,
		TokenSets:     sets,
	}
}

// WithIdentity attaches an identity to the request, bypassing the auth
// middleware.
func WithIdentity(r *http.Request, id *auth.Identity) *http.Request {
	return auth.WithTestIdentity(r, id)
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}
