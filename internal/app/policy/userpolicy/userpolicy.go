// internal/app/policy/userpolicy/userpolicy.go

// Package userpolicy declares the authorization table for user accounts.
// A user's public profile is world-visible; contact details and profile
// edits are restricted to the account itself.
package userpolicy

import (
	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/domain/models"
)

// Role names.
const (
	RoleSelf policy.Role = "self"
)

// Action names.
const (
	ActionShow    = "show"
	ActionUpdate  = "update"
	ActionDestroy = "destroy"
)

// Users is the policy table for *models.User.
var Users = policy.Table[*models.User]{
	Model: "user",
	Roles: map[policy.Role]policy.Predicate[*models.User]{
		RoleSelf: func(a *policy.Actor, u *models.User) bool {
			return a.Is(u.ID)
		},
	},
	Actions: map[string]policy.ActionRule{
		ActionShow: {
			RequiredSets: []string{policy.SetPublicRead},
			AnyOf:        []policy.Role{policy.Everyone},
		},
		ActionUpdate: {
			RequiredSets: []string{policy.SetUsersWrite},
			AnyOf:        []policy.Role{RoleSelf},
		},
		ActionDestroy: {
			RequiredSets: []string{policy.SetUsersWrite},
			AnyOf:        []policy.Role{RoleSelf},
		},
	},
	Fields: map[string]policy.FieldRule{
		"full_name": {
			VisibleTo:  []policy.Role{policy.Everyone},
			EditableBy: []policy.Role{RoleSelf},
			History:    policy.HistoryOldAndNew,
		},
		"email": {
			VisibleTo:  []policy.Role{RoleSelf},
			EditableBy: []policy.Role{RoleSelf},
			History:    policy.HistoryTimestamp,
		},
		"status": {
			VisibleTo:  []policy.Role{policy.Everyone},
			EditableBy: []policy.Role{policy.Nobody},
		},
	},
}

// CanShow reports whether the actor may view the user's profile.
func CanShow(actor *policy.Actor, u *models.User, grant policy.Grant) bool {
	return Users.Authorize(ActionShow, actor, u, grant)
}

// CanUpdate reports whether the actor may edit the profile.
func CanUpdate(actor *policy.Actor, u *models.User, grant policy.Grant) bool {
	return Users.Authorize(ActionUpdate, actor, u, grant)
}

// CanDestroy reports whether the actor may delete the account.
func CanDestroy(actor *policy.Actor, u *models.User, grant policy.Grant) bool {
	return Users.Authorize(ActionDestroy, actor, u, grant)
}

func init() {
	Users.MustValidate()
}
