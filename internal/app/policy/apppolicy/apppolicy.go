// internal/app/policy/apppolicy/apppolicy.go

// Package apppolicy declares the authorization table for apps.
//
// Authorization rules:
//   - Anyone can view an app's public profile.
//   - App admins manage settings and memberships; only the owner may
//     destroy the app.
//   - The mirrored membership id-lists are visible to app admins only and
//     are never editable through field writes; the membership decorators
//     are their only write path.
//
// App roles read the App aggregate's cached id-lists via the actor's
// preloaded relations, so membership mutations made through the decorators
// are observed by the next policy evaluation.
package apppolicy

import (
	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/domain/models"
)

// Role names.
const (
	RoleAppAdmin  policy.Role = "app_admin"
	RoleAppMember policy.Role = "app_member"
	RoleOwner     policy.Role = "owner"
)

// Action names.
const (
	ActionShow              = "show"
	ActionUpdate            = "update"
	ActionDestroy           = "destroy"
	ActionManageMemberships = "manage_memberships"
)

// Apps is the policy table for *models.App.
var Apps = policy.Table[*models.App]{
	Model: "app",
	Roles: map[policy.Role]policy.Predicate[*models.App]{
		RoleAppAdmin: func(a *policy.Actor, app *models.App) bool {
			return a.IsAppAdmin(app.ID)
		},
		RoleAppMember: func(a *policy.Actor, app *models.App) bool {
			return a.IsAppMember(app.ID)
		},
		RoleOwner: func(a *policy.Actor, app *models.App) bool {
			return a.Is(app.OwnerID)
		},
	},
	Actions: map[string]policy.ActionRule{
		ActionShow: {
			RequiredSets: []string{policy.SetPublicRead},
			AnyOf:        []policy.Role{policy.Everyone},
		},
		ActionUpdate: {
			RequiredSets: []string{policy.SetAppsManage},
			AnyOf:        []policy.Role{RoleAppAdmin},
		},
		ActionDestroy: {
			RequiredSets: []string{policy.SetAppsManage},
			AnyOf:        []policy.Role{RoleOwner},
		},
		ActionManageMemberships: {
			RequiredSets: []string{policy.SetAppsManage},
			AnyOf:        []policy.Role{RoleAppAdmin},
		},
	},
	Fields: map[string]policy.FieldRule{
		"name": {
			VisibleTo:  []policy.Role{policy.Everyone},
			EditableBy: []policy.Role{RoleAppAdmin},
			History:    policy.HistoryOldAndNew,
		},
		"description": {
			VisibleTo:  []policy.Role{policy.Everyone},
			EditableBy: []policy.Role{RoleAppAdmin},
			History:    policy.HistoryTimestamp,
		},
		"owner_id": {
			VisibleTo:  []policy.Role{policy.Everyone},
			EditableBy: []policy.Role{policy.Nobody},
		},
		"user_joinability": {
			VisibleTo:  []policy.Role{policy.Everyone},
			EditableBy: []policy.Role{RoleAppAdmin},
			History:    policy.HistoryOldAndNew,
		},
		"group_joinability": {
			VisibleTo:  []policy.Role{policy.Everyone},
			EditableBy: []policy.Role{RoleAppAdmin},
			History:    policy.HistoryOldAndNew,
		},
		// Mirrored id-lists: admin-visible, decorator-written only.
		"active_user_ids": {
			VisibleTo:  []policy.Role{RoleAppAdmin},
			EditableBy: []policy.Role{policy.Nobody},
		},
		"pending_user_ids": {
			VisibleTo:  []policy.Role{RoleAppAdmin},
			EditableBy: []policy.Role{policy.Nobody},
		},
		"disabled_user_ids": {
			VisibleTo:  []policy.Role{RoleAppAdmin},
			EditableBy: []policy.Role{policy.Nobody},
		},
		"admin_user_ids": {
			VisibleTo:  []policy.Role{RoleAppAdmin},
			EditableBy: []policy.Role{policy.Nobody},
		},
		"member_user_ids": {
			VisibleTo:  []policy.Role{RoleAppAdmin},
			EditableBy: []policy.Role{policy.Nobody},
		},
		"active_group_ids": {
			VisibleTo:  []policy.Role{RoleAppAdmin},
			EditableBy: []policy.Role{policy.Nobody},
		},
		"pending_group_ids": {
			VisibleTo:  []policy.Role{RoleAppAdmin},
			EditableBy: []policy.Role{policy.Nobody},
		},
		"disabled_group_ids": {
			VisibleTo:  []policy.Role{RoleAppAdmin},
			EditableBy: []policy.Role{policy.Nobody},
		},
	},
}

func init() {
	Apps.MustValidate()
}

// CanManageMemberships reports whether the actor may create or mutate the
// app's memberships on the app's behalf.
func CanManageMemberships(actor *policy.Actor, app *models.App, grant policy.Grant) bool {
	return Apps.Authorize(ActionManageMemberships, actor, app, grant)
}
