// internal/app/policy/badgepolicy/badgepolicy.go

// Package badgepolicy declares the authorization table for badges.
//
// Authorization rules:
//   - Visibility is controlled per badge: "public" badges are viewable by
//     anyone including anonymous visitors; "members"/"admins" restrict
//     viewing to the owning group's members/admins.
//   - The badge creator and the group's admins can edit badge content;
//     settings (visibility, awardability, threshold) are admin-only.
//   - Only group admins can destroy a badge.
package badgepolicy

import (
	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/domain/models"
)

// Role names.
const (
	RoleViewer      policy.Role = "viewer"
	RoleGroupMember policy.Role = "group_member"
	RoleGroupAdmin  policy.Role = "group_admin"
	RoleCreator     policy.Role = "creator"
)

// Action names.
const (
	ActionShow    = "show"
	ActionUpdate  = "update"
	ActionDestroy = "destroy"
)

// Badges is the policy table for *models.Badge.
var Badges = policy.Table[*models.Badge]{
	Model: "badge",
	Roles: map[policy.Role]policy.Predicate[*models.Badge]{
		// viewer depends on the badge's own visibility setting.
		RoleViewer: func(a *policy.Actor, b *models.Badge) bool {
			switch b.Visibility {
			case models.BadgeVisibilityPublic:
				return true
			case models.BadgeVisibilityMembers:
				return a.IsGroupMember(b.GroupID)
			case models.BadgeVisibilityAdmins:
				return a.IsGroupAdmin(b.GroupID)
			default:
				return false
			}
		},
		RoleGroupMember: func(a *policy.Actor, b *models.Badge) bool {
			return a.IsGroupMember(b.GroupID)
		},
		RoleGroupAdmin: func(a *policy.Actor, b *models.Badge) bool {
			return a.IsGroupAdmin(b.GroupID)
		},
		RoleCreator: func(a *policy.Actor, b *models.Badge) bool {
			return a.Is(b.CreatorID)
		},
	},
	Actions: map[string]policy.ActionRule{
		ActionShow: {
			RequiredSets: []string{policy.SetPublicRead},
			AnyOf:        []policy.Role{RoleViewer},
		},
		ActionUpdate: {
			RequiredSets: []string{policy.SetBadgesWrite},
			AnyOf:        []policy.Role{RoleCreator, RoleGroupAdmin},
		},
		ActionDestroy: {
			RequiredSets: []string{policy.SetBadgesWrite},
			AnyOf:        []policy.Role{RoleGroupAdmin},
		},
	},
	Fields: map[string]policy.FieldRule{
		"name": {
			VisibleTo:  []policy.Role{RoleViewer},
			EditableBy: []policy.Role{RoleCreator, RoleGroupAdmin},
			History:    policy.HistoryOldAndNew,
		},
		"summary": {
			VisibleTo:  []policy.Role{RoleViewer},
			EditableBy: []policy.Role{RoleCreator, RoleGroupAdmin},
			History:    policy.HistoryTimestamp,
		},
		"requirements": {
			VisibleTo:  []policy.Role{RoleViewer},
			EditableBy: []policy.Role{RoleCreator, RoleGroupAdmin},
			History:    policy.HistoryTimestamp,
		},
		"visibility": {
			VisibleTo:  []policy.Role{RoleViewer},
			EditableBy: []policy.Role{RoleGroupAdmin},
			History:    policy.HistoryOldAndNew,
		},
		"awardability": {
			VisibleTo:  []policy.Role{RoleViewer},
			EditableBy: []policy.Role{RoleGroupAdmin},
			History:    policy.HistoryOldAndNew,
		},
		"required_threshold": {
			VisibleTo:  []policy.Role{RoleViewer},
			EditableBy: []policy.Role{RoleGroupAdmin},
			History:    policy.HistoryOldAndNew,
		},
		"group_id": {
			VisibleTo:  []policy.Role{policy.Everyone},
			EditableBy: []policy.Role{policy.Nobody},
		},
		"creator_id": {
			VisibleTo:  []policy.Role{RoleViewer},
			EditableBy: []policy.Role{policy.Nobody},
		},
	},
}

func init() {
	Badges.MustValidate()
}

// CanShow reports whether the actor may view the badge at all.
func CanShow(actor *policy.Actor, b *models.Badge, grant policy.Grant) bool {
	return Badges.Authorize(ActionShow, actor, b, grant)
}

// CanUpdate reports whether the actor may edit the badge.
func CanUpdate(actor *policy.Actor, b *models.Badge, grant policy.Grant) bool {
	return Badges.Authorize(ActionUpdate, actor, b, grant)
}

// CanDestroy reports whether the actor may delete the badge.
func CanDestroy(actor *policy.Actor, b *models.Badge, grant policy.Grant) bool {
	return Badges.Authorize(ActionDestroy, actor, b, grant)
}

// ShowAllFields reports whether every declared badge field is visible to the
// actor.
func ShowAllFields(actor *policy.Actor, b *models.Badge) bool {
	return len(Badges.VisibleFields(actor, b)) == len(Badges.Fields)
}
