// internal/app/policy/grouppolicy/grouppolicy.go

// Package grouppolicy declares the authorization table for groups.
//
// Authorization rules:
//   - Anyone can view a group's public profile.
//   - Only group admins can edit or destroy a group.
//   - Tag assignment follows the group's own tag_assignability setting:
//     "admins" restricts it to admins, "members" opens it to every member.
package grouppolicy

import (
	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/domain/models"
)

// Role names.
const (
	RoleMember      policy.Role = "member"
	RoleAdmin       policy.Role = "admin"
	RoleTagAssigner policy.Role = "tag_assigner"
)

// Action names.
const (
	ActionShow       = "show"
	ActionUpdate     = "update"
	ActionDestroy    = "destroy"
	ActionAssignTags = "assign_tags"
)

// Groups is the policy table for *models.Group.
var Groups = policy.Table[*models.Group]{
	Model: "group",
	Roles: map[policy.Role]policy.Predicate[*models.Group]{
		RoleMember: func(a *policy.Actor, g *models.Group) bool {
			return a.IsGroupMember(g.ID)
		},
		RoleAdmin: func(a *policy.Actor, g *models.Group) bool {
			return a.IsGroupAdmin(g.ID)
		},
		// tag_assigner follows the group's tag_assignability setting.
		RoleTagAssigner: func(a *policy.Actor, g *models.Group) bool {
			switch g.TagAssignability {
			case models.TagAssignabilityMembers:
				return a.IsGroupMember(g.ID)
			default: // "admins" is the default
				return a.IsGroupAdmin(g.ID)
			}
		},
	},
	Actions: map[string]policy.ActionRule{
		ActionShow: {
			RequiredSets: []string{policy.SetPublicRead},
			AnyOf:        []policy.Role{policy.Everyone},
		},
		ActionUpdate: {
			RequiredSets: []string{policy.SetGroupsWrite},
			AnyOf:        []policy.Role{RoleAdmin},
		},
		ActionDestroy: {
			RequiredSets: []string{policy.SetGroupsWrite},
			AnyOf:        []policy.Role{RoleAdmin},
		},
		ActionAssignTags: {
			RequiredSets: []string{policy.SetGroupsWrite},
			AnyOf:        []policy.Role{RoleTagAssigner},
		},
	},
	Fields: map[string]policy.FieldRule{
		"name": {
			VisibleTo:  []policy.Role{policy.Everyone},
			EditableBy: []policy.Role{RoleAdmin},
			History:    policy.HistoryOldAndNew,
		},
		"description": {
			VisibleTo:  []policy.Role{policy.Everyone},
			EditableBy: []policy.Role{RoleAdmin},
			History:    policy.HistoryTimestamp,
		},
		"tag_assignability": {
			VisibleTo:  []policy.Role{RoleMember, RoleAdmin},
			EditableBy: []policy.Role{RoleAdmin},
			History:    policy.HistoryOldAndNew,
		},
		"status": {
			VisibleTo:  []policy.Role{policy.Everyone},
			EditableBy: []policy.Role{policy.Nobody},
		},
	},
}

func init() {
	Groups.MustValidate()
}

// CanManageGroup reports whether the actor may edit the group.
func CanManageGroup(actor *policy.Actor, g *models.Group, grant policy.Grant) bool {
	return Groups.Authorize(ActionUpdate, actor, g, grant)
}

// CanAssignGroupTags reports whether the actor may assign the group's tags,
// honoring the group's tag_assignability setting.
func CanAssignGroupTags(actor *policy.Actor, g *models.Group, grant policy.Grant) bool {
	return Groups.Authorize(ActionAssignTags, actor, g, grant)
}
