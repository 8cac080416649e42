// internal/app/policy/logpolicy/logpolicy.go

// Package logpolicy declares the authorization table for badge logs
// (portfolios) and the DB-backed validator check.
//
// Authorization rules:
//   - A log is viewable by its owner, members of the owning group, and
//     group admins.
//   - Only the owner requests or withdraws validation.
//   - Validating (endorsing/rejecting) requires being an expert on the
//     badge, or a group admin when the badge's awardability is "admins",
//     and never the log's own seeker. This requires a DB lookup, so it is a
//     policy function in the style of the table-free checks, returning
//     (bool, error) so callers can distinguish denial from a database error.
package logpolicy

import (
	"context"

	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Role names.
const (
	RoleOwner       policy.Role = "owner"
	RoleGroupMember policy.Role = "group_member"
	RoleGroupAdmin  policy.Role = "group_admin"
)

// Action names.
const (
	ActionShow              = "show"
	ActionRequestValidation = "request_validation"
	ActionWithdraw          = "withdraw"
	ActionDetach            = "detach"
	ActionAddPost           = "add_post"
)

// Logs is the policy table for *models.Log.
var Logs = policy.Table[*models.Log]{
	Model: "log",
	Roles: map[policy.Role]policy.Predicate[*models.Log]{
		RoleOwner: func(a *policy.Actor, l *models.Log) bool {
			return a.Is(l.UserID)
		},
		RoleGroupMember: func(a *policy.Actor, l *models.Log) bool {
			return a.IsGroupMember(l.GroupID)
		},
		RoleGroupAdmin: func(a *policy.Actor, l *models.Log) bool {
			return a.IsGroupAdmin(l.GroupID)
		},
	},
	Actions: map[string]policy.ActionRule{
		ActionShow: {
			RequiredSets: []string{policy.SetLogsRead},
			AnyOf:        []policy.Role{RoleOwner, RoleGroupMember, RoleGroupAdmin},
		},
		ActionRequestValidation: {
			RequiredSets: []string{policy.SetLogsWrite},
			AnyOf:        []policy.Role{RoleOwner},
		},
		ActionWithdraw: {
			RequiredSets: []string{policy.SetLogsWrite},
			AnyOf:        []policy.Role{RoleOwner},
		},
		ActionDetach: {
			RequiredSets: []string{policy.SetLogsWrite},
			AnyOf:        []policy.Role{RoleOwner, RoleGroupAdmin},
		},
		ActionAddPost: {
			RequiredSets: []string{policy.SetLogsWrite},
			AnyOf:        []policy.Role{RoleOwner},
		},
	},
	Fields: map[string]policy.FieldRule{
		"validation_status": {
			VisibleTo:  []policy.Role{RoleOwner, RoleGroupMember, RoleGroupAdmin},
			EditableBy: []policy.Role{policy.Nobody}, // engine-derived
		},
		"issue_status": {
			VisibleTo:  []policy.Role{RoleOwner, RoleGroupMember, RoleGroupAdmin},
			EditableBy: []policy.Role{policy.Nobody}, // engine-derived
		},
		"validation_count": {
			VisibleTo:  []policy.Role{RoleOwner, RoleGroupMember, RoleGroupAdmin},
			EditableBy: []policy.Role{policy.Nobody},
		},
		"rejection_count": {
			VisibleTo:  []policy.Role{RoleOwner, RoleGroupAdmin},
			EditableBy: []policy.Role{policy.Nobody},
		},
	},
}

func init() {
	Logs.MustValidate()
}

// CanShow reports whether the actor may view the log.
func CanShow(actor *policy.Actor, l *models.Log, grant policy.Grant) bool {
	return Logs.Authorize(ActionShow, actor, l, grant)
}

// CanValidate reports whether the actor may add a validation entry to the
// log. Experts on the badge can always validate; when the badge's
// awardability is "admins", group admins can too. A seeker never validates
// their own log. Returns an error only if the database check fails.
func CanValidate(ctx context.Context, db *mongo.Database, actor *policy.Actor, l *models.Log, badge *models.Badge) (bool, error) {
	if actor == nil || actor.Kind != policy.ActorIndividual {
		return false, nil
	}
	if actor.Is(l.UserID) {
		return false, nil
	}
	if badge.Awardability == models.BadgeAwardabilityAdmins {
		return actor.IsGroupAdmin(l.GroupID), nil
	}
	// Expert check: the actor holds a validated, attached log on this badge.
	n, err := db.Collection("logs").CountDocuments(ctx, bson.M{
		"badge_id":          l.BadgeID,
		"user_id":           actor.UserID,
		"validation_status": models.ValidationValidated,
		"detached":          false,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
