// internal/app/membership/lists.go
package membership

import (
	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// App id-list field names (bson keys on the apps collection).
const (
	listActiveUsers   = "active_user_ids"
	listPendingUsers  = "pending_user_ids"
	listDisabledUsers = "disabled_user_ids"
	listAdminUsers    = "admin_user_ids"
	listMemberUsers   = "member_user_ids"

	listActiveGroups   = "active_group_ids"
	listPendingGroups  = "pending_group_ids"
	listDisabledGroups = "disabled_group_ids"
)

var allUserLists = []string{listActiveUsers, listPendingUsers, listDisabledUsers, listAdminUsers, listMemberUsers}
var allGroupLists = []string{listActiveGroups, listPendingGroups, listDisabledGroups}

// userListTargets returns the id-lists a user membership's subject belongs
// in, given its derived status and type. The subject must appear in exactly
// one of the active/pending/disabled lists; the admin/member lists are
// populated for active memberships only.
func userListTargets(status, mtype string) []string {
	switch status {
	case models.MembershipActive:
		if mtype == models.AppMembershipAdmin {
			return []string{listActiveUsers, listAdminUsers}
		}
		return []string{listActiveUsers, listMemberUsers}
	case models.MembershipDisabled:
		return []string{listDisabledUsers}
	default:
		return []string{listPendingUsers}
	}
}

// groupListTargets is the group-subject analog of userListTargets.
func groupListTargets(status string) []string {
	switch status {
	case models.MembershipActive:
		return []string{listActiveGroups}
	case models.MembershipDisabled:
		return []string{listDisabledGroups}
	default:
		return []string{listPendingGroups}
	}
}

// applyToLists rewrites the App struct's in-memory id-lists to match the
// subject's target lists, mirroring the database update so callers holding
// the aggregate observe the new state without a refetch.
func applyToLists(app *models.App, subjectID primitive.ObjectID, targets []string, userSubject bool) {
	all := allGroupLists
	if userSubject {
		all = allUserLists
	}
	inTargets := func(name string) bool {
		for _, t := range targets {
			if t == name {
				return true
			}
		}
		return false
	}
	for _, name := range all {
		list := appList(app, name)
		filtered := removeID(*list, subjectID)
		if inTargets(name) {
			filtered = append(filtered, subjectID)
		}
		*list = filtered
	}
}

func appList(app *models.App, name string) *[]primitive.ObjectID {
	switch name {
	case listActiveUsers:
		return &app.ActiveUserIDs
	case listPendingUsers:
		return &app.PendingUserIDs
	case listDisabledUsers:
		return &app.DisabledUserIDs
	case listAdminUsers:
		return &app.AdminUserIDs
	case listMemberUsers:
		return &app.MemberUserIDs
	case listActiveGroups:
		return &app.ActiveGroupIDs
	case listPendingGroups:
		return &app.PendingGroupIDs
	case listDisabledGroups:
		return &app.DisabledGroupIDs
	}
	panic("membership: unknown app id-list " + name)
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
