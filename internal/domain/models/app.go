// internal/domain/models/app.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// App joinability settings. Stored in App.UserJoinability / App.GroupJoinability.
const (
	JoinabilityOpen      = "open"       // joining is immediately approved by the app
	JoinabilityByRequest = "by_request" // joining requires app-side approval
	JoinabilityClosed    = "closed"     // only app admins may add members
)

// PlatformAppName is the reserved name of the platform's own default App.
// Every user and group is linked to it at creation (see provision package).
const PlatformAppName = "platform"

// App is the aggregate root for app↔user and app↔group memberships.
//
// The id-lists below mirror the membership collections: they are derived
// caches, resynchronized by the membership decorators on every membership
// save, never written directly. For every membership record the subject id
// appears in exactly one of the active/pending/disabled lists; the
// admin/member split is tracked for active users only.
type App struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description" json:"description"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`

	UserJoinability  string `bson:"user_joinability" json:"user_joinability"`
	GroupJoinability string `bson:"group_joinability" json:"group_joinability"`

	// Mirrored user membership id-lists.
	ActiveUserIDs   []primitive.ObjectID `bson:"active_user_ids" json:"active_user_ids"`
	PendingUserIDs  []primitive.ObjectID `bson:"pending_user_ids" json:"pending_user_ids"`
	DisabledUserIDs []primitive.ObjectID `bson:"disabled_user_ids" json:"disabled_user_ids"`
	AdminUserIDs    []primitive.ObjectID `bson:"admin_user_ids" json:"admin_user_ids"`
	MemberUserIDs   []primitive.ObjectID `bson:"member_user_ids" json:"member_user_ids"`

	// Mirrored group membership id-lists.
	ActiveGroupIDs   []primitive.ObjectID `bson:"active_group_ids" json:"active_group_ids"`
	PendingGroupIDs  []primitive.ObjectID `bson:"pending_group_ids" json:"pending_group_ids"`
	DisabledGroupIDs []primitive.ObjectID `bson:"disabled_group_ids" json:"disabled_group_ids"`

	Status string `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasActiveUser reports whether userID is in the active user list.
func (a *App) HasActiveUser(userID primitive.ObjectID) bool {
	return containsID(a.ActiveUserIDs, userID)
}

// HasAdminUser reports whether userID is in the admin user list.
func (a *App) HasAdminUser(userID primitive.ObjectID) bool {
	return containsID(a.AdminUserIDs, userID)
}

// HasActiveGroup reports whether groupID is in the active group list.
func (a *App) HasActiveGroup(groupID primitive.ObjectID) bool {
	return containsID(a.ActiveGroupIDs, groupID)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
