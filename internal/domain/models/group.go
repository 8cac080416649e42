// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group tag-assignability settings. Stored in Group.TagAssignability and
// consulted by grouppolicy when deciding who may assign group tags.
const (
	TagAssignabilityAdmins  = "admins"
	TagAssignabilityMembers = "members"
)

// Group membership roles stored in group_memberships.Role.
const (
	GroupRoleAdmin  = "admin"
	GroupRoleMember = "member"
)

// Group represents an organization that owns badges and has admin/member
// users.
//
// NOTE:
//   - Admin/member lists are stored in the group_memberships collection.
//   - App memberships for the group live in app_group_memberships and are
//     mirrored onto the App document's id-lists (see App).
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description" json:"description"`

	// TagAssignability controls who may assign the group's tags:
	// "admins" (default) or "members".
	TagAssignability string `bson:"tag_assignability" json:"tag_assignability"`

	Status string `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// GroupMembership is the authoritative join between users and groups.
// Exactly one document per (group_id, user_id); Role is "admin" or "member".
type GroupMembership struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
