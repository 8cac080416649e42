// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Approval flag values on membership records. Each side of a membership
// (the app and the counterparty) approves independently.
const (
	ApprovalRequested = "requested"
	ApprovalApproved  = "approved"
	ApprovalDenied    = "denied"
)

// Derived membership status values. Status is a pure function of the two
// approval flags (see DeriveMembershipStatus) and is stored denormalized so
// the mirrored id-lists on App can be partitioned by it.
const (
	MembershipPending  = "pending"
	MembershipActive   = "active"
	MembershipDisabled = "disabled"
)

// App user membership types.
const (
	AppMembershipMember = "member"
	AppMembershipAdmin  = "admin"
)

// DeriveMembershipStatus computes the tri-state status from the two approval
// flags: active iff both approved, disabled iff either denied, else pending.
func DeriveMembershipStatus(appApproval, subjectApproval string) string {
	if appApproval == ApprovalDenied || subjectApproval == ApprovalDenied {
		return MembershipDisabled
	}
	if appApproval == ApprovalApproved && subjectApproval == ApprovalApproved {
		return MembershipActive
	}
	return MembershipPending
}

// AppUserMembership links an App to a User. Exactly one document per
// (app_id, user_id), enforced by a unique index. Status is derived from the
// approval flags; both are written only through the membership decorators so
// the App's mirrored id-lists stay consistent.
type AppUserMembership struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AppID             primitive.ObjectID `bson:"app_id" json:"app_id"`
	UserID            primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type              string             `bson:"type" json:"type"` // "member" | "admin"
	AppApprovalStatus string             `bson:"app_approval_status" json:"app_approval_status"`
	UserApprovalStatus string            `bson:"user_approval_status" json:"user_approval_status"`
	Status            string             `bson:"status" json:"status"` // derived

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DerivedStatus returns the status implied by the current approval flags.
func (m *AppUserMembership) DerivedStatus() string {
	return DeriveMembershipStatus(m.AppApprovalStatus, m.UserApprovalStatus)
}

// AppGroupMembership links an App to a Group. Exactly one document per
// (app_id, group_id), enforced by a unique index.
type AppGroupMembership struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AppID               primitive.ObjectID `bson:"app_id" json:"app_id"`
	GroupID             primitive.ObjectID `bson:"group_id" json:"group_id"`
	AppApprovalStatus   string             `bson:"app_approval_status" json:"app_approval_status"`
	GroupApprovalStatus string             `bson:"group_approval_status" json:"group_approval_status"`
	Status              string             `bson:"status" json:"status"` // derived

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DerivedStatus returns the status implied by the current approval flags.
func (m *AppGroupMembership) DerivedStatus() string {
	return DeriveMembershipStatus(m.AppApprovalStatus, m.GroupApprovalStatus)
}
