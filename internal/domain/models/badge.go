// internal/domain/models/badge.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Badge visibility settings.
const (
	BadgeVisibilityPublic  = "public"
	BadgeVisibilityMembers = "members"
	BadgeVisibilityAdmins  = "admins"
)

// Badge award settings: who may validate (endorse) seekers' logs.
const (
	BadgeAwardabilityExperts = "experts"
	BadgeAwardabilityAdmins  = "admins"
)

// Badge is a credential definition owned by a Group.
//
// RequiredThreshold is the configured ceiling on the validation threshold.
// The effective threshold at any moment is dynamic: it grows with the number
// of experts (validated logs) up to this ceiling. See the validation package.
type Badge struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_id"`
	CreatorID   primitive.ObjectID `bson:"creator_id" json:"creator_id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Summary     string             `bson:"summary" json:"summary"`
	Requirements string            `bson:"requirements" json:"requirements"`

	Visibility   string `bson:"visibility" json:"visibility"`
	Awardability string `bson:"awardability" json:"awardability"`

	// RequiredThreshold is the configured maximum number of expert
	// endorsements needed for a log to validate. Must be >= 1.
	RequiredThreshold int `bson:"required_threshold" json:"required_threshold"`

	Status string `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsPublic reports whether the badge is visible to anonymous visitors.
func (b *Badge) IsPublic() bool {
	return b.Visibility == BadgeVisibilityPublic
}
