// internal/domain/models/token.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// API token proxy kinds: what the token acts as.
const (
	TokenKindUser  = "user"
	TokenKindGroup = "group"
	TokenKindApp   = "app"
)

// APIToken is a bearer credential for the JSON API. The token string
// presented by callers is "<token_id>.<secret>"; only the bcrypt hash of the
// secret is stored. PermissionSets is the token's declared set list, which
// the permission resolver intersects with the sets available to the token's
// access context; a token can never grant more than its context allows.
type APIToken struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TokenID    string             `bson:"token_id" json:"token_id"` // uuid, public half
	SecretHash []byte             `bson:"secret_hash" json:"-"`

	Kind    string             `bson:"kind" json:"kind"` // "user" | "group" | "app"
	UserID  primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	GroupID primitive.ObjectID `bson:"group_id,omitempty" json:"group_id,omitempty"`
	AppID   primitive.ObjectID `bson:"app_id,omitempty" json:"app_id,omitempty"`

	PermissionSets []string `bson:"permission_sets" json:"permission_sets"`

	Revoked   bool      `bson:"revoked" json:"revoked"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	LastUsed  time.Time `bson:"last_used,omitempty" json:"last_used,omitempty"`
}
