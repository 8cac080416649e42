// internal/domain/models/entry.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entry types.
const (
	EntryTypePost       = "post"
	EntryTypeValidation = "validation"
)

// Validation entry verdicts. An endorsing validation increments the log's
// validation_count; a rejecting one increments rejection_count.
const (
	VerdictEndorse = "endorse"
	VerdictReject  = "reject"
)

// Entry is a single post or validation event within a Log. Validation
// entries are unique per (log_id, creator_id), enforced by a partial unique
// index; posts are unlimited.
type Entry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LogID     primitive.ObjectID `bson:"log_id" json:"log_id"`
	CreatorID primitive.ObjectID `bson:"creator_id" json:"creator_id"`
	Type      string             `bson:"type" json:"type"`

	// Number is the position within the log, taken from the log's
	// next_entry_number counter at creation.
	Number int `bson:"number" json:"number"`

	// Body is sanitized HTML for posts, free text for validation comments.
	Body string `bson:"body,omitempty" json:"body,omitempty"`

	// Verdict is set on validation entries only: "endorse" or "reject".
	Verdict string `bson:"verdict,omitempty" json:"verdict,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
