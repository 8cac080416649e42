// internal/domain/models/log.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Log validation statuses.
//
// incomplete → requested → (withdrawn | validated); validated is also
// reachable directly from incomplete or requested when the endorsement
// count crosses the badge's current threshold.
const (
	ValidationIncomplete = "incomplete"
	ValidationRequested  = "requested"
	ValidationWithdrawn  = "withdrawn"
	ValidationValidated  = "validated"
)

// Log issue statuses: unissued → issued → retracted. A retracted log keeps
// its original issue date in DateOriginallyIssued.
const (
	IssueUnissued  = "unissued"
	IssueIssued    = "issued"
	IssueRetracted = "retracted"
)

// Log is the per-user-per-badge portfolio tracking progress toward and award
// of a badge. Exactly one document per (badge_id, user_id), enforced by a
// unique index.
//
// ValidationCount, RejectionCount and the date fields drive the derived
// ValidationStatus/IssueStatus; the state machine lives in the validation
// package and is the only code that should mutate the derived fields.
type Log struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BadgeID primitive.ObjectID `bson:"badge_id" json:"badge_id"`
	GroupID primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"user_id"`

	ValidationStatus string `bson:"validation_status" json:"validation_status"`
	IssueStatus      string `bson:"issue_status" json:"issue_status"`

	// Counts are non-negative; the validation engine guards every decrement.
	ValidationCount int `bson:"validation_count" json:"validation_count"`
	RejectionCount  int `bson:"rejection_count" json:"rejection_count"`

	// NextEntryNumber is a monotonic counter consumed by entry creation.
	NextEntryNumber int `bson:"next_entry_number" json:"next_entry_number"`

	DateRequested        *time.Time `bson:"date_requested,omitempty" json:"date_requested,omitempty"`
	DateWithdrawn        *time.Time `bson:"date_withdrawn,omitempty" json:"date_withdrawn,omitempty"`
	DateValidated        *time.Time `bson:"date_validated,omitempty" json:"date_validated,omitempty"`
	DateIssued           *time.Time `bson:"date_issued,omitempty" json:"date_issued,omitempty"`
	DateOriginallyIssued *time.Time `bson:"date_originally_issued,omitempty" json:"date_originally_issued,omitempty"`
	DateRetracted        *time.Time `bson:"date_retracted,omitempty" json:"date_retracted,omitempty"`

	// Detached marks a log soft-removed when the user leaves the badge or
	// group. Detached logs keep their history but are excluded from
	// threshold and back-validation scans.
	Detached bool `bson:"detached" json:"detached"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidated reports whether the log currently holds validated status.
func (l *Log) IsValidated() bool {
	return l.ValidationStatus == ValidationValidated
}
