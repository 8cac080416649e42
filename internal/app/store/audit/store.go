// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryMembership = "membership"
	CategoryValidation = "validation"
	CategorySecurity   = "security"
	CategoryHistory    = "history"
)

// Membership event types
const (
	EventAppUserMembershipCreated  = "app_user_membership_created"
	EventAppUserMembershipUpdated  = "app_user_membership_updated"
	EventAppUserMembershipRemoved  = "app_user_membership_removed"
	EventAppGroupMembershipCreated = "app_group_membership_created"
	EventAppGroupMembershipUpdated = "app_group_membership_updated"
	EventAppGroupMembershipRemoved = "app_group_membership_removed"
	EventGroupMemberAdded          = "group_member_added"
	EventGroupMemberRemoved        = "group_member_removed"
)

// Validation event types
const (
	EventValidationRequested  = "validation_requested"
	EventValidationWithdrawn  = "validation_withdrawn"
	EventValidationAdded      = "validation_added"
	EventBadgeIssued          = "badge_issued"
	EventBadgeRetracted       = "badge_retracted"
	EventBackValidationTopUp  = "back_validation_top_up"
	EventBackValidationFailed = "back_validation_failed"
)

// Security event types
const (
	EventTokenMinted  = "token_minted"
	EventTokenRevoked = "token_revoked"
)

// History event types
const (
	EventFieldChanged = "field_changed"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who and what
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty"` // who performed the action
	UserID  *primitive.ObjectID `bson:"user_id,omitempty"`  // affected user
	GroupID *primitive.ObjectID `bson:"group_id,omitempty"`
	AppID   *primitive.ObjectID `bson:"app_id,omitempty"`
	BadgeID *primitive.ObjectID `bson:"badge_id,omitempty"`
	LogID   *primitive.ObjectID `bson:"log_id,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	ActorID   *primitive.ObjectID
	AppID     *primitive.ObjectID
	BadgeID   *primitive.ObjectID
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_log")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query retrieves audit events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	query := buildQuery(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteOlderThan removes events created before the cutoff and returns
// how many were deleted.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the number of events matching the filter.
func (s *Store) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, buildQuery(filter))
}

func buildQuery(filter QueryFilter) bson.M {
	query := bson.M{}
	if filter.ActorID != nil {
		query["actor_id"] = filter.ActorID
	}
	if filter.AppID != nil {
		query["app_id"] = filter.AppID
	}
	if filter.BadgeID != nil {
		query["badge_id"] = filter.BadgeID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["created_at"] = timeQuery
	}
	return query
}
