// internal/app/store/logs/logstore.go
package logs

import (
	"context"

	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads log documents. Writes go through the validation engine,
// which owns the derived fields.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("logs")}
}

// GetByID returns the log or mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Log, error) {
	var l models.Log
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByBadgeUser returns the log for (badgeID, userID) or
// mongo.ErrNoDocuments.
func (s *Store) GetByBadgeUser(ctx context.Context, badgeID, userID primitive.ObjectID) (*models.Log, error) {
	var l models.Log
	if err := s.c.FindOne(ctx, bson.M{"badge_id": badgeID, "user_id": userID}).Decode(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByBadge returns the badge's attached logs.
func (s *Store) ListByBadge(ctx context.Context, badgeID primitive.ObjectID) ([]models.Log, error) {
	cur, err := s.c.Find(ctx, bson.M{"badge_id": badgeID, "detached": false})
	if err != nil {
		return nil, err
	}
	var logs []models.Log
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// ListByUser returns the user's attached logs, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Log, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID, "detached": false}, opts)
	if err != nil {
		return nil, err
	}
	var logs []models.Log
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// ListRequested returns the badge's logs currently awaiting review.
func (s *Store) ListRequested(ctx context.Context, badgeID primitive.ObjectID) ([]models.Log, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"badge_id":          badgeID,
		"validation_status": models.ValidationRequested,
		"detached":          false,
	})
	if err != nil {
		return nil, err
	}
	var logs []models.Log
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
