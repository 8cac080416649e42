// internal/app/store/badges/badgestore.go
package badges

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/badgehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateName is returned when the group already has a badge with the
// folded name.
var ErrDuplicateName = errors.New("this group already has a badge with this name")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("badges")}
}

// Create inserts a new badge. RequiredThreshold below 1 is clamped to 1.
func (s *Store) Create(ctx context.Context, b *models.Badge) (*models.Badge, error) {
	now := time.Now().UTC()
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	b.NameCI = text.Fold(b.Name)
	if b.RequiredThreshold < 1 {
		b.RequiredThreshold = 1
	}
	if b.Visibility == "" {
		b.Visibility = models.BadgeVisibilityMembers
	}
	if b.Awardability == "" {
		b.Awardability = models.BadgeAwardabilityExperts
	}
	if b.Status == "" {
		b.Status = "active"
	}
	b.CreatedAt = now
	b.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, b); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return b, nil
}

// GetByID returns the badge or mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Badge, error) {
	var b models.Badge
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateFields applies a partial update and stamps updated_at.
func (s *Store) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
		if k == "name" {
			if name, ok := v.(string); ok {
				set["name_ci"] = text.Fold(name)
			}
		}
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// ListByGroup returns the group's badges ordered by folded name.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Badge, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	var badges []models.Badge
	if err := cur.All(ctx, &badges); err != nil {
		return nil, err
	}
	return badges, nil
}

// List returns every badge on the platform ordered by folded name.
func (s *Store) List(ctx context.Context) ([]models.Badge, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var badges []models.Badge
	if err := cur.All(ctx, &badges); err != nil {
		return nil, err
	}
	return badges, nil
}

// Delete removes the badge record.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
