// internal/app/store/apps/appstore.go
package apps

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
)

// ErrDuplicateName is returned when an app with the folded name exists.
var ErrDuplicateName = errors.New("an app with this name already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("apps")}
}

// Create inserts a new active app. The id-lists start empty; the owner's
// admin membership is added by provisioning, not here.
func (s *Store) Create(ctx context.Context, name, description string, ownerID primitive.ObjectID, userJoinability, groupJoinability string) (*models.App, error) {
	if userJoinability == "" {
		userJoinability = models.JoinabilityByRequest
	}
	if groupJoinability == "" {
		groupJoinability = models.JoinabilityByRequest
	}
	now := time.Now().UTC()
	a := &models.App{
		ID:               primitive.NewObjectID(),
		Name:             name,
		NameCI:           text.Fold(name),
		Description:      description,
		OwnerID:          ownerID,
		UserJoinability:  userJoinability,
		GroupJoinability: groupJoinability,
		Status:           "active",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return a, nil
}

// GetByID returns the app or mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.App, error) {
	var a models.App
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByNameCI returns the app with the folded name or mongo.ErrNoDocuments.
func (s *Store) GetByNameCI(ctx context.Context, name string) (*models.App, error) {
	var a models.App
	if err := s.c.FindOne(ctx, bson.M{"name_ci": text.Fold(name)}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateFields applies a partial update. The mirrored id-lists are owned by
// the membership decorators and are rejected here.
func (s *Store) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		switch k {
		case "active_user_ids", "pending_user_ids", "disabled_user_ids",
			"admin_user_ids", "member_user_ids",
			"active_group_ids", "pending_group_ids", "disabled_group_ids":
			return errors.New("appstore: id-lists are written only by the membership decorators")
		}
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

// Delete removes the app record. Membership records are the caller's
// responsibility (delete them through the decorators first).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
