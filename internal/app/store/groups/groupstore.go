// internal/app/store/groups/groupstore.go
package groups

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

var (
	// ErrDuplicateName is returned when a group with the folded name exists.
	ErrDuplicateName = errors.New("a group with this name already exists")
	// ErrDuplicateMembership is returned when the user already belongs to
	// the group.
	ErrDuplicateMembership = errors.New("user is already a member of this group")

	errBadRole = errors.New(`role must be "admin" or "member"`)
)

type Store struct {
	c    *mongo.Collection
	mems *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:    db.Collection("groups"),
		mems: db.Collection("group_memberships"),
	}
}

// Create inserts a new active group.
func (s *Store) Create(ctx context.Context, name, description, tagAssignability string) (*models.Group, error) {
	if tagAssignability == "" {
		tagAssignability = models.TagAssignabilityAdmins
	}
	now := time.Now().UTC()
	g := &models.Group{
		ID:               primitive.NewObjectID(),
		Name:             name,
		NameCI:           text.Fold(name),
		Description:      description,
		TagAssignability: tagAssignability,
		Status:           "active",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return g, nil
}

// GetByID returns the group or mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
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

// AddMember creates a membership with the given role.
func (s *Store) AddMember(ctx context.Context, groupID, userID primitive.ObjectID, role string) error {
	if role != models.GroupRoleAdmin && role != models.GroupRoleMember {
		return errBadRole
	}
	now := time.Now().UTC()
	doc := models.GroupMembership{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.mems.InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateMembership
		}
		return err
	}
	return nil
}

// RemoveMember deletes the membership document for (groupID, userID).
func (s *Store) RemoveMember(ctx context.Context, groupID, userID primitive.ObjectID) error {
	_, err := s.mems.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	return err
}

// SetMemberRole changes a member's role.
func (s *Store) SetMemberRole(ctx context.Context, groupID, userID primitive.ObjectID, role string) error {
	if role != models.GroupRoleAdmin && role != models.GroupRoleMember {
		return errBadRole
	}
	_, err := s.mems.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}})
	return err
}

// Members returns the group's membership records.
func (s *Store) Members(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	cur, err := s.mems.Find(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	var mems []models.GroupMembership
	if err := cur.All(ctx, &mems); err != nil {
		return nil, err
	}
	return mems, nil
}

// Delete removes the group and its memberships.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.mems.DeleteMany(ctx, bson.M{"group_id": id}); err != nil {
		return err
	}
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
