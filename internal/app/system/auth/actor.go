// internal/app/system/auth/actor.go
package auth

import (
	"context"

	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ActorLoader builds policy.Actor values with their relation id-sets
// preloaded, so role predicates stay database-free. One loader call per
// authenticated request.
type ActorLoader struct {
	groupMems *mongo.Collection
	apps      *mongo.Collection
}

// NewActorLoader creates an actor loader over the given database.
func NewActorLoader(db *mongo.Database) *ActorLoader {
	return &ActorLoader{
		groupMems: db.Collection("group_memberships"),
		apps:      db.Collection("apps"),
	}
}

// LoadUser builds an individual actor for userID, gathering the user's
// group roles and app standings in two queries.
func (al *ActorLoader) LoadUser(ctx context.Context, userID primitive.ObjectID) (*policy.Actor, error) {
	actor := &policy.Actor{
		Kind:   policy.ActorIndividual,
		UserID: userID,
	}

	cur, err := al.groupMems.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	var mems []models.GroupMembership
	if err := cur.All(ctx, &mems); err != nil {
		return nil, err
	}
	for _, m := range mems {
		if m.Role == models.GroupRoleAdmin {
			actor.AdminGroupIDs = append(actor.AdminGroupIDs, m.GroupID)
		} else {
			actor.MemberGroupIDs = append(actor.MemberGroupIDs, m.GroupID)
		}
	}

	// App standing comes from the mirrored id-lists; only the ids and the
	// two relevant lists are fetched.
	proj := options.Find().SetProjection(bson.M{
		"_id":             1,
		"admin_user_ids":  1,
		"active_user_ids": 1,
	})
	cur, err = al.apps.Find(ctx, bson.M{"active_user_ids": userID}, proj)
	if err != nil {
		return nil, err
	}
	var apps []models.App
	if err := cur.All(ctx, &apps); err != nil {
		return nil, err
	}
	for _, a := range apps {
		actor.ActiveAppIDs = append(actor.ActiveAppIDs, a.ID)
		if a.HasAdminUser(userID) {
			actor.AdminAppIDs = append(actor.AdminAppIDs, a.ID)
		}
	}

	return actor, nil
}

// LoadGroup builds a group-proxy actor. Its app standings are the apps
// where the group itself is active.
func (al *ActorLoader) LoadGroup(ctx context.Context, groupID primitive.ObjectID) (*policy.Actor, error) {
	actor := &policy.Actor{
		Kind:    policy.ActorGroupProxy,
		GroupID: groupID,
	}

	proj := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := al.apps.Find(ctx, bson.M{"active_group_ids": groupID}, proj)
	if err != nil {
		return nil, err
	}
	var apps []models.App
	if err := cur.All(ctx, &apps); err != nil {
		return nil, err
	}
	for _, a := range apps {
		actor.ActiveAppIDs = append(actor.ActiveAppIDs, a.ID)
	}

	return actor, nil
}

// LoadApp builds an app-proxy actor. An app administers itself.
func (al *ActorLoader) LoadApp(ctx context.Context, appID primitive.ObjectID) (*policy.Actor, error) {
	return &policy.Actor{
		Kind:         policy.ActorAppProxy,
		AppID:        appID,
		AdminAppIDs:  []primitive.ObjectID{appID},
		ActiveAppIDs: []primitive.ObjectID{appID},
	}, nil
}
