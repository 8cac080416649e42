// internal/app/membership/appgroup.go
package membership

import (
	"context"
	"time"

	"github.com/dalemusser/badgehub/internal/app/system/txn"
	"github.com/dalemusser/badgehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// AppGroups is the decorator for app↔group memberships, the group analog
// of AppUsers. Groups have no admin/member split on the App aggregate;
// only the active/pending/disabled partition is mirrored.
type AppGroups struct {
	db          *mongo.Database
	apps        *mongo.Collection
	memberships *mongo.Collection
	groupMems   *mongo.Collection
	log         *zap.Logger
}

// NewAppGroups creates the app↔group membership decorator.
func NewAppGroups(db *mongo.Database, logger *zap.Logger) *AppGroups {
	return &AppGroups{
		db:          db,
		apps:        db.Collection("apps"),
		memberships: db.Collection("app_group_memberships"),
		groupMems:   db.Collection("group_memberships"),
		log:         logger,
	}
}

// Has reports whether groupID has a membership in the app matching the
// status filter, read from the App's cached id-lists. The admin and member
// filters do not apply to groups.
func (d *AppGroups) Has(app *models.App, groupID primitive.ObjectID, filter string) (bool, error) {
	switch filter {
	case FilterAny:
		return app.HasActiveGroup(groupID) ||
			containsID(app.PendingGroupIDs, groupID) ||
			containsID(app.DisabledGroupIDs, groupID), nil
	case FilterActive:
		return app.HasActiveGroup(groupID), nil
	case FilterPending:
		return containsID(app.PendingGroupIDs, groupID), nil
	case FilterDisabled:
		return containsID(app.DisabledGroupIDs, groupID), nil
	default:
		return false, ErrBadFilter
	}
}

// Create inserts a membership for groupID created by creatorID.
//
// Approval defaults:
//   - app side: approved when the creator is an app admin, or when a group
//     admin joins an "open" app on the group's behalf; otherwise requested.
//   - group side: approved when the creator administers the group
//     (checked against group_memberships); otherwise requested.
func (d *AppGroups) Create(ctx context.Context, app *models.App, groupID, creatorID primitive.ObjectID) (*models.AppGroupMembership, error) {
	if exists, err := d.Has(app, groupID, FilterAny); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrDuplicateMembership
	}

	isGroupAdmin, err := d.creatorAdministersGroup(ctx, groupID, creatorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &models.AppGroupMembership{
		ID:                  primitive.NewObjectID(),
		AppID:               app.ID,
		GroupID:             groupID,
		AppApprovalStatus:   models.ApprovalRequested,
		GroupApprovalStatus: models.ApprovalRequested,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if app.HasAdminUser(creatorID) {
		m.AppApprovalStatus = models.ApprovalApproved
	} else if isGroupAdmin && app.GroupJoinability == models.JoinabilityOpen {
		m.AppApprovalStatus = models.ApprovalApproved
	}
	if isGroupAdmin {
		m.GroupApprovalStatus = models.ApprovalApproved
	}
	m.Status = m.DerivedStatus()

	err = txn.WithTransaction(ctx, d.db.Client(), func(ctx context.Context) error {
		if _, err := d.memberships.InsertOne(ctx, m); err != nil {
			if wafflemongo.IsDup(err) {
				return ErrDuplicateMembership
			}
			return err
		}
		return d.resync(ctx, app, m)
	})
	if err != nil {
		return nil, err
	}

	d.log.Info("app group membership created",
		zap.String("app_id", app.ID.Hex()),
		zap.String("group_id", groupID.Hex()),
		zap.String("status", m.Status))
	return m, nil
}

// Save persists a mutated membership record, recomputing its derived status
// and resynchronizing the App's group id-lists in the same transaction.
func (d *AppGroups) Save(ctx context.Context, app *models.App, m *models.AppGroupMembership) error {
	m.Status = m.DerivedStatus()
	m.UpdatedAt = time.Now().UTC()

	return txn.WithTransaction(ctx, d.db.Client(), func(ctx context.Context) error {
		_, err := d.memberships.UpdateOne(ctx,
			bson.M{"_id": m.ID},
			bson.M{"$set": bson.M{
				"app_approval_status":   m.AppApprovalStatus,
				"group_approval_status": m.GroupApprovalStatus,
				"status":                m.Status,
				"updated_at":            m.UpdatedAt,
			}})
		if err != nil {
			return err
		}
		return d.resync(ctx, app, m)
	})
}

// SetAppApproval sets the app-side approval flag and saves.
func (d *AppGroups) SetAppApproval(ctx context.Context, app *models.App, m *models.AppGroupMembership, approval string) error {
	m.AppApprovalStatus = approval
	return d.Save(ctx, app, m)
}

// SetGroupApproval sets the group-side approval flag and saves.
func (d *AppGroups) SetGroupApproval(ctx context.Context, app *models.App, m *models.AppGroupMembership, approval string) error {
	m.GroupApprovalStatus = approval
	return d.Save(ctx, app, m)
}

// Delete removes the membership record and clears the group from every
// mirrored id-list.
func (d *AppGroups) Delete(ctx context.Context, app *models.App, m *models.AppGroupMembership) error {
	return txn.WithTransaction(ctx, d.db.Client(), func(ctx context.Context) error {
		if _, err := d.memberships.DeleteOne(ctx, bson.M{"_id": m.ID}); err != nil {
			return err
		}
		pull := bson.M{}
		for _, name := range allGroupLists {
			pull[name] = m.GroupID
		}
		_, err := d.apps.UpdateOne(ctx, bson.M{"_id": app.ID}, bson.M{
			"$pull": pull,
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
		if err != nil {
			return err
		}
		applyToLists(app, m.GroupID, nil, false)
		return nil
	})
}

// Get loads the membership record for (app, group), or nil when none exists.
func (d *AppGroups) Get(ctx context.Context, appID, groupID primitive.ObjectID) (*models.AppGroupMembership, error) {
	var m models.AppGroupMembership
	err := d.memberships.FindOne(ctx, bson.M{"app_id": appID, "group_id": groupID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (d *AppGroups) resync(ctx context.Context, app *models.App, m *models.AppGroupMembership) error {
	targets := groupListTargets(m.Status)

	pull := bson.M{}
	add := bson.M{}
	for _, name := range allGroupLists {
		inTargets := false
		for _, t := range targets {
			if t == name {
				inTargets = true
				break
			}
		}
		if inTargets {
			add[name] = m.GroupID
		} else {
			pull[name] = m.GroupID
		}
	}

	_, err := d.apps.UpdateOne(ctx, bson.M{"_id": app.ID}, bson.M{
		"$pull":     pull,
		"$addToSet": add,
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	applyToLists(app, m.GroupID, targets, false)
	return nil
}

func (d *AppGroups) creatorAdministersGroup(ctx context.Context, groupID, creatorID primitive.ObjectID) (bool, error) {
	n, err := d.groupMems.CountDocuments(ctx, bson.M{
		"group_id": groupID,
		"user_id":  creatorID,
		"role":     models.GroupRoleAdmin,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
