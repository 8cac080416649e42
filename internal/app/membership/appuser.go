// internal/app/membership/appuser.go
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

// AppUsers is the decorator for app↔user memberships. It wraps the App
// aggregate by reference: every mutation writes the membership record and
// resynchronizes the App's mirrored user id-lists (database and in-memory)
// as one operation.
type AppUsers struct {
	db          *mongo.Database
	apps        *mongo.Collection
	memberships *mongo.Collection
	log         *zap.Logger
}

// NewAppUsers creates the app↔user membership decorator.
func NewAppUsers(db *mongo.Database, logger *zap.Logger) *AppUsers {
	return &AppUsers{
		db:          db,
		apps:        db.Collection("apps"),
		memberships: db.Collection("app_user_memberships"),
		log:         logger,
	}
}

// Has reports whether userID has a membership in the app matching the
// status filter. It reads the App's cached id-lists only, with no query, so
// the common "is this user a member?" check is O(list length) on data
// already in hand.
func (d *AppUsers) Has(app *models.App, userID primitive.ObjectID, filter string) (bool, error) {
	switch filter {
	case FilterAny:
		return app.HasActiveUser(userID) ||
			containsID(app.PendingUserIDs, userID) ||
			containsID(app.DisabledUserIDs, userID), nil
	case FilterActive:
		return app.HasActiveUser(userID), nil
	case FilterPending:
		return containsID(app.PendingUserIDs, userID), nil
	case FilterDisabled:
		return containsID(app.DisabledUserIDs, userID), nil
	case FilterAdmin:
		return app.HasAdminUser(userID), nil
	case FilterMember:
		return containsID(app.MemberUserIDs, userID), nil
	default:
		return false, ErrBadFilter
	}
}

// Create inserts a membership for userID created by creatorID.
//
// Approval defaults follow the creator's relationship to each side:
//   - app side: approved when the creator is an app admin, or when the
//     subject joins an "open" app themselves; otherwise requested.
//   - user side: approved when the creator is the subject (self-service
//     join); otherwise requested.
//
// A membership already existing for (app, user) is a caller error:
// ErrDuplicateMembership, raced-safe via the unique index.
func (d *AppUsers) Create(ctx context.Context, app *models.App, userID, creatorID primitive.ObjectID, mtype string) (*models.AppUserMembership, error) {
	if mtype != models.AppMembershipMember && mtype != models.AppMembershipAdmin {
		mtype = models.AppMembershipMember
	}
	if exists, err := d.Has(app, userID, FilterAny); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrDuplicateMembership
	}

	now := time.Now().UTC()
	m := &models.AppUserMembership{
		ID:                 primitive.NewObjectID(),
		AppID:              app.ID,
		UserID:             userID,
		Type:               mtype,
		AppApprovalStatus:  models.ApprovalRequested,
		UserApprovalStatus: models.ApprovalRequested,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if app.HasAdminUser(creatorID) {
		m.AppApprovalStatus = models.ApprovalApproved
	} else if creatorID == userID && app.UserJoinability == models.JoinabilityOpen {
		m.AppApprovalStatus = models.ApprovalApproved
	}
	if creatorID == userID {
		m.UserApprovalStatus = models.ApprovalApproved
	}
	m.Status = m.DerivedStatus()

	err := txn.WithTransaction(ctx, d.db.Client(), func(ctx context.Context) error {
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

	d.log.Info("app user membership created",
		zap.String("app_id", app.ID.Hex()),
		zap.String("user_id", userID.Hex()),
		zap.String("type", m.Type),
		zap.String("status", m.Status))
	return m, nil
}

// Save persists a mutated membership record, recomputing its derived status
// from the approval flags and resynchronizing the App's id-lists in the
// same transaction. It is the only update path for membership records.
func (d *AppUsers) Save(ctx context.Context, app *models.App, m *models.AppUserMembership) error {
	m.Status = m.DerivedStatus()
	m.UpdatedAt = time.Now().UTC()

	return txn.WithTransaction(ctx, d.db.Client(), func(ctx context.Context) error {
		_, err := d.memberships.UpdateOne(ctx,
			bson.M{"_id": m.ID},
			bson.M{"$set": bson.M{
				"type":                 m.Type,
				"app_approval_status":  m.AppApprovalStatus,
				"user_approval_status": m.UserApprovalStatus,
				"status":               m.Status,
				"updated_at":           m.UpdatedAt,
			}})
		if err != nil {
			return err
		}
		return d.resync(ctx, app, m)
	})
}

// SetAppApproval sets the app-side approval flag and saves.
func (d *AppUsers) SetAppApproval(ctx context.Context, app *models.App, m *models.AppUserMembership, approval string) error {
	m.AppApprovalStatus = approval
	return d.Save(ctx, app, m)
}

// SetUserApproval sets the user-side approval flag and saves.
func (d *AppUsers) SetUserApproval(ctx context.Context, app *models.App, m *models.AppUserMembership, approval string) error {
	m.UserApprovalStatus = approval
	return d.Save(ctx, app, m)
}

// Delete removes the membership record and clears the user from every
// mirrored id-list.
func (d *AppUsers) Delete(ctx context.Context, app *models.App, m *models.AppUserMembership) error {
	return txn.WithTransaction(ctx, d.db.Client(), func(ctx context.Context) error {
		if _, err := d.memberships.DeleteOne(ctx, bson.M{"_id": m.ID}); err != nil {
			return err
		}
		pull := bson.M{}
		for _, name := range allUserLists {
			pull[name] = m.UserID
		}
		_, err := d.apps.UpdateOne(ctx, bson.M{"_id": app.ID}, bson.M{
			"$pull": pull,
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
		if err != nil {
			return err
		}
		applyToLists(app, m.UserID, nil, true)
		return nil
	})
}

// Get loads the membership record for (app, user), or nil when none exists.
func (d *AppUsers) Get(ctx context.Context, appID, userID primitive.ObjectID) (*models.AppUserMembership, error) {
	var m models.AppUserMembership
	err := d.memberships.FindOne(ctx, bson.M{"app_id": appID, "user_id": userID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// resync rewrites the App's mirrored user id-lists (database and in-memory)
// to place the membership's subject in exactly the lists its derived status
// and type demand.
func (d *AppUsers) resync(ctx context.Context, app *models.App, m *models.AppUserMembership) error {
	targets := userListTargets(m.Status, m.Type)

	pull := bson.M{}
	add := bson.M{}
	for _, name := range allUserLists {
		inTargets := false
		for _, t := range targets {
			if t == name {
				inTargets = true
				break
			}
		}
		if inTargets {
			add[name] = m.UserID
		} else {
			pull[name] = m.UserID
		}
	}

	// $pull and $addToSet cannot share an update document's field, but the
	// target and non-target sets are disjoint, so one update suffices.
	_, err := d.apps.UpdateOne(ctx, bson.M{"_id": app.ID}, bson.M{
		"$pull":     pull,
		"$addToSet": add,
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	applyToLists(app, m.UserID, targets, true)
	return nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
