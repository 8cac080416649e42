// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.

The unique indexes here back invariants the application relies on:
one membership per (app, subject), one log per (badge, user), one
validation entry per (log, creator).
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(name string, fn func(context.Context, *mongo.Database) error) {
		if err := fn(ctx, db); err != nil {
			problems = append(problems, name+": "+err.Error())
		}
	}

	ensure("users", ensureUsers)
	ensure("groups", ensureGroups)
	ensure("group_memberships", ensureGroupMemberships)
	ensure("apps", ensureApps)
	ensure("app_user_memberships", ensureAppUserMemberships)
	ensure("app_group_memberships", ensureAppGroupMemberships)
	ensure("badges", ensureBadges)
	ensure("logs", ensureLogs)
	ensure("entries", ensureEntries)
	ensure("api_tokens", ensureAPITokens)
	ensure("audit_log", ensureAuditLog)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := a != nil && *a
	bv := b != nil && *b
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, desired []mongo.IndexModel) error {
	var errs []string

	existing, err := listIndexes(ctx, coll)
	if err != nil {
		zap.L().Warn("failed to list existing indexes",
			zap.String("collection", coll.Name()), zap.Error(err))
		existing = map[string]existingIndex{}
	}

	for _, m := range desired {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		desiredSig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[desiredSig]; ok {
			if sameBoolPtr(desiredUnique, ex.Unique) && (desiredName == "" || ex.Name == desiredName) {
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig))
				continue
			}
			// Name or options differ: drop and recreate under the desired
			// definition.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			switch {
			case isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique:
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index, duplicates present", coll.Name(), desiredName))
			case isOptionsConflictErr(err):
				// An index with these keys exists under another definition
				// and the list above missed it (concurrent startup). Leave
				// it; the next boot reconciles.
				zap.L().Warn("index options conflict, leaving existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", desiredName),
					zap.String("keys", desiredSig))
			default:
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			}
			continue
		}

		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing, cur.Err()
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                             */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Name listing and search (case/diacritics folded)
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_fullnameci__id"),
		},
	})
}

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("groups")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_groups_nameci"),
		},
	})
}

func ensureGroupMemberships(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("group_memberships")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One membership per (group, user)
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_groupmems_group_user"),
		},
		// Actor loading: all of a user's group roles
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_groupmems_user"),
		},
	})
}

func ensureApps(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("apps")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_apps_nameci"),
		},
		// Actor loading: which apps hold this user / group as active
		{
			Keys:    bson.D{{Key: "active_user_ids", Value: 1}},
			Options: options.Index().SetName("idx_apps_active_users"),
		},
		{
			Keys:    bson.D{{Key: "active_group_ids", Value: 1}},
			Options: options.Index().SetName("idx_apps_active_groups"),
		},
	})
}

func ensureAppUserMemberships(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("app_user_memberships")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One membership per (app, user); backs ErrDuplicateMembership
		{
			Keys:    bson.D{{Key: "app_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_appusermems_app_user"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_appusermems_user"),
		},
	})
}

func ensureAppGroupMemberships(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("app_group_memberships")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One membership per (app, group); backs ErrDuplicateMembership
		{
			Keys:    bson.D{{Key: "app_id", Value: 1}, {Key: "group_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_appgroupmems_app_group"),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}},
			Options: options.Index().SetName("idx_appgroupmems_group"),
		},
	})
}

func ensureBadges(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("badges")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Badge names are unique within their group
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_badges_group_nameci"),
		},
	})
}

func ensureLogs(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("logs")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One log per (badge, user)
		{
			Keys:    bson.D{{Key: "badge_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_logs_badge_user"),
		},
		// Expert counting and back-validation scans
		{
			Keys: bson.D{
				{Key: "badge_id", Value: 1},
				{Key: "validation_status", Value: 1},
				{Key: "detached", Value: 1},
			},
			Options: options.Index().SetName("idx_logs_badge_status_detached"),
		},
		// A user's portfolio listing
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_logs_user"),
		},
	})
}

func ensureEntries(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("entries")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Log timeline in entry order
		{
			Keys:    bson.D{{Key: "log_id", Value: 1}, {Key: "number", Value: 1}},
			Options: options.Index().SetName("idx_entries_log_number"),
		},
		// One validation entry per (log, creator); posts are exempt, hence
		// the partial filter. Backs back-validation idempotence.
		{
			Keys: bson.D{{Key: "log_id", Value: 1}, {Key: "creator_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_entries_log_creator_validation").
				SetPartialFilterExpression(bson.D{{Key: "type", Value: "validation"}}),
		},
	})
}

func ensureAPITokens(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("api_tokens")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_tokens_tokenid"),
		},
	})
}

func ensureAuditLog(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("audit_log")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_created"),
		},
	})
}
