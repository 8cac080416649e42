// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Core collections
	ensure("users", usersSchema())
	ensure("groups", groupsSchema())
	ensure("apps", appsSchema())
	ensure("badges", badgesSchema())

	// Membership collections
	ensure("group_memberships", groupMembershipsSchema())
	ensure("app_user_memberships", appUserMembershipsSchema())
	ensure("app_group_memberships", appGroupMembershipsSchema())

	// Validation portfolio collections
	ensure("logs", logsSchema())
	ensure("entries", entriesSchema())

	// These don't strictly need validators; we still ensure the collections exist.
	ensure("api_tokens", nil)
	ensure("audit_log", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "full_name_ci", "email"},
			"properties": bson.M{
				"full_name":    bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"full_name_ci": bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"email":        bson.M{"bsonType": "string", "minLength": 3},
				"status":       bson.M{"enum": bson.A{"active", "disabled"}},
			},
		},
	}
}

func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "status"},
			"properties": bson.M{
				"name":              bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci":           bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"tag_assignability": bson.M{"enum": bson.A{"admins", "members"}},
				"status":            bson.M{"enum": bson.A{"active", "disabled"}},
			},
		},
	}
}

func appsSchema() bson.M {
	joinability := bson.M{"enum": bson.A{"open", "by_request", "closed"}}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "user_joinability", "group_joinability", "status"},
			"properties": bson.M{
				"name":               bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci":            bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"owner_id":           bson.M{"bsonType": "objectId"},
				"user_joinability":   joinability,
				"group_joinability":  joinability,
				"active_user_ids":    bson.M{"bsonType": "array"},
				"pending_user_ids":   bson.M{"bsonType": "array"},
				"disabled_user_ids":  bson.M{"bsonType": "array"},
				"admin_user_ids":     bson.M{"bsonType": "array"},
				"member_user_ids":    bson.M{"bsonType": "array"},
				"active_group_ids":   bson.M{"bsonType": "array"},
				"pending_group_ids":  bson.M{"bsonType": "array"},
				"disabled_group_ids": bson.M{"bsonType": "array"},
				"status":             bson.M{"enum": bson.A{"active", "disabled"}},
			},
		},
	}
}

func badgesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "creator_id", "name", "name_ci", "visibility", "awardability", "required_threshold"},
			"properties": bson.M{
				"group_id":           bson.M{"bsonType": "objectId"},
				"creator_id":         bson.M{"bsonType": "objectId"},
				"name":               bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci":            bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"visibility":         bson.M{"enum": bson.A{"public", "members", "admins"}},
				"awardability":       bson.M{"enum": bson.A{"experts", "admins"}},
				"required_threshold": bson.M{"bsonType": "int", "minimum": 1},
				"status":             bson.M{"enum": bson.A{"active", "disabled"}},
			},
		},
	}
}

func groupMembershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "user_id", "role"},
			"properties": bson.M{
				"group_id":   bson.M{"bsonType": "objectId"},
				"user_id":    bson.M{"bsonType": "objectId"},
				"role":       bson.M{"enum": bson.A{"admin", "member"}},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func appUserMembershipsSchema() bson.M {
	approval := bson.M{"enum": bson.A{"requested", "approved", "denied"}}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"app_id", "user_id", "type", "app_approval_status", "user_approval_status", "status"},
			"properties": bson.M{
				"app_id":               bson.M{"bsonType": "objectId"},
				"user_id":              bson.M{"bsonType": "objectId"},
				"type":                 bson.M{"enum": bson.A{"member", "admin"}},
				"app_approval_status":  approval,
				"user_approval_status": approval,
				"status":               bson.M{"enum": bson.A{"pending", "active", "disabled"}},
			},
		},
	}
}

func appGroupMembershipsSchema() bson.M {
	approval := bson.M{"enum": bson.A{"requested", "approved", "denied"}}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"app_id", "group_id", "app_approval_status", "group_approval_status", "status"},
			"properties": bson.M{
				"app_id":                bson.M{"bsonType": "objectId"},
				"group_id":              bson.M{"bsonType": "objectId"},
				"app_approval_status":   approval,
				"group_approval_status": approval,
				"status":                bson.M{"enum": bson.A{"pending", "active", "disabled"}},
			},
		},
	}
}

func logsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"badge_id", "group_id", "user_id", "validation_status", "issue_status"},
			"properties": bson.M{
				"badge_id":          bson.M{"bsonType": "objectId"},
				"group_id":          bson.M{"bsonType": "objectId"},
				"user_id":           bson.M{"bsonType": "objectId"},
				"validation_status": bson.M{"enum": bson.A{"incomplete", "requested", "withdrawn", "validated"}},
				"issue_status":      bson.M{"enum": bson.A{"unissued", "issued", "retracted"}},
				"validation_count":  bson.M{"bsonType": "int", "minimum": 0},
				"rejection_count":   bson.M{"bsonType": "int", "minimum": 0},
				"next_entry_number": bson.M{"bsonType": "int", "minimum": 1},
				"detached":          bson.M{"bsonType": "bool"},
			},
		},
	}
}

func entriesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"log_id", "creator_id", "type", "number"},
			"properties": bson.M{
				"log_id":     bson.M{"bsonType": "objectId"},
				"creator_id": bson.M{"bsonType": "objectId"},
				"type":       bson.M{"enum": bson.A{"post", "validation"}},
				"number":     bson.M{"bsonType": "int", "minimum": 1},
				"verdict":    bson.M{"enum": bson.A{"endorse", "reject"}},
			},
		},
	}
}
