package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/badgehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates an active test user with the given name and email.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateGroup creates a test group with default tag assignability (admins).
func (f *Fixtures) CreateGroup(ctx context.Context, name string) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	group := models.Group{
		ID:               primitive.NewObjectID(),
		Name:             name,
		NameCI:           text.Fold(name),
		Description:      "Test group description",
		TagAssignability: models.TagAssignabilityAdmins,
		Status:           "active",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, group); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return group
}

// CreateGroupMembership links a user to a group with the given role.
func (f *Fixtures) CreateGroupMembership(ctx context.Context, groupID, userID primitive.ObjectID, role string) models.GroupMembership {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.GroupMembership{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test group membership: %v", err)
	}
	return m
}

// CreateApp creates a test app owned by ownerID. The owner is seeded into
// the active and admin id-lists, matching what provisioning produces.
func (f *Fixtures) CreateApp(ctx context.Context, name string, ownerID primitive.ObjectID, userJoinability string) models.App {
	f.t.Helper()

	now := time.Now().UTC()
	app := models.App{
		ID:               primitive.NewObjectID(),
		Name:             name,
		NameCI:           text.Fold(name),
		Description:      "Test app description",
		OwnerID:          ownerID,
		UserJoinability:  userJoinability,
		GroupJoinability: userJoinability,
		ActiveUserIDs:    []primitive.ObjectID{ownerID},
		AdminUserIDs:     []primitive.ObjectID{ownerID},
		Status:           "active",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := f.db.Collection("apps").InsertOne(ctx, app); err != nil {
		f.t.Fatalf("failed to create test app: %v", err)
	}
	return app
}

// CreateBadge creates a test badge in the given group.
func (f *Fixtures) CreateBadge(ctx context.Context, name string, groupID, creatorID primitive.ObjectID, threshold int) models.Badge {
	f.t.Helper()

	now := time.Now().UTC()
	badge := models.Badge{
		ID:                primitive.NewObjectID(),
		GroupID:           groupID,
		CreatorID:         creatorID,
		Name:              name,
		NameCI:            text.Fold(name),
		Summary:           "Test badge summary",
		Requirements:      "Test badge requirements",
		Visibility:        models.BadgeVisibilityPublic,
		Awardability:      models.BadgeAwardabilityExperts,
		RequiredThreshold: threshold,
		Status:            "active",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := f.db.Collection("badges").InsertOne(ctx, badge); err != nil {
		f.t.Fatalf("failed to create test badge: %v", err)
	}
	return badge
}

// CreateLog creates a log for the given badge and user in the given
// validation state. Issue status starts unissued; counters start at zero
// with entry numbering at one.
func (f *Fixtures) CreateLog(ctx context.Context, badge models.Badge, userID primitive.ObjectID, validationStatus string) models.Log {
	f.t.Helper()

	now := time.Now().UTC()
	l := models.Log{
		ID:               primitive.NewObjectID(),
		BadgeID:          badge.ID,
		GroupID:          badge.GroupID,
		UserID:           userID,
		ValidationStatus: validationStatus,
		IssueStatus:      models.IssueUnissued,
		NextEntryNumber:  1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if validationStatus == models.ValidationValidated {
		l.DateValidated = &now
	}
	if _, err := f.db.Collection("logs").InsertOne(ctx, l); err != nil {
		f.t.Fatalf("failed to create test log: %v", err)
	}
	return l
}

// CreateEntry creates a log entry of the given type.
func (f *Fixtures) CreateEntry(ctx context.Context, logID, creatorID primitive.ObjectID, entryType string, number int) models.Entry {
	f.t.Helper()

	now := time.Now().UTC()
	e := models.Entry{
		ID:        primitive.NewObjectID(),
		LogID:     logID,
		CreatorID: creatorID,
		Type:      entryType,
		Number:    number,
		Body:      "Test entry body",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if entryType == models.EntryTypeValidation {
		e.Verdict = models.VerdictEndorse
	}
	if _, err := f.db.Collection("entries").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test entry: %v", err)
	}
	return e
}
