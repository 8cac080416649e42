// internal/app/provision/provision_test.go
package provision_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/badgehub/internal/app/membership"
	"github.com/dalemusser/badgehub/internal/app/provision"
	"github.com/dalemusser/badgehub/internal/app/store/apps"
	"github.com/dalemusser/badgehub/internal/app/store/groups"
	"github.com/dalemusser/badgehub/internal/app/store/users"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"github.com/dalemusser/badgehub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newService(db *mongo.Database) *provision.Service {
	logger := zap.NewNop()
	return provision.New(
		users.New(db),
		groups.New(db),
		apps.New(db),
		membership.NewAppUsers(db, logger),
		membership.NewAppGroups(db, logger),
		logger,
	)
}

func TestEnsurePlatformApp_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	svc := newService(db)

	first, err := svc.EnsurePlatformApp(ctx)
	if err != nil {
		t.Fatalf("EnsurePlatformApp: %v", err)
	}
	second, err := svc.EnsurePlatformApp(ctx)
	if err != nil {
		t.Fatalf("EnsurePlatformApp (second): %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("platform app recreated: %s then %s", first.ID.Hex(), second.ID.Hex())
	}
	if first.UserJoinability != models.JoinabilityOpen || first.GroupJoinability != models.JoinabilityOpen {
		t.Errorf("platform app joinability = %s/%s, want open/open",
			first.UserJoinability, first.GroupJoinability)
	}
}

func TestCreateUser_LinksToPlatformApp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	svc := newService(db)

	user, err := svc.CreateUser(ctx, "Ada Lovelace", "ada@example.com")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	platform, err := apps.New(db).GetByNameCI(ctx, models.PlatformAppName)
	if err != nil || platform == nil {
		t.Fatalf("platform app lookup: app=%v err=%v", platform, err)
	}
	if !platform.HasActiveUser(user.ID) {
		t.Errorf("user %s not active on platform app", user.ID.Hex())
	}
	if platform.HasAdminUser(user.ID) {
		t.Errorf("user %s should be a plain member, not admin", user.ID.Hex())
	}
}

func TestCreateGroup_FoundingAdminAndPlatformLink(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	svc := newService(db)

	founder, err := svc.CreateUser(ctx, "Grace Hopper", "grace@example.com")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	group, err := svc.CreateGroup(ctx, "Compilers Guild", "", models.TagAssignabilityAdmins, founder.ID)
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	members, err := groups.New(db).Members(ctx, group.ID)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 1 || members[0].UserID != founder.ID || members[0].Role != models.GroupRoleAdmin {
		t.Errorf("members = %+v, want founder as admin", members)
	}

	platform, err := apps.New(db).GetByNameCI(ctx, models.PlatformAppName)
	if err != nil || platform == nil {
		t.Fatalf("platform app lookup: app=%v err=%v", platform, err)
	}
	if !platform.HasActiveGroup(group.ID) {
		t.Errorf("group %s not active on platform app", group.ID.Hex())
	}
}

func TestCreateApp_OwnerIsActiveAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	svc := newService(db)

	owner, err := svc.CreateUser(ctx, "Owner", "owner@example.com")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	// closed joinability: self-joins would normally stall pending
	// app approval, but the owner must come out active regardless.
	app, err := svc.CreateApp(ctx, "Tracker", "", owner.ID, models.JoinabilityClosed, models.JoinabilityClosed)
	if err != nil {
		t.Fatalf("CreateApp: %v", err)
	}

	stored, err := apps.New(db).GetByID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.HasActiveUser(owner.ID) {
		t.Errorf("owner not in active user list")
	}
	if !stored.HasAdminUser(owner.ID) {
		t.Errorf("owner not in admin user list")
	}
}

func TestCreateUser_RejectsInvalidInput(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	svc := newService(db)

	if _, err := svc.CreateUser(ctx, "", "ada@example.com"); !errors.Is(err, provision.ErrInvalidInput) {
		t.Errorf("empty name: err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.CreateUser(ctx, "Ada Lovelace", "not-an-email"); !errors.Is(err, provision.ErrInvalidInput) {
		t.Errorf("bad email: err = %v, want ErrInvalidInput", err)
	}
	if _, err := users.New(db).GetByEmail(ctx, "ada@example.com"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("rejected user was stored: err = %v", err)
	}
}
