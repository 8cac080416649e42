package groups_test

import (
	"testing"

	"github.com/dalemusser/badgehub/internal/app/store/groups"
	"github.com/dalemusser/badgehub/internal/app/system/indexes"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"github.com/dalemusser/badgehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAddMember_StampsMembership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := groups.New(db)

	g, err := s.Create(ctx, "Robotics", "", models.TagAssignabilityAdmins)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	userID := primitive.NewObjectID()
	if err := s.AddMember(ctx, g.ID, userID, models.GroupRoleMember); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	members, err := s.Members(ctx, g.ID)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("got %d members, want 1", len(members))
	}
	m := members[0]
	if m.Role != models.GroupRoleMember {
		t.Errorf("role = %q, want %q", m.Role, models.GroupRoleMember)
	}
	if m.CreatedAt.IsZero() || m.UpdatedAt.IsZero() {
		t.Errorf("timestamps not stamped: created_at=%v updated_at=%v", m.CreatedAt, m.UpdatedAt)
	}
}

func TestAddMember_DuplicateRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	s := groups.New(db)

	g, err := s.Create(ctx, "Robotics", "", models.TagAssignabilityAdmins)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	userID := primitive.NewObjectID()
	if err := s.AddMember(ctx, g.ID, userID, models.GroupRoleMember); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := s.AddMember(ctx, g.ID, userID, models.GroupRoleAdmin); err != groups.ErrDuplicateMembership {
		t.Errorf("second AddMember err = %v, want ErrDuplicateMembership", err)
	}
}
