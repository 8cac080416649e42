// internal/app/membership/lists_test.go
package membership

import (
	"testing"

	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserListTargets(t *testing.T) {
	cases := []struct {
		status string
		mtype  string
		want   []string
	}{
		{models.MembershipActive, models.AppMembershipMember, []string{listActiveUsers, listMemberUsers}},
		{models.MembershipActive, models.AppMembershipAdmin, []string{listActiveUsers, listAdminUsers}},
		{models.MembershipPending, models.AppMembershipMember, []string{listPendingUsers}},
		{models.MembershipPending, models.AppMembershipAdmin, []string{listPendingUsers}},
		{models.MembershipDisabled, models.AppMembershipMember, []string{listDisabledUsers}},
		{models.MembershipDisabled, models.AppMembershipAdmin, []string{listDisabledUsers}},
	}
	for _, tc := range cases {
		got := userListTargets(tc.status, tc.mtype)
		if len(got) != len(tc.want) {
			t.Fatalf("userListTargets(%q, %q) = %v, want %v", tc.status, tc.mtype, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("userListTargets(%q, %q) = %v, want %v", tc.status, tc.mtype, got, tc.want)
			}
		}
	}
}

func TestGroupListTargets(t *testing.T) {
	cases := map[string]string{
		models.MembershipActive:   listActiveGroups,
		models.MembershipPending:  listPendingGroups,
		models.MembershipDisabled: listDisabledGroups,
	}
	for status, want := range cases {
		got := groupListTargets(status)
		if len(got) != 1 || got[0] != want {
			t.Errorf("groupListTargets(%q) = %v, want [%s]", status, got, want)
		}
	}
}

// A user moving through pending, active-admin, active-member, disabled must
// land in exactly one of active/pending/disabled at each step, and in an
// admin/member list only while active.
func TestApplyToLists_PartitionInvariant(t *testing.T) {
	userID := primitive.NewObjectID()
	other := primitive.NewObjectID()
	app := &models.App{
		ID:            primitive.NewObjectID(),
		ActiveUserIDs: []primitive.ObjectID{other},
		MemberUserIDs: []primitive.ObjectID{other},
	}

	steps := []struct {
		status string
		mtype  string
	}{
		{models.MembershipPending, models.AppMembershipMember},
		{models.MembershipActive, models.AppMembershipAdmin},
		{models.MembershipActive, models.AppMembershipMember},
		{models.MembershipDisabled, models.AppMembershipMember},
		{models.MembershipActive, models.AppMembershipAdmin},
	}

	for _, step := range steps {
		applyToLists(app, userID, userListTargets(step.status, step.mtype), true)

		partition := 0
		for _, list := range [][]primitive.ObjectID{app.ActiveUserIDs, app.PendingUserIDs, app.DisabledUserIDs} {
			if containsID(list, userID) {
				partition++
			}
		}
		if partition != 1 {
			t.Fatalf("after (%s, %s): user in %d of active/pending/disabled, want exactly 1",
				step.status, step.mtype, partition)
		}

		inAdmin := containsID(app.AdminUserIDs, userID)
		inMember := containsID(app.MemberUserIDs, userID)
		if step.status == models.MembershipActive {
			wantAdmin := step.mtype == models.AppMembershipAdmin
			if inAdmin != wantAdmin || inMember == wantAdmin {
				t.Fatalf("after (%s, %s): admin=%v member=%v", step.status, step.mtype, inAdmin, inMember)
			}
		} else if inAdmin || inMember {
			t.Fatalf("after (%s, %s): non-active user still in admin/member lists", step.status, step.mtype)
		}

		// The bystander's entries are never disturbed.
		if !containsID(app.ActiveUserIDs, other) || !containsID(app.MemberUserIDs, other) {
			t.Fatalf("after (%s, %s): unrelated user lost list entries", step.status, step.mtype)
		}
	}
}

// Removal (nil targets) clears the subject from every list.
func TestApplyToLists_Removal(t *testing.T) {
	userID := primitive.NewObjectID()
	app := &models.App{
		ID:            primitive.NewObjectID(),
		ActiveUserIDs: []primitive.ObjectID{userID},
		AdminUserIDs:  []primitive.ObjectID{userID},
	}
	applyToLists(app, userID, nil, true)
	for _, name := range allUserLists {
		if containsID(*appList(app, name), userID) {
			t.Errorf("user still present in %s after removal", name)
		}
	}
}

// Re-applying the same targets must not duplicate the id.
func TestApplyToLists_Idempotent(t *testing.T) {
	groupID := primitive.NewObjectID()
	app := &models.App{ID: primitive.NewObjectID()}
	targets := groupListTargets(models.MembershipActive)
	applyToLists(app, groupID, targets, false)
	applyToLists(app, groupID, targets, false)
	if n := len(app.ActiveGroupIDs); n != 1 {
		t.Fatalf("active group list has %d entries, want 1", n)
	}
}
