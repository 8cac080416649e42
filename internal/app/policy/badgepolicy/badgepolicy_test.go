package badgepolicy_test

import (
	"testing"

	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/policy/badgepolicy"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func publicBadge() *models.Badge {
	return &models.Badge{
		ID:                primitive.NewObjectID(),
		GroupID:           primitive.NewObjectID(),
		CreatorID:         primitive.NewObjectID(),
		Name:              "Orienteering",
		Visibility:        models.BadgeVisibilityPublic,
		Awardability:      models.BadgeAwardabilityExperts,
		RequiredThreshold: 2,
	}
}

func TestAnonymousVisitor_PublicBadge(t *testing.T) {
	b := publicBadge()
	cfg := policy.DefaultConfig()
	grant := cfg.Resolve(policy.ContextWebVisitor, nil)

	if !badgepolicy.CanShow(nil, b, grant) {
		t.Error("anonymous visitor should be able to view a public badge")
	}
	if !badgepolicy.ShowAllFields(nil, b) {
		t.Error("anonymous visitor should see all fields of a public badge")
	}
	if badgepolicy.CanUpdate(nil, b, grant) {
		t.Error("anonymous visitor must never edit a badge")
	}
}

func TestMembersOnlyBadge(t *testing.T) {
	b := publicBadge()
	b.Visibility = models.BadgeVisibilityMembers
	cfg := policy.DefaultConfig()
	grant := cfg.Resolve(policy.ContextWebUser, nil)

	member := &policy.Actor{
		Kind:           policy.ActorIndividual,
		UserID:         primitive.NewObjectID(),
		MemberGroupIDs: []primitive.ObjectID{b.GroupID},
	}
	stranger := &policy.Actor{Kind: policy.ActorIndividual, UserID: primitive.NewObjectID()}

	if !badgepolicy.CanShow(member, b, grant) {
		t.Error("group member should view a members-only badge")
	}
	if badgepolicy.CanShow(stranger, b, grant) {
		t.Error("non-member should not view a members-only badge")
	}
	if badgepolicy.CanShow(nil, b, grant) {
		t.Error("anonymous visitor should not view a members-only badge")
	}
}

func TestCreatorEditsContentButNotSettings(t *testing.T) {
	b := publicBadge()
	cfg := policy.DefaultConfig()
	grant := cfg.Resolve(policy.ContextWebUser, nil)

	creator := &policy.Actor{Kind: policy.ActorIndividual, UserID: b.CreatorID}

	if !badgepolicy.CanUpdate(creator, b, grant) {
		t.Error("badge creator should be able to update the badge")
	}
	if err := badgepolicy.Badges.CheckWrite(creator, b, []string{"name", "summary"}); err != nil {
		t.Errorf("creator should edit content fields: %v", err)
	}
	if err := badgepolicy.Badges.CheckWrite(creator, b, []string{"required_threshold"}); err == nil {
		t.Error("creator (non-admin) must not edit the threshold setting")
	}
}

func TestGroupAdminEditsSettings(t *testing.T) {
	b := publicBadge()
	cfg := policy.DefaultConfig()
	grant := cfg.Resolve(policy.ContextWebUser, nil)

	admin := &policy.Actor{
		Kind:          policy.ActorIndividual,
		UserID:        primitive.NewObjectID(),
		AdminGroupIDs: []primitive.ObjectID{b.GroupID},
	}

	if !badgepolicy.CanDestroy(admin, b, grant) {
		t.Error("group admin should be able to destroy the badge")
	}
	if err := badgepolicy.Badges.CheckWrite(admin, b, []string{"visibility", "awardability", "required_threshold"}); err != nil {
		t.Errorf("group admin should edit settings: %v", err)
	}
	if err := badgepolicy.Badges.CheckWrite(admin, b, []string{"group_id"}); err == nil {
		t.Error("group_id is never editable")
	}
}

func TestVisitorGrantBlocksWrites(t *testing.T) {
	b := publicBadge()
	cfg := policy.DefaultConfig()
	grant := cfg.Resolve(policy.ContextAPIVisitor, nil)

	admin := &policy.Actor{
		Kind:          policy.ActorIndividual,
		UserID:        primitive.NewObjectID(),
		AdminGroupIDs: []primitive.ObjectID{b.GroupID},
	}

	// Even a group admin is denied when the request context lacks the
	// badges:write permission set.
	if badgepolicy.CanUpdate(admin, b, grant) {
		t.Error("update must be denied without the badges:write set")
	}
}
