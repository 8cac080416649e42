package grouppolicy_test

import (
	"testing"

	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAssignGroupTags_MembersSetting(t *testing.T) {
	g := &models.Group{
		ID:               primitive.NewObjectID(),
		Name:             "Trailblazers",
		TagAssignability: models.TagAssignabilityMembers,
	}
	cfg := policy.DefaultConfig()
	grant := cfg.Resolve(policy.ContextWebUser, nil)

	member := &policy.Actor{
		Kind:           policy.ActorIndividual,
		UserID:         primitive.NewObjectID(),
		MemberGroupIDs: []primitive.ObjectID{g.ID},
	}
	outsider := &policy.Actor{Kind: policy.ActorIndividual, UserID: primitive.NewObjectID()}

	if !grouppolicy.CanAssignGroupTags(member, g, grant) {
		t.Error("plain member should assign tags when tag_assignability is members")
	}
	if grouppolicy.CanAssignGroupTags(outsider, g, grant) {
		t.Error("non-member must not assign tags")
	}
}

func TestAssignGroupTags_AdminsSetting(t *testing.T) {
	g := &models.Group{
		ID:               primitive.NewObjectID(),
		TagAssignability: models.TagAssignabilityAdmins,
	}
	cfg := policy.DefaultConfig()
	grant := cfg.Resolve(policy.ContextWebUser, nil)

	member := &policy.Actor{
		Kind:           policy.ActorIndividual,
		UserID:         primitive.NewObjectID(),
		MemberGroupIDs: []primitive.ObjectID{g.ID},
	}
	admin := &policy.Actor{
		Kind:          policy.ActorIndividual,
		UserID:        primitive.NewObjectID(),
		AdminGroupIDs: []primitive.ObjectID{g.ID},
	}

	if grouppolicy.CanAssignGroupTags(member, g, grant) {
		t.Error("plain member must not assign tags when restricted to admins")
	}
	if !grouppolicy.CanAssignGroupTags(admin, g, grant) {
		t.Error("group admin should assign tags")
	}
}

func TestCanManageGroup(t *testing.T) {
	g := &models.Group{ID: primitive.NewObjectID()}
	cfg := policy.DefaultConfig()
	grant := cfg.Resolve(policy.ContextWebUser, nil)

	admin := &policy.Actor{
		Kind:          policy.ActorIndividual,
		UserID:        primitive.NewObjectID(),
		AdminGroupIDs: []primitive.ObjectID{g.ID},
	}
	member := &policy.Actor{
		Kind:           policy.ActorIndividual,
		UserID:         primitive.NewObjectID(),
		MemberGroupIDs: []primitive.ObjectID{g.ID},
	}

	if !grouppolicy.CanManageGroup(admin, g, grant) {
		t.Error("admin should manage the group")
	}
	if grouppolicy.CanManageGroup(member, g, grant) {
		t.Error("plain member must not manage the group")
	}
	if grouppolicy.CanManageGroup(nil, g, grant) {
		t.Error("anonymous actor must not manage the group")
	}
}

func TestGroupProxyActorAdministersItsGroup(t *testing.T) {
	g := &models.Group{ID: primitive.NewObjectID()}
	cfg := policy.DefaultConfig()
	grant := cfg.Resolve(policy.ContextAPIGroup, []string{policy.SetGroupsWrite})

	proxy := &policy.Actor{Kind: policy.ActorGroupProxy, GroupID: g.ID}
	otherProxy := &policy.Actor{Kind: policy.ActorGroupProxy, GroupID: primitive.NewObjectID()}

	if !grouppolicy.CanManageGroup(proxy, g, grant) {
		t.Error("group token should manage its own group")
	}
	if grouppolicy.CanManageGroup(otherProxy, g, grant) {
		t.Error("group token must not manage another group")
	}
}
