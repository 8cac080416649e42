package policy

import (
	"testing"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := NewConfig(
		PermissionSet{Name: "public:read", AvailableTo: AllContexts, Mandatory: true},
		PermissionSet{Name: "groups:read", AvailableTo: []string{ContextWebUser, ContextAPIUser}},
		PermissionSet{Name: "groups:write", AvailableTo: []string{ContextWebUser, ContextAPIUser, ContextAPIGroup}},
	)
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}
	return cfg
}

func TestResolve_SessionUserGetsAllEligibleSets(t *testing.T) {
	cfg := testConfig(t)

	// nil token sets means no token restriction.
	g := cfg.Resolve(ContextWebUser, nil)

	if !g.Has("public:read", "groups:read", "groups:write") {
		t.Errorf("web session user should hold all eligible sets, got %v", g.Sets())
	}
}

func TestResolve_TokenIntersection(t *testing.T) {
	cfg := testConfig(t)

	g := cfg.Resolve(ContextAPIUser, []string{"groups:read"})

	if !g.Has("groups:read") {
		t.Error("token-declared eligible set should be granted")
	}
	if g.Has("groups:write") {
		t.Error("set not declared by the token should not be granted")
	}
	if !g.Has("public:read") {
		t.Error("mandatory set should be granted regardless of token contents")
	}
}

func TestResolve_ContextTableDominatesToken(t *testing.T) {
	cfg := testConfig(t)

	// The context availability table caps what any token can grant.
	g := cfg.Resolve(ContextAPIGroup, []string{"groups:read", "groups:write"})

	if g.Has("groups:read") {
		t.Error("groups:read is not available to api_group and must not be granted")
	}
	if !g.Has("groups:write") {
		t.Error("groups:write is available to api_group and was declared")
	}
}

func TestResolve_APIVisitorExcludedSet(t *testing.T) {
	cfg := testConfig(t)

	// Anonymous API callers present no token; a set whose available_to
	// excludes api_visitor must be absent no matter what.
	g := cfg.Resolve(ContextAPIVisitor, nil)

	if g.Has("groups:read") {
		t.Error("groups:read excludes api_visitor and must not be granted")
	}
	if !g.Has("public:read") {
		t.Error("mandatory public:read should be granted to api_visitor")
	}
}

func TestResolve_UnknownTokenSetIgnored(t *testing.T) {
	cfg := testConfig(t)

	g := cfg.Resolve(ContextAPIUser, []string{"no:such:set", "groups:read"})

	if !g.Has("groups:read") {
		t.Error("known declared set should still be granted")
	}
	got := g.Sets()
	for _, n := range got {
		if n == "no:such:set" {
			t.Error("unregistered token set must never be granted")
		}
	}
}

func TestGrantHas_ANDSemantics(t *testing.T) {
	cfg := testConfig(t)
	g := cfg.Resolve(ContextAPIUser, []string{"groups:read"})

	if g.Has("groups:read", "groups:write") {
		t.Error("Has must require every listed set")
	}
	if !g.Has("groups:read", "public:read") {
		t.Error("Has should pass when all listed sets are granted")
	}
}

func TestGrantHas_UnregisteredNamePanics(t *testing.T) {
	cfg := testConfig(t)
	g := cfg.Resolve(ContextWebUser, nil)

	defer func() {
		if recover() == nil {
			t.Error("Has with an unregistered set name should panic")
		}
	}()
	g.Has("typo:set")
}

func TestNewConfig_RejectsDuplicates(t *testing.T) {
	_, err := NewConfig(
		PermissionSet{Name: "a", AvailableTo: AllContexts},
		PermissionSet{Name: "a", AvailableTo: AllContexts},
	)
	if err == nil {
		t.Error("duplicate set names should be rejected")
	}
}

func TestNewConfig_RejectsUnknownContext(t *testing.T) {
	_, err := NewConfig(
		PermissionSet{Name: "a", AvailableTo: []string{"carrier_pigeon"}},
	)
	if err == nil {
		t.Error("unknown access context should be rejected")
	}
}

func TestDefaultConfig_Resolves(t *testing.T) {
	cfg := DefaultConfig()

	g := cfg.Resolve(ContextWebVisitor, nil)
	if !g.Has(SetPublicRead) {
		t.Error("web visitor should hold public:read")
	}
	if g.Has(SetGroupsWrite) {
		t.Error("web visitor must not hold groups:write")
	}
}

func TestResolve_EmptyTokenListGrantsOnlyMandatory(t *testing.T) {
	cfg := testConfig(t)

	// A token that declares no sets is restricted to the mandatory ones.
	// Only the nil "no token" list resolves to everything eligible.
	g := cfg.Resolve(ContextAPIUser, []string{})

	if !g.Has("public:read") {
		t.Error("mandatory set should be granted to a token with no declared sets")
	}
	if g.Has("groups:read") {
		t.Errorf("token with no declared sets must not gain optional sets, got %v", g.Sets())
	}
	if g.Has("groups:write") {
		t.Errorf("token with no declared sets must not gain optional sets, got %v", g.Sets())
	}
}
