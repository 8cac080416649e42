// internal/app/policy/permissions.go
package policy

import (
	"fmt"
	"sort"
)

// Access-context classifications. Derived by the auth layer from the
// session/token shape of the request before any policy code runs.
const (
	ContextWebUser    = "web_user"    // session-authenticated individual
	ContextWebVisitor = "web_visitor" // anonymous browser
	ContextAPIUser    = "api_user"    // API token acting as an individual
	ContextAPIGroup   = "api_group"   // API token acting as a group
	ContextAPIApp     = "api_app"     // API token acting as an app
	ContextAPIVisitor = "api_visitor" // anonymous API caller
)

// AllContexts lists every access-context classification.
var AllContexts = []string{
	ContextWebUser,
	ContextWebVisitor,
	ContextAPIUser,
	ContextAPIGroup,
	ContextAPIApp,
	ContextAPIVisitor,
}

// PermissionSet is a coarse API-surface capability. AvailableTo is the fixed
// table of access contexts the set can ever be granted in; Mandatory sets
// are granted in every eligible context regardless of token contents.
type PermissionSet struct {
	Name        string
	AvailableTo []string
	Mandatory   bool
}

// Config is the registry of permission sets for this process. It is built
// once at startup and injected wherever permissions are resolved, never
// accessed as ambient global state, so tests can substitute a smaller one.
type Config struct {
	sets map[string]PermissionSet
}

// NewConfig builds a Config from the given sets. Duplicate names and sets
// naming unknown access contexts are rejected.
func NewConfig(sets ...PermissionSet) (*Config, error) {
	m := make(map[string]PermissionSet, len(sets))
	for _, s := range sets {
		if s.Name == "" {
			return nil, fmt.Errorf("permission set with empty name")
		}
		if _, dup := m[s.Name]; dup {
			return nil, fmt.Errorf("duplicate permission set %q", s.Name)
		}
		for _, c := range s.AvailableTo {
			if !validContext(c) {
				return nil, fmt.Errorf("permission set %q: unknown access context %q", s.Name, c)
			}
		}
		m[s.Name] = s
	}
	return &Config{sets: m}, nil
}

// MustConfig is NewConfig that panics on error. Registry mistakes are
// programming errors; fail fast at startup.
func MustConfig(sets ...PermissionSet) *Config {
	c, err := NewConfig(sets...)
	if err != nil {
		panic(err)
	}
	return c
}

// Registered reports whether name is a known permission set.
func (c *Config) Registered(name string) bool {
	_, ok := c.sets[name]
	return ok
}

// Resolve computes the permission sets usable for a request.
//
// tokenSets is the token's declared set list, or nil for requests with no
// token restriction (session-authenticated web users), which grants every
// set eligible in the context. The result never expands beyond the sets
// whose AvailableTo includes accessContext, regardless of token contents;
// mandatory sets are included without needing to appear in the token.
// Unregistered names in tokenSets are skipped; token lists are external
// input, validated at token-creation time, and a stale name must not grant
// anything.
func (c *Config) Resolve(accessContext string, tokenSets []string) Grant {
	if !validContext(accessContext) {
		panic(fmt.Sprintf("policy: unknown access context %q", accessContext))
	}

	granted := make(map[string]struct{})
	declared := map[string]struct{}{}
	for _, n := range tokenSets {
		declared[n] = struct{}{}
	}

	for name, s := range c.sets {
		if !contains(s.AvailableTo, accessContext) {
			continue
		}
		if s.Mandatory || tokenSets == nil {
			granted[name] = struct{}{}
			continue
		}
		if _, ok := declared[name]; ok {
			granted[name] = struct{}{}
		}
	}
	return Grant{cfg: c, names: granted}
}

// Grant is the resolved permission-set membership for one request.
type Grant struct {
	cfg   *Config
	names map[string]struct{}
}

// Has reports whether ALL the named sets were granted. Naming a set that is
// not registered in the Config is a programming error and panics; a typo
// must never silently deny (or grant) anything.
func (g Grant) Has(names ...string) bool {
	for _, n := range names {
		if g.cfg == nil || !g.cfg.Registered(n) {
			panic(fmt.Sprintf("policy: permission set %q is not registered", n))
		}
		if _, ok := g.names[n]; !ok {
			return false
		}
	}
	return true
}

// Sets returns the granted set names, sorted.
func (g Grant) Sets() []string {
	out := make([]string, 0, len(g.names))
	for n := range g.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Canonical permission set names used by the shipped policy tables.
const (
	SetPublicRead  = "public:read"
	SetUsersRead   = "users:read"
	SetUsersWrite  = "users:write"
	SetGroupsRead  = "groups:read"
	SetGroupsWrite = "groups:write"
	SetBadgesRead  = "badges:read"
	SetBadgesWrite = "badges:write"
	SetLogsRead    = "logs:read"
	SetLogsWrite   = "logs:write"
	SetAppsManage  = "apps:manage"
)

// DefaultConfig returns the production permission-set registry.
//
// public:read is mandatory everywhere; write sets are never available to
// visitor contexts; apps:manage is reserved for individual and app-token
// callers.
func DefaultConfig() *Config {
	authenticated := []string{ContextWebUser, ContextAPIUser, ContextAPIGroup, ContextAPIApp}
	return MustConfig(
		PermissionSet{Name: SetPublicRead, AvailableTo: AllContexts, Mandatory: true},
		PermissionSet{Name: SetUsersRead, AvailableTo: authenticated},
		PermissionSet{Name: SetUsersWrite, AvailableTo: []string{ContextWebUser, ContextAPIUser}},
		PermissionSet{Name: SetGroupsRead, AvailableTo: authenticated},
		PermissionSet{Name: SetGroupsWrite, AvailableTo: []string{ContextWebUser, ContextAPIUser, ContextAPIGroup}},
		PermissionSet{Name: SetBadgesRead, AvailableTo: authenticated},
		PermissionSet{Name: SetBadgesWrite, AvailableTo: []string{ContextWebUser, ContextAPIUser, ContextAPIGroup}},
		PermissionSet{Name: SetLogsRead, AvailableTo: authenticated},
		PermissionSet{Name: SetLogsWrite, AvailableTo: []string{ContextWebUser, ContextAPIUser}},
		PermissionSet{Name: SetAppsManage, AvailableTo: []string{ContextWebUser, ContextAPIUser, ContextAPIApp}},
	)
}

func validContext(c string) bool {
	return contains(AllContexts, c)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
