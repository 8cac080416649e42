// internal/app/policy/roles.go
package policy

import (
	"fmt"
	"sort"
)

// Role names a per-record boolean predicate over (actor, record). Roles are
// declared once per model in a Table and evaluated on demand; they are never
// persisted.
type Role string

// Sentinel roles. Everyone holds for every actor including anonymous ones;
// Nobody never holds and is the editable_by sentinel for fields that no
// authorized mutation may touch.
const (
	Everyone Role = "everyone"
	Nobody   Role = "nobody"
)

// Predicate is a role check for records of type T. Predicates must be pure,
// side-effect free, and tolerate a nil actor without panicking.
type Predicate[T any] func(actor *Actor, rec T) bool

// ActionRule authorizes one named action: the permission gate must pass for
// ALL RequiredSets, then at least one role in AnyOf must hold.
type ActionRule struct {
	RequiredSets []string
	AnyOf        []Role
}

// Table is the static policy declaration for one model: its roles, its
// action rules, and its field-level visibility/editability/history rows.
// Tables are built at package init and validated with MustValidate, so any
// reference to an undeclared role fails at startup, not at request time.
type Table[T any] struct {
	Model   string
	Roles   map[Role]Predicate[T]
	Actions map[string]ActionRule
	Fields  map[string]FieldRule
}

// MustValidate panics unless every role referenced by Actions and Fields is
// declared in Roles or is a sentinel. Call it from the owning package's
// init.
func (t *Table[T]) MustValidate() {
	check := func(where string, roles []Role) {
		for _, r := range roles {
			if r == Everyone || r == Nobody {
				continue
			}
			if _, ok := t.Roles[r]; !ok {
				panic(fmt.Sprintf("policy(%s): %s references undeclared role %q", t.Model, where, r))
			}
		}
	}
	for name, rule := range t.Actions {
		if len(rule.AnyOf) == 0 {
			panic(fmt.Sprintf("policy(%s): action %q allows no roles", t.Model, name))
		}
		check("action "+name, rule.AnyOf)
	}
	for name, f := range t.Fields {
		if len(f.VisibleTo) == 0 {
			panic(fmt.Sprintf("policy(%s): field %q visible to no roles", t.Model, name))
		}
		check("field "+name, f.VisibleTo)
		check("field "+name, f.EditableBy)
	}
}

// RoleSet is the subset of a table's roles that hold for one (actor, record)
// pair. Everyone is always present.
type RoleSet map[Role]bool

// Has reports whether the set contains r.
func (s RoleSet) Has(r Role) bool {
	if r == Everyone {
		return true
	}
	if r == Nobody {
		return false
	}
	return s[r]
}

// HasAny reports whether any of the given roles is in the set.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Names returns the held role names sorted, including "everyone".
func (s RoleSet) Names() []string {
	out := []string{string(Everyone)}
	for r, held := range s {
		if held {
			out = append(out, string(r))
		}
	}
	sort.Strings(out)
	return out
}

// EvaluateRoles runs every declared predicate for (actor, rec) and returns
// the subset that hold. Evaluation is deterministic: same state in, same
// set out.
func (t *Table[T]) EvaluateRoles(actor *Actor, rec T) RoleSet {
	held := make(RoleSet, len(t.Roles))
	for r, pred := range t.Roles {
		if pred(actor, rec) {
			held[r] = true
		}
	}
	return held
}

// Authorize decides a named action: permission gate first (AND over the
// rule's required sets), then any-of over the rule's roles. An action name
// missing from the table is a programming error and panics; a false result
// is ordinary denial for the caller to render as 403 or 404.
func (t *Table[T]) Authorize(action string, actor *Actor, rec T, grant Grant) bool {
	rule, ok := t.Actions[action]
	if !ok {
		panic(fmt.Sprintf("policy(%s): unknown action %q", t.Model, action))
	}
	if len(rule.RequiredSets) > 0 && !grant.Has(rule.RequiredSets...) {
		return false
	}
	return t.EvaluateRoles(actor, rec).HasAny(rule.AnyOf...)
}
