// internal/app/policy/fields.go
package policy

import (
	"fmt"
	"sort"
	"strings"
)

// Field history policies, consumed by the fieldhistory diff-and-record
// routine at the persistence boundary.
const (
	HistoryNone      = "none"
	HistoryTimestamp = "timestamp"   // record that the field changed, and when
	HistoryOldAndNew = "old_and_new" // record the old and new values too
)

// FieldRule declares one field's visibility, editability, and history
// policy. VisibleTo/EditableBy are any-of role lists; use Everyone for
// world-visible fields and Nobody for fields no authorized mutation may
// write.
type FieldRule struct {
	VisibleTo  []Role
	EditableBy []Role
	History    string
}

// FieldErrors reports a rejected write: every submitted field the actor may
// not edit, with a reason. The whole write is rejected; permitted fields
// are not partially applied.
type FieldErrors struct {
	Fields map[string]string
}

func (e *FieldErrors) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return fmt.Sprintf("fields not editable: %s", strings.Join(names, ", "))
}

// VisibleFields returns the sorted names of fields the actor may see on rec:
// those whose VisibleTo intersects the actor's held roles.
func (t *Table[T]) VisibleFields(actor *Actor, rec T) []string {
	held := t.EvaluateRoles(actor, rec)
	out := make([]string, 0, len(t.Fields))
	for name, f := range t.Fields {
		if held.HasAny(f.VisibleTo...) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// FilterVisible returns the subset of payload whose keys the actor may see.
// Keys with no declared field rule are dropped.
func (t *Table[T]) FilterVisible(actor *Actor, rec T, payload map[string]any) map[string]any {
	held := t.EvaluateRoles(actor, rec)
	out := make(map[string]any, len(payload))
	for name, v := range payload {
		f, ok := t.Fields[name]
		if !ok {
			continue
		}
		if held.HasAny(f.VisibleTo...) {
			out[name] = v
		}
	}
	return out
}

// CheckWrite validates a submitted field set against the table. It returns
// nil when every field is editable by some held role, or a *FieldErrors
// naming each offending field. One disallowed field rejects the whole
// write; callers must not apply any of it.
func (t *Table[T]) CheckWrite(actor *Actor, rec T, fields []string) *FieldErrors {
	held := t.EvaluateRoles(actor, rec)
	bad := map[string]string{}
	for _, name := range fields {
		f, ok := t.Fields[name]
		if !ok {
			bad[name] = "unknown field"
			continue
		}
		if len(f.EditableBy) == 0 || (len(f.EditableBy) == 1 && f.EditableBy[0] == Nobody) {
			bad[name] = "field is never editable"
			continue
		}
		if !held.HasAny(f.EditableBy...) {
			bad[name] = "not editable by your roles"
		}
	}
	if len(bad) > 0 {
		return &FieldErrors{Fields: bad}
	}
	return nil
}

// HistoryPolicy returns the declared history policy for a field, defaulting
// to HistoryNone for undeclared fields.
func (t *Table[T]) HistoryPolicy(field string) string {
	f, ok := t.Fields[field]
	if !ok || f.History == "" {
		return HistoryNone
	}
	return f.History
}
