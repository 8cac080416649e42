// internal/app/system/fieldhistory/fieldhistory_test.go
package fieldhistory_test

import (
	"testing"

	"github.com/dalemusser/badgehub/internal/app/policy/badgepolicy"
	"github.com/dalemusser/badgehub/internal/app/system/fieldhistory"
)

func TestDiff_TracksOnlyChangedPolicyFields(t *testing.T) {
	current := map[string]any{
		"name":         "Fire Safety",
		"summary":      "old summary",
		"visibility":   "members",
		"group_id":     "abc",
		"untracked":    "x",
		"requirements": "run drills",
	}
	updates := map[string]any{
		"name":         "Fire Safety II", // old_and_new
		"summary":      "new summary",    // timestamp only
		"visibility":   "members",        // unchanged, skipped
		"group_id":     "def",            // no history policy, skipped
		"untracked":    "y",              // not in the table, skipped
		"requirements": "run drills",     // unchanged, skipped
	}

	changes := fieldhistory.Diff(&badgepolicy.Badges, current, updates)

	byField := map[string]fieldhistory.Change{}
	for _, ch := range changes {
		byField[ch.Field] = ch
	}
	if len(byField) != 2 {
		t.Fatalf("changes = %v, want name and summary only", changes)
	}

	name, ok := byField["name"]
	if !ok {
		t.Fatalf("name change missing from %v", changes)
	}
	if name.Old != "Fire Safety" || name.New != "Fire Safety II" {
		t.Errorf("name old/new = %q/%q, want %q/%q", name.Old, name.New, "Fire Safety", "Fire Safety II")
	}

	summary, ok := byField["summary"]
	if !ok {
		t.Fatalf("summary change missing from %v", changes)
	}
	if summary.Old != "" || summary.New != "" {
		t.Errorf("timestamp-only field recorded values: old=%q new=%q", summary.Old, summary.New)
	}
}

func TestDiff_NewFieldWithoutCurrentValue(t *testing.T) {
	changes := fieldhistory.Diff(&badgepolicy.Badges,
		map[string]any{},
		map[string]any{"name": "Brand New"})

	if len(changes) != 1 {
		t.Fatalf("changes = %v, want one", changes)
	}
	if changes[0].Old != "" || changes[0].New != "Brand New" {
		t.Errorf("old/new = %q/%q, want empty old and %q", changes[0].Old, changes[0].New, "Brand New")
	}
}

func TestDiff_NumbersCompareAcrossTypes(t *testing.T) {
	// Records hold typed ints while JSON decoding yields float64; an
	// unchanged threshold must not be recorded as a change.
	changes := fieldhistory.Diff(&badgepolicy.Badges,
		map[string]any{"required_threshold": 3},
		map[string]any{"required_threshold": float64(3)})
	if len(changes) != 0 {
		t.Errorf("unchanged numeric field recorded: %v", changes)
	}

	changes = fieldhistory.Diff(&badgepolicy.Badges,
		map[string]any{"required_threshold": 3},
		map[string]any{"required_threshold": float64(5)})
	if len(changes) != 1 {
		t.Fatalf("changes = %v, want one threshold change", changes)
	}
	if changes[0].Old != "3" || changes[0].New != "5" {
		t.Errorf("threshold old/new = %q/%q, want 3/5", changes[0].Old, changes[0].New)
	}
}
