// Package fieldhistory records field-level change history at the
// persistence boundary. Each model's field table declares a history
// policy per field; callers diff the incoming update against the
// current record and hand the changes to a Recorder, which writes one
// audit event per tracked field.
package fieldhistory

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Change is one tracked field mutation. Old and New are populated only
// when the field's policy is HistoryOldAndNew.
type Change struct {
	Field string
	Old   string
	New   string
}

// Diff compares an update payload against the current record values and
// returns the changes whose fields have a history policy. Fields with
// HistoryNone, fields absent from updates, and fields whose value did
// not change are skipped.
func Diff[T any](t *policy.Table[T], current, updates map[string]any) []Change {
	var changes []Change
	for field, next := range updates {
		pol := t.HistoryPolicy(field)
		if pol == policy.HistoryNone {
			continue
		}
		prev, had := current[field]
		if had && equal(prev, next) {
			continue
		}
		ch := Change{Field: field}
		if pol == policy.HistoryOldAndNew {
			if had {
				ch.Old = fmt.Sprint(prev)
			}
			ch.New = fmt.Sprint(next)
		}
		changes = append(changes, ch)
	}
	return changes
}

// equal compares a stored value against an update value. JSON decoding
// turns every number into float64 while records hold typed ints, so
// numbers compare by value across types; everything else falls back to
// reflect.DeepEqual.
func equal(prev, next any) bool {
	if p, ok := asFloat(prev); ok {
		if n, ok := asFloat(next); ok {
			return p == n
		}
		return false
	}
	return reflect.DeepEqual(prev, next)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Recorder writes field changes to the audit store. A nil Recorder or a
// Recorder with a nil store drops everything, so callers never need to
// guard the call.
type Recorder struct {
	store *audit.Store
	log   *zap.Logger
}

// NewRecorder creates a field history recorder.
func NewRecorder(store *audit.Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, log: logger}
}

// Record writes one audit event per change. model names the record's
// collection ("apps", "badges", ...); actorID may be nil for system
// writes. Failures are logged and swallowed: the data write has already
// happened and history must not undo it.
func (r *Recorder) Record(ctx context.Context, model string, recordID primitive.ObjectID, actorID *primitive.ObjectID, changes []Change) {
	if r == nil || r.store == nil || len(changes) == 0 {
		return
	}
	for _, ch := range changes {
		details := map[string]string{
			"model":     model,
			"record_id": recordID.Hex(),
			"field":     ch.Field,
		}
		if ch.Old != "" || ch.New != "" {
			details["old"] = ch.Old
			details["new"] = ch.New
		}
		err := r.store.Log(ctx, audit.Event{
			Category:  audit.CategoryHistory,
			EventType: audit.EventFieldChanged,
			ActorID:   actorID,
			Success:   true,
			Details:   details,
		})
		if err != nil && r.log != nil {
			r.log.Error("field history write failed",
				zap.String("model", model),
				zap.String("field", ch.Field),
				zap.Error(err))
		}
	}
}
