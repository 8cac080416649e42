// internal/app/features/api/badges.go
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/policy/badgepolicy"
	"github.com/dalemusser/badgehub/internal/app/system/authz"
	"github.com/dalemusser/badgehub/internal/app/system/fieldhistory"
	"github.com/dalemusser/badgehub/internal/app/system/gates"
	"github.com/dalemusser/badgehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/badgehub/internal/app/system/timeouts"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// badgeFields maps a badge to the payload keyed the way the policy table
// declares its fields. Serialization filters this map per actor.
func badgeFields(b *models.Badge) map[string]any {
	return map[string]any{
		"name":               b.Name,
		"summary":            b.Summary,
		"requirements":       b.Requirements,
		"visibility":         b.Visibility,
		"awardability":       b.Awardability,
		"required_threshold": b.RequiredThreshold,
		"group_id":           b.GroupID.Hex(),
		"creator_id":         b.CreatorID.Hex(),
	}
}

// ServeBadge handles GET /badges/{badgeID}: the badge serialized with only
// the fields the caller's roles may see. Callers who may not view the
// badge at all get 404, concealing its existence.
func (h *Handler) ServeBadge(w http.ResponseWriter, r *http.Request) {
	badgeID, ok := urlID(r, "badgeID")
	if !ok {
		gates.NotFound(w)
		return
	}
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetPublicRead)
	if !ok {
		return
	}
	actor := authz.ActorCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	badge, err := h.Badges.GetByID(ctx, badgeID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			gates.NotFound(w)
			return
		}
		h.Log.Error("badge lookup failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !badgepolicy.CanShow(actor, badge, grant) {
		gates.NotFound(w)
		return
	}

	body := badgepolicy.Badges.FilterVisible(actor, badge, badgeFields(badge))
	body["id"] = badge.ID.Hex()
	writeJSON(w, http.StatusOK, body)
}

// HandleBadgeUpdate handles PATCH /badges/{badgeID}. The submitted field
// set is checked against the badge field table as a whole: one field the
// actor may not edit rejects the entire write with a per-field error list
// and nothing is applied.
func (h *Handler) HandleBadgeUpdate(w http.ResponseWriter, r *http.Request) {
	badgeID, ok := urlID(r, "badgeID")
	if !ok {
		gates.NotFound(w)
		return
	}
	id, ok := gates.RequireIdentity(w, r)
	if !ok {
		return
	}
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetBadgesWrite)
	if !ok {
		return
	}

	var payload map[string]any
	if err := decodeJSON(w, r, &payload); err != nil || len(payload) == 0 {
		gates.WriteError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	badge, err := h.Badges.GetByID(ctx, badgeID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			gates.NotFound(w)
			return
		}
		h.Log.Error("badge lookup failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !badgepolicy.CanShow(id.Actor, badge, grant) {
		gates.NotFound(w)
		return
	}
	if !badgepolicy.CanUpdate(id.Actor, badge, grant) {
		gates.Forbidden(w)
		return
	}

	names := make([]string, 0, len(payload))
	for k := range payload {
		names = append(names, k)
	}
	if ferr := badgepolicy.Badges.CheckWrite(id.Actor, badge, names); ferr != nil {
		writeJSON(w, http.StatusUnprocessableEntity, fieldErrorsBody{
			Error:  "fields not editable",
			Fields: ferr.Fields,
		})
		return
	}

	set, err := badgeUpdateSet(payload)
	if err != nil {
		gates.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	changes := fieldhistory.Diff(&badgepolicy.Badges, badgeFields(badge), payload)
	if err := h.Badges.UpdateFields(ctx, badge.ID, set); err != nil {
		h.Log.Error("badge update failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.History.Record(ctx, "badges", badge.ID, &id.Actor.UserID, changes)

	updated, err := h.Badges.GetByID(ctx, badge.ID)
	if err != nil {
		h.Log.Error("badge reload failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	body := badgepolicy.Badges.FilterVisible(id.Actor, updated, badgeFields(updated))
	body["id"] = updated.ID.Hex()
	writeJSON(w, http.StatusOK, body)
}

// badgeUpdateSet converts a JSON update payload into a store update,
// sanitizing rich-text fields and coercing numeric types.
func badgeUpdateSet(payload map[string]any) (bson.M, error) {
	set := bson.M{}
	for k, v := range payload {
		switch k {
		case "name", "visibility", "awardability":
			s, ok := v.(string)
			if !ok {
				return nil, errors.New(k + " must be a string")
			}
			set[k] = s
		case "summary", "requirements":
			s, ok := v.(string)
			if !ok {
				return nil, errors.New(k + " must be a string")
			}
			set[k] = htmlsanitize.Sanitize(s)
		case "required_threshold":
			n, ok := v.(float64)
			if !ok || n < 1 {
				return nil, errors.New("required_threshold must be a number >= 1")
			}
			set[k] = int(n)
		default:
			return nil, errors.New(k + " is not updatable")
		}
	}
	return set, nil
}
