// internal/app/features/api/users.go
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/policy/userpolicy"
	"github.com/dalemusser/badgehub/internal/app/system/authz"
	"github.com/dalemusser/badgehub/internal/app/system/fieldhistory"
	"github.com/dalemusser/badgehub/internal/app/system/gates"
	"github.com/dalemusser/badgehub/internal/app/system/inputval"
	"github.com/dalemusser/badgehub/internal/app/system/normalize"
	"github.com/dalemusser/badgehub/internal/app/system/timeouts"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// userFields maps a user to the payload keyed the way the policy table
// declares its fields. Serialization filters this map per actor; email is
// visible only to the account itself.
func userFields(u *models.User) map[string]any {
	return map[string]any{
		"full_name": u.FullName,
		"email":     u.Email,
		"status":    u.Status,
	}
}

// ServeUser handles GET /users/{userID}: the profile serialized with only
// the fields the caller's roles may see.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(r, "userID")
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

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			gates.NotFound(w)
			return
		}
		h.Log.Error("user lookup failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !userpolicy.CanShow(actor, user, grant) {
		gates.NotFound(w)
		return
	}

	body := userpolicy.Users.FilterVisible(actor, user, userFields(user))
	body["id"] = user.ID.Hex()
	writeJSON(w, http.StatusOK, body)
}

// HandleUserUpdate handles PATCH /users/{userID}. Only the account itself
// may edit its profile; the submitted field set is checked against the
// user field table as a whole before anything is applied.
func (h *Handler) HandleUserUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(r, "userID")
	if !ok {
		gates.NotFound(w)
		return
	}
	id, ok := gates.RequireIdentity(w, r)
	if !ok {
		return
	}
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetUsersWrite)
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

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			gates.NotFound(w)
			return
		}
		h.Log.Error("user lookup failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !userpolicy.CanShow(id.Actor, user, grant) {
		gates.NotFound(w)
		return
	}
	if !userpolicy.CanUpdate(id.Actor, user, grant) {
		gates.Forbidden(w)
		return
	}

	names := make([]string, 0, len(payload))
	for k := range payload {
		names = append(names, k)
	}
	if ferr := userpolicy.Users.CheckWrite(id.Actor, user, names); ferr != nil {
		writeJSON(w, http.StatusUnprocessableEntity, fieldErrorsBody{
			Error:  "fields not editable",
			Fields: ferr.Fields,
		})
		return
	}

	set, err := userUpdateSet(payload)
	if err != nil {
		gates.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	changes := fieldhistory.Diff(&userpolicy.Users, userFields(user), payload)
	if err := h.Users.UpdateFields(ctx, user.ID, set); err != nil {
		h.Log.Error("user update failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.History.Record(ctx, "users", user.ID, &id.Actor.UserID, changes)

	updated, err := h.Users.GetByID(ctx, user.ID)
	if err != nil {
		h.Log.Error("user reload failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	body := userpolicy.Users.FilterVisible(id.Actor, updated, userFields(updated))
	body["id"] = updated.ID.Hex()
	writeJSON(w, http.StatusOK, body)
}

// userUpdateSet converts a JSON update payload into a store update,
// normalizing the contact fields.
func userUpdateSet(payload map[string]any) (bson.M, error) {
	set := bson.M{}
	for k, v := range payload {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New(k + " must be a string")
		}
		switch k {
		case "full_name":
			if normalize.Name(s) == "" {
				return nil, errors.New("full_name must not be empty")
			}
			set[k] = normalize.Name(s)
		case "email":
			if !inputval.IsValidEmail(normalize.Email(s)) {
				return nil, errors.New("email must be a valid address")
			}
			set[k] = normalize.Email(s)
		default:
			return nil, errors.New(k + " is not updatable")
		}
	}
	return set, nil
}
