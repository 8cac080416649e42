// internal/app/features/api/apps.go
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/badgehub/internal/app/membership"
	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/policy/apppolicy"
	"github.com/dalemusser/badgehub/internal/app/system/gates"
	"github.com/dalemusser/badgehub/internal/app/system/normalize"
	"github.com/dalemusser/badgehub/internal/app/system/timeouts"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type membershipBody struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type approvalBody struct {
	Side     string `json:"side"` // "app" or the subject side ("user"/"group")
	Approval string `json:"approval"`
}

func (h *Handler) loadApp(ctx context.Context, w http.ResponseWriter, appID primitive.ObjectID) *models.App {
	app, err := h.Apps.GetByID(ctx, appID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			gates.NotFound(w)
			return nil
		}
		h.Log.Error("app lookup failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	return app
}

// HandleUserJoin handles POST /apps/{appID}/memberships/users/{userID}.
// Joining yourself needs no standing on the app; adding anyone else is
// membership management and requires app-admin standing. The decorator
// sets the approval flags from the creator's relationship to each side,
// so a self-join on a by-request app comes out pending, not active.
func (h *Handler) HandleUserJoin(w http.ResponseWriter, r *http.Request) {
	appID, ok := urlID(r, "appID")
	if !ok {
		gates.NotFound(w)
		return
	}
	userID, ok := urlID(r, "userID")
	if !ok {
		gates.NotFound(w)
		return
	}
	id, ok := gates.RequireIdentity(w, r)
	if !ok {
		return
	}
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetAppsManage)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	app := h.loadApp(ctx, w, appID)
	if app == nil {
		return
	}
	if !id.Actor.Is(userID) && !apppolicy.CanManageMemberships(id.Actor, app, grant) {
		gates.Forbidden(w)
		return
	}

	m, err := h.AppUsers.Create(ctx, app, userID, id.Actor.UserID, models.AppMembershipMember)
	if err != nil {
		if errors.Is(err, membership.ErrDuplicateMembership) {
			gates.WriteError(w, http.StatusConflict, "membership already exists")
			return
		}
		h.Log.Error("user membership create failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.Audit.AppUserMembershipCreated(ctx, id.Actor.UserID, userID, app.ID, m.Status)
	writeJSON(w, http.StatusCreated, membershipBody{Type: m.Type, Status: m.Status})
}

// HandleGroupJoin handles POST /apps/{appID}/memberships/groups/{groupID}.
// The caller must administer the group they are joining, or administer the
// app when attaching someone else's group.
func (h *Handler) HandleGroupJoin(w http.ResponseWriter, r *http.Request) {
	appID, ok := urlID(r, "appID")
	if !ok {
		gates.NotFound(w)
		return
	}
	groupID, ok := urlID(r, "groupID")
	if !ok {
		gates.NotFound(w)
		return
	}
	id, ok := gates.RequireIdentity(w, r)
	if !ok {
		return
	}
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetAppsManage)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	app := h.loadApp(ctx, w, appID)
	if app == nil {
		return
	}
	if !id.Actor.IsGroupAdmin(groupID) && !apppolicy.CanManageMemberships(id.Actor, app, grant) {
		gates.Forbidden(w)
		return
	}

	m, err := h.AppGroups.Create(ctx, app, groupID, id.Actor.UserID)
	if err != nil {
		if errors.Is(err, membership.ErrDuplicateMembership) {
			gates.WriteError(w, http.StatusConflict, "membership already exists")
			return
		}
		h.Log.Error("group membership create failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.Audit.AppGroupMembershipCreated(ctx, id.Actor.UserID, groupID, app.ID, m.Status)
	writeJSON(w, http.StatusCreated, membershipBody{Status: m.Status})
}

// HandleUserApproval handles PATCH /apps/{appID}/memberships/users/{userID}:
// body {"side":"app"|"user","approval":"approved"|"denied"}. The app side
// belongs to app admins, the user side to the user themselves.
func (h *Handler) HandleUserApproval(w http.ResponseWriter, r *http.Request) {
	appID, ok := urlID(r, "appID")
	if !ok {
		gates.NotFound(w)
		return
	}
	userID, ok := urlID(r, "userID")
	if !ok {
		gates.NotFound(w)
		return
	}
	id, ok := gates.RequireIdentity(w, r)
	if !ok {
		return
	}
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetAppsManage)
	if !ok {
		return
	}

	var body approvalBody
	if err := decodeJSON(w, r, &body); err != nil {
		gates.WriteError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	body.Approval = normalize.Approval(body.Approval)
	if body.Approval != models.ApprovalApproved && body.Approval != models.ApprovalDenied {
		gates.WriteError(w, http.StatusUnprocessableEntity, "approval must be approved or denied")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	app := h.loadApp(ctx, w, appID)
	if app == nil {
		return
	}
	m, err := h.AppUsers.Get(ctx, app.ID, userID)
	if err != nil {
		h.Log.Error("membership lookup failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if m == nil {
		gates.NotFound(w)
		return
	}

	switch body.Side {
	case "app":
		if !apppolicy.CanManageMemberships(id.Actor, app, grant) {
			gates.Forbidden(w)
			return
		}
		err = h.AppUsers.SetAppApproval(ctx, app, m, body.Approval)
	case "user":
		if !id.Actor.Is(userID) {
			gates.Forbidden(w)
			return
		}
		err = h.AppUsers.SetUserApproval(ctx, app, m, body.Approval)
	default:
		gates.WriteError(w, http.StatusUnprocessableEntity, "side must be app or user")
		return
	}
	if err != nil {
		h.Log.Error("membership approval failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.Audit.AppUserMembershipUpdated(ctx, id.Actor.UserID, userID, app.ID, m.Status)
	writeJSON(w, http.StatusOK, membershipBody{Type: m.Type, Status: m.Status})
}

// HandleGroupApproval handles PATCH /apps/{appID}/memberships/groups/{groupID}
// with the same body shape as the user variant; the subject side belongs
// to the group's admins.
func (h *Handler) HandleGroupApproval(w http.ResponseWriter, r *http.Request) {
	appID, ok := urlID(r, "appID")
	if !ok {
		gates.NotFound(w)
		return
	}
	groupID, ok := urlID(r, "groupID")
	if !ok {
		gates.NotFound(w)
		return
	}
	id, ok := gates.RequireIdentity(w, r)
	if !ok {
		return
	}
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetAppsManage)
	if !ok {
		return
	}

	var body approvalBody
	if err := decodeJSON(w, r, &body); err != nil {
		gates.WriteError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	body.Approval = normalize.Approval(body.Approval)
	if body.Approval != models.ApprovalApproved && body.Approval != models.ApprovalDenied {
		gates.WriteError(w, http.StatusUnprocessableEntity, "approval must be approved or denied")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	app := h.loadApp(ctx, w, appID)
	if app == nil {
		return
	}
	m, err := h.AppGroups.Get(ctx, app.ID, groupID)
	if err != nil {
		h.Log.Error("membership lookup failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if m == nil {
		gates.NotFound(w)
		return
	}

	switch body.Side {
	case "app":
		if !apppolicy.CanManageMemberships(id.Actor, app, grant) {
			gates.Forbidden(w)
			return
		}
		err = h.AppGroups.SetAppApproval(ctx, app, m, body.Approval)
	case "group":
		if !id.Actor.IsGroupAdmin(groupID) {
			gates.Forbidden(w)
			return
		}
		err = h.AppGroups.SetGroupApproval(ctx, app, m, body.Approval)
	default:
		gates.WriteError(w, http.StatusUnprocessableEntity, "side must be app or group")
		return
	}
	if err != nil {
		h.Log.Error("membership approval failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.Audit.AppGroupMembershipUpdated(ctx, id.Actor.UserID, groupID, app.ID, m.Status)
	writeJSON(w, http.StatusOK, membershipBody{Status: m.Status})
}

// HandleUserLeave handles DELETE /apps/{appID}/memberships/users/{userID}.
// Users remove themselves; app admins remove anyone.
func (h *Handler) HandleUserLeave(w http.ResponseWriter, r *http.Request) {
	appID, ok := urlID(r, "appID")
	if !ok {
		gates.NotFound(w)
		return
	}
	userID, ok := urlID(r, "userID")
	if !ok {
		gates.NotFound(w)
		return
	}
	id, ok := gates.RequireIdentity(w, r)
	if !ok {
		return
	}
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetAppsManage)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	app := h.loadApp(ctx, w, appID)
	if app == nil {
		return
	}
	if !id.Actor.Is(userID) && !apppolicy.CanManageMemberships(id.Actor, app, grant) {
		gates.Forbidden(w)
		return
	}
	m, err := h.AppUsers.Get(ctx, app.ID, userID)
	if err != nil {
		h.Log.Error("membership lookup failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if m == nil {
		gates.NotFound(w)
		return
	}
	if err := h.AppUsers.Delete(ctx, app, m); err != nil {
		h.Log.Error("membership delete failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.Audit.AppUserMembershipRemoved(ctx, id.Actor.UserID, userID, app.ID)
	w.WriteHeader(http.StatusNoContent)
}
