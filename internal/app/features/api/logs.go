// internal/app/features/api/logs.go
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/policy/badgepolicy"
	"github.com/dalemusser/badgehub/internal/app/policy/logpolicy"
	"github.com/dalemusser/badgehub/internal/app/system/auth"
	"github.com/dalemusser/badgehub/internal/app/system/gates"
	"github.com/dalemusser/badgehub/internal/app/system/normalize"
	"github.com/dalemusser/badgehub/internal/app/system/timeouts"
	"github.com/dalemusser/badgehub/internal/app/validation"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type entryBody struct {
	Body      string `json:"body"`
	Verdict   string `json:"verdict,omitempty"`
	Overwrite bool   `json:"overwrite,omitempty"`
}

type entryResponse struct {
	ID          string `json:"id"`
	EntryNumber int    `json:"entry_number"`
	Type        string `json:"type"`
	Verdict     string `json:"verdict,omitempty"`
}

func logFields(l *models.Log) map[string]any {
	return map[string]any{
		"validation_status": l.ValidationStatus,
		"issue_status":      l.IssueStatus,
		"validation_count":  l.ValidationCount,
		"rejection_count":   l.RejectionCount,
	}
}

func logResponse(actor *policy.Actor, l *models.Log) map[string]any {
	body := logpolicy.Logs.FilterVisible(actor, l, logFields(l))
	body["id"] = l.ID.Hex()
	body["badge_id"] = l.BadgeID.Hex()
	body["user_id"] = l.UserID.Hex()
	return body
}

// loadLog fetches a log and applies the show policy, concealing logs the
// actor may not view as 404. Returns nil after writing the response when
// the handler should stop.
func (h *Handler) loadLog(ctx context.Context, w http.ResponseWriter, r *http.Request, grant policy.Grant) *models.Log {
	logID, ok := urlID(r, "logID")
	if !ok {
		gates.NotFound(w)
		return nil
	}
	l, err := h.Logs.GetByID(ctx, logID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			gates.NotFound(w)
			return nil
		}
		h.Log.Error("log lookup failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	var a *policy.Actor
	if id, ok := auth.CurrentIdentity(r); ok {
		a = id.Actor
	}
	if !logpolicy.CanShow(a, l, grant) {
		gates.NotFound(w)
		return nil
	}
	return l
}

// HandleStartLog handles POST /badges/{badgeID}/logs: the caller starts
// their own portfolio on the badge. Requires membership in the badge's
// group; the first log on a badge self-validates its founding expert.
func (h *Handler) HandleStartLog(w http.ResponseWriter, r *http.Request) {
	badgeID, ok := urlID(r, "badgeID")
	if !ok {
		gates.NotFound(w)
		return
	}
	id, ok := gates.RequireIdentity(w, r)
	if !ok {
		return
	}
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetLogsWrite)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
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
	if !id.Actor.IsGroupMember(badge.GroupID) {
		gates.Forbidden(w)
		return
	}

	l, err := h.Engine.StartLog(ctx, badge, id.Actor.UserID)
	if err != nil {
		if errors.Is(err, validation.ErrLogExists) {
			gates.WriteError(w, http.StatusConflict, "log already exists")
			return
		}
		h.Log.Error("start log failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, logResponse(id.Actor, l))
}

// ServeLog handles GET /logs/{logID} with field-filtered output.
func (h *Handler) ServeLog(w http.ResponseWriter, r *http.Request) {
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetLogsRead)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l := h.loadLog(ctx, w, r, grant)
	if l == nil {
		return
	}
	var actor *policy.Actor
	if id, ok := auth.CurrentIdentity(r); ok {
		actor = id.Actor
	}
	writeJSON(w, http.StatusOK, logResponse(actor, l))
}

// HandleRequestValidation handles POST /logs/{logID}/request_validation.
// Owner-only; a log outside incomplete/withdrawn is a 422.
func (h *Handler) HandleRequestValidation(w http.ResponseWriter, r *http.Request) {
	h.handleLifecycle(w, r, logpolicy.ActionRequestValidation)
}

// HandleWithdraw handles POST /logs/{logID}/withdraw. Owner-only; only a
// requested log can be withdrawn.
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.handleLifecycle(w, r, logpolicy.ActionWithdraw)
}

func (h *Handler) handleLifecycle(w http.ResponseWriter, r *http.Request, action string) {
	id, ok := gates.RequireIdentity(w, r)
	if !ok {
		return
	}
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetLogsWrite)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	l := h.loadLog(ctx, w, r, grant)
	if l == nil {
		return
	}
	if !logpolicy.Logs.Authorize(action, id.Actor, l, grant) {
		gates.Forbidden(w)
		return
	}

	badge, err := h.Badges.GetByID(ctx, l.BadgeID)
	if err != nil {
		h.Log.Error("badge lookup failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	switch action {
	case logpolicy.ActionRequestValidation:
		_, err = h.Engine.RequestValidation(ctx, badge, l)
		if err == nil {
			h.Audit.ValidationRequested(ctx, id.Actor.UserID, badge.ID, l.ID)
		}
	case logpolicy.ActionWithdraw:
		_, err = h.Engine.WithdrawRequest(ctx, badge, l)
		if err == nil {
			h.Audit.ValidationWithdrawn(ctx, id.Actor.UserID, badge.ID, l.ID)
		}
	}
	if err != nil {
		if errors.Is(err, validation.ErrBadTransition) {
			gates.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.Log.Error("log lifecycle change failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, logResponse(id.Actor, l))
}

// HandleAddPost handles POST /logs/{logID}/posts: the owner appends a
// post entry to their portfolio. Body HTML is sanitized by the engine.
func (h *Handler) HandleAddPost(w http.ResponseWriter, r *http.Request) {
	id, ok := gates.RequireIdentity(w, r)
	if !ok {
		return
	}
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetLogsWrite)
	if !ok {
		return
	}

	var body entryBody
	if err := decodeJSON(w, r, &body); err != nil || body.Body == "" {
		gates.WriteError(w, http.StatusUnprocessableEntity, "body is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	l := h.loadLog(ctx, w, r, grant)
	if l == nil {
		return
	}
	if !logpolicy.Logs.Authorize(logpolicy.ActionAddPost, id.Actor, l, grant) {
		gates.Forbidden(w)
		return
	}

	entry, err := h.Engine.AddPost(ctx, l, id.Actor.UserID, body.Body)
	if err != nil {
		h.Log.Error("add post failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, entryResponse{
		ID:          entry.ID.Hex(),
		EntryNumber: entry.Number,
		Type:        entry.Type,
	})
}

// HandleAddValidation handles POST /logs/{logID}/validations: an expert
// (or, on admin-awarded badges, a group admin) records a verdict. The
// engine keeps one validation per (log, validator); pass overwrite to
// change an earlier verdict.
func (h *Handler) HandleAddValidation(w http.ResponseWriter, r *http.Request) {
	id, ok := gates.RequireIdentity(w, r)
	if !ok {
		return
	}
	grant, ok := gates.RequirePermission(w, r, h.Cfg, policy.SetLogsWrite)
	if !ok {
		return
	}

	var body entryBody
	if err := decodeJSON(w, r, &body); err != nil {
		gates.WriteError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	body.Verdict = normalize.Verdict(body.Verdict)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	l := h.loadLog(ctx, w, r, grant)
	if l == nil {
		return
	}
	badge, err := h.Badges.GetByID(ctx, l.BadgeID)
	if err != nil {
		h.Log.Error("badge lookup failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	allowed, err := logpolicy.CanValidate(ctx, h.DB, id.Actor, l, badge)
	if err != nil {
		h.Log.Error("validator check failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !allowed {
		gates.Forbidden(w)
		return
	}

	entry, out, err := h.Engine.AddValidation(ctx, badge, l, id.Actor.UserID, body.Verdict, body.Body, body.Overwrite)
	if err != nil {
		if errors.Is(err, validation.ErrBadVerdict) {
			gates.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.Log.Error("add validation failed", zap.Error(err))
		gates.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.Audit.ValidationAdded(ctx, id.Actor.UserID, badge.ID, l.ID, body.Verdict)
	if out.BecameIssued {
		h.Audit.BadgeIssued(ctx, l.UserID, badge.ID, l.ID)
	}
	if out.BecameRetracted {
		h.Audit.BadgeRetracted(ctx, l.UserID, badge.ID, l.ID)
	}

	resp := entryResponse{Type: models.EntryTypeValidation}
	if entry != nil {
		resp.ID = entry.ID.Hex()
		resp.EntryNumber = entry.Number
		resp.Verdict = entry.Verdict
	}
	writeJSON(w, http.StatusCreated, resp)
}
