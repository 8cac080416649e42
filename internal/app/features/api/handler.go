// Package api is the JSON boundary over the authorization core and the
// validation engine. Handlers stay thin: load the record, consult the
// policy tables, call the engine or a membership decorator, and map the
// outcome to a status code. Records the caller may not know exist are
// reported as 404, ordinary denial as 403.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/badgehub/internal/app/membership"
	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/store/apps"
	"github.com/dalemusser/badgehub/internal/app/store/badges"
	"github.com/dalemusser/badgehub/internal/app/store/logs"
	"github.com/dalemusser/badgehub/internal/app/store/users"
	"github.com/dalemusser/badgehub/internal/app/system/auditlog"
	"github.com/dalemusser/badgehub/internal/app/system/fieldhistory"
	"github.com/dalemusser/badgehub/internal/app/system/limits"
	"github.com/dalemusser/badgehub/internal/app/validation"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler holds the API feature's dependencies.
type Handler struct {
	DB        *mongo.Database
	Cfg       *policy.Config
	Badges    *badges.Store
	Apps      *apps.Store
	Logs      *logs.Store
	Users     *users.Store
	AppUsers  *membership.AppUsers
	AppGroups *membership.AppGroups
	Engine    *validation.Engine
	Audit     *auditlog.Logger
	History   *fieldhistory.Recorder
	Log       *zap.Logger
}

// NewHandler constructs the API handler.
func NewHandler(db *mongo.Database, cfg *policy.Config, engine *validation.Engine, audit *auditlog.Logger, history *fieldhistory.Recorder, logger *zap.Logger) *Handler {
	return &Handler{
		DB:        db,
		Cfg:       cfg,
		Badges:    badges.New(db),
		Apps:      apps.New(db),
		Logs:      logs.New(db),
		Users:     users.New(db),
		AppUsers:  membership.NewAppUsers(db, logger),
		AppGroups: membership.NewAppGroups(db, logger),
		Engine:    engine,
		Audit:     audit,
		History:   history,
		Log:       logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes a request body into dst, capped at limits.MaxJSONBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	return json.NewDecoder(r.Body).Decode(dst)
}

// urlID parses the named chi URL parameter as an ObjectID. A malformed id
// can never name a record, so the caller treats ok=false as 404.
func urlID(r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// fieldErrorsBody is the 422 response for writes rejected by the field
// policy: one reason per offending field, nothing applied.
type fieldErrorsBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}
