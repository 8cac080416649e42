// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	apifeature "github.com/dalemusser/badgehub/internal/app/features/api"
	healthfeature "github.com/dalemusser/badgehub/internal/app/features/health"
	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/store/audit"
	"github.com/dalemusser/badgehub/internal/app/system/auditlog"
	"github.com/dalemusser/badgehub/internal/app/system/auth"
	"github.com/dalemusser/badgehub/internal/app/system/fieldhistory"
	"github.com/dalemusser/badgehub/internal/app/system/ratelimit"
	"github.com/dalemusser/badgehub/internal/app/validation"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE
// app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. BadgeHub's surface is a JSON API: the
// identity-resolution middleware classifies every request (session, bearer
// token, or visitor), and the feature handlers run the permission and
// policy checks themselves.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName,
		appCfg.SessionDomain, appCfg.SessionTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	resolver := auth.NewIdentityResolver(sessionMgr, auth.NewTokens(db), auth.NewActorLoader(db), logger)

	auditStore := audit.New(db)
	auditLogger := auditlog.New(auditStore, logger, auditlog.Config{
		Membership: appCfg.AuditLogMembership,
		Validation: appCfg.AuditLogValidation,
	})

	apiHandler := apifeature.NewHandler(
		db,
		policy.DefaultConfig(),
		validation.NewEngine(db, logger),
		auditLogger,
		fieldhistory.NewRecorder(auditStore, logger),
		logger,
	)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators;
	// deliberately outside the identity middleware.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Group(func(pr chi.Router) {
		if appCfg.RateLimitPerMinute > 0 {
			pr.Use(ratelimit.Middleware(ratelimit.New(appCfg.RateLimitPerMinute, time.Minute)))
		}
		pr.Use(resolver.Middleware)
		pr.Mount("/", apifeature.Routes(apiHandler))
	})

	return r, nil
}
