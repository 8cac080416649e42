// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/badgehub/internal/app/membership"
	"github.com/dalemusser/badgehub/internal/app/provision"
	"github.com/dalemusser/badgehub/internal/app/store/apps"
	"github.com/dalemusser/badgehub/internal/app/store/audit"
	"github.com/dalemusser/badgehub/internal/app/store/badges"
	"github.com/dalemusser/badgehub/internal/app/store/groups"
	"github.com/dalemusser/badgehub/internal/app/store/users"
	"github.com/dalemusser/badgehub/internal/app/system/auth"
	"github.com/dalemusser/badgehub/internal/app/system/tasks"
	"github.com/dalemusser/badgehub/internal/app/system/timeouts"
	"github.com/dalemusser/badgehub/internal/app/system/workers"
	"github.com/dalemusser/badgehub/internal/app/validation"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// background holds the workers and job runner between Startup and
// Shutdown.
var background struct {
	runner *tasks.Runner
	sweep  *workers.BackValidationSweep
}

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built:
// timeout overrides, the platform app invariant, and the background
// maintenance loops.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.ConfigureFromEnv()

	db := deps.MongoDatabase
	prov := provision.New(
		users.New(db),
		groups.New(db),
		apps.New(db),
		membership.NewAppUsers(db, logger),
		membership.NewAppGroups(db, logger),
		logger,
	)
	if _, err := prov.EnsurePlatformApp(ctx); err != nil {
		return fmt.Errorf("ensuring platform app: %w", err)
	}

	engine := validation.NewEngine(db, logger)
	background.sweep = workers.NewBackValidationSweep(engine, badges.New(db), logger, appCfg.SweepInterval)
	background.sweep.Start()

	background.runner = tasks.NewRunner(logger,
		tasks.AuditLogRetentionJob(audit.New(db), logger, appCfg.AuditRetention),
		tasks.RevokedTokenCleanupJob(auth.NewTokens(db), logger, appCfg.TokenCleanupThreshold),
	)
	background.runner.Start()

	return nil
}
