// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/badgehub/internal/app/store/audit"
	"github.com/dalemusser/badgehub/internal/app/system/auth"
	"go.uber.org/zap"
)

// AuditLogRetentionJob creates a job that deletes audit events older than the
// retention window.
func AuditLogRetentionJob(auditStore *audit.Store, logger *zap.Logger, retention time.Duration) Job {
	return Job{
		Name:     "audit-log-retention",
		Interval: 24 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := auditStore.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("pruned audit events",
					zap.Int64("count", count),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}

// RevokedTokenCleanupJob creates a job that deletes revoked API tokens that
// have sat unused for the given threshold.
func RevokedTokenCleanupJob(tokens *auth.Tokens, logger *zap.Logger, threshold time.Duration) Job {
	return Job{
		Name:     "revoked-token-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := tokens.PruneRevoked(ctx, time.Now().UTC().Add(-threshold))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("pruned revoked api tokens", zap.Int64("count", count))
			}
			return nil
		},
	}
}
