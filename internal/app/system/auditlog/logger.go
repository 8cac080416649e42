// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/dalemusser/badgehub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Logging modes for each event category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Membership controls logging for membership events (app/user/group
	// membership lifecycle).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Membership string
	// Validation controls logging for validation-engine events (requests,
	// verdicts, issuance, back-validation).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Validation string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	for name, id := range map[string]*primitive.ObjectID{
		"actor_id": event.ActorID,
		"user_id":  event.UserID,
		"group_id": event.GroupID,
		"app_id":   event.AppID,
		"badge_id": event.BadgeID,
		"log_id":   event.LogID,
	} {
		if id != nil {
			fields = append(fields, zap.String(name, id.Hex()))
		}
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryMembership:
		setting = l.config.Membership
	case audit.CategoryValidation:
		setting = l.config.Validation
	default:
		setting = ModeAll // Default to logging everything for unknown categories
	}

	if setting == ModeOff {
		return
	}
	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}
	if setting == ModeAll || setting == ModeDB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Membership events ---

// AppUserMembershipCreated logs a new app↔user membership.
func (l *Logger) AppUserMembershipCreated(ctx context.Context, actorID, userID, appID primitive.ObjectID, status string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventAppUserMembershipCreated,
		ActorID:   &actorID,
		UserID:    &userID,
		AppID:     &appID,
		Success:   true,
		Details:   map[string]string{"status": status},
	})
}

// AppUserMembershipUpdated logs an approval-flag change on an app↔user
// membership.
func (l *Logger) AppUserMembershipUpdated(ctx context.Context, actorID, userID, appID primitive.ObjectID, status string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventAppUserMembershipUpdated,
		ActorID:   &actorID,
		UserID:    &userID,
		AppID:     &appID,
		Success:   true,
		Details:   map[string]string{"status": status},
	})
}

// AppUserMembershipRemoved logs the removal of an app↔user membership.
func (l *Logger) AppUserMembershipRemoved(ctx context.Context, actorID, userID, appID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventAppUserMembershipRemoved,
		ActorID:   &actorID,
		UserID:    &userID,
		AppID:     &appID,
		Success:   true,
	})
}

// AppGroupMembershipCreated logs a new app↔group membership.
func (l *Logger) AppGroupMembershipCreated(ctx context.Context, actorID, groupID, appID primitive.ObjectID, status string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventAppGroupMembershipCreated,
		ActorID:   &actorID,
		GroupID:   &groupID,
		AppID:     &appID,
		Success:   true,
		Details:   map[string]string{"status": status},
	})
}

// AppGroupMembershipUpdated logs an approval-flag change on an app↔group
// membership.
func (l *Logger) AppGroupMembershipUpdated(ctx context.Context, actorID, groupID, appID primitive.ObjectID, status string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventAppGroupMembershipUpdated,
		ActorID:   &actorID,
		GroupID:   &groupID,
		AppID:     &appID,
		Success:   true,
		Details:   map[string]string{"status": status},
	})
}

// GroupMemberAdded logs a user joining a group.
func (l *Logger) GroupMemberAdded(ctx context.Context, actorID, userID, groupID primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventGroupMemberAdded,
		ActorID:   &actorID,
		UserID:    &userID,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"role": role},
	})
}

// --- Validation events ---

// ValidationRequested logs a log entering the requested state.
func (l *Logger) ValidationRequested(ctx context.Context, actorID, badgeID, logID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryValidation,
		EventType: audit.EventValidationRequested,
		ActorID:   &actorID,
		BadgeID:   &badgeID,
		LogID:     &logID,
		Success:   true,
	})
}

// ValidationWithdrawn logs a withdrawn validation request.
func (l *Logger) ValidationWithdrawn(ctx context.Context, actorID, badgeID, logID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryValidation,
		EventType: audit.EventValidationWithdrawn,
		ActorID:   &actorID,
		BadgeID:   &badgeID,
		LogID:     &logID,
		Success:   true,
	})
}

// ValidationAdded logs a validation verdict landing on a log.
func (l *Logger) ValidationAdded(ctx context.Context, actorID, badgeID, logID primitive.ObjectID, verdict string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryValidation,
		EventType: audit.EventValidationAdded,
		ActorID:   &actorID,
		BadgeID:   &badgeID,
		LogID:     &logID,
		Success:   true,
		Details:   map[string]string{"verdict": verdict},
	})
}

// BadgeIssued logs a log's issue_status becoming issued.
func (l *Logger) BadgeIssued(ctx context.Context, userID, badgeID, logID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryValidation,
		EventType: audit.EventBadgeIssued,
		UserID:    &userID,
		BadgeID:   &badgeID,
		LogID:     &logID,
		Success:   true,
	})
}

// BadgeRetracted logs a log's issue_status becoming retracted.
func (l *Logger) BadgeRetracted(ctx context.Context, userID, badgeID, logID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryValidation,
		EventType: audit.EventBadgeRetracted,
		UserID:    &userID,
		BadgeID:   &badgeID,
		LogID:     &logID,
		Success:   true,
	})
}

// BackValidationFailed logs a propagation failure. The triggering save has
// already committed; this record is the admin-visible trail.
func (l *Logger) BackValidationFailed(ctx context.Context, badgeID, logID primitive.ObjectID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryValidation,
		EventType:     audit.EventBackValidationFailed,
		BadgeID:       &badgeID,
		LogID:         &logID,
		Success:       false,
		FailureReason: reason,
	})
}
