// Package provision is the creation path for users, groups, and apps.
//
// It enforces two bootstrap invariants that the raw stores do not:
// every user and group is linked as an active member of the platform's
// own default app at creation, and every app starts with its owner as
// an active admin member. Code that creates these aggregates must go
// through this package, not the stores, or the invariants do not hold.
package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/badgehub/internal/app/membership"
	"github.com/dalemusser/badgehub/internal/app/store/apps"
	"github.com/dalemusser/badgehub/internal/app/system/inputval"
	"github.com/dalemusser/badgehub/internal/app/store/groups"
	"github.com/dalemusser/badgehub/internal/app/store/users"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrInvalidInput wraps input validation failures; the message carries the
// first failing rule.
var ErrInvalidInput = errors.New("invalid input")

// Service creates users, groups, and apps with their platform linkage.
type Service struct {
	users     *users.Store
	groups    *groups.Store
	apps      *apps.Store
	appUsers  *membership.AppUsers
	appGroups *membership.AppGroups
	log       *zap.Logger
}

// New creates a provisioning service.
func New(userStore *users.Store, groupStore *groups.Store, appStore *apps.Store, appUsers *membership.AppUsers, appGroups *membership.AppGroups, logger *zap.Logger) *Service {
	return &Service{
		users:     userStore,
		groups:    groupStore,
		apps:      appStore,
		appUsers:  appUsers,
		appGroups: appGroups,
		log:       logger,
	}
}

// EnsurePlatformApp returns the platform's default app, creating it on
// first call. The platform app is open to both users and groups so that
// provisioning memberships come out active without extra approval steps.
// It has no owner; nothing administers the platform app through the
// normal app-admin path.
func (s *Service) EnsurePlatformApp(ctx context.Context) (*models.App, error) {
	app, err := s.apps.GetByNameCI(ctx, models.PlatformAppName)
	if err != nil {
		return nil, err
	}
	if app != nil {
		return app, nil
	}

	app, err = s.apps.Create(ctx, models.PlatformAppName, "The platform itself.",
		primitive.NilObjectID, models.JoinabilityOpen, models.JoinabilityOpen)
	if err != nil {
		if errors.Is(err, apps.ErrDuplicateName) {
			// Raced another provisioner; theirs won.
			return s.apps.GetByNameCI(ctx, models.PlatformAppName)
		}
		return nil, err
	}
	s.log.Info("platform app created", zap.String("app_id", app.ID.Hex()))
	return app, nil
}

// CreateUser creates a user and links them as an active member of the
// platform app.
func (s *Service) CreateUser(ctx context.Context, fullName, email string) (*models.User, error) {
	in := struct {
		FullName string `validate:"required,max=200" label:"Full name"`
		Email    string `validate:"required,email" label:"Email"`
	}{fullName, email}
	if res := inputval.Validate(in); res.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, res.First())
	}

	user, err := s.users.Create(ctx, fullName, email)
	if err != nil {
		return nil, err
	}

	platform, err := s.EnsurePlatformApp(ctx)
	if err != nil {
		return nil, fmt.Errorf("linking user to platform app: %w", err)
	}
	if _, err := s.appUsers.Create(ctx, platform, user.ID, user.ID, models.AppMembershipMember); err != nil {
		return nil, fmt.Errorf("linking user to platform app: %w", err)
	}
	return user, nil
}

// CreateGroup creates a group, makes creatorID its first admin, and
// links the group as an active member of the platform app.
func (s *Service) CreateGroup(ctx context.Context, name, description, tagAssignability string, creatorID primitive.ObjectID) (*models.Group, error) {
	in := struct {
		Name string `validate:"required,max=200" label:"Group name"`
	}{name}
	if res := inputval.Validate(in); res.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, res.First())
	}

	group, err := s.groups.Create(ctx, name, description, tagAssignability)
	if err != nil {
		return nil, err
	}

	if err := s.groups.AddMember(ctx, group.ID, creatorID, models.GroupRoleAdmin); err != nil {
		return nil, fmt.Errorf("adding founding admin: %w", err)
	}

	platform, err := s.EnsurePlatformApp(ctx)
	if err != nil {
		return nil, fmt.Errorf("linking group to platform app: %w", err)
	}
	// The creator now administers the group and the platform app is open,
	// so both approval sides come out approved.
	if _, err := s.appGroups.Create(ctx, platform, group.ID, creatorID); err != nil {
		return nil, fmt.Errorf("linking group to platform app: %w", err)
	}
	return group, nil
}

// CreateApp creates an app and gives its owner an active admin membership.
func (s *Service) CreateApp(ctx context.Context, name, description string, ownerID primitive.ObjectID, userJoinability, groupJoinability string) (*models.App, error) {
	in := struct {
		Name string `validate:"required,max=200" label:"App name"`
	}{name}
	if res := inputval.Validate(in); res.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, res.First())
	}

	app, err := s.apps.Create(ctx, name, description, ownerID, userJoinability, groupJoinability)
	if err != nil {
		return nil, err
	}

	m, err := s.appUsers.Create(ctx, app, ownerID, ownerID, models.AppMembershipAdmin)
	if err != nil {
		return nil, fmt.Errorf("creating owner membership: %w", err)
	}
	// Self-created memberships only get app-side approval on open apps;
	// the owner's membership is app-approved no matter the joinability.
	if m.AppApprovalStatus != models.ApprovalApproved {
		if err := s.appUsers.SetAppApproval(ctx, app, m, models.ApprovalApproved); err != nil {
			return nil, fmt.Errorf("approving owner membership: %w", err)
		}
	}
	return app, nil
}
