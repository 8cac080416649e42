// internal/app/system/auth/identity.go
package auth

import (
	"net/http"
	"strings"

	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// IdentityResolver classifies every request into an access context and
// attaches the resolved Identity to its context. Resolution order: bearer
// token, then session cookie, then visitor.
type IdentityResolver struct {
	sessions *SessionManager
	tokens   *Tokens
	actors   *ActorLoader
	log      *zap.Logger
}

// NewIdentityResolver wires the resolver from its three sources.
func NewIdentityResolver(sm *SessionManager, tokens *Tokens, actors *ActorLoader, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{sessions: sm, tokens: tokens, actors: actors, log: logger}
}

// Middleware resolves the caller's identity. A bad bearer token is rejected
// with 401 here; an absent credential is not an error, it is a visitor.
func (ir *IdentityResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			id, err := ir.resolveToken(r, strings.TrimPrefix(header, "Bearer "))
			if err == ErrInvalidToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err != nil {
				ir.log.Error("token identity resolution failed", zap.Error(err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, WithIdentity(r, id))
			return
		}

		if su := ir.sessions.sessionUser(r); su != nil {
			id, err := ir.resolveSession(r, su)
			if err != nil {
				ir.log.Error("session identity resolution failed", zap.Error(err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if id != nil {
				next.ServeHTTP(w, WithIdentity(r, id))
				return
			}
		}

		next.ServeHTTP(w, WithIdentity(r, visitorIdentity(r)))
	})
}

func (ir *IdentityResolver) resolveToken(r *http.Request, presented string) (*Identity, error) {
	tok, err := ir.tokens.Verify(r.Context(), presented)
	if err != nil {
		return nil, err
	}

	var (
		actor  *policy.Actor
		accCtx string
	)
	switch tok.Kind {
	case models.TokenKindUser:
		actor, err = ir.actors.LoadUser(r.Context(), tok.UserID)
		accCtx = policy.ContextAPIUser
	case models.TokenKindGroup:
		actor, err = ir.actors.LoadGroup(r.Context(), tok.GroupID)
		accCtx = policy.ContextAPIGroup
	case models.TokenKindApp:
		actor, err = ir.actors.LoadApp(r.Context(), tok.AppID)
		accCtx = policy.ContextAPIApp
	default:
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	// Tokens always restrict: a record with no stored sets grants only the
	// mandatory sets, never the unrestricted session grant that a nil list
	// would resolve to.
	sets := tok.PermissionSets
	if sets == nil {
		sets = []string{}
	}

	return &Identity{
		Actor:         actor,
		AccessContext: accCtx,
		TokenSets:     sets,
	}, nil
}

func (ir *IdentityResolver) resolveSession(r *http.Request, su *SessionUser) (*Identity, error) {
	userID, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		// Stale or tampered cookie; treat as unauthenticated.
		ir.log.Warn("session cookie carried a bad user id", zap.String("user_id", su.ID))
		return nil, nil
	}
	actor, err := ir.actors.LoadUser(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	return &Identity{
		Actor:         actor,
		AccessContext: policy.ContextWebUser,
		SessionUser:   su,
	}, nil
}

func visitorIdentity(r *http.Request) *Identity {
	accCtx := policy.ContextAPIVisitor
	if wantsHTML(r) {
		accCtx = policy.ContextWebVisitor
	}
	return &Identity{AccessContext: accCtx}
}
