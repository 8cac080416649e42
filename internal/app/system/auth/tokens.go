// internal/app/system/auth/tokens.go
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/badgehub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken covers every token failure: malformed, unknown, revoked,
// or wrong secret. Callers must not distinguish them to the client.
var ErrInvalidToken = errors.New("invalid api token")

// Tokens mints and verifies API bearer tokens. The presented form is
// "<token_id>.<secret>": the token_id locates the record, the secret is
// checked against its bcrypt hash.
type Tokens struct {
	col *mongo.Collection
}

// NewTokens creates the token service over the given database.
func NewTokens(db *mongo.Database) *Tokens {
	return &Tokens{col: db.Collection("api_tokens")}
}

// Mint creates a token of the given kind for the given subject id and
// declared permission sets. It returns the stored record and the plaintext
// token, which is shown once and never recoverable.
func (t *Tokens) Mint(ctx context.Context, kind string, subjectID primitive.ObjectID, sets []string) (*models.APIToken, string, error) {
	// A nil set list means "no sets declared", which must stay distinct
	// from the session path's unrestricted nil when the token is resolved.
	if sets == nil {
		sets = []string{}
	}
	secret := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	tok := &models.APIToken{
		ID:             primitive.NewObjectID(),
		TokenID:        uuid.NewString(),
		SecretHash:     hash,
		Kind:           kind,
		PermissionSets: sets,
		CreatedAt:      time.Now().UTC(),
	}
	switch kind {
	case models.TokenKindUser:
		tok.UserID = subjectID
	case models.TokenKindGroup:
		tok.GroupID = subjectID
	case models.TokenKindApp:
		tok.AppID = subjectID
	default:
		return nil, "", errors.New("auth: unknown token kind " + kind)
	}

	if _, err := t.col.InsertOne(ctx, tok); err != nil {
		return nil, "", err
	}
	return tok, tok.TokenID + "." + secret, nil
}

// Verify resolves a presented token string to its record. Any failure is
// ErrInvalidToken; database errors pass through.
func (t *Tokens) Verify(ctx context.Context, presented string) (*models.APIToken, error) {
	tokenID, secret, ok := strings.Cut(presented, ".")
	if !ok || tokenID == "" || secret == "" {
		return nil, ErrInvalidToken
	}

	var tok models.APIToken
	err := t.col.FindOne(ctx, bson.M{"token_id": tokenID}).Decode(&tok)
	if err == mongo.ErrNoDocuments {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if tok.Revoked {
		return nil, ErrInvalidToken
	}
	if bcrypt.CompareHashAndPassword(tok.SecretHash, []byte(secret)) != nil {
		return nil, ErrInvalidToken
	}

	// Best effort; a stale last_used is not worth failing the request.
	_, _ = t.col.UpdateOne(ctx, bson.M{"_id": tok.ID},
		bson.M{"$set": bson.M{"last_used": time.Now().UTC()}})

	return &tok, nil
}

// Revoke marks the token unusable. Revocation is permanent.
func (t *Tokens) Revoke(ctx context.Context, tokenID string) error {
	res, err := t.col.UpdateOne(ctx, bson.M{"token_id": tokenID},
		bson.M{"$set": bson.M{"revoked": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInvalidToken
	}
	return nil
}

// PruneRevoked deletes revoked tokens that have not been presented since the
// cutoff. Unused revoked records never authenticate again, so removing them
// only shrinks the collection.
func (t *Tokens) PruneRevoked(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := t.col.DeleteMany(ctx, bson.M{
		"revoked":   true,
		"last_used": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
