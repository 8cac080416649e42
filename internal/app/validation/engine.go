// internal/app/validation/engine.go
package validation

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/badgehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/badgehub/internal/app/system/txn"
	"github.com/dalemusser/badgehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrBadTransition is returned for lifecycle requests the log's current
// state does not allow (withdrawing an unrequested validation, requesting
// one on an already-validated log).
var ErrBadTransition = errors.New("validation: transition not allowed from current state")

// ErrBadVerdict is returned for a verdict outside endorse/reject.
var ErrBadVerdict = errors.New(`validation: verdict must be "endorse" or "reject"`)

// ErrLogExists is returned by StartLog when the user already has a log on
// the badge.
var ErrLogExists = errors.New("validation: log already exists for this badge and user")

// Engine drives the log state machine: entry creation, count maintenance,
// derived-status refresh, and back-validation propagation. It is the only
// writer of validation_count, rejection_count, and the derived status and
// date fields.
type Engine struct {
	db      *mongo.Database
	badges  *mongo.Collection
	logs    *mongo.Collection
	entries *mongo.Collection
	log     *zap.Logger
}

// NewEngine creates the validation engine.
func NewEngine(db *mongo.Database, logger *zap.Logger) *Engine {
	return &Engine{
		db:      db,
		badges:  db.Collection("badges"),
		logs:    db.Collection("logs"),
		entries: db.Collection("entries"),
		log:     logger,
	}
}

// ExpertCount returns the number of experts for a badge: validated,
// non-detached logs.
func (e *Engine) ExpertCount(ctx context.Context, badgeID primitive.ObjectID) (int, error) {
	n, err := e.logs.CountDocuments(ctx, bson.M{
		"badge_id":          badgeID,
		"validation_status": models.ValidationValidated,
		"detached":          false,
	})
	return int(n), err
}

// CurrentThreshold returns the badge's effective threshold right now.
func (e *Engine) CurrentThreshold(ctx context.Context, badge *models.Badge) (int, error) {
	experts, err := e.ExpertCount(ctx, badge.ID)
	if err != nil {
		return 0, err
	}
	return Threshold(experts, badge.RequiredThreshold), nil
}

// StartLog creates the log for a user joining a badge. If the badge has no
// experts yet, the founding member is self-validated immediately with an
// entry credited to the badge creator.
func (e *Engine) StartLog(ctx context.Context, badge *models.Badge, userID primitive.ObjectID) (*models.Log, error) {
	now := time.Now().UTC()
	l := &models.Log{
		ID:               primitive.NewObjectID(),
		BadgeID:          badge.ID,
		GroupID:          badge.GroupID,
		UserID:           userID,
		ValidationStatus: models.ValidationIncomplete,
		IssueStatus:      models.IssueUnissued,
		NextEntryNumber:  1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	experts, err := e.ExpertCount(ctx, badge.ID)
	if err != nil {
		return nil, err
	}
	if _, err := e.logs.InsertOne(ctx, l); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrLogExists
		}
		return nil, err
	}

	if experts == 0 {
		if _, _, err := e.AddValidation(ctx, badge, l, badge.CreatorID, models.VerdictEndorse, "", false); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// AddValidation records a validation verdict from creatorID on the log.
//
// A creator gets one validation entry per log. When one already exists:
// with overwrite false the call is a no-op (this is what makes
// back-validation retry-safe); with overwrite true the verdict and body are
// replaced and the counts adjusted.
//
// On the transition into validated, back-validation propagates to peer
// logs; propagation failures are collected and logged, never allowed to
// undo the committed save.
func (e *Engine) AddValidation(ctx context.Context, badge *models.Badge, l *models.Log, creatorID primitive.ObjectID, verdict, body string, overwrite bool) (*models.Entry, Outcome, error) {
	if verdict != models.VerdictEndorse && verdict != models.VerdictReject {
		return nil, Outcome{}, ErrBadVerdict
	}

	var existing models.Entry
	err := e.entries.FindOne(ctx, bson.M{
		"log_id":     l.ID,
		"creator_id": creatorID,
		"type":       models.EntryTypeValidation,
	}).Decode(&existing)
	found := err == nil
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, Outcome{}, err
	}
	if found && !overwrite {
		return &existing, Outcome{}, nil
	}

	threshold, err := e.CurrentThreshold(ctx, badge)
	if err != nil {
		return nil, Outcome{}, err
	}

	now := time.Now().UTC()
	var entry *models.Entry
	var out Outcome
	var lostRace bool

	err = txn.WithTransaction(ctx, e.db.Client(), func(ctx context.Context) error {
		if found {
			if existing.Verdict != verdict {
				bumpCount(l, existing.Verdict, -1)
				bumpCount(l, verdict, +1)
			}
			existing.Verdict = verdict
			existing.Body = htmlsanitize.Sanitize(body)
			existing.UpdatedAt = now
			if _, err := e.entries.UpdateOne(ctx, bson.M{"_id": existing.ID},
				bson.M{"$set": bson.M{
					"verdict":    existing.Verdict,
					"body":       existing.Body,
					"updated_at": existing.UpdatedAt,
				}}); err != nil {
				return err
			}
			entry = &existing
		} else {
			entry = &models.Entry{
				ID:        primitive.NewObjectID(),
				LogID:     l.ID,
				CreatorID: creatorID,
				Type:      models.EntryTypeValidation,
				Number:    l.NextEntryNumber,
				Body:      htmlsanitize.Sanitize(body),
				Verdict:   verdict,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, err := e.entries.InsertOne(ctx, entry); err != nil {
				if wafflemongo.IsDup(err) {
					// Concurrent duplicate: someone else's entry landed
					// first. Same outcome as the no-op path; the winning
					// entry is loaded after the transaction.
					lostRace = true
					return nil
				}
				return err
			}
			l.NextEntryNumber++
			bumpCount(l, verdict, +1)
		}

		out = Refresh(l, threshold, now)
		return e.saveLog(ctx, l, now)
	})
	if err != nil {
		return nil, Outcome{}, err
	}

	if lostRace {
		var winner models.Entry
		if err := e.entries.FindOne(ctx, bson.M{
			"log_id":     l.ID,
			"creator_id": creatorID,
			"type":       models.EntryTypeValidation,
		}).Decode(&winner); err != nil {
			return nil, Outcome{}, err
		}
		return &winner, Outcome{}, nil
	}

	if out.BecameValidated {
		e.backValidate(ctx, badge, l)
	}
	return entry, out, nil
}

// RequestValidation marks the log as awaiting expert review. Allowed from
// incomplete and withdrawn only.
func (e *Engine) RequestValidation(ctx context.Context, badge *models.Badge, l *models.Log) (Outcome, error) {
	if l.ValidationStatus != models.ValidationIncomplete && l.ValidationStatus != models.ValidationWithdrawn {
		return Outcome{}, ErrBadTransition
	}

	threshold, err := e.CurrentThreshold(ctx, badge)
	if err != nil {
		return Outcome{}, err
	}

	now := time.Now().UTC()
	t := now
	l.DateRequested = &t
	l.DateWithdrawn = nil
	out := Refresh(l, threshold, now)
	if err := e.saveLog(ctx, l, now); err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// WithdrawRequest retracts a pending validation request.
func (e *Engine) WithdrawRequest(ctx context.Context, badge *models.Badge, l *models.Log) (Outcome, error) {
	if l.ValidationStatus != models.ValidationRequested {
		return Outcome{}, ErrBadTransition
	}

	threshold, err := e.CurrentThreshold(ctx, badge)
	if err != nil {
		return Outcome{}, err
	}

	now := time.Now().UTC()
	t := now
	l.DateWithdrawn = &t
	l.DateRequested = nil
	out := Refresh(l, threshold, now)
	if err := e.saveLog(ctx, l, now); err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// AddPost appends a post entry to the log. The body is sanitized before
// storage.
func (e *Engine) AddPost(ctx context.Context, l *models.Log, creatorID primitive.ObjectID, body string) (*models.Entry, error) {
	now := time.Now().UTC()
	entry := &models.Entry{
		ID:        primitive.NewObjectID(),
		LogID:     l.ID,
		CreatorID: creatorID,
		Type:      models.EntryTypePost,
		Number:    l.NextEntryNumber,
		Body:      htmlsanitize.Sanitize(body),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := txn.WithTransaction(ctx, e.db.Client(), func(ctx context.Context) error {
		if _, err := e.entries.InsertOne(ctx, entry); err != nil {
			return err
		}
		l.NextEntryNumber++
		return e.saveLog(ctx, l, now)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Detach soft-removes the log when its user leaves the badge or group. The
// history stays; the log drops out of expert counts and back-validation.
func (e *Engine) Detach(ctx context.Context, l *models.Log) error {
	l.Detached = true
	return e.saveLog(ctx, l, time.Now().UTC())
}

// Reattach restores a detached log, re-entering it in expert counts.
func (e *Engine) Reattach(ctx context.Context, l *models.Log) error {
	l.Detached = false
	return e.saveLog(ctx, l, time.Now().UTC())
}

// saveLog persists every engine-owned field of the log.
func (e *Engine) saveLog(ctx context.Context, l *models.Log, now time.Time) error {
	l.UpdatedAt = now
	_, err := e.logs.UpdateOne(ctx, bson.M{"_id": l.ID}, bson.M{"$set": bson.M{
		"validation_status":      l.ValidationStatus,
		"issue_status":           l.IssueStatus,
		"validation_count":       l.ValidationCount,
		"rejection_count":        l.RejectionCount,
		"next_entry_number":      l.NextEntryNumber,
		"date_requested":         l.DateRequested,
		"date_withdrawn":         l.DateWithdrawn,
		"date_validated":         l.DateValidated,
		"date_issued":            l.DateIssued,
		"date_originally_issued": l.DateOriginallyIssued,
		"date_retracted":         l.DateRetracted,
		"detached":               l.Detached,
		"updated_at":             l.UpdatedAt,
	}})
	return err
}

// bumpCount adjusts the count for a verdict, never letting it go negative.
func bumpCount(l *models.Log, verdict string, delta int) {
	switch verdict {
	case models.VerdictEndorse:
		l.ValidationCount += delta
		if l.ValidationCount < 0 {
			l.ValidationCount = 0
		}
	case models.VerdictReject:
		l.RejectionCount += delta
		if l.RejectionCount < 0 {
			l.RejectionCount = 0
		}
	}
}
