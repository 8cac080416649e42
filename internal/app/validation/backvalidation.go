// internal/app/validation/backvalidation.go
package validation

import (
	"context"

	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// backValidate runs after a log transitions into validated. The new expert
// raises the badge's effective threshold, so every peer log that earned
// validated status under the old, lower threshold gets an extra validation
// entry credited to the new expert. Adding an expert must never silently
// de-validate an already-validated peer.
//
// Errors are collected per peer and logged; the triggering save has already
// committed and is never rolled back here.
func (e *Engine) backValidate(ctx context.Context, badge *models.Badge, trigger *models.Log) {
	threshold, err := e.CurrentThreshold(ctx, badge)
	if err != nil {
		e.log.Error("back-validation threshold lookup failed",
			zap.String("badge_id", badge.ID.Hex()), zap.Error(err))
		return
	}

	peers, err := e.underThresholdPeers(ctx, badge.ID, trigger.ID, threshold)
	if err != nil {
		e.log.Error("back-validation peer scan failed",
			zap.String("badge_id", badge.ID.Hex()), zap.Error(err))
		return
	}

	for i := range peers {
		peer := &peers[i]
		if _, _, err := e.AddValidation(ctx, badge, peer, trigger.UserID, models.VerdictEndorse, "", false); err != nil {
			e.log.Error("back-validation top-up failed",
				zap.String("badge_id", badge.ID.Hex()),
				zap.String("log_id", peer.ID.Hex()),
				zap.String("creator_id", trigger.UserID.Hex()),
				zap.Error(err))
			continue
		}
	}
}

// underThresholdPeers returns the badge's validated, attached logs other
// than excludeID whose validation_count is below threshold.
func (e *Engine) underThresholdPeers(ctx context.Context, badgeID, excludeID primitive.ObjectID, threshold int) ([]models.Log, error) {
	cur, err := e.logs.Find(ctx, bson.M{
		"badge_id":          badgeID,
		"validation_status": models.ValidationValidated,
		"detached":          false,
		"_id":               bson.M{"$ne": excludeID},
		"validation_count":  bson.M{"$lt": threshold},
	})
	if err != nil {
		return nil, err
	}
	var peers []models.Log
	if err := cur.All(ctx, &peers); err != nil {
		return nil, err
	}
	return peers, nil
}

// SweepBadge restores the back-validation closure for one badge: every
// validated, attached log is topped up to the current threshold with
// entries credited to the badge's other experts. Safe to re-run at any
// time; existing per-creator entries make every top-up a no-op on repeat.
//
// Returned errors are the collected per-log failures; the sweep continues
// past each one.
func (e *Engine) SweepBadge(ctx context.Context, badge *models.Badge) []error {
	threshold, err := e.CurrentThreshold(ctx, badge)
	if err != nil {
		return []error{err}
	}

	cur, err := e.logs.Find(ctx, bson.M{
		"badge_id":          badge.ID,
		"validation_status": models.ValidationValidated,
		"detached":          false,
	})
	if err != nil {
		return []error{err}
	}
	var experts []models.Log
	if err := cur.All(ctx, &experts); err != nil {
		return []error{err}
	}

	var errs []error
	for i := range experts {
		l := &experts[i]
		if l.ValidationCount >= threshold {
			continue
		}
		for j := range experts {
			if l.ValidationCount >= threshold {
				break
			}
			if experts[j].ID == l.ID {
				continue
			}
			if _, _, err := e.AddValidation(ctx, badge, l, experts[j].UserID, models.VerdictEndorse, "", false); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}
