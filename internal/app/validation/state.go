// internal/app/validation/state.go
package validation

import (
	"time"

	"github.com/dalemusser/badgehub/internal/domain/models"
)

// Threshold returns the badge's effective validation threshold given the
// current number of experts (validated, non-detached logs). The threshold
// grows with the expert pool, from 1 for a brand-new badge up to the
// configured ceiling.
func Threshold(expertCount, requiredThreshold int) int {
	if requiredThreshold < 1 {
		requiredThreshold = 1
	}
	if expertCount < 1 {
		return 1
	}
	if expertCount > requiredThreshold {
		return requiredThreshold
	}
	return expertCount
}

// Outcome reports which derived fields a Refresh changed, so callers can
// trigger follow-on work (back-validation, notification events) exactly on
// the transitions that matter.
type Outcome struct {
	ValidationStatusChanged bool
	IssueStatusChanged      bool
	BecameValidated         bool
	BecameIssued            bool
	BecameRetracted         bool
}

// Refresh recomputes the log's derived validation and issue statuses from
// its counts and dates against the given threshold. It must run after any
// change to validation_count, rejection_count, date_requested, or
// date_withdrawn.
//
// Validated status is sticky against threshold growth: a log loses it only
// when rejection entries exist. Counts are treated as non-negative; the
// entry operations guard every decrement.
func Refresh(l *models.Log, threshold int, now time.Time) Outcome {
	var out Outcome
	prevValidation := l.ValidationStatus
	prevIssue := l.IssueStatus

	net := l.ValidationCount - l.RejectionCount

	switch {
	case net >= threshold:
		l.ValidationStatus = models.ValidationValidated
		if l.DateValidated == nil {
			t := now
			l.DateValidated = &t
		}
		if l.IssueStatus != models.IssueIssued {
			l.IssueStatus = models.IssueIssued
			if l.DateIssued == nil {
				t := now
				l.DateIssued = &t
			}
			l.DateRetracted = nil
		}

	case l.RejectionCount > 0:
		if l.ValidationStatus == models.ValidationValidated {
			l.DateValidated = nil
		}
		l.ValidationStatus = statusFromDates(l)
		if l.IssueStatus == models.IssueIssued {
			l.IssueStatus = models.IssueRetracted
			if l.DateOriginallyIssued == nil {
				l.DateOriginallyIssued = l.DateIssued
			}
			t := now
			l.DateRetracted = &t
			l.DateIssued = nil
		}

	default:
		// Below threshold with no rejections: previously-earned validated
		// status survives threshold growth; otherwise the dates decide.
		if l.ValidationStatus != models.ValidationValidated {
			l.ValidationStatus = statusFromDates(l)
		}
	}

	out.ValidationStatusChanged = l.ValidationStatus != prevValidation
	out.IssueStatusChanged = l.IssueStatus != prevIssue
	out.BecameValidated = out.ValidationStatusChanged && l.ValidationStatus == models.ValidationValidated
	out.BecameIssued = out.IssueStatusChanged && l.IssueStatus == models.IssueIssued
	out.BecameRetracted = out.IssueStatusChanged && l.IssueStatus == models.IssueRetracted
	return out
}

// statusFromDates derives the non-validated status from the request and
// withdrawal dates. Withdrawal wins over request because requesting again
// clears the withdrawal date.
func statusFromDates(l *models.Log) string {
	if l.DateWithdrawn != nil {
		return models.ValidationWithdrawn
	}
	if l.DateRequested != nil {
		return models.ValidationRequested
	}
	return models.ValidationIncomplete
}
