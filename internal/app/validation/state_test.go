package validation

import (
	"testing"
	"time"

	"github.com/dalemusser/badgehub/internal/domain/models"
)

func TestThreshold(t *testing.T) {
	cases := []struct {
		experts  int
		required int
		want     int
	}{
		{0, 3, 1},
		{1, 3, 1},
		{2, 3, 2},
		{3, 3, 3},
		{10, 3, 3},
		{0, 1, 1},
		{5, 0, 1}, // misconfigured ceiling clamps to 1
	}
	for _, tc := range cases {
		if got := Threshold(tc.experts, tc.required); got != tc.want {
			t.Errorf("Threshold(%d, %d) = %d, want %d", tc.experts, tc.required, got, tc.want)
		}
	}
}

func newLog(status string) *models.Log {
	return &models.Log{
		ValidationStatus: status,
		IssueStatus:      models.IssueUnissued,
		NextEntryNumber:  1,
	}
}

func TestRefresh_CrossingThresholdValidatesAndIssues(t *testing.T) {
	now := time.Now().UTC()
	l := newLog(models.ValidationRequested)
	l.ValidationCount = 2

	out := Refresh(l, 2, now)

	if l.ValidationStatus != models.ValidationValidated {
		t.Errorf("validation_status = %q, want validated", l.ValidationStatus)
	}
	if l.IssueStatus != models.IssueIssued {
		t.Errorf("issue_status = %q, want issued", l.IssueStatus)
	}
	if l.DateValidated == nil || l.DateIssued == nil {
		t.Error("expected date_validated and date_issued to be stamped")
	}
	if !out.BecameValidated || !out.BecameIssued {
		t.Errorf("outcome = %+v, want BecameValidated and BecameIssued", out)
	}
}

func TestRefresh_RejectionsNetAgainstValidations(t *testing.T) {
	l := newLog(models.ValidationRequested)
	l.ValidationCount = 2
	l.RejectionCount = 1

	Refresh(l, 2, time.Now().UTC())

	if l.ValidationStatus == models.ValidationValidated {
		t.Error("net count 1 against threshold 2 must not validate")
	}
}

func TestRefresh_RejectionDemotesAndRetracts(t *testing.T) {
	now := time.Now().UTC()
	l := newLog(models.ValidationRequested)
	l.ValidationCount = 1

	Refresh(l, 1, now)
	if !l.IsValidated() || l.IssueStatus != models.IssueIssued {
		t.Fatalf("setup: log should be validated and issued, got %q/%q", l.ValidationStatus, l.IssueStatus)
	}
	issued := *l.DateIssued

	// A rejection lands and the net count drops below threshold.
	l.RejectionCount = 1
	out := Refresh(l, 1, now.Add(time.Hour))

	if l.ValidationStatus == models.ValidationValidated {
		t.Error("rejection below threshold must demote validated status")
	}
	if l.IssueStatus != models.IssueRetracted {
		t.Errorf("issue_status = %q, want retracted", l.IssueStatus)
	}
	if !out.BecameRetracted {
		t.Errorf("outcome = %+v, want BecameRetracted", out)
	}
	if l.DateOriginallyIssued == nil || !l.DateOriginallyIssued.Equal(issued) {
		t.Error("retraction must preserve the original issue date")
	}
	if l.DateIssued != nil {
		t.Error("retraction must clear date_issued")
	}
	if l.DateRetracted == nil {
		t.Error("retraction must stamp date_retracted")
	}
}

func TestRefresh_ValidatedIsStickyAgainstThresholdGrowth(t *testing.T) {
	now := time.Now().UTC()
	l := newLog(models.ValidationIncomplete)
	l.ValidationCount = 1

	Refresh(l, 1, now)
	if !l.IsValidated() {
		t.Fatal("setup: log should be validated at threshold 1")
	}

	// The threshold rises to 3 with no rejections. Status must hold.
	out := Refresh(l, 3, now.Add(time.Hour))

	if !l.IsValidated() {
		t.Error("threshold growth without rejections must not de-validate")
	}
	if out.ValidationStatusChanged {
		t.Errorf("outcome = %+v, want no status change", out)
	}
	if l.IssueStatus != models.IssueIssued {
		t.Errorf("issue_status = %q, want issued to survive", l.IssueStatus)
	}
}

func TestRefresh_StatusFollowsDatesBelowThreshold(t *testing.T) {
	now := time.Now().UTC()

	l := newLog(models.ValidationIncomplete)
	Refresh(l, 2, now)
	if l.ValidationStatus != models.ValidationIncomplete {
		t.Errorf("no dates: status = %q, want incomplete", l.ValidationStatus)
	}

	req := now
	l.DateRequested = &req
	Refresh(l, 2, now)
	if l.ValidationStatus != models.ValidationRequested {
		t.Errorf("with date_requested: status = %q, want requested", l.ValidationStatus)
	}

	wd := now.Add(time.Minute)
	l.DateWithdrawn = &wd
	Refresh(l, 2, now)
	if l.ValidationStatus != models.ValidationWithdrawn {
		t.Errorf("with date_withdrawn: status = %q, want withdrawn", l.ValidationStatus)
	}
}

func TestRefresh_ReissueAfterRetractionKeepsOriginalIssueDate(t *testing.T) {
	now := time.Now().UTC()
	l := newLog(models.ValidationIncomplete)
	l.ValidationCount = 1

	Refresh(l, 1, now)
	original := *l.DateIssued

	l.RejectionCount = 1
	Refresh(l, 1, now.Add(time.Hour))
	if l.IssueStatus != models.IssueRetracted {
		t.Fatalf("setup: expected retracted, got %q", l.IssueStatus)
	}

	// A fresh endorsement restores validated; the re-issue stamps a new
	// date_issued while date_originally_issued keeps the first award.
	l.ValidationCount = 2
	out := Refresh(l, 1, now.Add(2*time.Hour))

	if l.IssueStatus != models.IssueIssued || !out.BecameIssued {
		t.Errorf("issue_status = %q (outcome %+v), want issued", l.IssueStatus, out)
	}
	if l.DateRetracted != nil {
		t.Error("re-issue must clear date_retracted")
	}
	if l.DateOriginallyIssued == nil || !l.DateOriginallyIssued.Equal(original) {
		t.Error("date_originally_issued must keep the first award date")
	}
}
