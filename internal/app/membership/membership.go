// internal/app/membership/membership.go

// Package membership implements the App↔User and App↔Group membership
// decorators: the only legitimate write path to membership records and to
// the mirrored id-lists cached on the App aggregate.
//
// Every mutation goes record-first: the membership document is written with
// its derived status, then the App's id-lists are resynchronized in the same
// transaction (see system/txn). After any save the subject's id appears in
// exactly one of the active/pending/disabled lists; for user memberships the
// admin/member split is additionally tracked for active subjects only.
//
// Duplicate creation is a caller error (ErrDuplicateMembership), distinct
// from a record failing validation: callers are expected to check
// Has(..., FilterAny) first or handle the rejection. The unique index on
// (app_id, subject_id) makes the check race-safe: two concurrent joins for
// the same pair cannot both insert.
package membership

import (
	"errors"
)

// Membership status filters accepted by the Has checks.
const (
	FilterAny      = "any"
	FilterActive   = "active"
	FilterPending  = "pending"
	FilterDisabled = "disabled"
	FilterAdmin    = "admin"  // user memberships only
	FilterMember   = "member" // user memberships only
)

// ErrDuplicateMembership is returned when a membership already exists for
// the (app, subject) pair. It indicates a bug in the caller's idempotency
// check and must not be swallowed.
var ErrDuplicateMembership = errors.New("membership already exists for this app and subject")

// ErrBadFilter is returned for an unrecognized status filter.
var ErrBadFilter = errors.New(`status filter must be "any", "active", "pending", "disabled", "admin", or "member"`)
