// internal/app/system/txn/txn.go

// Package txn runs multi-document writes in a MongoDB transaction when the
// server supports them, falling back to direct execution on standalone
// servers (local dev, CI). Callers that need a membership write and its
// id-list resync to commit together go through WithTransaction.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// WithTransaction executes fn inside a session transaction. If the server
// does not support transactions (standalone, no replica set), fn runs
// directly: single-document writes are still atomic, and callers accept the
// weaker guarantee in dev environments.
func WithTransaction(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return fn(ctx)
	}
	return err
}

// Server error codes returned when transactions/sessions are unavailable.
const (
	codeIllegalOperation        = 20
	codeCommandNotSupported     = 51
	codeOperationNotSupportedIn = 263
)

// IsNotSupported reports whether err indicates the server cannot run
// transactions, as opposed to a transaction that failed and should surface.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case codeIllegalOperation, codeCommandNotSupported, codeOperationNotSupportedIn:
			return true
		}
	}
	if we := (mongo.WriteException{}); errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			switch e.Code {
			case codeIllegalOperation, codeCommandNotSupported, codeOperationNotSupportedIn:
				return true
			}
		}
	}

	// Message heuristics for drivers/proxies that wrap the codes away.
	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation"):
		return true
	}
	return false
}
