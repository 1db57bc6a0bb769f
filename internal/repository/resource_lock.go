package repository

import (
	"context"
	"errors"
)

type resourceLocker struct{}

func NewResourceLocker() ResourceLocker {
	return &resourceLocker{}
}

// AcquireResourceLock takes a transaction-scoped advisory lock keyed by a
// hash of key. It blocks until the current holder's transaction ends and
// is released automatically on commit or rollback; there is no explicit
// unlock. Re-acquiring the same key inside one transaction succeeds
// immediately.
func (l *resourceLocker) AcquireResourceLock(ctx context.Context, tx DBTX, key string) error {
	if tx == nil {
		return errors.New("resource lock requires an active transaction")
	}
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key)
	return err
}
