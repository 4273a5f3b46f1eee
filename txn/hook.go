package txn

import (
	"context"
	"errors"
)

// ErrCommitFailed is returned by OnCommit when applying staged mutations
// would violate a cache invariant, or when the context is already done as
// OnCommit starts. The wait for the base's writer section does not observe
// the context, so a cancellation during that wait does not fail the commit.
// On failure the base is left untouched; staged ops remain until an
// explicit rollback.
var ErrCommitFailed = errors.New("txn: commit failed")

// ErrRollbackFailed is reserved for symmetry with ErrCommitFailed. Ordinary
// rollback never produces it.
var ErrRollbackFailed = errors.New("txn: rollback failed")

// Hook is the capability an external unit-of-work coordinator drives to
// finalize a transaction. OnRollback is infallible in this implementation;
// the error return exists only to satisfy the contract.
type Hook interface {
	OnCommit(ctx context.Context) error
	OnRollback(ctx context.Context) error
}
