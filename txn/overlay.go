// Package txn provides a transaction-scoped staging overlay over a shared
// cache.IndexCache, with commit/rollback semantics implementing the Hook
// capability an external unit-of-work coordinator drives.
package txn

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ADORSYS-GIS/postgres-index-cache/cache"
	"github.com/ADORSYS-GIS/postgres-index-cache/record"
)

type opKind byte

const (
	opUpsert opKind = iota
	opDelete
)

type stagedOp[T record.Record] struct {
	kind opKind
	item T
}

// Overlay stages add/update/remove mutations against a shared base cache
// and makes them visible to reads through this overlay immediately,
// without mutating the base. Commit atomically merges pending ops into
// the base; rollback discards them.
//
// An Overlay is normally owned by a single transaction and needs no
// internal synchronization, but the mutex here makes it safe to share
// across goroutines within that one transaction too.
type Overlay[T record.Record] struct {
	base *cache.IndexCache[T]

	mu      sync.Mutex
	pending map[uuid.UUID]stagedOp[T]
}

// New creates an overlay staging mutations against base.
func New[T record.Record](base *cache.IndexCache[T]) *Overlay[T] {
	return &Overlay[T]{
		base:    base,
		pending: make(map[uuid.UUID]stagedOp[T]),
	}
}

// Add stages an upsert, overwriting any prior staged op for this key.
func (o *Overlay[T]) Add(item T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending[item.PrimaryKey()] = stagedOp[T]{kind: opUpsert, item: item}
}

// Update is equivalent to Add (see cache.IndexCache.Update).
func (o *Overlay[T]) Update(item T) {
	o.Add(item)
}

// Remove stages a delete, overwriting any prior staged op for pk.
func (o *Overlay[T]) Remove(pk uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var zero T
	o.pending[pk] = stagedOp[T]{kind: opDelete, item: zero}
}

// GetByPrimary returns the effective record at pk: staged-over-base.
func (o *Overlay[T]) GetByPrimary(pk uuid.UUID) (T, bool) {
	o.mu.Lock()
	op, staged := o.pending[pk]
	o.mu.Unlock()

	if staged {
		if op.kind == opDelete {
			var zero T
			return zero, false
		}
		return op.item, true
	}
	return o.base.GetByPrimary(pk)
}

// ContainsPrimary reports whether pk is present in the effective view.
func (o *Overlay[T]) ContainsPrimary(pk uuid.UUID) bool {
	o.mu.Lock()
	op, staged := o.pending[pk]
	o.mu.Unlock()

	if staged {
		return op.kind == opUpsert
	}
	return o.base.ContainsPrimary(pk)
}

// GetByI64Index computes the effective set of primary keys indexed under
// (name, v): the base set, with every staged op applied on top.
func (o *Overlay[T]) GetByI64Index(name string, v int64) map[uuid.UUID]struct{} {
	result := o.base.GetByI64Index(name, v)

	o.mu.Lock()
	defer o.mu.Unlock()
	for pk, op := range o.pending {
		switch op.kind {
		case opDelete:
			delete(result, pk)
		case opUpsert:
			if matches := i64Matches(op.item, name, v); matches {
				result[pk] = struct{}{}
			} else {
				delete(result, pk)
			}
		}
	}
	return result
}

// GetByUUIDIndex computes the effective set of primary keys indexed under
// (name, v): the base set, with every staged op applied on top.
func (o *Overlay[T]) GetByUUIDIndex(name string, v uuid.UUID) map[uuid.UUID]struct{} {
	result := o.base.GetByUUIDIndex(name, v)

	o.mu.Lock()
	defer o.mu.Unlock()
	for pk, op := range o.pending {
		switch op.kind {
		case opDelete:
			delete(result, pk)
		case opUpsert:
			if uuidMatches(op.item, name, v) {
				result[pk] = struct{}{}
			} else {
				delete(result, pk)
			}
		}
	}
	return result
}

func i64Matches(item record.IndexedRecord, name string, v int64) bool {
	val := item.I64Keys()[name]
	return val != nil && *val == v
}

func uuidMatches(item record.IndexedRecord, name string, v uuid.UUID) bool {
	val := item.UUIDKeys()[name]
	return val != nil && *val == v
}

// OnCommit acquires the base's exclusive writer section and applies every
// staged op in one observable transition: other readers see either the
// pre-commit base or the fully committed post-commit base, never a
// partial state. On success the committed keys are cleared from pending;
// on failure pending is left untouched and ErrCommitFailed is returned.
func (o *Overlay[T]) OnCommit(ctx context.Context) error {
	o.mu.Lock()
	keys := make([]uuid.UUID, 0, len(o.pending))
	ops := make([]cache.BatchOp[T], 0, len(o.pending))
	for pk, op := range o.pending {
		keys = append(keys, pk)
		ops = append(ops, cache.BatchOp[T]{PK: pk, Item: op.item, Delete: op.kind == opDelete})
	}
	o.mu.Unlock()

	if err := ctxErr(ctx); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	if err := o.base.ApplyBatch(ops); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}

	o.mu.Lock()
	for _, pk := range keys {
		delete(o.pending, pk)
	}
	o.mu.Unlock()
	return nil
}

// OnRollback discards all pending mutations. It never fails.
func (o *Overlay[T]) OnRollback(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = make(map[uuid.UUID]stagedOp[T])
	return nil
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	return nil
}
