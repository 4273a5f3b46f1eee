// Package cache implements IndexCache, a thread-safe primary/secondary
// index over records keyed by UUID.
package cache

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ADORSYS-GIS/postgres-index-cache/record"
)

// IndexCache is the base cache: a primary UUID -> T map plus named
// secondary indexes keyed by int64 or UUID, each mapping a key value to
// the set of primary keys whose record carries that value.
//
// Any number of readers may run concurrently; mutators take an exclusive
// section for their duration. Invariants I1-I4 in the design hold after
// every call.
type IndexCache[T record.Record] struct {
	mu          sync.RWMutex
	primary     map[uuid.UUID]T
	i64Indexes  map[string]map[int64]map[uuid.UUID]struct{}
	uuidIndexes map[string]map[uuid.UUID]map[uuid.UUID]struct{}
}

// New builds an IndexCache from a snapshot. It fails with a
// DuplicatePrimaryError if two items share a primary key.
func New[T record.Record](items []T) (*IndexCache[T], error) {
	c := &IndexCache[T]{
		primary:     make(map[uuid.UUID]T, len(items)),
		i64Indexes:  make(map[string]map[int64]map[uuid.UUID]struct{}),
		uuidIndexes: make(map[string]map[uuid.UUID]map[uuid.UUID]struct{}),
	}
	for _, item := range items {
		pk := item.PrimaryKey()
		if _, exists := c.primary[pk]; exists {
			return nil, &DuplicatePrimaryError{PK: pk}
		}
		c.insertLocked(item)
	}
	return c, nil
}

// Add inserts item, or upserts it if its primary key already exists.
func (c *IndexCache[T]) Add(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(item)
}

// Update is equivalent to Add: a missing primary key is treated as an
// insert rather than an error (see spec Open Question (c)).
func (c *IndexCache[T]) Update(item T) {
	c.Add(item)
}

// Remove deletes the record at pk from the primary map and every
// secondary index entry it participated in. It reports whether a record
// was removed; it is a no-op when pk is absent.
func (c *IndexCache[T]) Remove(pk uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(pk)
}

// GetByPrimary returns the record at pk and whether it was found.
func (c *IndexCache[T]) GetByPrimary(pk uuid.UUID) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.primary[pk]
	return item, ok
}

// GetByI64Index returns a snapshot of the primary keys indexed under
// (name, v). An unknown name or value yields an empty, non-nil set.
func (c *IndexCache[T]) GetByI64Index(name string, v int64) map[uuid.UUID]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneSet(c.i64Indexes[name][v])
}

// GetByUUIDIndex returns a snapshot of the primary keys indexed under
// (name, v). An unknown name or value yields an empty, non-nil set.
func (c *IndexCache[T]) GetByUUIDIndex(name string, v uuid.UUID) map[uuid.UUID]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneSet(c.uuidIndexes[name][v])
}

// ContainsPrimary reports whether pk is present.
func (c *IndexCache[T]) ContainsPrimary(pk uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.primary[pk]
	return ok
}

// Len returns the number of records in the primary map.
func (c *IndexCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.primary)
}

// IsEmpty reports whether the cache holds no records.
func (c *IndexCache[T]) IsEmpty() bool {
	return c.Len() == 0
}

// BatchOp is one staged mutation to apply atomically via ApplyBatch.
// Delete takes precedence over Item: when Delete is true, Item is ignored.
type BatchOp[T record.Record] struct {
	PK     uuid.UUID
	Item   T
	Delete bool
}

// ApplyBatch applies ops under a single writer section, so readers observe
// either the pre-batch state or the fully-applied post-batch state, never
// an intermediate one. If any upsert would change the set of declared
// index names for an already-present primary key, the whole batch is
// rejected with ErrInvariantViolation and the cache is left untouched.
func (c *IndexCache[T]) ApplyBatch(ops []BatchOp[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, op := range ops {
		if op.Delete {
			continue
		}
		old, exists := c.primary[op.PK]
		if exists && !sameDeclaredNames(old, op.Item) {
			return &InvariantViolationError{PK: op.PK}
		}
	}

	for _, op := range ops {
		if op.Delete {
			c.removeLocked(op.PK)
		} else {
			c.upsertLocked(op.Item)
		}
	}
	return nil
}

func sameDeclaredNames[T record.Record](a, b T) bool {
	return sameNameSet(namesOfI64(a), namesOfI64(b)) && sameNameSet(namesOfUUID(a), namesOfUUID(b))
}

func namesOfI64(r record.IndexedRecord) map[string]struct{} {
	keys := r.I64Keys()
	names := make(map[string]struct{}, len(keys))
	for name := range keys {
		names[name] = struct{}{}
	}
	return names
}

func namesOfUUID(r record.IndexedRecord) map[string]struct{} {
	keys := r.UUIDKeys()
	names := make(map[string]struct{}, len(keys))
	for name := range keys {
		names[name] = struct{}{}
	}
	return names
}

func sameNameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for name := range a {
		if _, ok := b[name]; !ok {
			return false
		}
	}
	return true
}

func cloneSet(src map[uuid.UUID]struct{}) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(src))
	for k := range src {
		out[k] = struct{}{}
	}
	return out
}

// insertLocked adds item assuming its primary key is not yet present.
func (c *IndexCache[T]) insertLocked(item T) {
	pk := item.PrimaryKey()
	c.primary[pk] = item
	for name, v := range item.I64Keys() {
		if v == nil {
			continue
		}
		c.i64IndexAdd(name, *v, pk)
	}
	for name, v := range item.UUIDKeys() {
		if v == nil {
			continue
		}
		c.uuidIndexAdd(name, *v, pk)
	}
}

// upsertLocked inserts item, or, if its primary key already exists,
// rewires the secondary indexes from the previous value to the new one.
func (c *IndexCache[T]) upsertLocked(item T) {
	pk := item.PrimaryKey()
	old, exists := c.primary[pk]
	if !exists {
		c.insertLocked(item)
		return
	}
	c.primary[pk] = item

	oldI64 := old.I64Keys()
	for name, newV := range item.I64Keys() {
		oldV := oldI64[name]
		if sameI64(oldV, newV) {
			continue
		}
		if oldV != nil {
			c.i64IndexRemove(name, *oldV, pk)
		}
		if newV != nil {
			c.i64IndexAdd(name, *newV, pk)
		}
	}
	oldUUID := old.UUIDKeys()
	for name, newV := range item.UUIDKeys() {
		oldV := oldUUID[name]
		if sameUUID(oldV, newV) {
			continue
		}
		if oldV != nil {
			c.uuidIndexRemove(name, *oldV, pk)
		}
		if newV != nil {
			c.uuidIndexAdd(name, *newV, pk)
		}
	}
}

func (c *IndexCache[T]) removeLocked(pk uuid.UUID) bool {
	item, ok := c.primary[pk]
	if !ok {
		return false
	}
	delete(c.primary, pk)
	for name, v := range item.I64Keys() {
		if v != nil {
			c.i64IndexRemove(name, *v, pk)
		}
	}
	for name, v := range item.UUIDKeys() {
		if v != nil {
			c.uuidIndexRemove(name, *v, pk)
		}
	}
	return true
}

func (c *IndexCache[T]) i64IndexAdd(name string, v int64, pk uuid.UUID) {
	byValue, ok := c.i64Indexes[name]
	if !ok {
		byValue = make(map[int64]map[uuid.UUID]struct{})
		c.i64Indexes[name] = byValue
	}
	set, ok := byValue[v]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		byValue[v] = set
	}
	set[pk] = struct{}{}
}

func (c *IndexCache[T]) i64IndexRemove(name string, v int64, pk uuid.UUID) {
	byValue, ok := c.i64Indexes[name]
	if !ok {
		return
	}
	set, ok := byValue[v]
	if !ok {
		return
	}
	delete(set, pk)
	if len(set) == 0 {
		delete(byValue, v)
	}
}

func (c *IndexCache[T]) uuidIndexAdd(name string, v uuid.UUID, pk uuid.UUID) {
	byValue, ok := c.uuidIndexes[name]
	if !ok {
		byValue = make(map[uuid.UUID]map[uuid.UUID]struct{})
		c.uuidIndexes[name] = byValue
	}
	set, ok := byValue[v]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		byValue[v] = set
	}
	set[pk] = struct{}{}
}

func (c *IndexCache[T]) uuidIndexRemove(name string, v uuid.UUID, pk uuid.UUID) {
	byValue, ok := c.uuidIndexes[name]
	if !ok {
		return
	}
	set, ok := byValue[v]
	if !ok {
		return
	}
	delete(set, pk)
	if len(set) == 0 {
		delete(byValue, v)
	}
}

func sameI64(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameUUID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
