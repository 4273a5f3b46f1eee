// Package record defines the contracts a cached value must satisfy.
package record

import "github.com/google/uuid"

// KeyedRecord is satisfied by any value that carries a stable primary
// identity. The returned UUID must not change across the lifetime of a
// given record: IndexCache uses it to decide insert vs upsert.
type KeyedRecord interface {
	PrimaryKey() uuid.UUID
}

// IndexedRecord exposes the secondary index values a record participates
// in. The set of names returned by I64Keys/UUIDKeys must be stable across
// versions of the same primary key — adding or removing a name for an
// existing key is undefined behavior for the cache (see txn.ErrCommitFailed
// for the staged-mutation case). A nil value at a name means the record is
// not indexed under that name.
type IndexedRecord interface {
	I64Keys() map[string]*int64
	UUIDKeys() map[string]*uuid.UUID
}

// Record is the combined capability IndexCache requires of T.
type Record interface {
	KeyedRecord
	IndexedRecord
}
