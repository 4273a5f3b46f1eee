package cache

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrDuplicatePrimary is returned by New when two snapshot items share a
// primary key.
var ErrDuplicatePrimary = errors.New("indexcache: duplicate primary key")

// DuplicatePrimaryError wraps ErrDuplicatePrimary with the offending key.
type DuplicatePrimaryError struct {
	PK uuid.UUID
}

func (e *DuplicatePrimaryError) Error() string {
	return fmt.Sprintf("indexcache: duplicate primary key %s", e.PK)
}

func (e *DuplicatePrimaryError) Unwrap() error {
	return ErrDuplicatePrimary
}

// ErrInvariantViolation is returned by ApplyBatch when a staged upsert
// would change the set of declared index names for an existing primary
// key — undefined by the design (see Open Question (a)); this
// implementation treats it as a commit-time invariant violation.
var ErrInvariantViolation = errors.New("indexcache: staged upsert changes declared index names")

// InvariantViolationError wraps ErrInvariantViolation with the offending key.
type InvariantViolationError struct {
	PK uuid.UUID
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("indexcache: primary key %s: declared index names changed", e.PK)
}

func (e *InvariantViolationError) Unwrap() error {
	return ErrInvariantViolation
}
