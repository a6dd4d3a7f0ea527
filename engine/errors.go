// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionConflict is the optimistic-concurrency failure: the
	// caller's expected version no longer matches the stored one. It is
	// surfaced to the request layer, never retried inside the engine -
	// the caller's intent may not be valid against the newer state.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidVote rejects malformed vote input (empty user, negative
	// value).
	ErrInvalidVote = errors.New("invalid vote")
)

// VersionConflictError carries the versions involved so the request
// layer can tell the client what to refresh to.
type VersionConflictError struct {
	Expected int64
	Current  int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: expected %d, current %d", e.Expected, e.Current)
}

func (e *VersionConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// isDomainError distinguishes errors the caller must handle from
// infrastructure failures the engine absorbs. Transition functions only
// produce domain errors; everything else comes from the stores.
func isDomainError(err error) bool {
	return errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrInvalidVote)
}
