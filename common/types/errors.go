package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEvent is returned for events that can't be placed into a hierarchy.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrBucketNotFound is returned when a bucket was never populated.
	ErrBucketNotFound = errors.New("bucket not found")
)

// InvalidEventError describes why an event was rejected.
type InvalidEventError struct {
	ID     string
	Reason string
}

func (e *InvalidEventError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid event: %s", e.Reason)
	}
	return fmt.Sprintf("invalid event %q: %s", e.ID, e.Reason)
}

func (e *InvalidEventError) Is(target error) bool {
	return target == ErrInvalidEvent
}

// BucketNotFoundError names the bucket that was requested.
type BucketNotFoundError struct {
	Tree  Tree
	Scope string
	Path  string
}

func (e *BucketNotFoundError) Error() string {
	return fmt.Sprintf("bucket not found: %s tree of %q at %q", e.Tree, e.Scope, e.Path)
}

func (e *BucketNotFoundError) Is(target error) bool {
	return target == ErrBucketNotFound
}
