// Package digest folds versions and child digests into bucket digests.
//
// The accumulator does not sort its inputs. Callers feed values in canonical
// order (child name or entity id, lexicographic), which makes the result
// independent of the order in which entities were written.
package digest

import (
	"encoding/hex"
	"errors"
	"fmt"
	stdhash "hash"

	"github.com/merelin/diffa-sub000/hash"
)

// ErrSealedAccumulator is returned when a value is added to an accumulator
// that was already finalized.
var ErrSealedAccumulator = errors.New("digest: accumulator is sealed")

// SealedAccumulatorError describes the rejected value.
type SealedAccumulatorError struct {
	Value string
}

func (e *SealedAccumulatorError) Error() string {
	return fmt.Sprintf("digest: accumulator is sealed, rejected %q", e.Value)
}

func (e *SealedAccumulatorError) Is(target error) bool {
	return target == ErrSealedAccumulator
}

// Accumulator is a rolling digest over a sequence of strings.
// It is not safe for concurrent use.
type Accumulator struct {
	h      stdhash.Hash
	sealed bool
}

// New creates an accumulator that hashes with fn.
func New(fn hash.Func) *Accumulator {
	if fn == nil {
		fn = hash.Default
	}
	return &Accumulator{h: fn()}
}

// NewDefault creates an accumulator with the default hash function.
func NewDefault() *Accumulator {
	return New(hash.Default)
}

// AddVersion appends a value.
func (a *Accumulator) AddVersion(value string) error {
	if a.sealed {
		return &SealedAccumulatorError{Value: value}
	}
	a.h.Write([]byte(value))
	return nil
}

// Digest finalizes the accumulator and returns lowercase hex digest.
// Calling it again before Reset returns the same value.
func (a *Accumulator) Digest() string {
	a.sealed = true
	return hex.EncodeToString(a.h.Sum(nil))
}

// Sealed reports whether Digest was called since the last Reset.
func (a *Accumulator) Sealed() bool {
	return a.sealed
}

// Reset clears accumulated state and unseals the accumulator.
func (a *Accumulator) Reset() {
	a.h.Reset()
	a.sealed = false
}

// Of folds values in the given order.
func Of(fn hash.Func, values ...string) string {
	acc := New(fn)
	for _, v := range values {
		if err := acc.AddVersion(v); err != nil {
			panic("BUG: fresh accumulator rejected value: " + err.Error())
		}
	}
	return acc.Digest()
}

// Sliced computes the digest of a leaf bucket. Versions, already ordered by
// entity id, are cut into slices of maxSliceSize; every slice is folded on its
// own and the slice digests are then folded into the result.
// maxSliceSize <= 0 means a single slice. No versions yield an empty string.
func Sliced(fn hash.Func, versions []string, maxSliceSize int) string {
	if len(versions) == 0 {
		return ""
	}
	if maxSliceSize <= 0 {
		maxSliceSize = len(versions)
	}
	parts := make([]string, 0, (len(versions)+maxSliceSize-1)/maxSliceSize)
	acc := New(fn)
	for start := 0; start < len(versions); start += maxSliceSize {
		end := min(start+maxSliceSize, len(versions))
		acc.Reset()
		for _, v := range versions[start:end] {
			if err := acc.AddVersion(v); err != nil {
				panic("BUG: reset accumulator rejected value: " + err.Error())
			}
		}
		parts = append(parts, acc.Digest())
	}
	return Of(fn, parts...)
}
