package types

import (
	"maps"
	"slices"

	"go.uber.org/zap/zapcore"
)

// BucketDigest summarizes one bucket at the time it was read.
type BucketDigest struct {
	Name   string
	Digest string
	IsLeaf bool
}

// MarshalLogObject implements logging encoder for BucketDigest.
func (b BucketDigest) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("name", b.Name)
	encoder.AddString("digest", b.Digest)
	encoder.AddBool("leaf", b.IsLeaf)
	return nil
}

// TreeLevelRollup is one level of a digest tree keyed by bucket name.
type TreeLevelRollup struct {
	Members map[string]BucketDigest
	IsLeaf  bool
}

// NewTreeLevelRollup creates an empty rollup.
func NewTreeLevelRollup(leaf bool) TreeLevelRollup {
	return TreeLevelRollup{Members: map[string]BucketDigest{}, IsLeaf: leaf}
}

// Add adds a bucket to the rollup.
func (r TreeLevelRollup) Add(name, digest string) {
	r.Members[name] = BucketDigest{Name: name, Digest: digest, IsLeaf: r.IsLeaf}
}

// Empty is true if rollup has no members.
func (r TreeLevelRollup) Empty() bool {
	return len(r.Members) == 0
}

// Names returns member names in canonical order.
func (r TreeLevelRollup) Names() []string {
	return slices.Sorted(maps.Keys(r.Members))
}

// MarshalLogArray implements logging encoder for TreeLevelRollup.
func (r TreeLevelRollup) MarshalLogArray(encoder zapcore.ArrayEncoder) error {
	for _, name := range r.Names() {
		encoder.AppendObject(r.Members[name])
	}
	return nil
}

// DigestPair holds both sides of a bucket that differs.
type DigestPair struct {
	Left  BucketDigest
	Right BucketDigest
}

// TreeLevelDifference classifies two levels of digest trees.
type TreeLevelDifference struct {
	OnlyLeft  map[string]BucketDigest
	OnlyRight map[string]BucketDigest
	Differing map[string]DigestPair
	Equal     map[string]BucketDigest
	IsLeaf    bool
}

// CompareLevels compares two levels by bucket name and digest.
func CompareLevels(left, right map[string]BucketDigest, leaf bool) TreeLevelDifference {
	diff := TreeLevelDifference{
		OnlyLeft:  map[string]BucketDigest{},
		OnlyRight: map[string]BucketDigest{},
		Differing: map[string]DigestPair{},
		Equal:     map[string]BucketDigest{},
		IsLeaf:    leaf,
	}
	for name, l := range left {
		r, ok := right[name]
		switch {
		case !ok:
			diff.OnlyLeft[name] = l
		case l.Digest == r.Digest:
			diff.Equal[name] = l
		default:
			diff.Differing[name] = DigestPair{Left: l, Right: r}
		}
	}
	for name, r := range right {
		if _, ok := left[name]; !ok {
			diff.OnlyRight[name] = r
		}
	}
	return diff
}

// AreEqual is true if both levels hold the same buckets with the same digests.
func (d TreeLevelDifference) AreEqual() bool {
	return len(d.OnlyLeft) == 0 && len(d.OnlyRight) == 0 && len(d.Differing) == 0
}

// Mismatched returns names of buckets that are not equal on both sides, sorted.
func (d TreeLevelDifference) Mismatched() []string {
	names := make([]string, 0, len(d.OnlyLeft)+len(d.OnlyRight)+len(d.Differing))
	for name := range d.OnlyLeft {
		names = append(names, name)
	}
	for name := range d.OnlyRight {
		names = append(names, name)
	}
	for name := range d.Differing {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Sides returns digests of a mismatched bucket, empty string for a missing side.
func (d TreeLevelDifference) Sides(name string) (left, right string) {
	if pair, ok := d.Differing[name]; ok {
		return pair.Left.Digest, pair.Right.Digest
	}
	if l, ok := d.OnlyLeft[name]; ok {
		return l.Digest, ""
	}
	if r, ok := d.OnlyRight[name]; ok {
		return "", r.Digest
	}
	if e, ok := d.Equal[name]; ok {
		return e.Digest, e.Digest
	}
	return "", ""
}
