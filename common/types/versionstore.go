package types

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// Tree selects one of the digest hierarchies kept for an endpoint.
type Tree uint8

const (
	// EntityIDTree buckets entities by the hex digest of their id.
	EntityIDTree Tree = iota
	// UserTree buckets entities by the aggregating categories of the endpoint.
	UserTree
)

func (t Tree) String() string {
	switch t {
	case EntityIDTree:
		return "entity-id"
	case UserTree:
		return "user"
	}
	return fmt.Sprintf("tree(%d)", t)
}

// ChangeEvent is either an Upsert or a Tombstone.
type ChangeEvent interface {
	EntityID() string
	isChangeEvent()
}

// Upsert sets the version of an entity.
type Upsert struct {
	ID          string
	Version     string
	Attributes  map[string]string
	LastUpdated time.Time
}

func (u *Upsert) EntityID() string { return u.ID }
func (*Upsert) isChangeEvent()     {}

// MarshalLogObject implements logging encoder for Upsert.
func (u *Upsert) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("id", u.ID)
	encoder.AddString("version", u.Version)
	encoder.AddInt("attributes", len(u.Attributes))
	if !u.LastUpdated.IsZero() {
		encoder.AddTime("last_updated", u.LastUpdated)
	}
	return nil
}

// Tombstone removes an entity.
type Tombstone struct {
	ID string
}

func (t *Tombstone) EntityID() string { return t.ID }
func (*Tombstone) isChangeEvent()     {}

// MarshalLogObject implements logging encoder for Tombstone.
func (t *Tombstone) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("id", t.ID)
	encoder.AddBool("tombstone", true)
	return nil
}

// PairProjection names the two endpoints of a comparison.
type PairProjection struct {
	Left  string
	Right string
}

func (p PairProjection) String() string {
	return p.Left + "/" + p.Right
}

// MarshalLogObject implements logging encoder for PairProjection.
func (p PairProjection) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("left", p.Left)
	encoder.AddString("right", p.Right)
	return nil
}

// EntityDifference is a single id whose versions disagree.
// An empty version means the entity is absent on that side.
type EntityDifference struct {
	ID    string
	Left  string
	Right string
}

// MarshalLogObject implements logging encoder for EntityDifference.
func (d EntityDifference) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("id", d.ID)
	encoder.AddString("left", d.Left)
	encoder.AddString("right", d.Right)
	return nil
}

// EntityDifferences is a list of differences.
type EntityDifferences []EntityDifference

// MarshalLogArray implements logging encoder for EntityDifferences.
func (ds EntityDifferences) MarshalLogArray(encoder zapcore.ArrayEncoder) error {
	for _, d := range ds {
		encoder.AppendObject(d)
	}
	return nil
}
