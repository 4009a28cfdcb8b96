package scan

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Answer is either a GroupedAnswer or an IndividualAnswer.
type Answer interface {
	zapcore.ObjectMarshaler
	isAnswer()
}

// GroupedAnswer is the digest of one aggregate bucket.
type GroupedAnswer struct {
	Group  string
	Digest string
}

// IndividualAnswer is a single entity, Digest is its version.
type IndividualAnswer struct {
	ID         string
	Attributes map[string]string
	LastUpdate time.Time
	Digest     string
}

func (*GroupedAnswer) isAnswer()    {}
func (*IndividualAnswer) isAnswer() {}

// MarshalLogObject implements logging encoder for GroupedAnswer.
func (a *GroupedAnswer) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("group", a.Group)
	encoder.AddString("digest", a.Digest)
	return nil
}

// MarshalLogObject implements logging encoder for IndividualAnswer.
func (a *IndividualAnswer) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("id", a.ID)
	encoder.AddString("digest", a.Digest)
	if !a.LastUpdate.IsZero() {
		encoder.AddTime("last_update", a.LastUpdate)
	}
	return nil
}

// Record is an entity held by a participant.
type Record struct {
	ID         string
	Version    string
	Attributes map[string]string
	LastUpdate time.Time
}
