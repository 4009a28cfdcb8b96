package scan

import (
	"go.uber.org/zap/zapcore"
)

// Question asks a participant to scan the entities matching Constraints,
// grouped by Aggregations. A question without aggregations asks for
// individual entities.
type Question struct {
	Constraints  []Constraint
	Aggregations []Aggregation
	MaxSliceSize int
}

// NoFurtherQuestions is returned once the interview has converged.
var NoFurtherQuestions = Question{}

// Terminal is true for NoFurtherQuestions.
func (q Question) Terminal() bool {
	return len(q.Constraints) == 0 && len(q.Aggregations) == 0 && q.MaxSliceSize == 0
}

// Grouped is true if answers to the question are expected to be grouped.
func (q Question) Grouped() bool {
	return len(q.Aggregations) > 0
}

// MarshalLogObject implements logging encoder for Question.
func (q Question) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddArray("constraints", zapcore.ArrayMarshalerFunc(func(enc zapcore.ArrayEncoder) error {
		for _, c := range q.Constraints {
			enc.AppendString(c.String())
		}
		return nil
	}))
	encoder.AddArray("aggregations", zapcore.ArrayMarshalerFunc(func(enc zapcore.ArrayEncoder) error {
		for _, a := range q.Aggregations {
			enc.AppendString(a.String())
		}
		return nil
	}))
	encoder.AddInt("max_slice_size", q.MaxSliceSize)
	return nil
}
