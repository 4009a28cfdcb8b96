package scan

import (
	"fmt"
	"slices"
	"strings"
)

// Aggregation groups the entities a scan visits.
type Aggregation interface {
	// Attribute aggregated. Empty for aggregations on the entity id.
	Attribute() string
	String() string
	isAggregation()
}

// DateAggregation groups dates by period.
type DateAggregation struct {
	Attr        string
	Granularity Granularity
}

// PrefixAggregation groups strings by their first Length characters.
type PrefixAggregation struct {
	Attr   string
	Length int
}

// EntityIDAggregation groups entities by the hex digit at position Length-1
// of their id digest.
type EntityIDAggregation struct {
	Length int
}

func (a *DateAggregation) Attribute() string     { return a.Attr }
func (a *PrefixAggregation) Attribute() string   { return a.Attr }
func (a *EntityIDAggregation) Attribute() string { return "" }

func (*DateAggregation) isAggregation()     {}
func (*PrefixAggregation) isAggregation()   {}
func (*EntityIDAggregation) isAggregation() {}

func (a *DateAggregation) String() string {
	return fmt.Sprintf("%s by %s", a.Attr, a.Granularity)
}

func (a *PrefixAggregation) String() string {
	return fmt.Sprintf("%s by prefix %d", a.Attr, a.Length)
}

func (a *EntityIDAggregation) String() string {
	return fmt.Sprintf("id by digest digit %d", a.Length)
}

// Bucket computes the group of a record for the aggregation.
func Bucket(a Aggregation, r *Record, digest IDDigest) (string, error) {
	if e, ok := a.(*EntityIDAggregation); ok {
		if r.ID == "" {
			return "", fmt.Errorf("empty entity id")
		}
		hex := digest(r.ID)
		if e.Length < 1 || e.Length > len(hex) {
			return "", fmt.Errorf("entity id aggregation length %d out of range", e.Length)
		}
		return hex[e.Length-1 : e.Length], nil
	}
	value, ok := r.Attributes[a.Attribute()]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", a.Attribute())
	}
	switch a := a.(type) {
	case *DateAggregation:
		t, err := ParseDate(value)
		if err != nil {
			return "", err
		}
		return a.Granularity.Bucket(t), nil
	case *PrefixAggregation:
		return Cut(value, a.Length), nil
	}
	panic(fmt.Sprintf("BUG: unknown aggregation %T", a))
}

// SortAggregations orders aggregations by attribute.
func SortAggregations(as []Aggregation) {
	slices.SortStableFunc(as, func(a, b Aggregation) int {
		return strings.Compare(a.Attribute(), b.Attribute())
	})
}
