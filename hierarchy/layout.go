// Package hierarchy places entities into bucket hierarchies.
//
// Two kinds of hierarchies exist. The entity id hierarchy has a fixed depth of
// three levels with sixteen buckets each, derived from the hex digest of the
// entity id. A user-defined hierarchy follows the aggregating categories of an
// endpoint: a date category contributes yearly, monthly and daily levels down to
// its granularity, a prefix category contributes one level per offset.
//
// Categories are ordered by attribute name. When an endpoint has several
// aggregating categories, every level of the hierarchy buckets by all of them at
// once and the segment joins the per-category buckets with "|". A category that
// has no finer level left repeats its finest bucket.
package hierarchy

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/scan"
)

// Layout is the shape of a hierarchy.
type Layout struct {
	aggregators []aggregator
	constraints []scan.Constraint
	depth       int
}

// NewEntityIDLayout creates the layout of the entity id hierarchy.
func NewEntityIDLayout(hasher *EntityIDHasher) *Layout {
	return &Layout{
		aggregators: []aggregator{&idAggregator{hasher: hasher}},
		depth:       EntityIDDepth,
	}
}

// NewLayout creates the layout of a user-defined hierarchy.
// Without date or prefix categories the layout has depth 0.
func NewLayout(categories ...Category) (*Layout, error) {
	sorted := slices.Clone(categories)
	slices.SortFunc(sorted, func(a, b Category) int {
		return cmp.Compare(a.Attribute(), b.Attribute())
	})
	l := &Layout{}
	for i, c := range sorted {
		if c.Attribute() == "" {
			return nil, fmt.Errorf("category %T without attribute", c)
		}
		if i > 0 && sorted[i-1].Attribute() == c.Attribute() {
			return nil, fmt.Errorf("duplicate category for attribute %s", c.Attribute())
		}
		switch c := c.(type) {
		case *DateCategory:
			a, err := newDateAggregator(c)
			if err != nil {
				return nil, err
			}
			l.aggregators = append(l.aggregators, a)
			if !c.Lower.IsZero() || !c.Upper.IsZero() {
				if !c.Lower.IsZero() && !c.Upper.IsZero() && c.Upper.Before(c.Lower) {
					return nil, fmt.Errorf("category %s: upper bound before lower", c.Attr)
				}
				l.constraints = append(l.constraints,
					&scan.DateRangeConstraint{Attr: c.Attr, Start: c.Lower, End: c.Upper})
			}
		case *PrefixCategory:
			a, err := newPrefixAggregator(c)
			if err != nil {
				return nil, err
			}
			l.aggregators = append(l.aggregators, a)
		case *RangeCategory:
			if c.Upper < c.Lower {
				return nil, fmt.Errorf("category %s: upper bound before lower", c.Attr)
			}
			l.constraints = append(l.constraints,
				&scan.IntegerRangeConstraint{Attr: c.Attr, Start: c.Lower, End: c.Upper})
		case *SetCategory:
			if len(c.Values) == 0 {
				return nil, fmt.Errorf("category %s: empty set", c.Attr)
			}
			l.constraints = append(l.constraints,
				&scan.SetConstraint{Attr: c.Attr, Values: slices.Clone(c.Values)})
		default:
			panic(fmt.Sprintf("BUG: unknown category %T", c))
		}
	}
	for _, a := range l.aggregators {
		l.depth = max(l.depth, a.depth())
	}
	return l, nil
}

// Depth is the number of levels below the root, leaf level included.
func (l *Layout) Depth() int {
	return l.depth
}

// Aggregating is true if the layout has at least one level.
func (l *Layout) Aggregating() bool {
	return l.depth > 0
}

// Build places the entity into the hierarchy.
func (l *Layout) Build(r *scan.Record) (*Node, error) {
	if r.ID == "" {
		return nil, &types.InvalidEventError{Reason: "empty entity id"}
	}
	if !l.Aggregating() {
		return nil, &types.InvalidEventError{ID: r.ID, Reason: "no aggregating categories"}
	}
	segments := make([]string, l.depth)
	values := make([]string, len(l.aggregators))
	for level := range segments {
		for i, a := range l.aggregators {
			v, err := a.bucket(r, min(level, a.depth()-1))
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		segments[level] = composeSegment(values)
	}
	return newChain(segments, r.ID, r.Version), nil
}

// Constraints returns constraints of the non-aggregating categories.
func (l *Layout) Constraints() []scan.Constraint {
	return slices.Clone(l.constraints)
}

// Aggregations groups children of a bucket at depth, root being at depth 0.
// Children of leaf buckets are individual entities, so nil is returned for them.
func (l *Layout) Aggregations(depth int) []scan.Aggregation {
	if depth >= l.depth {
		return nil
	}
	aggs := make([]scan.Aggregation, 0, len(l.aggregators))
	for _, a := range l.aggregators {
		aggs = append(aggs, a.aggregation(min(depth, a.depth()-1)))
	}
	return aggs
}

// InitialQuestion asks for the top level of the hierarchy.
func (l *Layout) InitialQuestion(maxSliceSize int) scan.Question {
	return scan.Question{
		Constraints:  l.Constraints(),
		Aggregations: l.Aggregations(0),
		MaxSliceSize: maxSliceSize,
	}
}

// Narrow returns constraints that pin the bucket at path.
func (l *Layout) Narrow(path []string) ([]scan.Constraint, error) {
	if len(path) == 0 || len(path) > l.depth {
		return nil, fmt.Errorf("path %q out of hierarchy of depth %d", JoinPath(path...), l.depth)
	}
	perAggregator := make([][]string, len(l.aggregators))
	for _, segment := range path {
		parts, ok := decomposeSegment(segment, len(l.aggregators))
		if !ok {
			return nil, fmt.Errorf("segment %q doesn't match %d categories", segment, len(l.aggregators))
		}
		for i, p := range parts {
			perAggregator[i] = append(perAggregator[i], p)
		}
	}
	constraints := make([]scan.Constraint, 0, len(l.aggregators))
	for i, a := range l.aggregators {
		buckets := perAggregator[i][:min(len(path), a.depth())]
		c, err := a.narrow(buckets)
		if err != nil {
			return nil, fmt.Errorf("narrow %q: %w", JoinPath(path...), err)
		}
		constraints = append(constraints, c)
	}
	return constraints, nil
}

// Locate returns the path of the bucket pinned by the narrowing constraints.
// Without narrowing constraints the root, an empty path, is returned.
func (l *Layout) Locate(constraints []scan.Constraint) ([]string, error) {
	perAggregator := make([][]string, len(l.aggregators))
	depth := 0
	for _, c := range constraints {
		if !scan.Narrowing(c) {
			continue
		}
		located := false
		for i, a := range l.aggregators {
			buckets, ok, err := a.locate(c)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if perAggregator[i] != nil {
				return nil, fmt.Errorf("more than one narrowing constraint for %q", a.attribute())
			}
			perAggregator[i] = buckets
			depth = max(depth, len(buckets))
			located = true
			break
		}
		if !located {
			return nil, fmt.Errorf("constraint %s doesn't belong to the hierarchy", c)
		}
	}
	if depth == 0 {
		return nil, nil
	}
	for i, a := range l.aggregators {
		if len(perAggregator[i]) != min(depth, a.depth()) {
			return nil, fmt.Errorf("inconsistent narrowing of %q at depth %d", a.attribute(), depth)
		}
	}
	path := make([]string, depth)
	values := make([]string, len(l.aggregators))
	for level := range path {
		for i, a := range l.aggregators {
			values[i] = perAggregator[i][min(level, a.depth()-1)]
		}
		path[level] = composeSegment(values)
	}
	return path, nil
}

// Refine narrows q to the child bucket of parent. The refined question
// aggregates one level finer, or asks for individual entities below a leaf bucket.
func (l *Layout) Refine(q scan.Question, parent []string, child string) (scan.Question, error) {
	path := append(slices.Clone(parent), child)
	narrowing, err := l.Narrow(path)
	if err != nil {
		return scan.Question{}, err
	}
	constraints := make([]scan.Constraint, 0, len(q.Constraints)+len(narrowing))
	for _, c := range q.Constraints {
		if !scan.Narrowing(c) {
			constraints = append(constraints, c)
		}
	}
	constraints = append(constraints, narrowing...)
	scan.SortConstraints(constraints)
	return scan.Question{
		Constraints:  constraints,
		Aggregations: l.Aggregations(len(path)),
		MaxSliceSize: q.MaxSliceSize,
	}, nil
}

// Handles is true if the question was built for this layout.
func (l *Layout) Handles(q scan.Question) bool {
	for _, a := range q.Aggregations {
		if !l.hasAggregator(a.Attribute()) {
			return false
		}
	}
	for _, c := range q.Constraints {
		if scan.Narrowing(c) && !l.hasAggregator(c.Attribute()) {
			return false
		}
	}
	return true
}

func (l *Layout) hasAggregator(attr string) bool {
	return slices.ContainsFunc(l.aggregators, func(a aggregator) bool {
		return a.attribute() == attr
	})
}

// String describes the layout.
func (l *Layout) String() string {
	var sb strings.Builder
	for i, a := range l.aggregators {
		if i > 0 {
			sb.WriteString(", ")
		}
		name := a.attribute()
		if name == "" {
			name = "id"
		}
		fmt.Fprintf(&sb, "%s(%d)", name, a.depth())
	}
	return fmt.Sprintf("layout[%s] depth %d", sb.String(), l.depth)
}
