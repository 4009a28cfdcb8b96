package hierarchy

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/scan"
)

// Category describes how an attribute of an endpoint takes part in scans.
type Category interface {
	Attribute() string
	isCategory()
}

// DateCategory aggregates dates from yearly buckets down to Granularity.
// Non-zero Lower or Upper bounds also constrain the scan.
type DateCategory struct {
	Attr         string
	Granularity  scan.Granularity
	Lower, Upper time.Time
}

// PrefixCategory aggregates strings by successive prefix lengths.
type PrefixCategory struct {
	Attr    string
	Offsets []int
}

// RangeCategory constrains integers to [Lower, Upper].
type RangeCategory struct {
	Attr         string
	Lower, Upper int64
}

// SetCategory constrains values to one of Values.
type SetCategory struct {
	Attr   string
	Values []string
}

func (c *DateCategory) Attribute() string   { return c.Attr }
func (c *PrefixCategory) Attribute() string { return c.Attr }
func (c *RangeCategory) Attribute() string  { return c.Attr }
func (c *SetCategory) Attribute() string    { return c.Attr }

func (*DateCategory) isCategory()   {}
func (*PrefixCategory) isCategory() {}
func (*RangeCategory) isCategory()  {}
func (*SetCategory) isCategory()    {}

// aggregator is one dimension of a hierarchy.
type aggregator interface {
	attribute() string
	depth() int
	// bucket of the record at level.
	bucket(r *scan.Record, level int) (string, error)
	aggregation(level int) scan.Aggregation
	// narrow pins the bucket whose values at levels 0..len(buckets)-1 are buckets.
	narrow(buckets []string) (scan.Constraint, error)
	// locate returns the buckets pinned by c, ok is false if c is not
	// a narrowing constraint of this aggregator.
	locate(c scan.Constraint) (buckets []string, ok bool, err error)
}

func attributeValue(r *scan.Record, attr string) (string, error) {
	v, ok := r.Attributes[attr]
	if !ok {
		return "", &types.InvalidEventError{ID: r.ID, Reason: "missing attribute " + attr}
	}
	return v, nil
}

type dateAggregator struct {
	attr   string
	levels []scan.Granularity
}

func newDateAggregator(c *DateCategory) (*dateAggregator, error) {
	if c.Granularity > scan.Daily {
		return nil, fmt.Errorf("category %s: unknown granularity %s", c.Attr, c.Granularity)
	}
	a := &dateAggregator{attr: c.Attr}
	for g := scan.Yearly; g <= c.Granularity; g++ {
		a.levels = append(a.levels, g)
	}
	return a, nil
}

func (a *dateAggregator) attribute() string { return a.attr }
func (a *dateAggregator) depth() int        { return len(a.levels) }

func (a *dateAggregator) bucket(r *scan.Record, level int) (string, error) {
	v, err := attributeValue(r, a.attr)
	if err != nil {
		return "", err
	}
	t, err := scan.ParseDate(v)
	if err != nil {
		return "", &types.InvalidEventError{ID: r.ID, Reason: fmt.Sprintf("attribute %s: %v", a.attr, err)}
	}
	return a.levels[level].Bucket(t), nil
}

func (a *dateAggregator) aggregation(level int) scan.Aggregation {
	return &scan.DateAggregation{Attr: a.attr, Granularity: a.levels[level]}
}

func (a *dateAggregator) narrow(buckets []string) (scan.Constraint, error) {
	g := a.levels[len(buckets)-1]
	start, err := g.ParseBucket(buckets[len(buckets)-1])
	if err != nil {
		return nil, err
	}
	return &scan.DatePeriodConstraint{Attr: a.attr, Granularity: g, Start: start}, nil
}

func (a *dateAggregator) locate(c scan.Constraint) ([]string, bool, error) {
	p, ok := c.(*scan.DatePeriodConstraint)
	if !ok || p.Attr != a.attr {
		return nil, false, nil
	}
	k := slices.Index(a.levels, p.Granularity)
	if k < 0 {
		return nil, true, fmt.Errorf("attribute %s is not aggregated %s", a.attr, p.Granularity)
	}
	buckets := make([]string, k+1)
	for i := range buckets {
		buckets[i] = a.levels[i].Bucket(p.Start)
	}
	return buckets, true, nil
}

type prefixAggregator struct {
	attr    string
	offsets []int
}

func newPrefixAggregator(c *PrefixCategory) (*prefixAggregator, error) {
	if len(c.Offsets) == 0 {
		return nil, fmt.Errorf("category %s: no prefix offsets", c.Attr)
	}
	for i, o := range c.Offsets {
		if o <= 0 || (i > 0 && o <= c.Offsets[i-1]) {
			return nil, fmt.Errorf("category %s: offsets must be positive and increasing: %v", c.Attr, c.Offsets)
		}
	}
	return &prefixAggregator{attr: c.Attr, offsets: slices.Clone(c.Offsets)}, nil
}

func (a *prefixAggregator) attribute() string { return a.attr }
func (a *prefixAggregator) depth() int        { return len(a.offsets) }

func (a *prefixAggregator) bucket(r *scan.Record, level int) (string, error) {
	v, err := attributeValue(r, a.attr)
	if err != nil {
		return "", err
	}
	return scan.Cut(v, a.offsets[level]), nil
}

func (a *prefixAggregator) aggregation(level int) scan.Aggregation {
	return &scan.PrefixAggregation{Attr: a.attr, Length: a.offsets[level]}
}

func (a *prefixAggregator) narrow(buckets []string) (scan.Constraint, error) {
	return &scan.PrefixConstraint{
		Attr:   a.attr,
		Prefix: buckets[len(buckets)-1],
		Length: a.offsets[len(buckets)-1],
	}, nil
}

func (a *prefixAggregator) locate(c scan.Constraint) ([]string, bool, error) {
	p, ok := c.(*scan.PrefixConstraint)
	if !ok || p.Attr != a.attr {
		return nil, false, nil
	}
	k := slices.Index(a.offsets, p.Length)
	if k < 0 {
		return nil, true, fmt.Errorf("attribute %s has no prefix level of length %d", a.attr, p.Length)
	}
	buckets := make([]string, k+1)
	for i := range buckets {
		buckets[i] = scan.Cut(p.Prefix, a.offsets[i])
	}
	return buckets, true, nil
}

type idAggregator struct {
	hasher *EntityIDHasher
}

func (a *idAggregator) attribute() string { return "" }
func (a *idAggregator) depth() int        { return EntityIDDepth }

func (a *idAggregator) bucket(r *scan.Record, level int) (string, error) {
	hex := a.hasher.Hex(r.ID)
	return hex[level : level+1], nil
}

func (a *idAggregator) aggregation(level int) scan.Aggregation {
	return &scan.EntityIDAggregation{Length: level + 1}
}

func (a *idAggregator) narrow(buckets []string) (scan.Constraint, error) {
	prefix := ""
	for _, b := range buckets {
		if len(b) != 1 {
			return nil, fmt.Errorf("invalid entity id bucket %q", b)
		}
		prefix += b
	}
	return &scan.HashPrefixConstraint{Prefix: prefix}, nil
}

func (a *idAggregator) locate(c scan.Constraint) ([]string, bool, error) {
	p, ok := c.(*scan.HashPrefixConstraint)
	if !ok {
		return nil, false, nil
	}
	if len(p.Prefix) == 0 || len(p.Prefix) > EntityIDDepth {
		return nil, true, errors.New("entity id prefix out of range: " + p.Prefix)
	}
	buckets := make([]string, len(p.Prefix))
	for i := range buckets {
		buckets[i] = p.Prefix[i : i+1]
	}
	return buckets, true, nil
}
