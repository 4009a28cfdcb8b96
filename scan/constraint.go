package scan

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Constraint restricts the entities a scan visits.
type Constraint interface {
	// Attribute constrained. Empty for constraints on the entity id.
	Attribute() string
	String() string
	isConstraint()
}

// DateRangeConstraint accepts dates within [Start, End]. Zero bound is open.
type DateRangeConstraint struct {
	Attr       string
	Start, End time.Time
}

// IntegerRangeConstraint accepts integers within [Start, End].
type IntegerRangeConstraint struct {
	Attr       string
	Start, End int64
}

// SetConstraint accepts one of the listed values.
type SetConstraint struct {
	Attr   string
	Values []string
}

// DatePeriodConstraint accepts dates within the period of Granularity that begins at Start.
type DatePeriodConstraint struct {
	Attr        string
	Granularity Granularity
	Start       time.Time
}

// PrefixConstraint accepts values whose first Length characters are Prefix.
// Values shorter than Length must be equal to Prefix.
type PrefixConstraint struct {
	Attr   string
	Prefix string
	Length int
}

// HashPrefixConstraint accepts entities whose id digest starts with Prefix.
type HashPrefixConstraint struct {
	Prefix string
}

func (c *DateRangeConstraint) Attribute() string    { return c.Attr }
func (c *IntegerRangeConstraint) Attribute() string { return c.Attr }
func (c *SetConstraint) Attribute() string          { return c.Attr }
func (c *DatePeriodConstraint) Attribute() string   { return c.Attr }
func (c *PrefixConstraint) Attribute() string       { return c.Attr }
func (c *HashPrefixConstraint) Attribute() string   { return "" }

func (*DateRangeConstraint) isConstraint()    {}
func (*IntegerRangeConstraint) isConstraint() {}
func (*SetConstraint) isConstraint()          {}
func (*DatePeriodConstraint) isConstraint()   {}
func (*PrefixConstraint) isConstraint()       {}
func (*HashPrefixConstraint) isConstraint()   {}

func (c *DateRangeConstraint) String() string {
	bound := func(t time.Time) string {
		if t.IsZero() {
			return "*"
		}
		return t.Format(time.DateOnly)
	}
	return fmt.Sprintf("%s in [%s, %s]", c.Attr, bound(c.Start), bound(c.End))
}

func (c *IntegerRangeConstraint) String() string {
	return fmt.Sprintf("%s in [%d, %d]", c.Attr, c.Start, c.End)
}

func (c *SetConstraint) String() string {
	return fmt.Sprintf("%s in {%s}", c.Attr, strings.Join(c.Values, ", "))
}

func (c *DatePeriodConstraint) String() string {
	return fmt.Sprintf("%s %s %s", c.Attr, c.Granularity, c.Granularity.Bucket(c.Start))
}

func (c *PrefixConstraint) String() string {
	return fmt.Sprintf("%s[:%d] = %q", c.Attr, c.Length, c.Prefix)
}

func (c *HashPrefixConstraint) String() string {
	return fmt.Sprintf("digest(id) starts with %q", c.Prefix)
}

// Narrowing is true for constraints that pin a bucket of a hierarchy,
// as opposed to constraints coming from endpoint categories.
func Narrowing(c Constraint) bool {
	switch c.(type) {
	case *DatePeriodConstraint, *PrefixConstraint, *HashPrefixConstraint:
		return true
	case *DateRangeConstraint, *IntegerRangeConstraint, *SetConstraint:
		return false
	}
	panic(fmt.Sprintf("BUG: unknown constraint %T", c))
}

// IDDigest returns the hex digest of an entity id.
type IDDigest func(id string) string

// Matches reports whether record satisfies the constraint.
func Matches(c Constraint, r *Record, digest IDDigest) (bool, error) {
	if h, ok := c.(*HashPrefixConstraint); ok {
		return strings.HasPrefix(digest(r.ID), h.Prefix), nil
	}
	value, ok := r.Attributes[c.Attribute()]
	if !ok {
		return false, nil
	}
	switch c := c.(type) {
	case *DateRangeConstraint:
		t, err := ParseDate(value)
		if err != nil {
			return false, err
		}
		day := Daily.Truncate(t)
		if !c.Start.IsZero() && day.Before(Daily.Truncate(c.Start)) {
			return false, nil
		}
		if !c.End.IsZero() && day.After(Daily.Truncate(c.End)) {
			return false, nil
		}
		return true, nil
	case *IntegerRangeConstraint:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return false, fmt.Errorf("attribute %s: %w", c.Attr, err)
		}
		return v >= c.Start && v <= c.End, nil
	case *SetConstraint:
		return slices.Contains(c.Values, value), nil
	case *DatePeriodConstraint:
		t, err := ParseDate(value)
		if err != nil {
			return false, err
		}
		return c.Granularity.Truncate(t).Equal(c.Granularity.Truncate(c.Start)), nil
	case *PrefixConstraint:
		return Cut(value, c.Length) == c.Prefix, nil
	}
	panic(fmt.Sprintf("BUG: unknown constraint %T", c))
}

// SortConstraints orders constraints by attribute.
func SortConstraints(cs []Constraint) {
	slices.SortStableFunc(cs, func(a, b Constraint) int {
		return strings.Compare(a.Attribute(), b.Attribute())
	})
}
