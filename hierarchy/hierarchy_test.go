package hierarchy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/hash"
	"github.com/merelin/diffa-sub000/hierarchy"
	"github.com/merelin/diffa-sub000/scan"
)

func TestEntityIDHierarchy(t *testing.T) {
	hasher := hierarchy.NewEntityIDHasher(hash.MD5, 16)
	require.Equal(t, "4a36fc22b37ada22a43d9fbd696f299b", hasher.Hex("A1B2C3"))
	require.Equal(t, "4a36fc22b37ada22a43d9fbd696f299b", hasher.Hex("A1B2C3"))

	layout := hierarchy.NewEntityIDLayout(hasher)
	require.Equal(t, hierarchy.EntityIDDepth, layout.Depth())

	node, err := layout.Build(&scan.Record{ID: "A1B2C3", Version: "v1"})
	require.NoError(t, err)
	require.Equal(t, []string{"4", "a", "3"}, node.Segments())
	require.Equal(t, "4.a.3", node.Path())
	require.False(t, node.IsLeaf())
	leaf := node.Leaf()
	require.True(t, leaf.IsLeaf())
	require.Equal(t, "A1B2C3", leaf.ID)
	require.Equal(t, "v1", leaf.Version)
}

func TestEmptyID(t *testing.T) {
	layout := hierarchy.NewEntityIDLayout(hierarchy.NewEntityIDHasher(nil, 0))
	_, err := layout.Build(&scan.Record{Version: "v1"})
	require.ErrorIs(t, err, types.ErrInvalidEvent)
}

func newUserLayout(t *testing.T) *hierarchy.Layout {
	layout, err := hierarchy.NewLayout(
		&hierarchy.PrefixCategory{Attr: "name", Offsets: []int{1, 3}},
		&hierarchy.DateCategory{Attr: "bizDate", Granularity: scan.Daily},
		&hierarchy.SetCategory{Attr: "region", Values: []string{"eu", "us"}},
	)
	require.NoError(t, err)
	return layout
}

func TestUserHierarchy(t *testing.T) {
	layout := newUserLayout(t)
	require.Equal(t, 3, layout.Depth())
	require.True(t, layout.Aggregating())

	node, err := layout.Build(&scan.Record{
		ID:      "id1",
		Version: "v1",
		Attributes: map[string]string{
			"bizDate": "2024-03-15T10:00:00Z",
			"name":    "abcdef",
		},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"2024|a", "2024-03|abc", "2024-03-15|abc"}, node.Segments())

	_, err = layout.Build(&scan.Record{ID: "id2", Attributes: map[string]string{"name": "x"}})
	require.ErrorIs(t, err, types.ErrInvalidEvent)
	_, err = layout.Build(&scan.Record{ID: "id2", Attributes: map[string]string{"name": "x", "bizDate": "never"}})
	require.ErrorIs(t, err, types.ErrInvalidEvent)
}

func TestEscapedSegments(t *testing.T) {
	layout, err := hierarchy.NewLayout(&hierarchy.PrefixCategory{Attr: "name", Offsets: []int{2, 4}})
	require.NoError(t, err)
	node, err := layout.Build(&scan.Record{ID: "id1", Attributes: map[string]string{"name": "a.b%c|d"}})
	require.NoError(t, err)
	require.Equal(t, []string{"a%2E", "a%2Eb%25"}, node.Segments())
	require.Equal(t, "a%2E.a%2Eb%25", node.Path())
	require.Equal(t, "a.b%", hierarchy.Unescape("a%2Eb%25"))
	require.Equal(t, "%2E", hierarchy.Unescape(hierarchy.Escape("%2E")))

	constraints, err := layout.Narrow(node.Segments())
	require.NoError(t, err)
	require.Equal(t, []scan.Constraint{&scan.PrefixConstraint{Attr: "name", Prefix: "a.b%", Length: 4}}, constraints)
	path, err := layout.Locate(constraints)
	require.NoError(t, err)
	require.Equal(t, node.Segments(), path)
}

func TestNarrowAndLocate(t *testing.T) {
	layout := newUserLayout(t)
	path := []string{"2024|a", "2024-03|abc"}
	constraints, err := layout.Narrow(path)
	require.NoError(t, err)
	require.Equal(t, []scan.Constraint{
		&scan.DatePeriodConstraint{
			Attr:        "bizDate",
			Granularity: scan.Monthly,
			Start:       time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
		&scan.PrefixConstraint{Attr: "name", Prefix: "abc", Length: 3},
	}, constraints)

	located, err := layout.Locate(append(layout.Constraints(), constraints...))
	require.NoError(t, err)
	require.Equal(t, path, located)

	root, err := layout.Locate(layout.Constraints())
	require.NoError(t, err)
	require.Empty(t, root)

	_, err = layout.Locate([]scan.Constraint{&scan.PrefixConstraint{Attr: "name", Prefix: "abc", Length: 3}})
	require.ErrorContains(t, err, "inconsistent narrowing")
	_, err = layout.Locate([]scan.Constraint{&scan.HashPrefixConstraint{Prefix: "a"}})
	require.ErrorContains(t, err, "doesn't belong")
}

func TestShorterCategoryRepeatsFinestBucket(t *testing.T) {
	layout, err := hierarchy.NewLayout(
		&hierarchy.DateCategory{Attr: "bizDate", Granularity: scan.Yearly},
		&hierarchy.PrefixCategory{Attr: "name", Offsets: []int{1, 2}},
	)
	require.NoError(t, err)
	node, err := layout.Build(&scan.Record{ID: "id1", Attributes: map[string]string{"bizDate": "2023-01-02", "name": "xyz"}})
	require.NoError(t, err)
	require.Equal(t, []string{"2023|x", "2023|xy"}, node.Segments())

	constraints, err := layout.Narrow(node.Segments())
	require.NoError(t, err)
	path, err := layout.Locate(constraints)
	require.NoError(t, err)
	require.Equal(t, node.Segments(), path)
}

func TestQuestions(t *testing.T) {
	layout := newUserLayout(t)
	q := layout.InitialQuestion(100)
	require.Equal(t, []scan.Constraint{&scan.SetConstraint{Attr: "region", Values: []string{"eu", "us"}}}, q.Constraints)
	require.Equal(t, []scan.Aggregation{
		&scan.DateAggregation{Attr: "bizDate", Granularity: scan.Yearly},
		&scan.PrefixAggregation{Attr: "name", Length: 1},
	}, q.Aggregations)
	require.Equal(t, 100, q.MaxSliceSize)

	refined, err := layout.Refine(q, nil, "2024|a")
	require.NoError(t, err)
	require.Len(t, refined.Constraints, 3)
	require.Equal(t, []scan.Aggregation{
		&scan.DateAggregation{Attr: "bizDate", Granularity: scan.Monthly},
		&scan.PrefixAggregation{Attr: "name", Length: 3},
	}, refined.Aggregations)

	leaf, err := layout.Refine(refined, []string{"2024|a"}, "2024-03|abc")
	require.NoError(t, err)
	require.Len(t, leaf.Aggregations, 2)
	leaf, err = layout.Refine(leaf, []string{"2024|a", "2024-03|abc"}, "2024-03-15|abc")
	require.NoError(t, err)
	require.Empty(t, leaf.Aggregations)
	require.False(t, leaf.Terminal())
	path, err := layout.Locate(leaf.Constraints)
	require.NoError(t, err)
	require.Equal(t, []string{"2024|a", "2024-03|abc", "2024-03-15|abc"}, path)
}

func TestEntityIDQuestions(t *testing.T) {
	layout := hierarchy.NewEntityIDLayout(hierarchy.NewEntityIDHasher(hash.MD5, 0))
	q := layout.InitialQuestion(0)
	require.Equal(t, []scan.Aggregation{&scan.EntityIDAggregation{Length: 1}}, q.Aggregations)
	require.True(t, layout.Handles(q))

	q, err := layout.Refine(q, nil, "4")
	require.NoError(t, err)
	q, err = layout.Refine(q, []string{"4"}, "a")
	require.NoError(t, err)
	require.Equal(t, []scan.Constraint{&scan.HashPrefixConstraint{Prefix: "4a"}}, q.Constraints)
	require.Equal(t, []scan.Aggregation{&scan.EntityIDAggregation{Length: 3}}, q.Aggregations)

	user := newUserLayout(t)
	require.False(t, user.Handles(q))
}

func TestInvalidLayouts(t *testing.T) {
	for _, tc := range []struct {
		desc       string
		categories []hierarchy.Category
	}{
		{"duplicate", []hierarchy.Category{
			&hierarchy.SetCategory{Attr: "a", Values: []string{"x"}},
			&hierarchy.PrefixCategory{Attr: "a", Offsets: []int{1}},
		}},
		{"no offsets", []hierarchy.Category{&hierarchy.PrefixCategory{Attr: "a"}}},
		{"decreasing offsets", []hierarchy.Category{&hierarchy.PrefixCategory{Attr: "a", Offsets: []int{2, 1}}}},
		{"empty set", []hierarchy.Category{&hierarchy.SetCategory{Attr: "a"}}},
		{"inverted range", []hierarchy.Category{&hierarchy.RangeCategory{Attr: "a", Lower: 5, Upper: 1}}},
		{"no attribute", []hierarchy.Category{&hierarchy.RangeCategory{}}},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := hierarchy.NewLayout(tc.categories...)
			require.Error(t, err)
		})
	}
}

func TestPaths(t *testing.T) {
	require.Equal(t, []string{"", "a", "a.b", "a.b.c"}, hierarchy.Ancestors("a.b.c"))
	require.Equal(t, []string{""}, hierarchy.Ancestors(""))
	parent, name := hierarchy.Parent("a.b.c")
	require.Equal(t, "a.b", parent)
	require.Equal(t, "c", name)
	parent, name = hierarchy.Parent("a")
	require.Empty(t, parent)
	require.Equal(t, "a", name)
	require.Equal(t, "a", hierarchy.Child("", "a"))
	require.Equal(t, "a.b", hierarchy.Child("a", "b"))
	require.Nil(t, hierarchy.SplitPath(""))
}
