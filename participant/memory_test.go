package participant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/merelin/diffa-sub000/digest"
	"github.com/merelin/diffa-sub000/hash"
	"github.com/merelin/diffa-sub000/hierarchy"
	"github.com/merelin/diffa-sub000/log/logtest"
	"github.com/merelin/diffa-sub000/scan"
)

type collector struct {
	answers []scan.Answer
}

func (c *collector) OnPrune(_ context.Context, a scan.Answer) error {
	c.answers = append(c.answers, a)
	return nil
}

func (c *collector) OnCompletion() {}

func idLayout() *hierarchy.Layout {
	return hierarchy.NewEntityIDLayout(hierarchy.NewEntityIDHasher(hash.MD5, 0))
}

func TestScanEntityIDTree(t *testing.T) {
	m := NewMemory([]scan.Record{
		{ID: "A1B2C3", Version: "v1"},
	}, WithLogger(logtest.New(t)))
	require.Equal(t, 1, m.Len())
	layout := idLayout()
	ctx := context.Background()

	c := &collector{}
	require.NoError(t, m.Scan(ctx, layout.InitialQuestion(0), c))
	leaf := digest.Sliced(hash.MD5, []string{"v1"}, 0)
	top := digest.Of(hash.MD5, digest.Of(hash.MD5, leaf))
	require.Equal(t, []scan.Answer{&scan.GroupedAnswer{Group: "4", Digest: top}}, c.answers)

	q, err := layout.Refine(layout.InitialQuestion(0), []string{"4"}, "a")
	require.NoError(t, err)
	c = &collector{}
	require.NoError(t, m.Scan(ctx, q, c))
	require.Equal(t, []scan.Answer{&scan.GroupedAnswer{Group: "3", Digest: leaf}}, c.answers)

	q, err = layout.Refine(q, []string{"4", "a"}, "3")
	require.NoError(t, err)
	c = &collector{}
	require.NoError(t, m.Scan(ctx, q, c))
	require.Equal(t, []scan.Answer{&scan.IndividualAnswer{ID: "A1B2C3", Digest: "v1"}}, c.answers)

	q, err = layout.Refine(layout.InitialQuestion(0), []string{"4"}, "b")
	require.NoError(t, err)
	c = &collector{}
	require.NoError(t, m.Scan(ctx, q, c))
	require.Empty(t, c.answers)
}

func TestScanUserTree(t *testing.T) {
	layout, err := hierarchy.NewLayout(
		&hierarchy.DateCategory{Attr: "bizDate", Granularity: scan.Monthly},
		&hierarchy.PrefixCategory{Attr: "sku", Offsets: []int{1, 2}},
	)
	require.NoError(t, err)
	m := NewMemory([]scan.Record{
		{ID: "a", Version: "v1", Attributes: map[string]string{"bizDate": "2024-03-15", "sku": "xyz"}},
		{ID: "b", Version: "v2", Attributes: map[string]string{"bizDate": "2024-03-01", "sku": "xyw"}},
		{ID: "c", Version: "v3", Attributes: map[string]string{"bizDate": "2023-01-01", "sku": "abc"}},
		{ID: "d", Version: "v4", Attributes: map[string]string{"bizDate": "2023-01-01"}},
	}, WithLayout(layout))

	c := &collector{}
	require.NoError(t, m.Scan(context.Background(), layout.InitialQuestion(2), c))
	require.Equal(t, []scan.Answer{
		&scan.GroupedAnswer{
			Group:  "2023|a",
			Digest: digest.Of(hash.MD5, digest.Sliced(hash.MD5, []string{"v3"}, 2)),
		},
		&scan.GroupedAnswer{
			Group:  "2024|x",
			Digest: digest.Of(hash.MD5, digest.Sliced(hash.MD5, []string{"v1", "v2"}, 2)),
		},
	}, c.answers)
}

func TestScanStopsOnHandlerError(t *testing.T) {
	m := NewMemory([]scan.Record{
		{ID: "a", Version: "v1"},
		{ID: "b", Version: "v1"},
	})
	m.Delete("b")
	m.Upsert(scan.Record{ID: "c", Version: "v1"})
	require.Equal(t, 2, m.Len())

	layout := idLayout()
	q := layout.InitialQuestion(0)
	q.Aggregations = nil

	ctrl := gomock.NewController(t)
	handler := scan.NewMockPruningHandler(ctrl)
	failure := errors.New("stop")
	handler.EXPECT().OnPrune(gomock.Any(), gomock.Any()).Return(failure)
	require.ErrorIs(t, m.Scan(context.Background(), q, handler), failure)
}

func TestScanUnknownHierarchy(t *testing.T) {
	m := NewMemory(nil)
	q := scan.Question{
		Aggregations: []scan.Aggregation{&scan.DateAggregation{Attr: "bizDate", Granularity: scan.Yearly}},
	}
	require.Error(t, m.Scan(context.Background(), q, &collector{}))
}
