package interview

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/log/logtest"
	"github.com/merelin/diffa-sub000/participant"
	"github.com/merelin/diffa-sub000/scan"
	"github.com/merelin/diffa-sub000/sql"
	"github.com/merelin/diffa-sub000/vstore"
)

type testCoordinator struct {
	*Coordinator
	store       *MockVersionStore
	participant *scan.MockScannable
}

func newTestCoordinator(tb testing.TB, opts ...Opt) *testCoordinator {
	ctrl := gomock.NewController(tb)
	store := NewMockVersionStore(ctrl)
	opts = append([]Opt{WithLogger(logtest.New(tb))}, opts...)
	return &testCoordinator{
		Coordinator: New(store, opts...),
		store:       store,
		participant: scan.NewMockScannable(ctrl),
	}
}

func question(prefix string) scan.Question {
	return scan.Question{
		Constraints:  []scan.Constraint{&scan.HashPrefixConstraint{Prefix: prefix}},
		Aggregations: []scan.Aggregation{&scan.EntityIDAggregation{Length: len(prefix) + 1}},
	}
}

func TestCoordinatorInSync(t *testing.T) {
	tc := newTestCoordinator(t)
	initial := question("")
	answers := []scan.Answer{answer("a"), answer("b")}
	tc.store.EXPECT().InitialQuestion(gomock.Any(), "ep").Return(initial, nil)
	tc.participant.EXPECT().Scan(gomock.Any(), initial, gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ scan.Question, handler scan.PruningHandler) error {
			for _, a := range answers {
				if err := handler.OnPrune(ctx, a); err != nil {
					return err
				}
			}
			return nil
		})
	tc.store.EXPECT().ContinueInterview(gomock.Any(), "ep", initial, answers).
		Return([]scan.Question{scan.NoFurtherQuestions}, nil, nil)

	out, err := tc.Run(context.Background(), "ep", tc.participant)
	require.NoError(t, err)
	require.Empty(t, out.Differences)
	require.Equal(t, 1, out.Questions)
	require.Equal(t, 1, out.Rounds)
	require.True(t, out.Final.Terminal())
}

func TestCoordinatorDrillsDown(t *testing.T) {
	tc := newTestCoordinator(t)
	initial := question("")
	tc.store.EXPECT().InitialQuestion(gomock.Any(), "ep").Return(initial, nil)
	tc.participant.EXPECT().Scan(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(4)
	tc.store.EXPECT().ContinueInterview(gomock.Any(), "ep", initial, gomock.Nil()).
		Return([]scan.Question{question("1"), question("2")}, nil, nil)
	tc.store.EXPECT().ContinueInterview(gomock.Any(), "ep", question("1"), gomock.Nil()).
		Return([]scan.Question{question("12")}, types.EntityDifferences{{ID: "z", Left: "v1"}}, nil)
	tc.store.EXPECT().ContinueInterview(gomock.Any(), "ep", question("2"), gomock.Nil()).
		Return([]scan.Question{scan.NoFurtherQuestions}, nil, nil)
	tc.store.EXPECT().ContinueInterview(gomock.Any(), "ep", question("12"), gomock.Nil()).
		Return([]scan.Question{scan.NoFurtherQuestions}, types.EntityDifferences{{ID: "a", Right: "v2"}}, nil)

	out, err := tc.Run(context.Background(), "ep", tc.participant)
	require.NoError(t, err)
	require.Equal(t, types.EntityDifferences{{ID: "a", Right: "v2"}, {ID: "z", Left: "v1"}}, out.Differences)
	require.Equal(t, 4, out.Questions)
	require.Equal(t, 3, out.Rounds)
}

func TestCoordinatorParticipantFails(t *testing.T) {
	tc := newTestCoordinator(t)
	initial := question("")
	failure := errors.New("participant unavailable")
	tc.store.EXPECT().InitialQuestion(gomock.Any(), "ep").Return(initial, nil)
	tc.participant.EXPECT().Scan(gomock.Any(), initial, gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ scan.Question, handler scan.PruningHandler) error {
			require.NoError(t, handler.OnPrune(ctx, answer("a")))
			return failure
		})

	_, err := tc.Run(context.Background(), "ep", tc.participant)
	require.ErrorIs(t, err, failure)
}

func TestCoordinatorParticipantStalls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnswerTimeout = 50 * time.Millisecond
	tc := newTestCoordinator(t, WithConfig(cfg))
	initial := question("")
	started := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	tc.store.EXPECT().InitialQuestion(gomock.Any(), "ep").Return(initial, nil)
	tc.participant.EXPECT().Scan(gomock.Any(), initial, gomock.Any()).DoAndReturn(
		func(context.Context, scan.Question, scan.PruningHandler) error {
			close(started)
			<-release
			return nil
		})

	errc := make(chan error, 1)
	go func() {
		_, err := tc.Run(context.Background(), "ep", tc.participant)
		errc <- err
	}()
	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrInterviewTimeout)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "interview blocked by a stalled participant")
	}
	<-started
}

func TestCoordinatorStoreFails(t *testing.T) {
	tc := newTestCoordinator(t)
	failure := errors.New("store unavailable")
	tc.store.EXPECT().InitialQuestion(gomock.Any(), "ep").Return(scan.Question{}, failure)
	_, err := tc.Run(context.Background(), "ep", tc.participant)
	require.ErrorIs(t, err, failure)

	initial := question("")
	tc.store.EXPECT().InitialQuestion(gomock.Any(), "ep").Return(initial, nil)
	tc.participant.EXPECT().Scan(gomock.Any(), initial, gomock.Any()).Return(nil)
	tc.store.EXPECT().ContinueInterview(gomock.Any(), "ep", initial, gomock.Nil()).
		Return(nil, nil, failure)
	_, err = tc.Run(context.Background(), "ep", tc.participant)
	require.ErrorIs(t, err, failure)
}

func TestCoordinatorTooManyRounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRounds = 2
	tc := newTestCoordinator(t, WithConfig(cfg))
	initial := question("")
	tc.store.EXPECT().InitialQuestion(gomock.Any(), "ep").Return(initial, nil)
	tc.participant.EXPECT().Scan(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	tc.store.EXPECT().ContinueInterview(gomock.Any(), "ep", gomock.Any(), gomock.Nil()).
		Return([]scan.Question{initial}, nil, nil).Times(2)

	_, err := tc.Run(context.Background(), "ep", tc.participant)
	require.ErrorIs(t, err, ErrTooManyRounds)
}

func TestCoordinatorContextCanceled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnswerTimeout = time.Hour
	tc := newTestCoordinator(t, WithConfig(cfg))
	initial := question("")
	ctx, cancel := context.WithCancel(context.Background())
	tc.store.EXPECT().InitialQuestion(gomock.Any(), "ep").Return(initial, nil)
	tc.participant.EXPECT().Scan(gomock.Any(), initial, gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ scan.Question, _ scan.PruningHandler) error {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		})

	_, err := tc.Run(ctx, "ep", tc.participant)
	require.ErrorIs(t, err, context.Canceled)
}

func TestInterviewConverges(t *testing.T) {
	db := sql.InMemory()
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	store := vstore.New(db, vstore.WithLogger(logtest.New(t)))
	ctx := context.Background()

	var records []scan.Record
	for i := range 200 {
		r := scan.Record{ID: fmt.Sprintf("id-%d", i), Version: fmt.Sprintf("v%d", i)}
		records = append(records, r)
		require.NoError(t, store.OnEvent(ctx, "ep", &types.Upsert{ID: r.ID, Version: r.Version}))
	}
	p := participant.NewMemory(records)
	cfg := DefaultConfig()
	cfg.BufferSize = 1
	c := New(store, WithLogger(logtest.New(t)), WithConfig(cfg))

	out, err := c.Run(ctx, "ep", p)
	require.NoError(t, err)
	require.Empty(t, out.Differences)
	require.Equal(t, 1, out.Questions)

	p.Upsert(scan.Record{ID: "id-10", Version: "changed"})
	p.Delete("id-20")
	p.Upsert(scan.Record{ID: "new", Version: "v1"})
	out, err = c.Run(ctx, "ep", p)
	require.NoError(t, err)
	require.Equal(t, types.EntityDifferences{
		{ID: "id-10", Left: "v10", Right: "changed"},
		{ID: "id-20", Left: "v20"},
		{ID: "new", Right: "v1"},
	}, out.Differences)
	require.LessOrEqual(t, out.Rounds, 4)
}
