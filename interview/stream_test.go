package interview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/merelin/diffa-sub000/scan"
)

func newStream(tb testing.TB, size int) (*AnswerStream, clockwork.FakeClock) {
	tb.Helper()
	clock := clockwork.NewFakeClock()
	cfg := DefaultConfig()
	cfg.BufferSize = size
	return NewAnswerStream(cfg, clock), clock
}

func answer(group string) scan.Answer {
	return &scan.GroupedAnswer{Group: group, Digest: "d" + group}
}

func TestStreamDeliversInOrder(t *testing.T) {
	s, _ := newStream(t, 10)
	ctx := context.Background()
	for _, g := range []string{"a", "b", "c"} {
		require.NoError(t, s.OnPrune(ctx, answer(g)))
	}
	s.OnCompletion()
	s.OnCompletion()

	var got []scan.Answer
	for {
		more, err := s.HasNext(ctx)
		require.NoError(t, err)
		if !more {
			break
		}
		// repeated HasNext doesn't consume the answer
		more, err = s.HasNext(ctx)
		require.NoError(t, err)
		require.True(t, more)
		a, ok, err := s.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		got = append(got, a)
	}
	require.Equal(t, []scan.Answer{answer("a"), answer("b"), answer("c")}, got)

	_, ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStreamBackpressure(t *testing.T) {
	s, _ := newStream(t, 1)
	ctx := context.Background()
	require.NoError(t, s.OnPrune(ctx, answer("a")))

	blocked := make(chan error, 1)
	go func() {
		blocked <- s.OnPrune(ctx, answer("b"))
	}()
	select {
	case err := <-blocked:
		t.Fatalf("producer wasn't blocked by the full buffer: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	a, ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, answer("a"), a)
	require.NoError(t, <-blocked)

	a, ok, err = s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, answer("b"), a)
}

func TestStreamAfterCompletion(t *testing.T) {
	s, _ := newStream(t, 1)
	ctx := context.Background()
	s.OnCompletion()

	more, err := s.HasNext(ctx)
	require.NoError(t, err)
	require.False(t, more)
	require.ErrorIs(t, s.OnPrune(ctx, answer("a")), ErrAnswerAfterCompletion)
}

func TestStreamTimeout(t *testing.T) {
	s, clock := newStream(t, 1)
	errc := make(chan error, 1)
	go func() {
		_, err := s.HasNext(context.Background())
		errc <- err
	}()
	clock.BlockUntil(1)
	clock.Advance(DefaultConfig().AnswerTimeout)
	require.ErrorIs(t, <-errc, ErrInterviewTimeout)
}

func TestStreamWaitsForAnswer(t *testing.T) {
	s, clock := newStream(t, 1)
	ctx := context.Background()
	type result struct {
		more bool
		err  error
	}
	res := make(chan result, 1)
	go func() {
		more, err := s.HasNext(ctx)
		res <- result{more, err}
	}()
	clock.BlockUntil(1)
	clock.Advance(DefaultConfig().AnswerTimeout / 2)
	require.NoError(t, s.OnPrune(ctx, answer("a")))
	r := <-res
	require.NoError(t, r.err)
	require.True(t, r.more)
}

func TestStreamFail(t *testing.T) {
	s, _ := newStream(t, 10)
	ctx := context.Background()
	require.NoError(t, s.OnPrune(ctx, answer("a")))
	failure := errors.New("participant failed")
	s.Fail(failure)
	s.Fail(errors.New("ignored"))
	require.ErrorIs(t, s.Err(), failure)

	more, err := s.HasNext(ctx)
	require.NoError(t, err)
	require.True(t, more)
	a, ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, answer("a"), a)

	more, err = s.HasNext(ctx)
	require.ErrorIs(t, err, failure)
	require.False(t, more)
}

func TestStreamCloseReleasesProducer(t *testing.T) {
	s, _ := newStream(t, 1)
	ctx := context.Background()
	require.NoError(t, s.OnPrune(ctx, answer("a")))
	errc := make(chan error, 1)
	go func() {
		errc <- s.OnPrune(ctx, answer("b"))
	}()
	s.Close()
	s.Close()
	require.ErrorIs(t, <-errc, ErrStreamClosed)
}

func TestStreamContextCanceled(t *testing.T) {
	s, _ := newStream(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.HasNext(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, s.OnPrune(context.Background(), answer("a")))
	require.ErrorIs(t, s.OnPrune(ctx, answer("b")), context.Canceled)
}
