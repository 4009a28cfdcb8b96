package vstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/log/logtest"
	"github.com/merelin/diffa-sub000/sql"
)

func randomAttributes(rng *rand.Rand) map[string]string {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, rng.IntN(90))
	regions := []string{"eu", "us", "apac"}
	return map[string]string{
		"bizDate": date.Format(time.DateOnly),
		"region":  regions[rng.IntN(len(regions))],
	}
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	db, err := sql.Open("file:"+filepath.Join(t.TempDir(), "versions.db"), sql.WithConnections(8))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	s := New(db, WithLogger(logtest.New(t)), WithEndpoint("a", newUserLayout(t)))
	ctx := context.Background()

	const (
		writers = 4
		ids     = 20
		updates = 4
	)
	final := make([]map[string]*types.Upsert, writers)
	var eg errgroup.Group
	for w := range writers {
		final[w] = map[string]*types.Upsert{}
		eg.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(w), 11))
			for range updates {
				for i := range ids {
					ev := &types.Upsert{
						ID:         fmt.Sprintf("w%d-%d", w, i),
						Version:    randomVersion(rng),
						Attributes: randomAttributes(rng),
					}
					if err := s.OnEvent(ctx, "a", ev); err != nil {
						return err
					}
					final[w][ev.ID] = ev
				}
			}
			for i := 0; i < ids; i += 3 {
				id := fmt.Sprintf("w%d-%d", w, i)
				if err := s.OnEvent(ctx, "a", &types.Tombstone{ID: id}); err != nil {
					return err
				}
				delete(final[w], id)
			}
			return nil
		})
	}
	done := make(chan struct{})
	var readers errgroup.Group
	for _, tree := range []types.Tree{types.EntityIDTree, types.UserTree} {
		readers.Go(func() error {
			for {
				select {
				case <-done:
					return nil
				default:
				}
				if _, err := s.RootDigest(ctx, tree, "a"); err != nil && !errors.Is(err, types.ErrBucketNotFound) {
					return err
				}
			}
		})
	}
	require.NoError(t, eg.Wait())
	close(done)
	require.NoError(t, readers.Wait())

	fresh, _ := newStore(t, WithEndpoint("a", newUserLayout(t)))
	var events []*types.Upsert
	for _, evs := range final {
		for _, ev := range evs {
			events = append(events, ev)
		}
	}
	slices.SortFunc(events, func(a, b *types.Upsert) int {
		return strings.Compare(a.ID, b.ID)
	})
	for _, ev := range events {
		require.NoError(t, fresh.OnEvent(ctx, "a", ev))
	}
	for _, tree := range []types.Tree{types.EntityIDTree, types.UserTree} {
		expected, err := fresh.RootDigest(ctx, tree, "a")
		require.NoError(t, err)
		actual, err := s.RootDigest(ctx, tree, "a")
		require.NoError(t, err)
		require.Equal(t, expected, actual, "root of %s tree", tree)

		expectedLevel, err := fresh.ReadDigests(ctx, tree, "a", "")
		require.NoError(t, err)
		actualLevel, err := s.ReadDigests(ctx, tree, "a", "")
		require.NoError(t, err)
		require.Equal(t, expectedLevel, actualLevel)
	}
}

