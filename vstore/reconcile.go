package vstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/digest"
	"github.com/merelin/diffa-sub000/hierarchy"
	"github.com/merelin/diffa-sub000/sql"
	"github.com/merelin/diffa-sub000/sql/buckets"
	"github.com/merelin/diffa-sub000/sql/deltas"
)

// Deltify compares the top level of the entity id trees of both endpoints
// and replaces the deltas of the pair with the buckets that differ.
func (s *Store) Deltify(ctx context.Context, pair types.PairProjection) (types.TreeLevelDifference, error) {
	var left, right types.TreeLevelRollup
	var eg errgroup.Group
	eg.Go(func() error {
		var err error
		left, err = s.levelOrEmpty(ctx, pair.Left, "")
		return err
	})
	eg.Go(func() error {
		var err error
		right, err = s.levelOrEmpty(ctx, pair.Right, "")
		return err
	})
	if err := eg.Wait(); err != nil {
		return types.TreeLevelDifference{}, fmt.Errorf("deltify %s: %w", pair, err)
	}
	diff := types.CompareLevels(left.Members, right.Members, left.IsLeaf || right.IsLeaf)
	mismatched := diff.Mismatched()
	if err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := deltas.Clear(tx, pair); err != nil {
			return err
		}
		for _, name := range mismatched {
			l, r := diff.Sides(name)
			if err := deltas.Add(tx, pair, deltas.Delta{
				Bucket:      name,
				LeftDigest:  l,
				RightDigest: r,
				IsLeaf:      diff.IsLeaf,
			}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return types.TreeLevelDifference{}, fmt.Errorf("deltify %s: %w", pair, err)
	}
	deltaBuckets.WithLabelValues(pair.String()).Set(float64(len(mismatched)))
	s.logger.Info("deltified",
		zap.Object("pair", pair),
		zap.Int("equal", len(diff.Equal)),
		zap.Strings("mismatched", mismatched),
	)
	return diff, nil
}

// GetDeltaDigest returns the buckets found by the last Deltify of the pair.
// The digest of a member folds the left and the right digest.
func (s *Store) GetDeltaDigest(ctx context.Context, pair types.PairProjection) (types.TreeLevelRollup, error) {
	list, err := deltas.List(s.db, pair)
	if err != nil {
		return types.TreeLevelRollup{}, err
	}
	rollup := types.NewTreeLevelRollup(len(list) > 0 && list[0].IsLeaf)
	for _, d := range list {
		rollup.Add(d.Bucket, digest.Of(s.hash, d.LeftDigest, d.RightDigest))
	}
	return rollup, nil
}

// GetOutrightDifferences descends from bucket of the entity id tree on both
// sides until the leaf level and returns every entity whose versions differ.
// A missing side is reported with an empty version.
func (s *Store) GetOutrightDifferences(
	ctx context.Context,
	pair types.PairProjection,
	bucket string,
) (types.EntityDifferences, error) {
	leaf := false
	if bucket != "" {
		parent, name := hierarchy.Parent(bucket)
		lc, lok, err := s.child(pair.Left, parent, name)
		if err != nil {
			return nil, err
		}
		rc, rok, err := s.child(pair.Right, parent, name)
		if err != nil {
			return nil, err
		}
		if !lok && !rok {
			return nil, &types.BucketNotFoundError{
				Tree:  types.EntityIDTree,
				Scope: pair.String(),
				Path:  bucket,
			}
		}
		leaf = lc.IsLeaf || rc.IsLeaf
	}

	type pending struct {
		path string
		leaf bool
	}
	var diffs types.EntityDifferences
	stack := []pending{{path: bucket, leaf: leaf}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if next.leaf {
			found, err := s.compareLedgers(pair, next.path)
			if err != nil {
				return nil, err
			}
			diffs = append(diffs, found...)
			continue
		}
		left, err := s.levelOrEmpty(ctx, pair.Left, next.path)
		if err != nil {
			return nil, err
		}
		right, err := s.levelOrEmpty(ctx, pair.Right, next.path)
		if err != nil {
			return nil, err
		}
		diff := types.CompareLevels(left.Members, right.Members, left.IsLeaf || right.IsLeaf)
		for _, name := range diff.Mismatched() {
			stack = append(stack, pending{path: hierarchy.Child(next.path, name), leaf: diff.IsLeaf})
		}
	}
	slices.SortFunc(diffs, func(a, b types.EntityDifference) int {
		return strings.Compare(a.ID, b.ID)
	})
	outrightDifferences.Observe(float64(len(diffs)))
	s.logger.Debug("outright differences",
		zap.Object("pair", pair),
		zap.String("bucket", bucket),
		zap.Array("differences", diffs),
	)
	return diffs, nil
}

func (s *Store) child(endpoint, parent, name string) (buckets.Child, bool, error) {
	c, err := buckets.GetChild(s.db, types.EntityIDTree, endpoint, parent, name)
	switch {
	case errors.Is(err, sql.ErrNotFound):
		return c, false, nil
	case err != nil:
		return c, false, err
	}
	return c, true, nil
}

// levelOrEmpty reads the children of an entity id bucket, a bucket that was
// never populated on this side is an empty level.
func (s *Store) levelOrEmpty(ctx context.Context, endpoint, path string) (types.TreeLevelRollup, error) {
	rollup, err := s.ReadDigests(ctx, types.EntityIDTree, endpoint, path)
	if errors.Is(err, types.ErrBucketNotFound) {
		return types.NewTreeLevelRollup(false), nil
	}
	return rollup, err
}

func (s *Store) compareLedgers(pair types.PairProjection, path string) (types.EntityDifferences, error) {
	left, err := buckets.Members(s.db, types.EntityIDTree, pair.Left, path)
	if err != nil {
		return nil, err
	}
	right, err := buckets.Members(s.db, types.EntityIDTree, pair.Right, path)
	if err != nil {
		return nil, err
	}
	return mergeMembers(left, right), nil
}

// mergeMembers walks two ledgers ordered by id and returns the entries that
// differ.
func mergeMembers(left, right []buckets.Member) types.EntityDifferences {
	var diffs types.EntityDifferences
	i, j := 0, 0
	for i < len(left) || j < len(right) {
		switch {
		case j == len(right) || (i < len(left) && left[i].ID < right[j].ID):
			diffs = append(diffs, types.EntityDifference{ID: left[i].ID, Left: left[i].Version})
			i++
		case i == len(left) || right[j].ID < left[i].ID:
			diffs = append(diffs, types.EntityDifference{ID: right[j].ID, Right: right[j].Version})
			j++
		default:
			if left[i].Version != right[j].Version {
				diffs = append(diffs, types.EntityDifference{
					ID:    left[i].ID,
					Left:  left[i].Version,
					Right: right[j].Version,
				})
			}
			i++
			j++
		}
	}
	return diffs
}
