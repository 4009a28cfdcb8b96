package vstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/digest"
	"github.com/merelin/diffa-sub000/hash"
	"github.com/merelin/diffa-sub000/hierarchy"
	"github.com/merelin/diffa-sub000/sql"
	"github.com/merelin/diffa-sub000/sql/buckets"
	"github.com/merelin/diffa-sub000/sql/endpoints"
)

// maxTreeDepth bounds descent into user trees of unregistered endpoints.
const maxTreeDepth = 16

// ErrInconsistentLevel is returned when children of a bucket are not all of
// the same kind.
var ErrInconsistentLevel = errors.New("bucket mixes leaf and non-leaf children")

type writeBack struct {
	path   string
	digest string
	gen    int64
}

// resolver computes digests within a single read transaction.
type resolver struct {
	tx        sql.Executor
	tree      types.Tree
	scope     string
	fn        hash.Func
	sliceSize int
	maxDepth  int

	writeBacks []writeBack
}

func (s *Store) newResolver(tx sql.Executor, tree types.Tree, scope string) (*resolver, error) {
	r := &resolver{
		tx:       tx,
		tree:     tree,
		scope:    scope,
		fn:       s.hash,
		maxDepth: maxTreeDepth,
	}
	if layout := s.layoutOf(tree, scope); layout != nil {
		r.maxDepth = layout.Depth()
	}
	if tree == types.UserTree {
		size, err := s.maxSliceSize(tx, scope)
		if err != nil {
			return nil, err
		}
		r.sliceSize = size
	}
	return r, nil
}

func (r *resolver) children(path string) ([]buckets.Child, bool, error) {
	children, err := buckets.Children(r.tx, r.tree, r.scope, path)
	if err != nil {
		return nil, false, err
	}
	if len(children) == 0 {
		return nil, false, nil
	}
	leaf := children[0].IsLeaf
	for _, c := range children[1:] {
		if c.IsLeaf != leaf {
			return nil, false, fmt.Errorf("%w: %s tree of %q at %q", ErrInconsistentLevel, r.tree, r.scope, path)
		}
	}
	return children, leaf, nil
}

// resolve returns the digest of the bucket at path, empty if the bucket has
// no live members. Computed digests are collected for a later write back.
func (r *resolver) resolve(path string, leaf bool) (string, error) {
	if depth := len(hierarchy.SplitPath(path)); depth > r.maxDepth {
		return "", fmt.Errorf("bucket %q is deeper than %s tree of depth %d", path, r.tree, r.maxDepth)
	}
	cell, err := buckets.GetCell(r.tx, r.tree, r.scope, path)
	if err != nil {
		return "", err
	}
	if cell.Valid {
		cachedDigests.Inc()
		return cell.Digest, nil
	}
	var d string
	if leaf {
		members, err := buckets.Members(r.tx, r.tree, r.scope, path)
		if err != nil {
			return "", err
		}
		values := make([]string, 0, len(members))
		for _, m := range members {
			values = append(values, m.Version)
		}
		d = digest.Sliced(r.fn, values, r.sliceSize)
	} else {
		children, _, err := r.children(path)
		if err != nil {
			return "", err
		}
		var digests []string
		for _, c := range children {
			cd, err := r.resolve(hierarchy.Child(path, c.Name), c.IsLeaf)
			if err != nil {
				return "", err
			}
			if cd != "" {
				digests = append(digests, cd)
			}
		}
		if len(digests) > 0 {
			d = digest.Of(r.fn, digests...)
		}
	}
	computedDigests.Inc()
	r.writeBacks = append(r.writeBacks, writeBack{path: path, digest: d, gen: cell.Gen})
	return d, nil
}

// ReadDigests returns the digests of the children of the bucket at path.
// Children without live members are left out. A bucket that never had
// children fails with types.ErrBucketNotFound.
func (s *Store) ReadDigests(ctx context.Context, tree types.Tree, scope, path string) (types.TreeLevelRollup, error) {
	var (
		rollup types.TreeLevelRollup
		pend   []writeBack
	)
	if err := s.db.WithReadTx(ctx, func(tx *sql.Tx) error {
		r, err := s.newResolver(tx, tree, scope)
		if err != nil {
			return err
		}
		children, leaf, err := r.children(path)
		if err != nil {
			return err
		}
		if len(children) == 0 {
			return &types.BucketNotFoundError{Tree: tree, Scope: scope, Path: path}
		}
		rollup = types.NewTreeLevelRollup(leaf)
		for _, c := range children {
			d, err := r.resolve(hierarchy.Child(path, c.Name), c.IsLeaf)
			if err != nil {
				return err
			}
			if d != "" {
				rollup.Add(c.Name, d)
			}
		}
		pend = r.writeBacks
		return nil
	}); err != nil {
		return types.TreeLevelRollup{}, fmt.Errorf("read digests: %w", err)
	}
	if err := s.writeBack(ctx, tree, scope, pend); err != nil {
		return types.TreeLevelRollup{}, err
	}
	return rollup, nil
}

// RootDigest returns the digest of the whole tree, empty if it has no live
// members.
func (s *Store) RootDigest(ctx context.Context, tree types.Tree, scope string) (string, error) {
	var (
		d    string
		pend []writeBack
	)
	if err := s.db.WithReadTx(ctx, func(tx *sql.Tx) error {
		r, err := s.newResolver(tx, tree, scope)
		if err != nil {
			return err
		}
		d, err = r.resolve("", false)
		pend = r.writeBacks
		return err
	}); err != nil {
		return "", fmt.Errorf("root digest: %w", err)
	}
	if err := s.writeBack(ctx, tree, scope, pend); err != nil {
		return "", err
	}
	return d, nil
}

// writeBack caches computed digests unless their cells were invalidated
// after they were read.
func (s *Store) writeBack(ctx context.Context, tree types.Tree, scope string, pend []writeBack) error {
	if len(pend) == 0 {
		return nil
	}
	skipped := 0
	if err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, wb := range pend {
			stored, err := buckets.CacheDigest(tx, tree, scope, wb.path, wb.digest, wb.gen)
			if err != nil {
				return err
			}
			if !stored {
				skipped++
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("cache digests: %w", err)
	}
	if skipped > 0 {
		skippedWriteBacks.Add(float64(skipped))
		s.logger.Debug("digests not cached",
			zap.Stringer("tree", tree),
			zap.String("scope", scope),
			zap.Int("skipped", skipped),
		)
	}
	return nil
}

func (s *Store) maxSliceSize(db sql.Executor, endpoint string) (int, error) {
	size, err := endpoints.MaxSliceSize(db, endpoint)
	if errors.Is(err, sql.ErrNotFound) {
		return s.cfg.DefaultMaxSliceSize, nil
	}
	return size, err
}

// MaxSliceSize returns the slice size of leaf digests in the user tree of the
// endpoint.
func (s *Store) MaxSliceSize(ctx context.Context, endpoint string) (int, error) {
	return s.maxSliceSize(s.db, endpoint)
}

// SetMaxSliceSize changes the slice size of the endpoint. Cached user tree
// digests of the endpoint are invalidated if the size changed.
func (s *Store) SetMaxSliceSize(ctx context.Context, endpoint string, size int) error {
	if size < 0 {
		return fmt.Errorf("negative max slice size %d", size)
	}
	var invalidated int
	if err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		changed, err := endpoints.SetMaxSliceSize(tx, endpoint, size)
		if err != nil || !changed {
			return err
		}
		invalidated, err = buckets.InvalidateScope(tx, types.UserTree, endpoint)
		return err
	}); err != nil {
		return fmt.Errorf("set max slice size of %s: %w", endpoint, err)
	}
	s.logger.Info("max slice size set",
		zap.String("endpoint", endpoint),
		zap.Int("size", size),
		zap.Int("invalidated", invalidated),
	)
	return nil
}
