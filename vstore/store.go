// Package vstore keeps hierarchical digest trees over the entity versions of
// every endpoint and compares them, either between two local endpoints or
// against a remote participant by interviewing it.
//
// Every endpoint has an entity id tree and, if its categories aggregate, a
// user tree. Writes record leaf membership and invalidate the digest cells of
// all ancestors. Reads recompute empty cells from the children and cache the
// result.
package vstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/hash"
	"github.com/merelin/diffa-sub000/hierarchy"
	"github.com/merelin/diffa-sub000/scan"
	"github.com/merelin/diffa-sub000/sql"
	"github.com/merelin/diffa-sub000/sql/buckets"
	"github.com/merelin/diffa-sub000/sql/versions"
)

type Opt func(*Store)

func WithLogger(logger *zap.Logger) Opt {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithClock(clock clockwork.Clock) Opt {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithHash sets the hash function of digests. Both sides of a comparison must
// use the same function.
func WithHash(fn hash.Func) Opt {
	return func(s *Store) {
		s.hash = fn
	}
}

func WithConfig(cfg Config) Opt {
	return func(s *Store) {
		s.cfg = cfg
	}
}

// WithEndpoint registers the user hierarchy of the endpoint.
func WithEndpoint(id string, layout *hierarchy.Layout) Opt {
	return func(s *Store) {
		s.layouts[id] = layout
	}
}

// Store is the version store.
type Store struct {
	logger *zap.Logger
	clock  clockwork.Clock
	hash   hash.Func
	cfg    Config
	db     *sql.Database

	ids      *hierarchy.EntityIDHasher
	idLayout *hierarchy.Layout

	mu      sync.RWMutex
	layouts map[string]*hierarchy.Layout
}

// New creates a store on top of db.
func New(db *sql.Database, opts ...Opt) *Store {
	s := &Store{
		logger:  zap.NewNop(),
		clock:   clockwork.NewRealClock(),
		hash:    hash.Default,
		cfg:     DefaultConfig(),
		db:      db,
		layouts: map[string]*hierarchy.Layout{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ids = hierarchy.NewEntityIDHasher(s.hash, s.cfg.IDCacheSize)
	s.idLayout = hierarchy.NewEntityIDLayout(s.ids)
	return s
}

// RegisterEndpoint sets the user hierarchy of the endpoint. Entities ingested
// before the registration are not placed into the user tree.
func (s *Store) RegisterEndpoint(id string, layout *hierarchy.Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts[id] = layout
}

// IDHasher returns the hasher used to place entities into the entity id tree.
func (s *Store) IDHasher() *hierarchy.EntityIDHasher {
	return s.ids
}

// IDLayout returns the layout of the entity id tree.
func (s *Store) IDLayout() *hierarchy.Layout {
	return s.idLayout
}

// Layout returns the user hierarchy of the endpoint, nil if the endpoint has
// no aggregating categories.
func (s *Store) Layout(endpoint string) *hierarchy.Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l := s.layouts[endpoint]; l != nil && l.Aggregating() {
		return l
	}
	return nil
}

func (s *Store) layoutOf(tree types.Tree, endpoint string) *hierarchy.Layout {
	if tree == types.EntityIDTree {
		return s.idLayout
	}
	return s.Layout(endpoint)
}

// OnEvent applies a change event of the endpoint. A tombstone is handled by
// DeleteEvent. Hierarchy construction failures abort the event before anything
// is written.
func (s *Store) OnEvent(ctx context.Context, endpoint string, ev types.ChangeEvent) error {
	switch ev := ev.(type) {
	case *types.Upsert:
		return s.upsert(ctx, endpoint, ev)
	case *types.Tombstone:
		return s.DeleteEvent(ctx, endpoint, ev.ID)
	default:
		panic(fmt.Sprintf("BUG: unknown change event %T", ev))
	}
}

func (s *Store) upsert(ctx context.Context, endpoint string, ev *types.Upsert) error {
	if ev.ID != "" && ev.Version == "" {
		invalidEvents.Inc()
		return &types.InvalidEventError{ID: ev.ID, Reason: "empty version"}
	}
	lastUpdate := ev.LastUpdated
	if lastUpdate.IsZero() {
		lastUpdate = s.clock.Now()
	}
	r := &scan.Record{
		ID:         ev.ID,
		Version:    ev.Version,
		Attributes: ev.Attributes,
		LastUpdate: lastUpdate.UTC(),
	}
	idNode, err := s.idLayout.Build(r)
	if err != nil {
		invalidEvents.Inc()
		return err
	}
	var userNode *hierarchy.Node
	if layout := s.Layout(endpoint); layout != nil && len(ev.Attributes) > 0 {
		userNode, err = s.buildUserNode(layout, r)
		if err != nil {
			invalidEvents.Inc()
			return err
		}
	}
	raw := &versions.Record{
		Endpoint:    endpoint,
		ID:          r.ID,
		Version:     r.Version,
		LastUpdate:  r.LastUpdate,
		IDPartition: idNode.Path(),
		Attributes:  types.AttributesFromMap(r.Attributes),
	}
	if userNode != nil {
		raw.UserPartition = userNode.Path()
	}
	if err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		prev, err := versions.Get(tx, endpoint, r.ID)
		switch {
		case errors.Is(err, sql.ErrNotFound):
		case err != nil:
			return err
		default:
			if prev.IDPartition != raw.IDPartition {
				if err := tombstone(tx, types.EntityIDTree, endpoint, prev.IDPartition, r.ID); err != nil {
					return err
				}
			}
			if prev.UserPartition != "" && prev.UserPartition != raw.UserPartition {
				if err := tombstone(tx, types.UserTree, endpoint, prev.UserPartition, r.ID); err != nil {
					return err
				}
			}
		}
		if err := versions.Upsert(tx, raw); err != nil {
			return err
		}
		if err := write(tx, types.EntityIDTree, endpoint, idNode); err != nil {
			return err
		}
		if userNode != nil {
			return write(tx, types.UserTree, endpoint, userNode)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("ingest %s/%s: %w", endpoint, r.ID, err)
	}
	upsertEvents.Inc()
	s.logger.Debug("ingested event",
		zap.String("endpoint", endpoint),
		zap.Object("event", ev),
		zap.String("id_partition", raw.IDPartition),
		zap.String("user_partition", raw.UserPartition),
	)
	return nil
}

// buildUserNode places the record into the user tree. Records outside the
// range and set categories of the endpoint are not placed, nil is returned.
func (s *Store) buildUserNode(layout *hierarchy.Layout, r *scan.Record) (*hierarchy.Node, error) {
	for _, c := range layout.Constraints() {
		ok, err := scan.Matches(c, r, s.ids.Hex)
		if err != nil {
			return nil, &types.InvalidEventError{ID: r.ID, Reason: err.Error()}
		}
		if !ok {
			return nil, nil
		}
	}
	return layout.Build(r)
}

// DeleteEvent removes the entity from both trees of the endpoint. The ledger
// entries stay as tombstones and the ancestors are invalidated. Deleting an
// unknown entity does nothing.
func (s *Store) DeleteEvent(ctx context.Context, endpoint, id string) error {
	if id == "" {
		invalidEvents.Inc()
		return &types.InvalidEventError{Reason: "empty entity id"}
	}
	deleted := false
	if err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		prev, err := versions.Get(tx, endpoint, id)
		switch {
		case errors.Is(err, sql.ErrNotFound):
			return nil
		case err != nil:
			return err
		}
		if err := tombstone(tx, types.EntityIDTree, endpoint, prev.IDPartition, id); err != nil {
			return err
		}
		if prev.UserPartition != "" {
			if err := tombstone(tx, types.UserTree, endpoint, prev.UserPartition, id); err != nil {
				return err
			}
		}
		deleted = true
		return versions.Delete(tx, endpoint, id)
	}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", endpoint, id, err)
	}
	tombstoneEvents.Inc()
	s.logger.Debug("deleted entity",
		zap.String("endpoint", endpoint),
		zap.String("id", id),
		zap.Bool("known", deleted),
	)
	return nil
}

// Entity returns the raw version record of the entity.
func (s *Store) Entity(ctx context.Context, endpoint, id string) (*versions.Record, error) {
	return versions.Get(s.db, endpoint, id)
}

// write records the edges along the chain, sets the leaf membership and
// invalidates every ancestor of the leaf bucket.
func write(tx sql.Executor, tree types.Tree, scope string, node *hierarchy.Node) error {
	parent := ""
	for n := node; n != nil; n = n.Child {
		if err := buckets.AddChild(tx, tree, scope, parent, n.Name, n.IsLeaf()); err != nil {
			return err
		}
		parent = hierarchy.Child(parent, n.Name)
	}
	leaf := node.Leaf()
	if err := buckets.SetMember(tx, tree, scope, parent, leaf.ID, leaf.Version); err != nil {
		return err
	}
	return invalidate(tx, tree, scope, parent)
}

func tombstone(tx sql.Executor, tree types.Tree, scope, path, id string) error {
	if err := buckets.ClearMember(tx, tree, scope, path, id); err != nil {
		return err
	}
	return invalidate(tx, tree, scope, path)
}

func invalidate(tx sql.Executor, tree types.Tree, scope, path string) error {
	for _, p := range hierarchy.Ancestors(path) {
		if err := buckets.Invalidate(tx, tree, scope, p); err != nil {
			return err
		}
	}
	return nil
}
