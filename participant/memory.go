// Package participant implements scan participants.
package participant

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/merelin/diffa-sub000/digest"
	"github.com/merelin/diffa-sub000/hash"
	"github.com/merelin/diffa-sub000/hierarchy"
	"github.com/merelin/diffa-sub000/scan"
)

type Opt func(*Memory)

func WithLogger(logger *zap.Logger) Opt {
	return func(m *Memory) {
		m.logger = logger
	}
}

// WithHash sets the hash function of digests and of entity ids.
func WithHash(fn hash.Func) Opt {
	return func(m *Memory) {
		m.hash = fn
	}
}

// WithLayout sets the user hierarchy the participant answers for.
func WithLayout(layout *hierarchy.Layout) Opt {
	return func(m *Memory) {
		m.layout = layout
	}
}

// Memory answers questions from records held in memory, using the same
// hierarchies and digests as the version store.
type Memory struct {
	logger   *zap.Logger
	hash     hash.Func
	layout   *hierarchy.Layout
	ids      *hierarchy.EntityIDHasher
	idLayout *hierarchy.Layout

	mu      sync.RWMutex
	records map[string]scan.Record
}

var _ scan.Scannable = (*Memory)(nil)

// NewMemory creates a participant holding records.
func NewMemory(records []scan.Record, opts ...Opt) *Memory {
	m := &Memory{
		logger:  zap.NewNop(),
		hash:    hash.Default,
		records: make(map[string]scan.Record, len(records)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ids = hierarchy.NewEntityIDHasher(m.hash, 0)
	m.idLayout = hierarchy.NewEntityIDLayout(m.ids)
	for _, r := range records {
		m.records[r.ID] = r
	}
	return m
}

// Upsert adds or replaces a record.
func (m *Memory) Upsert(r scan.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
}

// Delete removes a record.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
}

// Len returns the number of records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) layoutOf(q scan.Question) (*hierarchy.Layout, error) {
	if m.layout != nil && m.layout.Aggregating() && m.layout.Handles(q) {
		return m.layout, nil
	}
	if m.idLayout.Handles(q) {
		return m.idLayout, nil
	}
	return nil, fmt.Errorf("question doesn't belong to any hierarchy of the participant")
}

type placed struct {
	record   *scan.Record
	segments []string
}

// Scan answers q. Grouped questions are answered with the digest of every
// child bucket of the bucket pinned by the question, other questions with
// every entity in that bucket.
func (m *Memory) Scan(ctx context.Context, q scan.Question, handler scan.PruningHandler) error {
	layout, err := m.layoutOf(q)
	if err != nil {
		return err
	}
	path, err := layout.Locate(q.Constraints)
	if err != nil {
		return fmt.Errorf("locate question: %w", err)
	}
	matched := m.match(q)
	if !q.Grouped() {
		for _, r := range matched {
			if err := handler.OnPrune(ctx, &scan.IndividualAnswer{
				ID:         r.ID,
				Attributes: r.Attributes,
				LastUpdate: r.LastUpdate,
				Digest:     r.Version,
			}); err != nil {
				return err
			}
		}
		return nil
	}
	var entries []placed
	for _, r := range matched {
		node, err := layout.Build(r)
		if err != nil {
			m.logger.Debug("record left out of hierarchy", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		segments := node.Segments()
		if !slices.Equal(segments[:len(path)], path) {
			continue
		}
		entries = append(entries, placed{record: r, segments: segments})
	}
	groups := groupBy(entries, len(path))
	for _, name := range slices.Sorted(maps.Keys(groups)) {
		d := m.digestOf(groups[name], len(path)+1, layout.Depth(), q.MaxSliceSize)
		if d == "" {
			continue
		}
		if err := handler.OnPrune(ctx, &scan.GroupedAnswer{Group: name, Digest: d}); err != nil {
			return err
		}
	}
	return nil
}

// match returns records satisfying every constraint of q, ordered by id.
func (m *Memory) match(q scan.Question) []*scan.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*scan.Record
	for _, r := range m.records {
		ok, err := m.matches(q, &r)
		if err != nil {
			m.logger.Warn("record can't be matched", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		if ok {
			matched = append(matched, &r)
		}
	}
	slices.SortFunc(matched, func(a, b *scan.Record) int {
		return strings.Compare(a.ID, b.ID)
	})
	return matched
}

func (m *Memory) matches(q scan.Question, r *scan.Record) (bool, error) {
	for _, c := range q.Constraints {
		ok, err := scan.Matches(c, r, m.ids.Hex)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func groupBy(entries []placed, level int) map[string][]placed {
	groups := map[string][]placed{}
	for _, e := range entries {
		name := e.segments[level]
		groups[name] = append(groups[name], e)
	}
	return groups
}

// digestOf computes the digest of a bucket at depth from the entries under it.
// Entries are ordered by id.
func (m *Memory) digestOf(entries []placed, depth, leafDepth, sliceSize int) string {
	if depth == leafDepth {
		values := make([]string, 0, len(entries))
		for _, e := range entries {
			values = append(values, e.record.Version)
		}
		return digest.Sliced(m.hash, values, sliceSize)
	}
	groups := groupBy(entries, depth)
	var digests []string
	for _, name := range slices.Sorted(maps.Keys(groups)) {
		if d := m.digestOf(groups[name], depth+1, leafDepth, sliceSize); d != "" {
			digests = append(digests, d)
		}
	}
	if len(digests) == 0 {
		return ""
	}
	return digest.Of(m.hash, digests...)
}
