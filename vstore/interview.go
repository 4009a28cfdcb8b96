package vstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/hierarchy"
	"github.com/merelin/diffa-sub000/scan"
	"github.com/merelin/diffa-sub000/sql"
	"github.com/merelin/diffa-sub000/sql/buckets"
	"github.com/merelin/diffa-sub000/sql/versions"
)

// ErrInvalidAnswer is returned for answers that don't fit the question.
var ErrInvalidAnswer = errors.New("invalid answer")

// InitialQuestion asks for the top level of the user tree of the endpoint,
// or of the entity id tree if the endpoint doesn't aggregate.
func (s *Store) InitialQuestion(ctx context.Context, endpoint string) (scan.Question, error) {
	layout := s.Layout(endpoint)
	if layout == nil {
		return s.idLayout.InitialQuestion(0), nil
	}
	size, err := s.MaxSliceSize(ctx, endpoint)
	if err != nil {
		return scan.Question{}, err
	}
	return layout.InitialQuestion(size), nil
}

func (s *Store) treeOf(endpoint string, q scan.Question) (types.Tree, *hierarchy.Layout, error) {
	if layout := s.Layout(endpoint); layout != nil && layout.Handles(q) {
		return types.UserTree, layout, nil
	}
	if s.idLayout.Handles(q) {
		return types.EntityIDTree, s.idLayout, nil
	}
	return 0, nil, fmt.Errorf("question doesn't belong to any hierarchy of %s", endpoint)
}

// ContinueInterview reconciles the answers of a participant to q against the
// local tree of the endpoint. It returns the refined questions to ask next, or
// only NoFurtherQuestions, together with the entities known to differ. The
// local side is reported as left, the participant as right.
func (s *Store) ContinueInterview(
	ctx context.Context,
	endpoint string,
	q scan.Question,
	answers []scan.Answer,
) ([]scan.Question, types.EntityDifferences, error) {
	if q.Terminal() {
		return []scan.Question{scan.NoFurtherQuestions}, nil, nil
	}
	tree, layout, err := s.treeOf(endpoint, q)
	if err != nil {
		return nil, nil, err
	}
	path, err := layout.Locate(q.Constraints)
	if err != nil {
		return nil, nil, fmt.Errorf("locate question of %s: %w", endpoint, err)
	}
	var (
		questions []scan.Question
		diffs     types.EntityDifferences
	)
	if q.Grouped() {
		questions, diffs, err = s.reconcileGroups(ctx, endpoint, tree, layout, q, path, answers)
	} else {
		diffs, err = s.reconcileEntities(endpoint, tree, hierarchy.JoinPath(path...), answers)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("continue interview of %s: %w", endpoint, err)
	}
	slices.SortFunc(diffs, func(a, b types.EntityDifference) int {
		return strings.Compare(a.ID, b.ID)
	})
	s.logger.Debug("interview step",
		zap.String("endpoint", endpoint),
		zap.Stringer("tree", tree),
		zap.String("bucket", hierarchy.JoinPath(path...)),
		zap.Int("answers", len(answers)),
		zap.Int("refinements", len(questions)),
		zap.Array("differences", diffs),
	)
	if len(questions) == 0 {
		questions = []scan.Question{scan.NoFurtherQuestions}
	}
	return questions, diffs, nil
}

func (s *Store) reconcileGroups(
	ctx context.Context,
	endpoint string,
	tree types.Tree,
	layout *hierarchy.Layout,
	q scan.Question,
	path []string,
	answers []scan.Answer,
) ([]scan.Question, types.EntityDifferences, error) {
	remote := make(map[string]types.BucketDigest, len(answers))
	for _, a := range answers {
		g, ok := a.(*scan.GroupedAnswer)
		switch {
		case !ok:
			return nil, nil, fmt.Errorf("%w: %T to a grouped question", ErrInvalidAnswer, a)
		case g.Group == "" || strings.Contains(g.Group, hierarchy.Separator):
			return nil, nil, fmt.Errorf("%w: group %q", ErrInvalidAnswer, g.Group)
		case g.Digest == "":
			return nil, nil, fmt.Errorf("%w: group %q without digest", ErrInvalidAnswer, g.Group)
		}
		if _, exists := remote[g.Group]; exists {
			return nil, nil, fmt.Errorf("%w: duplicate group %q", ErrInvalidAnswer, g.Group)
		}
		remote[g.Group] = types.BucketDigest{Name: g.Group, Digest: g.Digest}
	}
	parent := hierarchy.JoinPath(path...)
	local, err := s.ReadDigests(ctx, tree, endpoint, parent)
	switch {
	case errors.Is(err, types.ErrBucketNotFound):
		local = types.NewTreeLevelRollup(false)
	case err != nil:
		return nil, nil, err
	}
	diff := types.CompareLevels(local.Members, remote, len(path)+1 == layout.Depth())
	var (
		questions []scan.Question
		diffs     types.EntityDifferences
	)
	for _, name := range diff.Mismatched() {
		if _, ok := diff.OnlyLeft[name]; ok {
			members, err := buckets.MembersUnder(s.db, tree, endpoint, hierarchy.Child(parent, name))
			if err != nil {
				return nil, nil, err
			}
			for _, m := range members {
				diffs = append(diffs, types.EntityDifference{ID: m.ID, Left: m.Version})
			}
			continue
		}
		refined, err := layout.Refine(q, path, name)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: group %q: %w", ErrInvalidAnswer, name, err)
		}
		questions = append(questions, refined)
	}
	return questions, diffs, nil
}

func (s *Store) reconcileEntities(
	endpoint string,
	tree types.Tree,
	path string,
	answers []scan.Answer,
) (types.EntityDifferences, error) {
	members, err := buckets.MembersUnder(s.db, tree, endpoint, path)
	if err != nil {
		return nil, err
	}
	local := make(map[string]string, len(members))
	for _, m := range members {
		local[m.ID] = m.Version
	}
	var diffs types.EntityDifferences
	reported := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		ia, ok := a.(*scan.IndividualAnswer)
		switch {
		case !ok:
			return nil, fmt.Errorf("%w: %T to a question for entities", ErrInvalidAnswer, a)
		case ia.ID == "":
			return nil, fmt.Errorf("%w: entity without id", ErrInvalidAnswer)
		case ia.Digest == "":
			return nil, fmt.Errorf("%w: entity %q without version", ErrInvalidAnswer, ia.ID)
		}
		if _, exists := reported[ia.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate entity %q", ErrInvalidAnswer, ia.ID)
		}
		reported[ia.ID] = struct{}{}
		version, ok := local[ia.ID]
		if !ok {
			r, err := versions.Get(s.db, endpoint, ia.ID)
			switch {
			case errors.Is(err, sql.ErrNotFound):
			case err != nil:
				return nil, err
			default:
				version = r.Version
			}
		}
		if version != ia.Digest {
			diffs = append(diffs, types.EntityDifference{ID: ia.ID, Left: version, Right: ia.Digest})
		}
	}
	for _, m := range members {
		if _, ok := reported[m.ID]; !ok {
			diffs = append(diffs, types.EntityDifference{ID: m.ID, Left: m.Version})
		}
	}
	return diffs, nil
}
