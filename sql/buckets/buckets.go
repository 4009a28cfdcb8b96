// Package buckets persists bucket hierarchies: parent to child edges, leaf
// membership ledgers and cached digests.
package buckets

import (
	"fmt"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/sql"
)

// Child is a recorded child of a bucket.
type Child struct {
	Name   string
	IsLeaf bool
}

// Member is an entry of a leaf membership ledger.
type Member struct {
	Path    string
	ID      string
	Version string
}

// Cell is the digest cell of a bucket. Gen grows with every invalidation.
type Cell struct {
	Digest string
	Valid  bool
	Gen    int64
}

func bindKey(stmt *sql.Statement, tree types.Tree, scope, path string) {
	stmt.BindInt64(1, int64(tree))
	stmt.BindText(2, scope)
	stmt.BindText(3, path)
}

// AddChild records a child of parent. The first recorded leaf flag wins.
func AddChild(db sql.Executor, tree types.Tree, scope, parent, name string, leaf bool) error {
	if _, err := db.Exec(`
		insert into bucket_children (tree, scope, parent, name, is_leaf)
		values (?1, ?2, ?3, ?4, ?5)
		on conflict do nothing;`,
		func(stmt *sql.Statement) {
			bindKey(stmt, tree, scope, parent)
			stmt.BindText(4, name)
			stmt.BindBool(5, leaf)
		}, nil); err != nil {
		return fmt.Errorf("add child %q of %q: %w", name, parent, err)
	}
	return nil
}

// Children returns children of parent ordered by name.
func Children(db sql.Executor, tree types.Tree, scope, parent string) ([]Child, error) {
	var children []Child
	if _, err := db.Exec(`
		select name, is_leaf from bucket_children
		where tree = ?1 and scope = ?2 and parent = ?3
		order by name;`,
		func(stmt *sql.Statement) {
			bindKey(stmt, tree, scope, parent)
		}, func(stmt *sql.Statement) bool {
			children = append(children, Child{
				Name:   stmt.ColumnText(0),
				IsLeaf: stmt.ColumnInt(1) != 0,
			})
			return true
		}); err != nil {
		return nil, fmt.Errorf("children of %q: %w", parent, err)
	}
	return children, nil
}

// GetChild returns a single child, sql.ErrNotFound if it was never recorded.
func GetChild(db sql.Executor, tree types.Tree, scope, parent, name string) (Child, error) {
	child := Child{Name: name}
	rows, err := db.Exec(`
		select is_leaf from bucket_children
		where tree = ?1 and scope = ?2 and parent = ?3 and name = ?4;`,
		func(stmt *sql.Statement) {
			bindKey(stmt, tree, scope, parent)
			stmt.BindText(4, name)
		}, func(stmt *sql.Statement) bool {
			child.IsLeaf = stmt.ColumnInt(0) != 0
			return true
		})
	if err != nil {
		return child, fmt.Errorf("child %q of %q: %w", name, parent, err)
	} else if rows == 0 {
		return child, fmt.Errorf("%w: child %q of %q", sql.ErrNotFound, name, parent)
	}
	return child, nil
}

// SetMember records id with version in the ledger of the leaf bucket.
func SetMember(db sql.Executor, tree types.Tree, scope, path, id, version string) error {
	if _, err := db.Exec(`
		insert into bucket_members (tree, scope, path, id, version)
		values (?1, ?2, ?3, ?4, ?5)
		on conflict (tree, scope, path, id) do
		update set version = ?5;`,
		func(stmt *sql.Statement) {
			bindKey(stmt, tree, scope, path)
			stmt.BindText(4, id)
			stmt.BindText(5, version)
		}, nil); err != nil {
		return fmt.Errorf("set member %s of %q: %w", id, path, err)
	}
	return nil
}

// ClearMember tombstones id in the ledger of the leaf bucket. The ledger
// entry is kept with no version.
func ClearMember(db sql.Executor, tree types.Tree, scope, path, id string) error {
	if _, err := db.Exec(`
		update bucket_members set version = null
		where tree = ?1 and scope = ?2 and path = ?3 and id = ?4;`,
		func(stmt *sql.Statement) {
			bindKey(stmt, tree, scope, path)
			stmt.BindText(4, id)
		}, nil); err != nil {
		return fmt.Errorf("clear member %s of %q: %w", id, path, err)
	}
	return nil
}

// Members returns live members of the leaf bucket ordered by id.
func Members(db sql.Executor, tree types.Tree, scope, path string) ([]Member, error) {
	var members []Member
	if _, err := db.Exec(`
		select id, version from bucket_members
		where tree = ?1 and scope = ?2 and path = ?3 and version is not null
		order by id;`,
		func(stmt *sql.Statement) {
			bindKey(stmt, tree, scope, path)
		}, func(stmt *sql.Statement) bool {
			members = append(members, Member{
				Path:    path,
				ID:      stmt.ColumnText(0),
				Version: stmt.ColumnText(1),
			})
			return true
		}); err != nil {
		return nil, fmt.Errorf("members of %q: %w", path, err)
	}
	return members, nil
}

// MembersUnder returns live members of every leaf bucket below path,
// ordered by id. Empty path selects the whole tree.
func MembersUnder(db sql.Executor, tree types.Tree, scope, path string) ([]Member, error) {
	var members []Member
	if _, err := db.Exec(`
		select path, id, version from bucket_members
		where tree = ?1 and scope = ?2 and version is not null
		and (?3 = '' or path = ?3 or substr(path, 1, length(?3) + 1) = ?3 || '.')
		order by id, path;`,
		func(stmt *sql.Statement) {
			bindKey(stmt, tree, scope, path)
		}, func(stmt *sql.Statement) bool {
			members = append(members, Member{
				Path:    stmt.ColumnText(0),
				ID:      stmt.ColumnText(1),
				Version: stmt.ColumnText(2),
			})
			return true
		}); err != nil {
		return nil, fmt.Errorf("members under %q: %w", path, err)
	}
	return members, nil
}

// Invalidate empties the digest cell of the bucket and bumps its generation.
func Invalidate(db sql.Executor, tree types.Tree, scope, path string) error {
	if _, err := db.Exec(`
		insert into bucket_digests (tree, scope, path, digest, gen)
		values (?1, ?2, ?3, null, 1)
		on conflict (tree, scope, path) do
		update set digest = null, gen = gen + 1;`,
		func(stmt *sql.Statement) {
			bindKey(stmt, tree, scope, path)
		}, nil); err != nil {
		return fmt.Errorf("invalidate %q: %w", path, err)
	}
	return nil
}

// InvalidateScope empties every digest cell of the tree.
func InvalidateScope(db sql.Executor, tree types.Tree, scope string) (int, error) {
	n, err := db.Exec(`
		update bucket_digests set digest = null, gen = gen + 1
		where tree = ?1 and scope = ?2
		returning path;`,
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(tree))
			stmt.BindText(2, scope)
		}, func(*sql.Statement) bool {
			return true
		})
	if err != nil {
		return 0, fmt.Errorf("invalidate %s tree of %s: %w", tree, scope, err)
	}
	return n, nil
}

// GetCell returns the digest cell of the bucket. A bucket that was never
// invalidated has an invalid cell of generation 0.
func GetCell(db sql.Executor, tree types.Tree, scope, path string) (Cell, error) {
	var cell Cell
	if _, err := db.Exec(`
		select digest, gen from bucket_digests
		where tree = ?1 and scope = ?2 and path = ?3;`,
		func(stmt *sql.Statement) {
			bindKey(stmt, tree, scope, path)
		}, func(stmt *sql.Statement) bool {
			if !sql.IsNull(stmt, 0) {
				cell.Digest = stmt.ColumnText(0)
				cell.Valid = true
			}
			cell.Gen = stmt.ColumnInt64(1)
			return true
		}); err != nil {
		return cell, fmt.Errorf("digest of %q: %w", path, err)
	}
	return cell, nil
}

// CacheDigest stores a computed digest unless the cell was invalidated after
// generation gen was observed. It reports whether the digest was stored.
func CacheDigest(db sql.Executor, tree types.Tree, scope, path, digest string, gen int64) (bool, error) {
	n, err := db.Exec(`
		update bucket_digests set digest = ?4
		where tree = ?1 and scope = ?2 and path = ?3 and gen = ?5 and digest is null
		returning path;`,
		func(stmt *sql.Statement) {
			bindKey(stmt, tree, scope, path)
			stmt.BindText(4, digest)
			stmt.BindInt64(5, gen)
		}, func(*sql.Statement) bool {
			return true
		})
	if err != nil {
		return false, fmt.Errorf("cache digest of %q: %w", path, err)
	}
	return n > 0, nil
}
