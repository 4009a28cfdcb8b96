// Package deltas persists mismatched buckets found when two endpoints were
// compared at the root of their entity-id trees.
package deltas

import (
	"fmt"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/sql"
)

// Delta is a bucket whose digest differs between the left and the right
// endpoint. A missing side has an empty digest.
type Delta struct {
	Bucket      string
	LeftDigest  string
	RightDigest string
	IsLeaf      bool
}

// Clear removes all deltas recorded for the pair.
func Clear(db sql.Executor, pair types.PairProjection) error {
	if _, err := db.Exec(`
		delete from deltas where left_endpoint = ?1 and right_endpoint = ?2;`,
		func(stmt *sql.Statement) {
			stmt.BindText(1, pair.Left)
			stmt.BindText(2, pair.Right)
		}, nil); err != nil {
		return fmt.Errorf("clear deltas of %s: %w", pair, err)
	}
	return nil
}

// Add records a delta for the pair.
func Add(db sql.Executor, pair types.PairProjection, d Delta) error {
	if _, err := db.Exec(`
		insert into deltas (left_endpoint, right_endpoint, bucket, left_digest, right_digest, is_leaf)
		values (?1, ?2, ?3, ?4, ?5, ?6)
		on conflict (left_endpoint, right_endpoint, bucket) do
		update set left_digest = ?4, right_digest = ?5, is_leaf = ?6;`,
		func(stmt *sql.Statement) {
			stmt.BindText(1, pair.Left)
			stmt.BindText(2, pair.Right)
			stmt.BindText(3, d.Bucket)
			stmt.BindText(4, d.LeftDigest)
			stmt.BindText(5, d.RightDigest)
			stmt.BindBool(6, d.IsLeaf)
		}, nil); err != nil {
		return fmt.Errorf("add delta %s of %s: %w", d.Bucket, pair, err)
	}
	return nil
}

// List returns deltas of the pair ordered by bucket name.
func List(db sql.Executor, pair types.PairProjection) ([]Delta, error) {
	var rst []Delta
	if _, err := db.Exec(`
		select bucket, left_digest, right_digest, is_leaf from deltas
		where left_endpoint = ?1 and right_endpoint = ?2
		order by bucket;`,
		func(stmt *sql.Statement) {
			stmt.BindText(1, pair.Left)
			stmt.BindText(2, pair.Right)
		}, func(stmt *sql.Statement) bool {
			rst = append(rst, Delta{
				Bucket:      stmt.ColumnText(0),
				LeftDigest:  stmt.ColumnText(1),
				RightDigest: stmt.ColumnText(2),
				IsLeaf:      stmt.ColumnInt(3) != 0,
			})
			return true
		}); err != nil {
		return nil, fmt.Errorf("list deltas of %s: %w", pair, err)
	}
	return rst, nil
}
