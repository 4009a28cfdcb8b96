package versions

import (
	"fmt"
	"time"

	"github.com/merelin/diffa-sub000/codec"
	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/sql"
)

// Record is the raw version record of an entity together with the
// partitions it was placed into.
type Record struct {
	Endpoint      string
	ID            string
	Version       string
	LastUpdate    time.Time
	IDPartition   string
	UserPartition string
	Attributes    []types.Attribute
}

// Upsert writes the record, replacing a previous one for the same id.
func Upsert(db sql.Executor, r *Record) error {
	var attrs []byte
	if len(r.Attributes) > 0 {
		var err error
		attrs, err = codec.EncodeSlice(r.Attributes)
		if err != nil {
			return fmt.Errorf("encode attributes of %s: %w", r.ID, err)
		}
	}
	if _, err := db.Exec(`
		insert into entity_versions
			(endpoint, id, version, last_update, id_partition, user_partition, attributes)
		values (?1, ?2, ?3, ?4, ?5, ?6, ?7)
		on conflict (endpoint, id) do
		update set version = ?3, last_update = ?4, id_partition = ?5,
			user_partition = ?6, attributes = ?7;`,
		func(stmt *sql.Statement) {
			stmt.BindText(1, r.Endpoint)
			stmt.BindText(2, r.ID)
			stmt.BindText(3, r.Version)
			if r.LastUpdate.IsZero() {
				stmt.BindInt64(4, 0)
			} else {
				stmt.BindInt64(4, r.LastUpdate.UnixNano())
			}
			stmt.BindText(5, r.IDPartition)
			if r.UserPartition == "" {
				stmt.BindNull(6)
			} else {
				stmt.BindText(6, r.UserPartition)
			}
			if attrs == nil {
				stmt.BindNull(7)
			} else {
				stmt.BindBytes(7, attrs)
			}
		}, nil); err != nil {
		return fmt.Errorf("upsert version of %s/%s: %w", r.Endpoint, r.ID, err)
	}
	return nil
}

// Get returns the record, sql.ErrNotFound if the entity is unknown.
func Get(db sql.Executor, endpoint, id string) (*Record, error) {
	var (
		r      *Record
		decErr error
	)
	rows, err := db.Exec(`
		select version, last_update, id_partition, user_partition, attributes
		from entity_versions where endpoint = ?1 and id = ?2;`,
		func(stmt *sql.Statement) {
			stmt.BindText(1, endpoint)
			stmt.BindText(2, id)
		}, func(stmt *sql.Statement) bool {
			r = &Record{
				Endpoint:    endpoint,
				ID:          id,
				Version:     stmt.ColumnText(0),
				IDPartition: stmt.ColumnText(2),
			}
			if nanos := stmt.ColumnInt64(1); nanos != 0 {
				r.LastUpdate = time.Unix(0, nanos).UTC()
			}
			if !sql.IsNull(stmt, 3) {
				r.UserPartition = stmt.ColumnText(3)
			}
			if n := stmt.ColumnLen(4); n > 0 {
				buf := make([]byte, n)
				stmt.ColumnBytes(4, buf)
				r.Attributes, decErr = codec.DecodeSlice[types.Attribute](buf)
			}
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("get version of %s/%s: %w", endpoint, id, err)
	} else if rows == 0 {
		return nil, fmt.Errorf("%w: entity %s/%s", sql.ErrNotFound, endpoint, id)
	}
	if decErr != nil {
		return nil, fmt.Errorf("decode attributes of %s/%s: %w", endpoint, id, decErr)
	}
	return r, nil
}

// Delete removes the record. Deleting an unknown entity is not an error.
func Delete(db sql.Executor, endpoint, id string) error {
	if _, err := db.Exec("delete from entity_versions where endpoint = ?1 and id = ?2;",
		func(stmt *sql.Statement) {
			stmt.BindText(1, endpoint)
			stmt.BindText(2, id)
		}, nil); err != nil {
		return fmt.Errorf("delete version of %s/%s: %w", endpoint, id, err)
	}
	return nil
}
