package endpoints

import (
	"errors"
	"fmt"

	"github.com/merelin/diffa-sub000/sql"
)

// SetMaxSliceSize stores max slice size of the endpoint and reports whether it changed.
func SetMaxSliceSize(db sql.Executor, id string, size int) (bool, error) {
	current, err := MaxSliceSize(db, id)
	switch {
	case err == nil && current == size:
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNotFound):
		return false, err
	}
	if _, err := db.Exec(`
		insert into endpoints (id, max_slice_size) values (?1, ?2)
		on conflict (id) do
		update set max_slice_size = ?2;`,
		func(stmt *sql.Statement) {
			stmt.BindText(1, id)
			stmt.BindInt64(2, int64(size))
		}, nil); err != nil {
		return false, fmt.Errorf("set max slice size of %s: %w", id, err)
	}
	return true, nil
}

// MaxSliceSize returns max slice size of the endpoint, sql.ErrNotFound if it was never set.
func MaxSliceSize(db sql.Executor, id string) (int, error) {
	var size int
	rows, err := db.Exec("select max_slice_size from endpoints where id = ?1;",
		func(stmt *sql.Statement) {
			stmt.BindText(1, id)
		}, func(stmt *sql.Statement) bool {
			size = int(stmt.ColumnInt64(0))
			return true
		})
	if err != nil {
		return 0, fmt.Errorf("get max slice size of %s: %w", id, err)
	} else if rows == 0 {
		return 0, fmt.Errorf("%w: endpoint %s", sql.ErrNotFound, id)
	}
	return size, nil
}
