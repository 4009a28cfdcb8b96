package versions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/sql"
)

func TestUpsertGet(t *testing.T) {
	db := sql.InMemory()
	_, err := Get(db, "a", "A1B2C3")
	require.ErrorIs(t, err, sql.ErrNotFound)

	r := &Record{
		Endpoint:      "a",
		ID:            "A1B2C3",
		Version:       "v1",
		LastUpdate:    time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		IDPartition:   "4.a.3",
		UserPartition: "2024.2024-03",
		Attributes: []types.Attribute{
			{Name: "bizDate", Value: "2024-03-15"},
			{Name: "someString", Value: "abc"},
		},
	}
	require.NoError(t, Upsert(db, r))

	got, err := Get(db, "a", "A1B2C3")
	require.NoError(t, err)
	require.Equal(t, r, got)

	r2 := &Record{Endpoint: "a", ID: "A1B2C3", Version: "v2", LastUpdate: r.LastUpdate, IDPartition: "4.a.3"}
	require.NoError(t, Upsert(db, r2))
	got, err = Get(db, "a", "A1B2C3")
	require.NoError(t, err)
	require.Equal(t, r2, got)

	count, err := Count(db, "a")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestDelete(t *testing.T) {
	db := sql.InMemory()
	require.NoError(t, Upsert(db, &Record{Endpoint: "a", ID: "x", Version: "v1", IDPartition: "1.2.3"}))
	require.NoError(t, Upsert(db, &Record{Endpoint: "b", ID: "x", Version: "v1", IDPartition: "1.2.3"}))

	require.NoError(t, Delete(db, "a", "x"))
	require.NoError(t, Delete(db, "a", "unknown"))

	_, err := Get(db, "a", "x")
	require.ErrorIs(t, err, sql.ErrNotFound)
	count, err := Count(db, "b")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

// Count is a test-only helper returning the number of versions stored for endpoint.
func Count(db sql.Executor, endpoint string) (int, error) {
	var count int
	_, err := db.Exec("select count(*) from entity_versions where endpoint = ?1;",
		func(stmt *sql.Statement) {
			stmt.BindText(1, endpoint)
		}, func(stmt *sql.Statement) bool {
			count = stmt.ColumnInt(0)
			return true
		})
	return count, err
}
