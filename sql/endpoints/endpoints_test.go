package endpoints

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merelin/diffa-sub000/sql"
)

func TestMaxSliceSize(t *testing.T) {
	db := sql.InMemory()
	_, err := MaxSliceSize(db, "a")
	require.ErrorIs(t, err, sql.ErrNotFound)

	changed, err := SetMaxSliceSize(db, "a", 100)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = SetMaxSliceSize(db, "a", 100)
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = SetMaxSliceSize(db, "a", 3)
	require.NoError(t, err)
	require.True(t, changed)

	size, err := MaxSliceSize(db, "a")
	require.NoError(t, err)
	require.Equal(t, 3, size)
}
