package vstore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merelin/diffa-sub000/common/types"
)

func TestDecodeEvents(t *testing.T) {
	for _, tc := range []struct {
		desc   string
		input  string
		events []types.ChangeEvent
		err    error
	}{
		{
			desc:  "single upsert",
			input: `{"id": "A1B2C3", "version": "v1", "attributes": {"region": "eu"}}`,
			events: []types.ChangeEvent{
				&types.Upsert{ID: "A1B2C3", Version: "v1", Attributes: map[string]string{"region": "eu"}},
			},
		},
		{
			desc: "array",
			input: `[
				{"id": "a", "version": "v1", "lastUpdate": "2024-03-15T10:00:00Z"},
				{"id": "b"}
			]`,
			events: []types.ChangeEvent{
				&types.Upsert{ID: "a", Version: "v1", LastUpdated: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)},
				&types.Tombstone{ID: "b"},
			},
		},
		{
			desc:  "missing id",
			input: `[{"id": "a", "version": "v1"}, {"version": "v1"}]`,
			err:   types.ErrInvalidEvent,
		},
		{
			desc:  "bad timestamp",
			input: `{"id": "a", "version": "v1", "lastUpdate": "yesterday"}`,
			err:   types.ErrInvalidEvent,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			events, err := DecodeEvents(strings.NewReader(tc.input))
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.events, events)
		})
	}

	_, err := DecodeEvents(strings.NewReader(`{"id": `))
	require.Error(t, err)
}
