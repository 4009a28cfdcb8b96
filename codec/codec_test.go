package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merelin/diffa-sub000/codec"
	"github.com/merelin/diffa-sub000/common/types"
)

func TestAttributesSlice(t *testing.T) {
	attrs := types.AttributesFromMap(map[string]string{
		"someDate":   "2024-03-15",
		"someString": "abc.def",
		"empty":      "",
	})
	buf, err := codec.EncodeSlice(attrs)
	require.NoError(t, err)

	decoded, err := codec.DecodeSlice[types.Attribute](buf)
	require.NoError(t, err)
	require.Equal(t, attrs, decoded)
	require.Equal(t, "abc.def", types.AttributesToMap(decoded)["someString"])
}

func TestSingleValue(t *testing.T) {
	attr := types.Attribute{Name: "n", Value: "v"}
	buf, err := codec.Encode(&attr)
	require.NoError(t, err)

	var decoded types.Attribute
	require.NoError(t, codec.Decode(buf, &decoded))
	require.Equal(t, attr, decoded)
}

func TestDecodeTruncated(t *testing.T) {
	buf, err := codec.EncodeSlice([]types.Attribute{{Name: "name", Value: "value"}})
	require.NoError(t, err)
	_, err = codec.DecodeSlice[types.Attribute](buf[:len(buf)-2])
	require.Error(t, err)
}
