package digest_test

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merelin/diffa-sub000/digest"
	"github.com/merelin/diffa-sub000/hash"
)

func TestAccumulatorEmpty(t *testing.T) {
	acc := digest.NewDefault()
	require.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", acc.Digest())
}

func TestAccumulatorSealed(t *testing.T) {
	acc := digest.New(hash.MD5)
	require.NoError(t, acc.AddVersion("v1"))
	d := acc.Digest()
	require.True(t, acc.Sealed())

	err := acc.AddVersion("v2")
	require.ErrorIs(t, err, digest.ErrSealedAccumulator)
	var sealed *digest.SealedAccumulatorError
	require.ErrorAs(t, err, &sealed)
	require.Equal(t, "v2", sealed.Value)
	require.Equal(t, d, acc.Digest())

	acc.Reset()
	require.False(t, acc.Sealed())
	require.NoError(t, acc.AddVersion("v1"))
	require.Equal(t, d, acc.Digest())
}

func TestAccumulatorCanonicalOrder(t *testing.T) {
	values := []string{"a", "b", "c", "d", "e", "f"}
	sorted := digest.Of(hash.MD5, values...)
	for range 10 {
		shuffled := slices.Clone(values)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		slices.Sort(shuffled)
		require.Equal(t, sorted, digest.Of(hash.MD5, shuffled...))
	}
	require.NotEqual(t, sorted, digest.Of(hash.MD5, "b", "a", "c", "d", "e", "f"))
}

func TestSliced(t *testing.T) {
	versions := []string{"v1", "v2", "v3", "v4", "v5"}
	require.Empty(t, digest.Sliced(hash.MD5, nil, 2))

	whole := digest.Of(hash.MD5, digest.Of(hash.MD5, versions...))
	require.Equal(t, whole, digest.Sliced(hash.MD5, versions, 0))
	require.Equal(t, whole, digest.Sliced(hash.MD5, versions, len(versions)))

	expected := digest.Of(hash.MD5,
		digest.Of(hash.MD5, "v1", "v2"),
		digest.Of(hash.MD5, "v3", "v4"),
		digest.Of(hash.MD5, "v5"),
	)
	require.Equal(t, expected, digest.Sliced(hash.MD5, versions, 2))
	require.NotEqual(t, whole, expected)

	// every slice is folded by the same accumulator after a reset
	single := make([]string, len(versions))
	for i, v := range versions {
		single[i] = digest.Of(hash.MD5, v)
	}
	require.NotPanics(t, func() {
		require.Equal(t, digest.Of(hash.MD5, single...), digest.Sliced(hash.MD5, versions, 1))
	})
}

func TestHashFunctionsDiffer(t *testing.T) {
	md5 := digest.Of(hash.MD5, "v1")
	sha := digest.Of(hash.SHA256, "v1")
	b3 := digest.Of(hash.BLAKE3, "v1")
	require.Len(t, md5, 32)
	require.Len(t, sha, 64)
	require.Len(t, b3, 64)
	require.NotEqual(t, sha, b3)
}
