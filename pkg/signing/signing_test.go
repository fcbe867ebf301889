package signing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/iota-ternary/pkg/sponge"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

const testSeed = types.Seed("TESTVALUE9DONTUSEINPRODUCTION999999GFDDCPFIIEHBCWFN9KHRBEIHHREFCKBVGUGEDXCFHDFPAL")

const bundleHash = types.Hash("NYSJSEGCWESDAFLIFCNJFWGZ9PCYDOT9VCSALKBD9UUNKBJAJCB9KVMTHZDPRDDXC9UFJQBJBQFUPJKFC")

func kerlFactory() sponge.Sponge { return sponge.NewKerl() }
func curlFactory() sponge.Sponge { return sponge.NewCurl() }

// addressOf hashes a digest the way address generation does.
func addressOf(t *testing.T, d types.Digest) types.Hash {
	t.Helper()
	out, err := sponge.Sum(kerlFactory, d.Trits())
	require.NoError(t, err)
	return types.HashFromTrits(out)
}

func TestKeyDigestMatchesKnownAddresses(t *testing.T) {
	cases := []struct {
		index, security int
		address         types.Hash
	}{
		{0, 1, "KNDWDEEWWFVZLISLYRABGVWZCHZNZLNSEJXFKVGAUFLL9UMZYEZMEJB9BDLAASWTHEKFREUDIUPY9ICKW"},
		{0, 2, "DLEIS9XU9V9T9OURAKDUSQWBQEYFGJLRPRVEWKN9SSUGIHBEIPBPEWISSAURGTQKWKWNHXGCBQTWNOGIY"},
		{1, 3, "EGMRJEUIYFUGWAIXXZCHCZUVUUYITICVHDSHCQXGFHJIVDCLTI9ZVRIKRLZQWW9CPOIXVDCBAHVGLUHI9"},
	}

	gen := NewKeyGenerator(testSeed)
	for _, tc := range cases {
		key, err := gen.GetKey(tc.index, tc.security)
		require.NoError(t, err)
		assert.Len(t, key.Trits, tc.security*FragmentTrits)
		assert.Equal(t, tc.index, key.KeyIndex)

		d, err := key.Digest()
		require.NoError(t, err)
		require.NotNil(t, d.KeyIndex)
		assert.Equal(t, tc.index, *d.KeyIndex)
		assert.Equal(t, tc.security, d.SecurityLevel())

		assert.Equal(t, tc.address, addressOf(t, d), "index %d security %d", tc.index, tc.security)
	}
}

func TestKeyDerivationIsDeterministic(t *testing.T) {
	gen := NewKeyGenerator(testSeed)

	keys, err := gen.GetKeys(2, 3, 1, 1)
	require.NoError(t, err)
	require.Len(t, keys, 3)

	for i, k := range keys {
		direct, err := gen.GetKey(2+i, 1)
		require.NoError(t, err)
		assert.Equal(t, direct.Trits, k.Trits)
		assert.Equal(t, 2+i, k.KeyIndex)
	}

	it, err := gen.CreateIterator(2, 1, 1)
	require.NoError(t, err)
	first, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, keys[0].Trits, first.Trits)
	assert.Equal(t, 3, it.Current())

	it.Reset()
	assert.Equal(t, 2, it.Current())
	again, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, first.Trits, again.Trits)
}

func TestShortSeedIsPadded(t *testing.T) {
	short := NewKeyGenerator("TESTVALUE")
	padded := NewKeyGenerator(types.Seed(trinary.Pad("TESTVALUE", types.SeedLength)))

	a, err := short.GetKey(0, 1)
	require.NoError(t, err)
	b, err := padded.GetKey(0, 1)
	require.NoError(t, err)
	assert.Equal(t, b.Trits, a.Trits)
}

func TestKeyIteratorNegativeStep(t *testing.T) {
	gen := NewKeyGenerator(testSeed)
	it, err := gen.CreateIterator(1, -1, 1)
	require.NoError(t, err)

	var indices []int
	for {
		k, ok := it.Next()
		if !ok {
			break
		}
		indices = append(indices, k.KeyIndex)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int{1, 0}, indices)

	keys, err := gen.GetKeys(1, 5, -1, 1)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestKeyArgumentValidation(t *testing.T) {
	gen := NewKeyGenerator(testSeed)

	_, err := gen.GetKey(-1, 1)
	assert.Error(t, err)
	_, err = gen.GetKey(0, 0)
	assert.Error(t, err)
	_, err = gen.GetKeys(0, 0, 1, 1)
	assert.Error(t, err)
	_, err = gen.GetKeys(0, 1, 0, 1)
	assert.Error(t, err)

	addr, err := types.NewAddress("")
	require.NoError(t, err)
	_, err = gen.GetKeyFor(addr)
	assert.Error(t, err)
	_, err = gen.GetKeyFor(addr.WithKeyIndex(0))
	assert.Error(t, err)

	k, err := gen.GetKeyFor(addr.WithKeyIndex(0).WithSecurityLevel(1))
	require.NoError(t, err)
	assert.Equal(t, 1, k.SecurityLevel)
}

func TestNormalize(t *testing.T) {
	normalized := Normalize(bundleHash)
	require.Len(t, normalized, NormalizedChunks)

	assert.Equal(t, []int{
		-13, -13, -13, 1, -8, 5, 7, 3, -4, 5, -8, 4, 1, 6, 12, 9, 6, 3, -13, 10, 6, -4, 7, -1, 0, -11, 3,
	}, normalized[0])
	assert.False(t, IsInsecure(normalized))

	for _, chunk := range Normalize(types.Hash(strings.Repeat("M", types.HashLength))) {
		assert.Equal(t, []int{
			-13, -13, -13, -13, -13, -13, -13, -13, -13, -13, -13, -13, -13,
			0, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13,
		}, chunk)
	}
}

func TestNormalizeChunksSumToZero(t *testing.T) {
	hashes := []types.Hash{
		bundleHash,
		types.NullHash,
		types.Hash(strings.Repeat("N", types.HashLength)),
		types.Hash(strings.Repeat("ABCXYZ9", 12)[:types.HashLength]),
	}
	for _, h := range hashes {
		for _, chunk := range Normalize(h) {
			sum := 0
			for _, v := range chunk {
				assert.GreaterOrEqual(t, v, -13)
				assert.LessOrEqual(t, v, 13)
				sum += v
			}
			assert.Zero(t, sum, "hash %s", h)
		}
	}
}

func signAll(t *testing.T, key *PrivateKey, hash types.Hash) []types.Fragment {
	t.Helper()
	gen := NewSignatureFragmentGenerator(key, hash)
	require.Equal(t, key.SecurityLevel, gen.Len())

	var fragments []types.Fragment
	for {
		f, ok := gen.Next()
		if !ok {
			break
		}
		fragments = append(fragments, f)
	}
	require.NoError(t, gen.Err())
	require.Len(t, fragments, key.SecurityLevel)
	return fragments
}

func TestSignAndValidate(t *testing.T) {
	gen := NewKeyGenerator(testSeed)
	key, err := gen.GetKey(0, 2)
	require.NoError(t, err)
	d, err := key.Digest()
	require.NoError(t, err)
	addr := addressOf(t, d)

	fragments := signAll(t, key, bundleHash)
	assert.True(t, ValidateSignatureFragments(fragments, bundleHash, addr, kerlFactory))

	// Order matters.
	swapped := []types.Fragment{fragments[1], fragments[0]}
	assert.False(t, ValidateSignatureFragments(swapped, bundleHash, addr, kerlFactory))

	// Wrong sponge.
	assert.False(t, ValidateSignatureFragments(fragments, bundleHash, addr, curlFactory))

	// Wrong hash.
	other, err := types.NewHash("OTHER")
	require.NoError(t, err)
	assert.False(t, ValidateSignatureFragments(fragments, other, addr, kerlFactory))

	assert.False(t, ValidateSignatureFragments(nil, bundleHash, addr, kerlFactory))
}

func TestValidateRejectsFlippedTrit(t *testing.T) {
	gen := NewKeyGenerator(testSeed)
	key, err := gen.GetKey(3, 1)
	require.NoError(t, err)
	d, err := key.Digest()
	require.NoError(t, err)
	addr := addressOf(t, d)

	fragments := signAll(t, key, bundleHash)
	require.True(t, ValidateSignatureFragments(fragments, bundleHash, addr, kerlFactory))

	// The last trit of each 243-trit hash is zeroed by Kerl before absorbing,
	// so positions are picked away from those boundaries.
	for _, pos := range []int{0, 500, FragmentTrits - 2} {
		trits := fragments[0].Trits()
		trits[pos] = (trits[pos]+2)%3 - 1
		tampered, err := types.FragmentFromTrits(trits)
		require.NoError(t, err)
		assert.False(t, ValidateSignatureFragments([]types.Fragment{tampered}, bundleHash, addr, kerlFactory), "position %d", pos)
	}
}

func TestGenerateSignatureFragmentArguments(t *testing.T) {
	_, err := GenerateSignatureFragment(make(trinary.Trits, 10), make([]int, HashesPerFragment), sponge.NewKerl())
	assert.Error(t, err)
	_, err = GenerateSignatureFragment(make(trinary.Trits, FragmentTrits), make([]int, 3), sponge.NewKerl())
	assert.Error(t, err)

	// A chunk of 13s leaves the key untouched.
	key := make(trinary.Trits, FragmentTrits)
	key[7] = 1
	chunk := make([]int, HashesPerFragment)
	for i := range chunk {
		chunk[i] = 13
	}
	out, err := GenerateSignatureFragment(key, chunk, sponge.NewKerl())
	require.NoError(t, err)
	assert.Equal(t, key, out)
}
