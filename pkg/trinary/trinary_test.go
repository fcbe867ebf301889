package trinary

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryteTableRoundTrip(t *testing.T) {
	for i := 0; i < len(TryteAlphabet); i++ {
		c := TryteAlphabet[i : i+1]
		trits, err := TrytesToTrits(Trytes(c))
		require.NoError(t, err)
		require.Len(t, trits, 3)
		assert.Equal(t, Trytes(c), TritsToTrytes(trits), "tryte %s", c)
		assert.Equal(t, int64(TryteValue(c[0])), IntFromTrits(trits), "tryte %s", c)
	}
}

func TestTryteValues(t *testing.T) {
	assert.Equal(t, 0, TryteValue('9'))
	assert.Equal(t, 1, TryteValue('A'))
	assert.Equal(t, 13, TryteValue('M'))
	assert.Equal(t, -13, TryteValue('N'))
	assert.Equal(t, -1, TryteValue('Z'))
	assert.Equal(t, []int{0, 13, -13, -1}, TrytesToInts("9MNZ"))
}

func TestTrytesToTritsInvalid(t *testing.T) {
	_, err := TrytesToTrits("ABc")
	require.ErrorIs(t, err, ErrInvalidTrytes)

	assert.Panics(t, func() { MustTrytesToTrits("A1") })
}

func TestTritsToTrytesPadsAndPanics(t *testing.T) {
	// [1] is padded to [1, 0, 0] == 'A'.
	assert.Equal(t, Trytes("A"), TritsToTrytes(Trits{1}))
	assert.Equal(t, Trytes(""), TritsToTrytes(nil))

	assert.Panics(t, func() { TritsToTrytes(Trits{2, 0, 0}) })
	require.ErrorIs(t, ValidTrits(Trits{0, -2}), ErrInvalidTrits)
}

func TestTritsRoundTrip(t *testing.T) {
	trits := Trits{1, 0, -1, -1, 1, 1, 0, 0, 1, -1, -1, -1}
	trytes := TritsToTrytes(trits)
	assert.Equal(t, trytes, TritsToTrytes(MustTrytesToTrits(trytes)))
	assert.Equal(t, trits, MustTrytesToTrits(trytes))
}

func TestTritsFromInt(t *testing.T) {
	cases := []struct {
		n    int64
		pad  int
		want Trits
	}{
		{0, 1, Trits{0}},
		{0, 0, Trits{}},
		{1, 1, Trits{1}},
		{2, 1, Trits{-1, 1}},
		{-2, 1, Trits{1, -1}},
		{13, 3, Trits{1, 1, 1}},
		{-13, 3, Trits{-1, -1, -1}},
		{5, 5, Trits{-1, -1, 1, 0, 0}},
	}
	for _, tc := range cases {
		got := TritsFromInt(tc.n, tc.pad)
		if len(tc.want) == 0 {
			assert.Empty(t, got, "n=%d", tc.n)
		} else {
			assert.Equal(t, tc.want, got, "n=%d", tc.n)
		}
		assert.Equal(t, tc.n, IntFromTrits(got), "n=%d", tc.n)
	}
}

func TestIntRoundTripRange(t *testing.T) {
	for n := int64(-5000); n <= 5000; n += 7 {
		assert.Equal(t, n, IntFromTrits(TritsFromInt(n, 27)))
	}
}

func TestAddTrits(t *testing.T) {
	cases := []struct {
		left, right, want Trits
	}{
		{Trits{0}, Trits{1}, Trits{1}},
		{Trits{1}, Trits{1}, Trits{-1}},               // 1+1 = 2 overflows a single trit
		{Trits{1, 0}, Trits{1}, Trits{-1, 1}},         // 1+1 = 2
		{Trits{-1, -1}, Trits{1}, Trits{0, -1}},       // -4+1 = -3
		{Trits{1, 1, 1}, Trits{1}, Trits{-1, -1, -1}}, // 13+1 wraps to -13
		{Trits{0, 0, 0}, Trits{-1}, Trits{-1, 0, 0}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AddTrits(tc.left, tc.right), "%v + %v", tc.left, tc.right)
	}
}

func TestAddTritsMatchesIntegerAddition(t *testing.T) {
	for a := int64(-200); a <= 200; a += 13 {
		for b := int64(-50); b <= 50; b += 7 {
			sum := AddTrits(TritsFromInt(a, 12), TritsFromInt(b, 12))
			assert.Equal(t, a+b, IntFromTrits(sum), "%d + %d", a, b)
		}
	}
}

func TestBigIntConversion(t *testing.T) {
	n, ok := new(big.Int).SetString("-123456789012345678901234567890", 10)
	require.True(t, ok)

	trits := TritsFromBigInt(n, HashTrits)
	require.Len(t, trits, HashTrits)
	assert.Equal(t, 0, n.Cmp(BigIntFromTrits(trits)))
}

func TestBytesTritsAllBytes(t *testing.T) {
	for v := -128; v < 128; v++ {
		in := make([]byte, HashBytes)
		for i := range in {
			in[i] = byte(int8(v))
		}
		trits := BytesToTrits(in)
		assert.Equal(t, in, TritsToBytes(trits), "byte %d", v)
	}
}

func TestBytesTritsRandomChunk(t *testing.T) {
	trits := make(Trits, HashTrits)
	for i := range trits {
		trits[i] = int8(i*7%3) - 1
	}
	trits[HashTrits-1] = 0

	assert.Equal(t, trits, BytesToTrits(TritsToBytes(trits)))
}

func TestPad(t *testing.T) {
	assert.Equal(t, Trytes("AB999"), Pad("AB", 5))
	assert.Equal(t, Trytes("ABCDEF"), Pad("ABCDEF", 3))
}
