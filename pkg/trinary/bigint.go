package trinary

import "math/big"

const (
	// HashTrits is the number of trits in one sponge-sized chunk.
	HashTrits = 243
	// HashBytes is the byte width of a chunk in its 384-bit binary form.
	HashBytes = 48
)

var (
	bigThree = big.NewInt(3)
	bigOne   = big.NewInt(1)

	// hashModulus is 2^384, the range of a 48-byte two's complement value.
	hashModulus = new(big.Int).Lsh(bigOne, 8*HashBytes)
)

// BigIntFromTrits interprets t as a little-endian balanced-ternary number of
// arbitrary size.
func BigIntFromTrits(t Trits) *big.Int {
	n := new(big.Int)
	d := new(big.Int)
	for i := len(t) - 1; i >= 0; i-- {
		n.Mul(n, bigThree)
		n.Add(n, d.SetInt64(int64(t[i])))
	}
	return n
}

// TritsFromBigInt returns exactly length balanced-ternary digits of n.
//
// Negative values are converted as |n| with every digit negated. Digits
// beyond length are discarded.
func TritsFromBigInt(n *big.Int, length int) Trits {
	out := make(Trits, length)
	neg := n.Sign() < 0
	q := new(big.Int).Abs(n)
	r := new(big.Int)
	for i := 0; i < length; i++ {
		q.QuoRem(q, bigThree, r)
		d := int8(r.Int64())
		if d > 1 {
			d -= 3
			q.Add(q, bigOne)
		}
		if neg {
			d = -d
		}
		out[i] = d
	}
	return out
}

// TritsToBytes encodes a trit chunk as a 48-byte big-endian two's
// complement integer. Values outside the signed 384-bit range wrap.
func TritsToBytes(t Trits) []byte {
	n := BigIntFromTrits(t)
	n.Mod(n, hashModulus)
	return n.FillBytes(make([]byte, HashBytes))
}

// BytesToTrits decodes a big-endian two's complement integer into HashTrits trits.
func BytesToTrits(b []byte) Trits {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(bigOne, uint(8*len(b))))
	}
	return TritsFromBigInt(n, HashTrits)
}
