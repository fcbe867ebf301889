// Package trinary implements balanced-ternary primitives.
//
// A trit is a digit in {-1, 0, 1}. Three trits form a tryte, written as one
// character of TryteAlphabet. Every higher-level type in this module
// (hashes, addresses, signature fragments, transactions) is ultimately a
// tryte string, so the conversions here sit underneath everything else.
//
// Trit sequences are little-endian: the trit at index 0 is the least
// significant digit.
package trinary

import (
	"errors"
	"fmt"
	"strings"
)

// Trits is a sequence of balanced-ternary digits.
type Trits []int8

// Trytes is a string over TryteAlphabet.
type Trytes string

const (
	// TryteAlphabet maps tryte values 0..13 to '9'..'M' and -13..-1 to 'N'..'Z'.
	TryteAlphabet = "9ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	TritsPerTryte = 3
	MinTryteValue = -13
	MaxTryteValue = 13
)

var (
	ErrInvalidTrytes = errors.New("invalid trytes")
	ErrInvalidTrits  = errors.New("invalid trits")
)

// tryteTrits holds the three trits of each alphabet character, by alphabet index.
var tryteTrits = [27][3]int8{
	{0, 0, 0},    // 9
	{1, 0, 0},    // A
	{-1, 1, 0},   // B
	{0, 1, 0},    // C
	{1, 1, 0},    // D
	{-1, -1, 1},  // E
	{0, -1, 1},   // F
	{1, -1, 1},   // G
	{-1, 0, 1},   // H
	{0, 0, 1},    // I
	{1, 0, 1},    // J
	{-1, 1, 1},   // K
	{0, 1, 1},    // L
	{1, 1, 1},    // M
	{-1, -1, -1}, // N
	{0, -1, -1},  // O
	{1, -1, -1},  // P
	{-1, 0, -1},  // Q
	{0, 0, -1},   // R
	{1, 0, -1},   // S
	{-1, 1, -1},  // T
	{0, 1, -1},   // U
	{1, 1, -1},   // V
	{-1, -1, 0},  // W
	{0, -1, 0},   // X
	{1, -1, 0},   // Y
	{-1, 0, 0},   // Z
}

// tryteIndex returns the alphabet index of c, or -1.
func tryteIndex(c byte) int {
	switch {
	case c == '9':
		return 0
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 1
	default:
		return -1
	}
}

// ValidTrytes reports the first character of s outside TryteAlphabet.
func ValidTrytes(s string) error {
	for i := 0; i < len(s); i++ {
		if tryteIndex(s[i]) < 0 {
			return fmt.Errorf("%w: character %q at offset %d", ErrInvalidTrytes, s[i], i)
		}
	}
	return nil
}

// ValidTrits reports the first value of t outside {-1, 0, 1}.
func ValidTrits(t Trits) error {
	for i, v := range t {
		if v < -1 || v > 1 {
			return fmt.Errorf("%w: value %d at offset %d", ErrInvalidTrits, v, i)
		}
	}
	return nil
}

// TrytesToTrits converts t to trits, three per tryte.
func TrytesToTrits(t Trytes) (Trits, error) {
	if err := ValidTrytes(string(t)); err != nil {
		return nil, err
	}
	return MustTrytesToTrits(t), nil
}

// MustTrytesToTrits is like TrytesToTrits but panics on invalid input.
func MustTrytesToTrits(t Trytes) Trits {
	out := make(Trits, len(t)*TritsPerTryte)
	for i := 0; i < len(t); i++ {
		idx := tryteIndex(t[i])
		if idx < 0 {
			panic(fmt.Sprintf("trinary: invalid tryte %q at offset %d", t[i], i))
		}
		copy(out[i*TritsPerTryte:], tryteTrits[idx][:])
	}
	return out
}

// TritsToTrytes converts t to trytes, zero-padding to a multiple of three.
//
// A trit outside {-1, 0, 1} is a programming error and panics.
func TritsToTrytes(t Trits) Trytes {
	var sb strings.Builder
	sb.Grow((len(t) + TritsPerTryte - 1) / TritsPerTryte)
	for i := 0; i < len(t); i += TritsPerTryte {
		var v int
		for j := TritsPerTryte - 1; j >= 0; j-- {
			var d int8
			if i+j < len(t) {
				d = t[i+j]
			}
			if d < -1 || d > 1 {
				panic(fmt.Sprintf("trinary: invalid trit %d at offset %d", d, i+j))
			}
			v = v*3 + int(d)
		}
		if v < 0 {
			v += len(TryteAlphabet)
		}
		sb.WriteByte(TryteAlphabet[v])
	}
	return Trytes(sb.String())
}

// TryteValue returns the signed value of tryte c, in [-13, 13].
func TryteValue(c byte) int {
	idx := tryteIndex(c)
	if idx < 0 {
		panic(fmt.Sprintf("trinary: invalid tryte %q", c))
	}
	if idx > MaxTryteValue {
		return idx - len(TryteAlphabet)
	}
	return idx
}

// TrytesToInts returns the signed value of every tryte in t.
func TrytesToInts(t Trytes) []int {
	out := make([]int, len(t))
	for i := 0; i < len(t); i++ {
		out[i] = TryteValue(t[i])
	}
	return out
}

// IntFromTrits interprets t as a little-endian balanced-ternary number.
func IntFromTrits(t Trits) int64 {
	var n int64
	for i := len(t) - 1; i >= 0; i-- {
		n = n*3 + int64(t[i])
	}
	return n
}

// TritsFromInt returns the balanced-ternary digits of n, zero-extended to at
// least pad trits.
func TritsFromInt(n int64, pad int) Trits {
	var out Trits
	for n != 0 {
		r := n % 3
		n /= 3
		switch r {
		case 2:
			r = -1
			n++
		case -2:
			r = 1
			n--
		}
		out = append(out, int8(r))
	}
	for len(out) < pad {
		out = append(out, 0)
	}
	return out
}

// Pad right-pads t with '9' up to length n. Longer inputs are returned unchanged.
func Pad(t Trytes, n int) Trytes {
	if len(t) >= n {
		return t
	}
	return t + Trytes(strings.Repeat("9", n-len(t)))
}

// String returns t as a plain string.
func (t Trytes) String() string {
	return string(t)
}

// Trits converts t, panicking on invalid characters.
func (t Trytes) Trits() Trits {
	return MustTrytesToTrits(t)
}

// Trytes converts t, zero-padding to a tryte boundary.
func (t Trits) Trytes() Trytes {
	return TritsToTrytes(t)
}
