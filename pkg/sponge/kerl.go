package sponge

import (
	"hash"

	"github.com/ebfe/keccak"

	"github.com/suffix-labs/iota-ternary/pkg/trinary"
)

// Kerl is the Keccak-384 backed sponge.
//
// Each 243-trit block becomes a signed 384-bit integer. A balanced-ternary
// 243-trit number spans slightly more than 384 bits, so the last trit of
// every block is forced to zero in both directions.
type Kerl struct {
	k     hash.Hash
	chunk trinary.Trits
}

// NewKerl returns a Kerl sponge with a fresh Keccak-384 state.
func NewKerl() *Kerl {
	return &Kerl{
		k:     keccak.New384(),
		chunk: make(trinary.Trits, HashLength),
	}
}

// Reset discards all absorbed input.
func (k *Kerl) Reset() {
	k.k.Reset()
}

// Absorb feeds in[offset:offset+length] to Keccak one block at a time.
//
// A short final block is zero-padded. The caller's buffer is not modified.
func (k *Kerl) Absorb(in trinary.Trits, offset, length int) error {
	if err := checkRange(len(in), offset, length); err != nil {
		return err
	}
	for end := offset + length; offset < end; offset += HashLength {
		n := copy(k.chunk, in[offset:min(offset+HashLength, end)])
		clear(k.chunk[n:])
		k.chunk[HashLength-1] = 0
		k.k.Write(trinary.TritsToBytes(k.chunk))
	}
	return nil
}

// Squeeze writes length trits to out starting at offset.
//
// After each block the Keccak state is replaced by the bitwise complement
// of the digest just produced, so successive blocks differ.
func (k *Kerl) Squeeze(out trinary.Trits, offset, length int) error {
	if err := checkRange(len(out), offset, length); err != nil {
		return err
	}
	for end := offset + length; offset < end; offset += HashLength {
		digest := k.k.Sum(nil)

		trits := trinary.BytesToTrits(digest)
		trits[HashLength-1] = 0
		copy(out[offset:min(offset+HashLength, end)], trits)

		for i := range digest {
			digest[i] = ^digest[i]
		}
		k.k.Reset()
		k.k.Write(digest)
	}
	return nil
}
