package signing

import (
	"fmt"

	"github.com/suffix-labs/iota-ternary/pkg/sponge"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

const (
	// NormalizedChunks is the number of 27-tryte chunks in a normalized hash.
	NormalizedChunks = 3
	// NormalizedChunkLength is the number of tryte values per chunk.
	NormalizedChunkLength = types.HashLength / NormalizedChunks
)

// Normalize splits the 81 tryte values of hash into three chunks of 27 and
// shifts each chunk until it sums to zero.
//
// A positive sum is reduced by decrementing the first value above -13, one
// unit at a time; a negative sum is raised the same way from the first
// value below 13.
func Normalize(hash types.Hash) [][]int {
	values := trinary.TrytesToInts(trinary.Trytes(hash))
	out := make([][]int, NormalizedChunks)

	for i := range out {
		chunk := make([]int, NormalizedChunkLength)
		copy(chunk, values[i*NormalizedChunkLength:])

		sum := 0
		for _, v := range chunk {
			sum += v
		}

		for sum > 0 {
			for j := range chunk {
				if chunk[j] > trinary.MinTryteValue {
					chunk[j]--
					break
				}
			}
			sum--
		}
		for sum < 0 {
			for j := range chunk {
				if chunk[j] < trinary.MaxTryteValue {
					chunk[j]++
					break
				}
			}
			sum++
		}

		out[i] = chunk
	}
	return out
}

// IsInsecure reports whether the normalized hash contains a 13. Signing such
// a hash reveals an unhashed key segment.
func IsInsecure(normalized [][]int) bool {
	for _, chunk := range normalized {
		for _, v := range chunk {
			if v == trinary.MaxTryteValue {
				return true
			}
		}
	}
	return false
}

// GenerateSignatureFragment hashes key hash j 13-n[j] times with s.
func GenerateSignatureFragment(keyFragment trinary.Trits, normalizedChunk []int, s sponge.Sponge) (trinary.Trits, error) {
	if len(keyFragment) != FragmentTrits {
		return nil, fmt.Errorf("key fragment has %d trits, expected %d", len(keyFragment), FragmentTrits)
	}
	if len(normalizedChunk) != HashesPerFragment {
		return nil, fmt.Errorf("normalized chunk has %d values, expected %d", len(normalizedChunk), HashesPerFragment)
	}

	out := make(trinary.Trits, FragmentTrits)
	copy(out, keyFragment)

	for j := 0; j < HashesPerFragment; j++ {
		h := out[j*trinary.HashTrits : (j+1)*trinary.HashTrits]
		for it := 0; it < trinary.MaxTryteValue-normalizedChunk[j]; it++ {
			s.Reset()
			if err := s.Absorb(h, 0, len(h)); err != nil {
				return nil, err
			}
			if err := s.Squeeze(h, 0, len(h)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// SignatureFragmentGenerator yields one signature fragment per key fragment.
type SignatureFragmentGenerator struct {
	key        *PrivateKey
	normalized [][]int
	sponge     sponge.Sponge
	offset     int
	next       int
	err        error
}

// NewSignatureFragmentGenerator prepares to sign hash with key. Fragment i
// is signed against normalized chunk i%3, shifted by the offset.
func NewSignatureFragmentGenerator(key *PrivateKey, hash types.Hash) *SignatureFragmentGenerator {
	return &SignatureFragmentGenerator{
		key:        key,
		normalized: Normalize(hash),
		sponge:     sponge.NewKerl(),
	}
}

// WithOffset shifts the normalized chunk used for each fragment by n. A
// multisig co-signer whose fragments start n transactions into the input
// must sign with offset n so that validation, which counts fragments from
// the start of the input, uses the same chunks.
func (g *SignatureFragmentGenerator) WithOffset(n int) *SignatureFragmentGenerator {
	g.offset = n
	return g
}

// Len is the total number of fragments the generator yields.
func (g *SignatureFragmentGenerator) Len() int {
	return g.key.SecurityLevel
}

// Next returns the next fragment, or false when all have been produced.
func (g *SignatureFragmentGenerator) Next() (types.Fragment, bool) {
	if g.next >= g.key.SecurityLevel || g.err != nil {
		return "", false
	}

	trits, err := GenerateSignatureFragment(
		g.key.Fragment(g.next),
		g.normalized[(g.offset+g.next)%NormalizedChunks],
		g.sponge,
	)
	if err != nil {
		g.err = fmt.Errorf("failed to sign fragment %d: %w", g.next, err)
		return "", false
	}
	g.next++

	return types.Fragment(trinary.TritsToTrytes(trits)), true
}

// Err reports the failure that stopped the generator, if any.
func (g *SignatureFragmentGenerator) Err() error {
	return g.err
}

// ValidateSignatureFragments reports whether fragments, in order, are a
// signature of hash by the key whose address is publicKey.
func ValidateSignatureFragments(fragments []types.Fragment, hash types.Hash, publicKey types.Hash, f sponge.Factory) bool {
	if len(fragments) == 0 {
		return false
	}

	normalized := Normalize(hash)
	digest := make(trinary.Trits, len(fragments)*trinary.HashTrits)
	buf := make(trinary.Trits, trinary.HashTrits)

	for i, fragment := range fragments {
		trits, err := trinary.TrytesToTrits(trinary.Trytes(fragment))
		if err != nil || len(trits) != FragmentTrits {
			return false
		}
		chunk := normalized[i%NormalizedChunks]
		outer := f()

		for j := 0; j < HashesPerFragment; j++ {
			copy(buf, trits[j*trinary.HashTrits:(j+1)*trinary.HashTrits])
			inner := f()
			for it := 0; it < trinary.MaxTryteValue+chunk[j]; it++ {
				inner.Reset()
				if inner.Absorb(buf, 0, len(buf)) != nil || inner.Squeeze(buf, 0, len(buf)) != nil {
					return false
				}
			}
			if outer.Absorb(buf, 0, len(buf)) != nil {
				return false
			}
		}
		if outer.Squeeze(digest, i*trinary.HashTrits, trinary.HashTrits) != nil {
			return false
		}
	}

	actual, err := sponge.Sum(f, digest)
	if err != nil {
		return false
	}
	return types.HashFromTrits(actual) == publicKey
}
