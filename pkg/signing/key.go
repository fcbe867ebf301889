// Package signing derives Winternitz one-time keys from a seed and produces
// and checks signature fragments with them.
//
// A private key at security level s is s fragments of 27 hashes each. Its
// digest hashes every key hash 26 times and then compresses each fragment
// into one 243-trit hash. Signing hashes key hash j 13-n[j] times, where n
// is the normalized bundle hash; verifying applies the remaining 13+n[j]
// iterations and must land on the digest.
package signing

import (
	"fmt"

	"github.com/suffix-labs/iota-ternary/pkg/sponge"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

const (
	// FragmentTrits is the length of one key or signature fragment.
	FragmentTrits = types.FragmentLength * trinary.TritsPerTryte
	// HashesPerFragment is the number of 243-trit hashes in a fragment.
	HashesPerFragment = FragmentTrits / trinary.HashTrits
	// HashIterations is the number of hash applications between a key hash
	// and its public counterpart.
	HashIterations = 26
)

// PrivateKey is a one-time signing key.
type PrivateKey struct {
	Trits         trinary.Trits
	KeyIndex      int
	SecurityLevel int
}

func (k *PrivateKey) Trytes() trinary.Trytes {
	return trinary.TritsToTrytes(k.Trits)
}

// Fragment returns key fragment i. It panics if i is not below the security
// level.
func (k *PrivateKey) Fragment(i int) trinary.Trits {
	return k.Trits[i*FragmentTrits : (i+1)*FragmentTrits]
}

// Digest computes the public digest of the key.
func (k *PrivateKey) Digest() (types.Digest, error) {
	out := make(trinary.Trits, k.SecurityLevel*trinary.HashTrits)
	s := sponge.NewKerl()
	fragment := make(trinary.Trits, FragmentTrits)

	for i := 0; i < k.SecurityLevel; i++ {
		copy(fragment, k.Fragment(i))

		for j := 0; j < HashesPerFragment; j++ {
			h := fragment[j*trinary.HashTrits : (j+1)*trinary.HashTrits]
			for it := 0; it < HashIterations; it++ {
				s.Reset()
				if err := s.Absorb(h, 0, len(h)); err != nil {
					return types.Digest{}, err
				}
				if err := s.Squeeze(h, 0, len(h)); err != nil {
					return types.Digest{}, err
				}
			}
		}

		s.Reset()
		if err := s.Absorb(fragment, 0, len(fragment)); err != nil {
			return types.Digest{}, err
		}
		if err := s.Squeeze(out, i*trinary.HashTrits, trinary.HashTrits); err != nil {
			return types.Digest{}, err
		}
	}

	index := k.KeyIndex
	return types.Digest{Trytes: trinary.TritsToTrytes(out), KeyIndex: &index}, nil
}

// KeyGenerator derives private keys from a seed.
type KeyGenerator struct {
	seed trinary.Trits
}

// NewKeyGenerator pads the seed with '9' to a whole number of hashes.
func NewKeyGenerator(seed types.Seed) *KeyGenerator {
	padLen := len(seed) + (types.SeedLength-len(seed)%types.SeedLength)%types.SeedLength
	return &KeyGenerator{
		seed: trinary.MustTrytesToTrits(trinary.Pad(trinary.Trytes(seed), padLen)),
	}
}

// GetKey derives the key at index.
func (g *KeyGenerator) GetKey(index, securityLevel int) (*PrivateKey, error) {
	if err := checkKeyArgs(index, securityLevel); err != nil {
		return nil, err
	}
	return g.deriveKey(index, securityLevel)
}

// GetKeys derives count keys starting at start and moving by step.
func (g *KeyGenerator) GetKeys(start, count, step, securityLevel int) ([]*PrivateKey, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", count)
	}
	it, err := g.CreateIterator(start, step, securityLevel)
	if err != nil {
		return nil, err
	}

	keys := make([]*PrivateKey, 0, count)
	for len(keys) < count {
		k, ok := it.Next()
		if !ok {
			break
		}
		keys = append(keys, k)
	}
	if it.err != nil {
		return nil, it.err
	}
	return keys, nil
}

// GetKeyFor derives the key behind an address generated from this seed.
func (g *KeyGenerator) GetKeyFor(addr types.Address) (*PrivateKey, error) {
	if addr.KeyIndex == nil {
		return nil, fmt.Errorf("address %s has no key index", addr.Trytes)
	}
	if addr.SecurityLevel == nil {
		return nil, fmt.Errorf("address %s has no security level", addr.Trytes)
	}
	return g.GetKey(*addr.KeyIndex, *addr.SecurityLevel)
}

// CreateIterator returns a lazy key iterator.
func (g *KeyGenerator) CreateIterator(start, step, securityLevel int) (*KeyIterator, error) {
	if err := checkKeyArgs(start, securityLevel); err != nil {
		return nil, err
	}
	if step == 0 {
		return nil, fmt.Errorf("step must not be zero")
	}
	return &KeyIterator{
		gen:           g,
		start:         start,
		step:          step,
		securityLevel: securityLevel,
		current:       start,
	}, nil
}

// deriveKey is a pure function of the seed, index and security level.
func (g *KeyGenerator) deriveKey(index, securityLevel int) (*PrivateKey, error) {
	seedLen := len(g.seed)
	s := sponge.NewKerl()

	indexed := trinary.AddTrits(g.seed, trinary.TritsFromInt(int64(index), 1))
	if err := s.Absorb(indexed, 0, len(indexed)); err != nil {
		return nil, fmt.Errorf("failed to absorb seed: %w", err)
	}

	subseed := make(trinary.Trits, seedLen)
	if err := s.Squeeze(subseed, 0, seedLen); err != nil {
		return nil, fmt.Errorf("failed to squeeze subseed: %w", err)
	}
	s.Reset()
	if err := s.Absorb(subseed, 0, seedLen); err != nil {
		return nil, fmt.Errorf("failed to absorb subseed: %w", err)
	}

	key := make(trinary.Trits, securityLevel*FragmentTrits)
	buf := make(trinary.Trits, seedLen)
	for i := 0; i < securityLevel*HashesPerFragment; i++ {
		if err := s.Squeeze(buf, 0, seedLen); err != nil {
			return nil, fmt.Errorf("failed to squeeze key: %w", err)
		}
		copy(key[i*trinary.HashTrits:], buf[:trinary.HashTrits])
	}

	return &PrivateKey{Trits: key, KeyIndex: index, SecurityLevel: securityLevel}, nil
}

func checkKeyArgs(index, securityLevel int) error {
	if index < 0 {
		return fmt.Errorf("key index must not be negative, got %d", index)
	}
	if securityLevel < 1 {
		return fmt.Errorf("security level must be at least 1, got %d", securityLevel)
	}
	return nil
}

// KeyIterator walks key indices lazily. It is not safe for concurrent use.
type KeyIterator struct {
	gen           *KeyGenerator
	start         int
	step          int
	securityLevel int
	current       int
	err           error
}

// Next derives the key at the current index and advances. It returns false
// once a negative step has moved the index below zero.
func (it *KeyIterator) Next() (*PrivateKey, bool) {
	if it.current < 0 || it.err != nil {
		return nil, false
	}
	k, err := it.gen.deriveKey(it.current, it.securityLevel)
	if err != nil {
		it.err = err
		return nil, false
	}
	it.current += it.step
	return k, true
}

// Reset moves the iterator back to its start index.
func (it *KeyIterator) Reset() {
	it.current = it.start
	it.err = nil
}

// Current is the index the next call to Next will derive.
func (it *KeyIterator) Current() int {
	return it.current
}

// Err reports a derivation failure that stopped the iterator.
func (it *KeyIterator) Err() error {
	return it.err
}
