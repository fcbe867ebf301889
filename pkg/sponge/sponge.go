// Package sponge implements the two ternary sponge functions used by the
// ledger.
//
// Curl is a permutation sponge operating natively on trits. Kerl wraps
// Keccak-384 and converts 243-trit chunks to and from 48-byte integers
// around it. Both implement Sponge and are NOT bit-compatible with each
// other; callers choose one per use site (Kerl for keys, addresses and
// bundle hashes; Curl for transaction hashes and as the legacy signature
// sponge during validation).
//
// Sponges are stateful and not safe for concurrent use. Give each goroutine
// its own instance.
package sponge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/suffix-labs/iota-ternary/pkg/trinary"
)

// HashLength is the number of trits absorbed or squeezed per block.
const HashLength = trinary.HashTrits

// ErrInvalidLength is returned when an absorb or squeeze range is empty or
// falls outside the buffer.
var ErrInvalidLength = errors.New("invalid sponge range")

// Sponge absorbs trits into internal state and squeezes hashes out of it.
//
// offset and length select trits of the buffer; ranges longer than
// HashLength are processed block by block with a transform between blocks.
type Sponge interface {
	Reset()
	Absorb(in trinary.Trits, offset, length int) error
	Squeeze(out trinary.Trits, offset, length int) error
}

// Factory creates a fresh sponge.
type Factory func() Sponge

// Kind identifies a sponge implementation.
type Kind int

const (
	KindKerl Kind = iota
	KindCurl
)

func (k Kind) String() string {
	switch k {
	case KindKerl:
		return "kerl"
	case KindCurl:
		return "curl"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses "kerl" or "curl".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kerl":
		return KindKerl, nil
	case "curl":
		return KindCurl, nil
	default:
		return 0, fmt.Errorf("unknown sponge %q", s)
	}
}

// FactoryFor returns the constructor for kind.
func FactoryFor(kind Kind) (Factory, error) {
	switch kind {
	case KindKerl:
		return func() Sponge { return NewKerl() }, nil
	case KindCurl:
		return func() Sponge { return NewCurl() }, nil
	default:
		return nil, fmt.Errorf("unsupported sponge kind %v", kind)
	}
}

// New creates a fresh sponge of the given kind.
func New(kind Kind) (Sponge, error) {
	f, err := FactoryFor(kind)
	if err != nil {
		return nil, err
	}
	return f(), nil
}

// Sum absorbs all of in into a fresh sponge and squeezes one hash.
func Sum(f Factory, in trinary.Trits) (trinary.Trits, error) {
	s := f()
	if err := s.Absorb(in, 0, len(in)); err != nil {
		return nil, err
	}
	out := make(trinary.Trits, HashLength)
	if err := s.Squeeze(out, 0, HashLength); err != nil {
		return nil, err
	}
	return out, nil
}

func checkRange(bufLen, offset, length int) error {
	if length < 1 || offset < 0 || offset+length > bufLen {
		return fmt.Errorf("%w: offset %d, length %d, buffer %d", ErrInvalidLength, offset, length, bufLen)
	}
	return nil
}
