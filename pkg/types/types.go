// Package types defines the fixed-length tryte values exchanged between the
// signing, address and bundle packages.
//
// Every constructor validates the alphabet and the length. Short input is
// padded on the right with '9' where the ledger allows it; input that is too
// long is rejected with an error wrapping ErrInvalidLength.
package types

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/suffix-labs/iota-ternary/pkg/log"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
)

// Lengths in trytes.
const (
	HashLength              = 81
	TagLength               = 27
	NonceLength             = 27
	FragmentLength          = 2187
	AddressChecksumLength   = 9
	TransactionTrytesLength = 2673
	SeedLength              = 81
)

// ErrInvalidLength is wrapped by every constructor that rejects input
// because of its length.
var ErrInvalidLength = errors.New("invalid length")

// padded validates s and right-pads it with '9' to n trytes.
func padded(kind, s string, n int) (trinary.Trytes, error) {
	if err := trinary.ValidTrytes(s); err != nil {
		return "", fmt.Errorf("invalid %s: %w", kind, err)
	}
	if len(s) > n {
		return "", fmt.Errorf("%w: %s has %d trytes, at most %d allowed", ErrInvalidLength, kind, len(s), n)
	}
	return trinary.Pad(trinary.Trytes(s), n), nil
}

// exact validates s and requires exactly n trytes.
func exact(kind, s string, n int) (trinary.Trytes, error) {
	if err := trinary.ValidTrytes(s); err != nil {
		return "", fmt.Errorf("invalid %s: %w", kind, err)
	}
	if len(s) != n {
		return "", fmt.Errorf("%w: %s has %d trytes, expected %d", ErrInvalidLength, kind, len(s), n)
	}
	return trinary.Trytes(s), nil
}

func allNines(s string) bool {
	return strings.Trim(s, "9") == ""
}

// Hash is an 81-tryte sponge output.
type Hash trinary.Trytes

// BundleHash identifies a bundle.
type BundleHash = Hash

// TransactionHash identifies a transaction.
type TransactionHash = Hash

// NullHash is the all-'9' hash.
var NullHash = Hash(strings.Repeat("9", HashLength))

// NewHash pads s to 81 trytes.
func NewHash(s string) (Hash, error) {
	t, err := padded("hash", s, HashLength)
	return Hash(t), err
}

// HashFromTrits converts the first 243 trits of t.
func HashFromTrits(t trinary.Trits) Hash {
	return Hash(trinary.TritsToTrytes(t[:trinary.HashTrits]))
}

func (h Hash) Trits() trinary.Trits { return trinary.MustTrytesToTrits(trinary.Trytes(h)) }
func (h Hash) IsNull() bool         { return allNines(string(h)) }
func (h Hash) String() string       { return string(h) }

// Tag is a 27-tryte label attached to a transaction.
type Tag trinary.Trytes

// NewTag pads s to 27 trytes.
func NewTag(s string) (Tag, error) {
	t, err := padded("tag", s, TagLength)
	return Tag(t), err
}

func (t Tag) Trits() trinary.Trits { return trinary.MustTrytesToTrits(trinary.Trytes(t)) }
func (t Tag) IsEmpty() bool        { return allNines(string(t)) }
func (t Tag) String() string       { return string(t) }

// Nonce is the 27-tryte proof-of-work nonce.
type Nonce trinary.Trytes

// NewNonce pads s to 27 trytes.
func NewNonce(s string) (Nonce, error) {
	t, err := padded("nonce", s, NonceLength)
	return Nonce(t), err
}

// Fragment is one 2187-tryte signature or message fragment.
type Fragment trinary.Trytes

// NewFragment pads s to 2187 trytes.
func NewFragment(s string) (Fragment, error) {
	t, err := padded("fragment", s, FragmentLength)
	return Fragment(t), err
}

// FragmentFromTrits converts exactly 6561 trits.
func FragmentFromTrits(t trinary.Trits) (Fragment, error) {
	if len(t) != FragmentLength*trinary.TritsPerTryte {
		return "", fmt.Errorf("%w: fragment has %d trits", ErrInvalidLength, len(t))
	}
	return Fragment(trinary.TritsToTrytes(t)), nil
}

func (f Fragment) Trits() trinary.Trits { return trinary.MustTrytesToTrits(trinary.Trytes(f)) }
func (f Fragment) IsEmpty() bool        { return allNines(string(f)) }

// AddressChecksum is the 9-tryte suffix of a checksummed address.
type AddressChecksum trinary.Trytes

// NewAddressChecksum requires exactly 9 trytes.
func NewAddressChecksum(s string) (AddressChecksum, error) {
	t, err := exact("address checksum", s, AddressChecksumLength)
	return AddressChecksum(t), err
}

// TransactionTrytes is a complete serialized transaction.
type TransactionTrytes trinary.Trytes

// NewTransactionTrytes requires exactly 2673 trytes.
func NewTransactionTrytes(s string) (TransactionTrytes, error) {
	t, err := exact("transaction", s, TransactionTrytesLength)
	return TransactionTrytes(t), err
}

// Seed is the secret every key and address is derived from.
type Seed trinary.Trytes

// NewSeed pads s to 81 trytes. Longer seeds are accepted, but other wallets
// may derive different addresses from them, so a warning is logged.
func NewSeed(s string) (Seed, error) {
	if err := trinary.ValidTrytes(s); err != nil {
		return "", fmt.Errorf("invalid seed: %w", err)
	}
	if len(s) > SeedLength {
		log.Warn("seed is longer than 81 trytes", "length", len(s))
		return Seed(s), nil
	}
	return Seed(trinary.Pad(trinary.Trytes(s), SeedLength)), nil
}

// RandomSeed draws an 81-tryte seed from crypto/rand.
func RandomSeed() (Seed, error) {
	const alphabetSize = len(trinary.TryteAlphabet)
	// 243 is the largest multiple of 27 that fits in a byte; higher bytes
	// are rejected so every tryte is equally likely.
	const limit = 256 - 256%alphabetSize

	seed := make([]byte, 0, SeedLength)
	buf := make([]byte, SeedLength)
	for len(seed) < SeedLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit || len(seed) == SeedLength {
				continue
			}
			seed = append(seed, trinary.TryteAlphabet[int(b)%alphabetSize])
		}
	}
	return Seed(seed), nil
}

func (s Seed) Trits() trinary.Trits { return trinary.MustTrytesToTrits(trinary.Trytes(s)) }
