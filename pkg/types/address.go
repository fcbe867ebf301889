package types

import (
	"fmt"

	"github.com/suffix-labs/iota-ternary/pkg/sponge"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
)

// Address is an 81-tryte public key hash.
//
// KeyIndex and SecurityLevel are only known for addresses derived locally
// from a seed; Balance is only known once a node has been asked. All three
// are nil otherwise.
type Address struct {
	Trytes        trinary.Trytes
	Checksum      AddressChecksum // empty when the address was given without one
	Balance       *int64
	KeyIndex      *int
	SecurityLevel *int
}

// NewAddress accepts 81 trytes, shorter input padded with '9', or 90 trytes
// whose last 9 are kept as the checksum without being verified.
func NewAddress(s string) (Address, error) {
	if err := trinary.ValidTrytes(s); err != nil {
		return Address{}, fmt.Errorf("invalid address: %w", err)
	}
	switch {
	case len(s) == HashLength+AddressChecksumLength:
		return Address{
			Trytes:   trinary.Trytes(s[:HashLength]),
			Checksum: AddressChecksum(s[HashLength:]),
		}, nil
	case len(s) <= HashLength:
		return Address{Trytes: trinary.Pad(trinary.Trytes(s), HashLength)}, nil
	default:
		return Address{}, fmt.Errorf("%w: address has %d trytes, expected %d or %d",
			ErrInvalidLength, len(s), HashLength, HashLength+AddressChecksumLength)
	}
}

// AddressFromTrits converts the first 243 trits of t.
func AddressFromTrits(t trinary.Trits) Address {
	return Address{Trytes: trinary.TritsToTrytes(t[:trinary.HashTrits])}
}

func (a Address) Trits() trinary.Trits { return trinary.MustTrytesToTrits(a.Trytes) }

// Hash returns the address body as a Hash.
func (a Address) Hash() Hash { return Hash(a.Trytes) }

// String returns the address with its checksum, if any.
func (a Address) String() string { return string(a.Trytes) + string(a.Checksum) }

// ComputeChecksum hashes the address body with Kerl and returns the last 9
// trytes of the result.
func (a Address) ComputeChecksum() AddressChecksum {
	out, err := sponge.Sum(func() sponge.Sponge { return sponge.NewKerl() }, a.Trits())
	if err != nil {
		// The address body is always a full hash length.
		panic(err)
	}
	tail := out[len(out)-AddressChecksumLength*trinary.TritsPerTryte:]
	return AddressChecksum(trinary.TritsToTrytes(tail))
}

// WithValidChecksum returns a copy carrying the correct checksum.
func (a Address) WithValidChecksum() Address {
	a.Checksum = a.ComputeChecksum()
	return a
}

// RemoveChecksum returns a copy without a checksum.
func (a Address) RemoveChecksum() Address {
	a.Checksum = ""
	return a
}

// IsChecksumValid reports whether a checksum is present and correct.
func (a Address) IsChecksumValid() bool {
	return a.Checksum != "" && a.Checksum == a.ComputeChecksum()
}

func (a Address) WithBalance(balance int64) Address {
	a.Balance = &balance
	return a
}

func (a Address) WithKeyIndex(index int) Address {
	a.KeyIndex = &index
	return a
}

func (a Address) WithSecurityLevel(level int) Address {
	a.SecurityLevel = &level
	return a
}

// Digest is the public half of a private key: one 81-tryte hash per
// security level.
type Digest struct {
	Trytes   trinary.Trytes
	KeyIndex *int
}

// NewDigest requires a non-empty multiple of 81 trytes.
func NewDigest(s string, keyIndex *int) (Digest, error) {
	if err := trinary.ValidTrytes(s); err != nil {
		return Digest{}, fmt.Errorf("invalid digest: %w", err)
	}
	if len(s) == 0 || len(s)%HashLength != 0 {
		return Digest{}, fmt.Errorf("%w: digest has %d trytes, expected a multiple of %d", ErrInvalidLength, len(s), HashLength)
	}
	return Digest{Trytes: trinary.Trytes(s), KeyIndex: keyIndex}, nil
}

func (d Digest) Trits() trinary.Trits { return trinary.MustTrytesToTrits(d.Trytes) }

// SecurityLevel is the number of key fragments the digest covers.
func (d Digest) SecurityLevel() int { return len(d.Trytes) / HashLength }

// MultisigAddress is an address built from several digests. Its security
// level is the sum of theirs, and spending from it needs one signature
// fragment per unit of that sum.
type MultisigAddress struct {
	Address
	Digests []Digest
}

// NewMultisigAddress records the digests and sets SecurityLevel to their sum.
func NewMultisigAddress(trytes trinary.Trytes, digests []Digest) MultisigAddress {
	total := 0
	for _, d := range digests {
		total += d.SecurityLevel()
	}
	return MultisigAddress{
		Address: Address{Trytes: trytes, SecurityLevel: &total},
		Digests: append([]Digest(nil), digests...),
	}
}
