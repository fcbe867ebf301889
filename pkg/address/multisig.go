package address

import (
	"errors"
	"fmt"

	"github.com/suffix-labs/iota-ternary/pkg/sponge"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// ErrNoDigests is returned when a multisig address is requested before any
// digest was added.
var ErrNoDigests = errors.New("multisig address needs at least one digest")

// MultisigBuilder combines digests from several signers into one address.
//
// Digests are absorbed into a single Kerl sponge in the order they are
// added, and that order must match the order in which the co-signers sign.
// The sponge is never reset: adding a digest after Address has been called
// continues from the squeezed state and yields a different address.
type MultisigBuilder struct {
	sponge  *sponge.Kerl
	digests []types.Digest
	cached  *types.MultisigAddress
}

func NewMultisigBuilder() *MultisigBuilder {
	return &MultisigBuilder{sponge: sponge.NewKerl()}
}

// AddDigest absorbs d.
func (b *MultisigBuilder) AddDigest(d types.Digest) error {
	trits, err := trinary.TrytesToTrits(d.Trytes)
	if err != nil {
		return fmt.Errorf("failed to decode digest: %w", err)
	}
	if err := b.sponge.Absorb(trits, 0, len(trits)); err != nil {
		return fmt.Errorf("failed to absorb digest: %w", err)
	}
	b.digests = append(b.digests, d)
	b.cached = nil
	return nil
}

// Digests returns the digests added so far, in order.
func (b *MultisigBuilder) Digests() []types.Digest {
	return append([]types.Digest(nil), b.digests...)
}

// Address squeezes the address for the digests added so far. Repeated calls
// without new digests return the same address.
func (b *MultisigBuilder) Address() (types.MultisigAddress, error) {
	if len(b.digests) == 0 {
		return types.MultisigAddress{}, ErrNoDigests
	}
	if b.cached != nil {
		return *b.cached, nil
	}

	out := make(trinary.Trits, sponge.HashLength)
	if err := b.sponge.Squeeze(out, 0, len(out)); err != nil {
		return types.MultisigAddress{}, fmt.Errorf("failed to squeeze address: %w", err)
	}

	addr := types.NewMultisigAddress(trinary.TritsToTrytes(out), b.digests)
	b.cached = &addr
	return addr, nil
}
