// Package api provides the high-level public API for bundle operations.
//
// This is the main entry point for applications using the iota-ternary
// library. It wraps the roles pipeline and the address and signing
// packages:
//
//  1. GenerateAddresses - Derives addresses from a seed
//  2. GetPrivateKeys - Derives private keys from a seed
//  3. GetDigests - Derives key digests for multisig addresses
//  4. CreateMultisigAddress - Combines digests into one address
//  5. PrepareTransfer - Builds, finalizes and signs a bundle
//  6. PrepareMultisigTransfer - Builds and finalizes an unsigned multisig bundle
//  7. SignMultisigInput - Adds one co-signer's signature fragments
//  8. CombineSignatures - Merges co-signed copies and extracts the bundle
//  9. ValidateBundleTrytes / GetBundleMessages - Inspect serialized bundles
package api

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/suffix-labs/iota-ternary/pkg/address"
	"github.com/suffix-labs/iota-ternary/pkg/bundle"
	"github.com/suffix-labs/iota-ternary/pkg/client"
	"github.com/suffix-labs/iota-ternary/pkg/log"
	"github.com/suffix-labs/iota-ternary/pkg/payreq"
	"github.com/suffix-labs/iota-ternary/pkg/roles"
	"github.com/suffix-labs/iota-ternary/pkg/signing"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// AddressOptions controls address and digest derivation.
type AddressOptions struct {
	Start         int  // First key index
	Count         int  // Number of addresses
	SecurityLevel int  // 1..3, 0 means address.DefaultSecurityLevel
	Checksum      bool // Attach the 9-tryte checksum
	Concurrency   int  // Worker goroutines, 0 means 1

	// OnProgress is called once per derived address, from a worker goroutine.
	OnProgress func()
}

func (o AddressOptions) securityLevel() int {
	if o.SecurityLevel == 0 {
		return address.DefaultSecurityLevel
	}
	return o.SecurityLevel
}

func (o AddressOptions) concurrency() int {
	if o.Concurrency < 1 {
		return 1
	}
	return o.Concurrency
}

// TransferProposal contains all outputs and inputs for a transfer.
type TransferProposal struct {
	Transfers []*bundle.ProposedTransaction

	// Inputs must carry balance, key index and security level.
	Inputs []types.Address

	// ChangeAddress receives unspent input value. When nil and the inputs
	// exceed the transfers, the seed's address after the highest input key
	// index is used.
	ChangeAddress *types.Address

	// Timestamp overrides every transaction timestamp when non-zero.
	Timestamp int64
}

// MultisigProposal contains the outputs and the single multisig input of a
// multisig transfer.
type MultisigProposal struct {
	Transfers []*bundle.ProposedTransaction

	// Input must carry its balance.
	Input types.MultisigAddress

	// ChangeAddress is required when the input balance exceeds the
	// transfers. It is never derived, since no single seed owns the input.
	ChangeAddress *types.Address

	Timestamp int64
}

// ============================================================================
// API Function 1: GenerateAddresses
// ============================================================================

// GenerateAddresses derives opts.Count addresses from seed, starting at
// opts.Start, with up to opts.Concurrency workers.
func GenerateAddresses(ctx context.Context, seed types.Seed, opts AddressOptions) ([]types.Address, error) {
	gen, err := address.NewGenerator(seed, opts.securityLevel(), opts.Checksum)
	if err != nil {
		return nil, fmt.Errorf("invalid address options: %w", err)
	}

	addrs, err := gen.GetAddressesContext(ctx, opts.Start, opts.Count, 1, opts.concurrency(), opts.OnProgress)
	if err != nil {
		return nil, fmt.Errorf("address generation failed: %w", err)
	}
	return addrs, nil
}

// ============================================================================
// API Function 2: GetPrivateKeys
// ============================================================================

// GetPrivateKeys derives count private keys from seed, starting at start.
func GetPrivateKeys(seed types.Seed, start, count, securityLevel int) ([]*signing.PrivateKey, error) {
	keys, err := signing.NewKeyGenerator(seed).GetKeys(start, count, 1, securityLevel)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return keys, nil
}

// ============================================================================
// API Function 3: GetDigests
// ============================================================================

// GetDigests derives the digests of opts.Count keys. Each co-signer of a
// multisig address shares digests instead of addresses.
//
// Digests are computed by up to opts.Concurrency workers and keep index
// order.
func GetDigests(ctx context.Context, seed types.Seed, opts AddressOptions) ([]types.Digest, error) {
	keys, err := GetPrivateKeys(seed, opts.Start, opts.Count, opts.securityLevel())
	if err != nil {
		return nil, err
	}

	digests := make([]types.Digest, len(keys))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.concurrency())

	for i, key := range keys {
		i, key := i, key
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			d, err := key.Digest()
			if err != nil {
				return fmt.Errorf("failed to compute digest %d: %w", key.KeyIndex, err)
			}
			digests[i] = d
			if opts.OnProgress != nil {
				opts.OnProgress()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return digests, nil
}

// ============================================================================
// API Function 4: CreateMultisigAddress
// ============================================================================

// CreateMultisigAddress combines digests into a multisig address. The
// digest order is the order in which co-signers must sign.
func CreateMultisigAddress(digests []types.Digest) (types.MultisigAddress, error) {
	builder := address.NewMultisigBuilder()
	for i, d := range digests {
		if err := builder.AddDigest(d); err != nil {
			return types.MultisigAddress{}, fmt.Errorf("invalid digest %d: %w", i, err)
		}
	}
	return builder.Address()
}

// ============================================================================
// API Function 5: PrepareTransfer
// ============================================================================

// PrepareTransfer builds a signed bundle from a proposal.
//
// This function:
//  1. Creates a bundle using the Creator role
//  2. Adds transfers and inputs using the Constructor role
//  3. Computes the bundle hash using the Finalizer role
//  4. Signs every input using the Signer role
//  5. Serializes the bundle using the Extractor role
//
// The result is in attachment order: head first, tail last.
func PrepareTransfer(seed types.Seed, proposal *TransferProposal) ([]types.TransactionTrytes, error) {
	// Step 1: Creator - Initialize bundle
	b := newCreator(proposal.Timestamp, proposal.ChangeAddress).Create()

	// Step 2: Constructor - Add transfers and inputs
	constructor := roles.NewConstructor(b)
	if err := addTransfers(constructor, proposal.Transfers); err != nil {
		return nil, err
	}

	if len(proposal.Inputs) > 0 {
		if err := constructor.AddInputs(proposal.Inputs); err != nil {
			return nil, fmt.Errorf("failed to add inputs: %w", err)
		}
	}

	b = constructor.Finish()
	if b.Balance() < 0 && b.ChangeAddress == nil {
		change, err := defaultChangeAddress(seed, proposal.Inputs)
		if err != nil {
			return nil, err
		}
		log.Debug("using derived change address", "address", change.Trytes, "key_index", *change.KeyIndex)
		if err := constructor.SendUnspentInputsTo(change); err != nil {
			return nil, fmt.Errorf("failed to set change address: %w", err)
		}
	}

	// Step 3: Finalizer - Compute bundle hash
	finalizer := roles.NewFinalizer(b)
	if err := finalizer.Finalize(); err != nil {
		return nil, fmt.Errorf("finalization failed: %w", err)
	}
	b = finalizer.Finish()

	// Step 4: Signer - Sign inputs
	signer := roles.NewSigner(b)
	if err := signer.SignInputs(signing.NewKeyGenerator(seed)); err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}
	b = signer.Finish()

	// Step 5: Extractor - Serialize
	trytes, err := roles.NewExtractor(b).TryteStrings()
	if err != nil {
		return nil, fmt.Errorf("bundle extraction failed: %w", err)
	}
	return trytes, nil
}

// ============================================================================
// API Function 6: PrepareMultisigTransfer
// ============================================================================

// PrepareMultisigTransfer builds and finalizes a bundle spending a multisig
// address. The bundle is returned unsigned; hand a Clone to every co-signer
// and merge their copies with CombineSignatures.
func PrepareMultisigTransfer(proposal *MultisigProposal) (*bundle.ProposedBundle, error) {
	// Step 1: Creator - Initialize bundle
	b := newCreator(proposal.Timestamp, proposal.ChangeAddress).Create()

	// Step 2: Constructor - Add transfers and the multisig input
	constructor := roles.NewConstructor(b)
	if err := addTransfers(constructor, proposal.Transfers); err != nil {
		return nil, err
	}
	if err := constructor.AddMultisigInput(proposal.Input); err != nil {
		return nil, fmt.Errorf("failed to add multisig input: %w", err)
	}

	// Step 3: Finalizer - Compute bundle hash
	finalizer := roles.NewFinalizer(constructor.Finish())
	if err := finalizer.Finalize(); err != nil {
		return nil, fmt.Errorf("finalization failed: %w", err)
	}
	return finalizer.Finish(), nil
}

// ============================================================================
// API Function 7: SignMultisigInput
// ============================================================================

// SignMultisigInput signs the fragments of one co-signer's key into b,
// starting at transaction index start.
//
// Co-signers sign in the digest order of the multisig address: the first
// signs at the input's first transaction, the next where the first
// signer's fragments end, and so on.
func SignMultisigInput(b *bundle.ProposedBundle, seed types.Seed, keyIndex, securityLevel, start int) error {
	key, err := signing.NewKeyGenerator(seed).GetKey(keyIndex, securityLevel)
	if err != nil {
		return fmt.Errorf("key derivation failed: %w", err)
	}

	if err := roles.NewSigner(b).SignInputAt(start, key); err != nil {
		return fmt.Errorf("signing failed: %w", err)
	}
	return nil
}

// ============================================================================
// API Function 8: CombineSignatures
// ============================================================================

// CombineSignatures merges co-signed copies of one bundle and serializes
// the result, head first.
func CombineSignatures(bundles []*bundle.ProposedBundle) ([]types.TransactionTrytes, error) {
	combined, err := roles.NewCombiner(bundles).Combine()
	if err != nil {
		return nil, fmt.Errorf("combine failed: %w", err)
	}

	trytes, err := roles.NewExtractor(combined).TryteStrings()
	if err != nil {
		return nil, fmt.Errorf("bundle extraction failed: %w", err)
	}
	return trytes, nil
}

// ============================================================================
// API Functions 9a & 9b: ValidateBundleTrytes / GetBundleMessages
// ============================================================================

// ValidateBundleTrytes parses a serialized bundle, in any order, and
// returns the validator findings. An empty slice means the bundle is valid.
func ValidateBundleTrytes(trytes []types.TransactionTrytes, opts ...roles.ValidatorOption) ([]string, error) {
	b, err := bundle.ParseBundle(trytes)
	if err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}

	v, err := roles.NewValidator(b, opts...)
	if err != nil {
		return nil, err
	}
	return v.Errors(), nil
}

// GetBundleMessages decodes the text messages carried by a serialized
// bundle.
func GetBundleMessages(trytes []types.TransactionTrytes, policy trinary.ErrorPolicy) ([]string, error) {
	b, err := bundle.ParseBundle(trytes)
	if err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}
	return b.Messages(policy)
}

// ============================================================================
// Node helpers
// ============================================================================

const confirmationThreshold = 100

// FetchBalances returns inputs with the confirmed balance reported by the
// node attached. Addresses with a zero balance are dropped.
func FetchBalances(ctx context.Context, node *client.Client, inputs []types.Address) ([]types.Address, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	balances, err := node.GetBalances(ctx, inputs, confirmationThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balances: %w", err)
	}
	out := make([]types.Address, 0, len(inputs))
	for i, addr := range inputs {
		if balances[i] == 0 {
			log.Debug("skipping empty input", "address", addr.Trytes)
			continue
		}
		out = append(out, addr.WithBalance(balances[i]))
	}
	return out, nil
}

// ParsePaymentRequest parses an iota: payment request URI.
//
// This is a convenience function that wraps the payreq package.
func ParsePaymentRequest(uri string) (*payreq.PaymentRequest, error) {
	return payreq.Parse(uri)
}

// ============================================================================
// Helper functions
// ============================================================================

func newCreator(timestamp int64, change *types.Address) *roles.Creator {
	creator := roles.NewCreator()
	if timestamp != 0 {
		creator.WithTimestamp(timestamp)
	}
	if change != nil {
		creator.WithChangeAddress(*change)
	}
	return creator
}

func addTransfers(c *roles.Constructor, transfers []*bundle.ProposedTransaction) error {
	for i, tx := range transfers {
		if err := c.AddTransaction(tx); err != nil {
			return fmt.Errorf("failed to add transfer %d: %w", i, err)
		}
	}
	return nil
}

// defaultChangeAddress derives the address after the highest input key
// index, at the security level of that input.
func defaultChangeAddress(seed types.Seed, inputs []types.Address) (types.Address, error) {
	var highest *types.Address
	for i := range inputs {
		in := &inputs[i]
		if in.KeyIndex == nil {
			continue
		}
		if highest == nil || *in.KeyIndex > *highest.KeyIndex {
			highest = in
		}
	}
	if highest == nil {
		return types.Address{}, fmt.Errorf("no change address given and no input key index to derive one from")
	}

	security := address.DefaultSecurityLevel
	if highest.SecurityLevel != nil {
		security = *highest.SecurityLevel
	}

	gen, err := address.NewGenerator(seed, security, false)
	if err != nil {
		return types.Address{}, err
	}
	addrs, err := gen.GetAddresses(*highest.KeyIndex+1, 1, 1)
	if err != nil {
		return types.Address{}, fmt.Errorf("failed to derive change address: %w", err)
	}
	return addrs[0], nil
}
