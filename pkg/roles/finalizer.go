package roles

import (
	"fmt"

	"github.com/suffix-labs/iota-ternary/pkg/bundle"
	"github.com/suffix-labs/iota-ternary/pkg/log"
	"github.com/suffix-labs/iota-ternary/pkg/metrics"
	"github.com/suffix-labs/iota-ternary/pkg/signing"
	"github.com/suffix-labs/iota-ternary/pkg/sponge"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// Finalizer locks a proposed bundle and computes its hash.
//
// The Finalizer role:
//   - Balances the bundle, sending unspent inputs to the change address
//   - Assigns current and last indices
//   - Computes a bundle hash that is safe to sign
//   - Copies the hash and the messages into every transaction
//
// After this role executes, the bundle structure is locked and ready for
// the Signer.
type Finalizer struct {
	bundle *bundle.ProposedBundle
}

// NewFinalizer creates a new Finalizer.
func NewFinalizer(b *bundle.ProposedBundle) *Finalizer {
	return &Finalizer{bundle: b}
}

// Finalize performs finalization.
//
// This:
//  1. Checks that the bundle is open and non-empty
//  2. Appends a change transaction if inputs exceed outputs
//  3. Hashes the transaction essences with Kerl
//  4. Increments the tail's legacy tag until the hash is secure
//  5. Sets the bundle hash and the signature/message fragments
//
// A hash is insecure when its normalized form contains 13: signing it
// would reveal an unhashed private key chunk. The tag is left alone so
// the user-visible tag never changes; only the legacy tag that feeds the
// essence moves.
//
// Returns an error before any hash is computed if the balance is not zero
// and cannot be made zero.
func (f *Finalizer) Finalize() error {
	b := f.bundle

	if b.Phase != bundle.PhaseOpen {
		return &bundle.FinalizationError{
			Code:    bundle.ErrAlreadyFinalized,
			Message: fmt.Sprintf("bundle is %s", b.Phase),
		}
	}
	if b.Len() == 0 {
		return &bundle.FinalizationError{
			Code:    bundle.ErrEmptyBundle,
			Message: "bundle has no transactions",
		}
	}

	balance := b.Balance()
	switch {
	case balance < 0 && b.ChangeAddress == nil:
		return &bundle.FinalizationError{
			Code:    bundle.ErrUnspentInputs,
			Message: fmt.Sprintf("bundle has unspent inputs (balance: %d); use SendUnspentInputsTo to set a change address", balance),
		}
	case balance < 0:
		change := bundle.NewProposedTransaction(*b.ChangeAddress, -balance, b.Tag(), "")
		if b.Timestamp != 0 {
			change.Timestamp = b.Timestamp
		}
		b.Transactions = append(b.Transactions, change)
	case balance > 0:
		return &bundle.FinalizationError{
			Code:    bundle.ErrInsufficientFunds,
			Message: fmt.Sprintf("inputs are insufficient to cover bundle spend (balance: %d)", balance),
		}
	}

	lastIndex := b.Len() - 1
	for i, tx := range b.Transactions {
		tx.CurrentIndex = i
		tx.LastIndex = lastIndex
	}

	hash, err := f.computeHash()
	if err != nil {
		return &bundle.FinalizationError{
			Code:    bundle.ErrInvalidInput,
			Message: "failed to compute bundle hash",
			Cause:   err,
		}
	}
	retries := 0
	for signing.IsInsecure(signing.Normalize(hash)) {
		b.Transactions[0].IncrementLegacyTag()
		retries++
		metrics.InsecureHashRetries.Inc()
		log.Debug("bundle hash is insecure, incrementing legacy tag", "hash", hash, "retry", retries)

		if hash, err = f.computeHash(); err != nil {
			return &bundle.FinalizationError{
				Code:    bundle.ErrInvalidInput,
				Message: "failed to compute bundle hash",
				Cause:   err,
			}
		}
	}

	for _, tx := range b.Transactions {
		tx.BundleHash = hash
		tx.SignatureMessageFragment = types.Fragment(trinary.Pad(tx.Message, types.FragmentLength))
	}
	b.Phase = bundle.PhaseFinalized
	metrics.BundlesFinalized.Inc()

	log.Debug("finalized bundle", "hash", hash, "transactions", b.Len(), "retries", retries)
	return nil
}

// computeHash absorbs every transaction essence and squeezes one hash.
func (f *Finalizer) computeHash() (types.BundleHash, error) {
	k := sponge.NewKerl()
	for _, tx := range f.bundle.Transactions {
		essence := tx.EssenceTrits()
		if err := k.Absorb(essence, 0, len(essence)); err != nil {
			return "", err
		}
	}

	out := make(trinary.Trits, sponge.HashLength)
	if err := k.Squeeze(out, 0, sponge.HashLength); err != nil {
		return "", err
	}
	return types.HashFromTrits(out), nil
}

// Finish returns the finalized bundle.
//
// The bundle is now ready for the Signer, or for the Extractor if it has
// no inputs.
func (f *Finalizer) Finish() *bundle.ProposedBundle {
	return f.bundle
}
