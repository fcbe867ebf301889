package roles

import (
	"fmt"

	"github.com/suffix-labs/iota-ternary/pkg/bundle"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// Combiner merges multiple copies of a finalized bundle into one.
//
// The Combiner role enables parallel multisig signing:
//   - The bundle is finalized once and copied to every co-signer
//   - Each co-signer signs their own slice of the input with SignInputAt
//   - The Combiner merges the fragments of every copy
//
// Copies must agree on everything except which fragments are filled in.
type Combiner struct {
	bundles []*bundle.ProposedBundle
}

// NewCombiner creates a new Combiner.
//
// Parameters:
//   - bundles: Copies of one finalized bundle (must share the bundle hash)
func NewCombiner(bundles []*bundle.ProposedBundle) *Combiner {
	return &Combiner{bundles: bundles}
}

// Combine merges all copies into the first one and returns it.
//
// Every copy is checked before the first one is written, so a failed
// combine leaves all copies as they were.
//
// Returns an error if:
//   - No copies are given
//   - A copy is not finalized or describes a different bundle
//   - Two copies hold different fragments for the same transaction
func (c *Combiner) Combine() (*bundle.ProposedBundle, error) {
	if len(c.bundles) == 0 {
		return nil, &bundle.CombineError{
			Code:    bundle.ErrInvalidInput,
			Message: "no bundles to combine",
		}
	}

	// Use first bundle as base
	result := c.bundles[0]
	if result.Phase == bundle.PhaseOpen {
		return nil, &bundle.CombineError{
			Code:    bundle.ErrNotFinalized,
			Message: "bundle 0 is not finalized",
		}
	}

	fragments := make([]types.Fragment, result.Len())
	for i, tx := range result.Transactions {
		fragments[i] = tx.SignatureMessageFragment
	}
	for i := 1; i < len(c.bundles); i++ {
		if err := c.mergeInto(fragments, result, c.bundles[i]); err != nil {
			return nil, fmt.Errorf("failed to merge bundle %d: %w", i, err)
		}
	}

	for i, tx := range result.Transactions {
		tx.SignatureMessageFragment = fragments[i]
	}
	if allInputsSigned(result) {
		result.Phase = bundle.PhaseSigned
	}
	return result, nil
}

// mergeInto copies the fragments src has and fragments lacks.
func (c *Combiner) mergeInto(fragments []types.Fragment, base, src *bundle.ProposedBundle) error {
	if err := c.validateCompatible(base, src); err != nil {
		return err
	}

	for i, srcTx := range src.Transactions {
		if srcTx.SignatureMessageFragment.IsEmpty() {
			continue
		}
		if fragments[i].IsEmpty() {
			fragments[i] = srcTx.SignatureMessageFragment
			continue
		}
		if fragments[i] != srcTx.SignatureMessageFragment {
			return &bundle.CombineError{
				Code:    bundle.ErrConflictingData,
				Message: fmt.Sprintf("transaction %d has conflicting fragments", i),
			}
		}
	}
	return nil
}

// validateCompatible checks that two copies represent the same bundle.
//
// Copies are compatible if they have:
//   - The same bundle hash
//   - The same number of transactions
//   - The same address and value at every index
func (c *Combiner) validateCompatible(a, b *bundle.ProposedBundle) error {
	if b.Phase == bundle.PhaseOpen {
		return &bundle.CombineError{
			Code:    bundle.ErrNotFinalized,
			Message: "bundle is not finalized",
		}
	}

	if a.Hash() != b.Hash() {
		return &bundle.CombineError{
			Code:    bundle.ErrConflictingData,
			Message: fmt.Sprintf("incompatible bundle hashes: %s != %s", a.Hash(), b.Hash()),
		}
	}

	if a.Len() != b.Len() {
		return &bundle.CombineError{
			Code:    bundle.ErrConflictingData,
			Message: fmt.Sprintf("incompatible transaction counts: %d != %d", a.Len(), b.Len()),
		}
	}

	for i := range a.Transactions {
		ta, tb := a.Transactions[i], b.Transactions[i]
		if ta.Address.Trytes != tb.Address.Trytes || ta.Value != tb.Value {
			return &bundle.CombineError{
				Code:    bundle.ErrConflictingData,
				Message: fmt.Sprintf("transaction %d has a different address or value", i),
			}
		}
	}

	return nil
}
