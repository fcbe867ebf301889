package roles

import (
	"fmt"

	"github.com/suffix-labs/iota-ternary/pkg/bundle"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// Extractor extracts the final bundle from a finalized proposed bundle.
//
// The Extractor role:
//   - Verifies the bundle is finalized
//   - Copies the transactions into a read-only Bundle
//   - Serializes them in the order nodes expect for attachment
//
// Trunk, branch, attachment timestamps and nonce stay unset; proof of work
// fills them after extraction.
type Extractor struct {
	bundle *bundle.ProposedBundle
}

// NewExtractor creates a new Extractor.
func NewExtractor(b *bundle.ProposedBundle) *Extractor {
	return &Extractor{bundle: b}
}

// Extract returns the bundle with every transaction hash computed.
//
// A finalized bundle with unsigned inputs can still be extracted, for
// example to hand it to an external signer.
func (e *Extractor) Extract() (*bundle.Bundle, error) {
	if e.bundle.Phase == bundle.PhaseOpen {
		return nil, &bundle.FinalizationError{
			Code:    bundle.ErrNotFinalized,
			Message: "bundle must be finalized before extraction",
		}
	}

	b := e.bundle.AsBundle()
	for _, tx := range b.Transactions {
		tx.Hash = tx.ComputeHash()
	}
	return b, nil
}

// TryteStrings serializes the bundle head first, tail last.
func (e *Extractor) TryteStrings() ([]types.TransactionTrytes, error) {
	b, err := e.Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to extract bundle: %w", err)
	}
	return b.TryteStrings(true), nil
}
