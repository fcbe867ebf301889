package roles

import (
	"fmt"

	"github.com/suffix-labs/iota-ternary/pkg/bundle"
	"github.com/suffix-labs/iota-ternary/pkg/log"
	"github.com/suffix-labs/iota-ternary/pkg/metrics"
	"github.com/suffix-labs/iota-ternary/pkg/signing"
)

// Signer adds signature fragments to bundle inputs.
//
// The Signer role:
//   - Derives the private key of every input from the seed
//   - Signs the bundle hash one key fragment at a time
//   - Stores each signature fragment in its own transaction
//
// Multisig co-signers each call SignInputAt with their own key, at the
// offset where their fragments start. The Combiner role can then merge the
// copies together.
type Signer struct {
	bundle *bundle.ProposedBundle
}

// NewSigner creates a new Signer.
func NewSigner(b *bundle.ProposedBundle) *Signer {
	return &Signer{bundle: b}
}

// SignInputs signs every input of the bundle with keys derived by keys.
//
// Each input address must carry the key index and security level it was
// generated with. Transactions with a non-negative value are left
// untouched.
func (s *Signer) SignInputs(keys *signing.KeyGenerator) error {
	if err := s.checkFinalized(0); err != nil {
		return err
	}

	for i := 0; i < s.bundle.Len(); {
		tx := s.bundle.Transactions[i]
		if tx.Value >= 0 {
			i++
			continue
		}

		if tx.Address.KeyIndex == nil {
			return &bundle.SigningError{
				Code:             bundle.ErrMissingKeyIndex,
				TransactionIndex: i,
				Message:          fmt.Sprintf("input address %s has no key index", tx.Address.Trytes),
			}
		}
		if tx.Address.SecurityLevel == nil {
			return &bundle.SigningError{
				Code:             bundle.ErrMissingSecurityLevel,
				TransactionIndex: i,
				Message:          fmt.Sprintf("input address %s has no security level", tx.Address.Trytes),
			}
		}

		key, err := keys.GetKeyFor(tx.Address)
		if err != nil {
			return &bundle.SigningError{
				Code:             bundle.ErrInvalidInput,
				TransactionIndex: i,
				Message:          "failed to derive key",
				Cause:            err,
			}
		}
		if err := s.SignInputAt(i, key); err != nil {
			return err
		}
		i += *tx.Address.SecurityLevel
	}

	s.bundle.Phase = bundle.PhaseSigned
	return nil
}

// SignInputAt signs the input starting at transaction start with key.
//
// The key's security level decides how many transactions receive a
// fragment. A co-signer of a multisig input passes the index where their
// fragments start. When the last unsigned input is filled the bundle moves to the
// signed phase.
//
// Returns an error if:
//   - The bundle is not finalized
//   - A transaction index falls outside the bundle
//   - A transaction is not an input (positive value)
//   - A transaction already holds a fragment
func (s *Signer) SignInputAt(start int, key *signing.PrivateKey) error {
	if err := s.checkFinalized(start); err != nil {
		return err
	}

	gen := signing.NewSignatureFragmentGenerator(key, s.bundle.Hash()).WithOffset(s.inputOffset(start))
	for j := 0; j < gen.Len(); j++ {
		i := start + j
		if i < 0 || i >= s.bundle.Len() {
			return &bundle.SigningError{
				Code:             bundle.ErrIndexOutOfRange,
				TransactionIndex: i,
				Message:          fmt.Sprintf("bundle has no transaction at index %d for key with security level %d", i, key.SecurityLevel),
			}
		}

		tx := s.bundle.Transactions[i]
		if tx.Value > 0 {
			return &bundle.SigningError{
				Code:             bundle.ErrNotAnInput,
				TransactionIndex: i,
				Message:          fmt.Sprintf("attempting to sign non-input transaction (value=%d)", tx.Value),
			}
		}
		if !tx.SignatureMessageFragment.IsEmpty() {
			return &bundle.SigningError{
				Code:             bundle.ErrAlreadySigned,
				TransactionIndex: i,
				Message:          fmt.Sprintf("transaction already has a fragment (key security level %d)", key.SecurityLevel),
			}
		}

		fragment, ok := gen.Next()
		if !ok {
			return &bundle.SigningError{
				Code:             bundle.ErrInvalidInput,
				TransactionIndex: i,
				Message:          "failed to generate signature fragment",
				Cause:            gen.Err(),
			}
		}
		tx.SignatureMessageFragment = fragment
	}

	metrics.InputsSigned.Inc()
	log.Debug("signed bundle input", "index", start, "key_index", key.KeyIndex, "security_level", key.SecurityLevel)

	if allInputsSigned(s.bundle) {
		s.bundle.Phase = bundle.PhaseSigned
	}
	return nil
}

// Finish returns the signed bundle.
//
// The bundle can now be:
//   - Passed to the Combiner if several co-signers signed copies
//   - Passed to the Extractor
func (s *Signer) Finish() *bundle.ProposedBundle {
	return s.bundle
}

// inputOffset counts the transactions of the same input before start. It
// is non-zero for every multisig co-signer after the first.
func (s *Signer) inputOffset(start int) int {
	if start <= 0 || start >= s.bundle.Len() {
		return 0
	}

	addr := s.bundle.Transactions[start].Address.Trytes
	offset := 0
	for i := start; i > 0; i-- {
		tx, prev := s.bundle.Transactions[i], s.bundle.Transactions[i-1]
		if tx.Value != 0 || prev.Address.Trytes != addr {
			break
		}
		offset++
	}
	return offset
}

func (s *Signer) checkFinalized(index int) error {
	if s.bundle.Phase == bundle.PhaseOpen {
		return &bundle.SigningError{
			Code:             bundle.ErrNotFinalized,
			TransactionIndex: index,
			Message:          "bundle must be finalized before signing",
		}
	}
	return nil
}

// allInputsSigned reports whether every input transaction and its value-0
// continuations hold a fragment.
func allInputsSigned(b *bundle.ProposedBundle) bool {
	for i, tx := range b.Transactions {
		if tx.Value >= 0 {
			continue
		}
		for j := i; j < b.Len(); j++ {
			next := b.Transactions[j]
			if next.Address.Trytes != tx.Address.Trytes || (j > i && next.Value != 0) {
				break
			}
			if next.SignatureMessageFragment.IsEmpty() {
				return false
			}
		}
	}
	return true
}
