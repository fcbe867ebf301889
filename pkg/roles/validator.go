package roles

import (
	"errors"
	"fmt"

	"github.com/suffix-labs/iota-ternary/pkg/bundle"
	"github.com/suffix-labs/iota-ternary/pkg/log"
	"github.com/suffix-labs/iota-ternary/pkg/metrics"
	"github.com/suffix-labs/iota-ternary/pkg/signing"
	"github.com/suffix-labs/iota-ternary/pkg/sponge"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// ErrEmptyBundle is returned by NewValidator for a bundle with no
// transactions.
var ErrEmptyBundle = errors.New("bundle has no transactions")

// Validator checks a bundle, typically one fetched from a node.
//
// Findings are collected rather than returned as errors, so a caller gets
// every problem at once and decides how severe each one is. Signatures are
// only checked once the structure is sound.
type Validator struct {
	bundle    *bundle.Bundle
	supported sponge.Factory
	legacy    sponge.Factory

	errors         []string
	acceptedLegacy bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithSupportedSponge sets the sponge signatures are checked with first.
// The default is Kerl.
func WithSupportedSponge(f sponge.Factory) ValidatorOption {
	return func(v *Validator) { v.supported = f }
}

// WithLegacySponge sets the fallback sponge for bundles signed before the
// switch to Kerl. The default is Curl; nil disables the fallback.
func WithLegacySponge(f sponge.Factory) ValidatorOption {
	return func(v *Validator) { v.legacy = f }
}

// NewValidator validates b.
func NewValidator(b *bundle.Bundle, opts ...ValidatorOption) (*Validator, error) {
	if b == nil || b.Len() == 0 {
		return nil, ErrEmptyBundle
	}

	v := &Validator{
		bundle:    b,
		supported: func() sponge.Sponge { return sponge.NewKerl() },
		legacy:    func() sponge.Sponge { return sponge.NewCurl() },
	}
	for _, opt := range opts {
		opt(v)
	}

	v.errors = v.validate()

	switch {
	case len(v.errors) > 0:
		metrics.Validations.WithLabelValues(metrics.ResultInvalid).Inc()
	case v.acceptedLegacy:
		metrics.Validations.WithLabelValues(metrics.ResultValidLegacy).Inc()
	default:
		metrics.Validations.WithLabelValues(metrics.ResultValid).Inc()
	}
	return v, nil
}

// Errors returns every finding, in bundle order. It is empty for a valid
// bundle.
func (v *Validator) Errors() []string {
	return append([]string(nil), v.errors...)
}

// IsValid reports whether there are no findings.
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// AcceptedLegacy reports whether the signatures only validated with the
// legacy sponge.
func (v *Validator) AcceptedLegacy() bool {
	return v.acceptedLegacy
}

func (v *Validator) validate() []string {
	var findings []string

	txs := v.bundle.Transactions
	hash := v.bundle.Hash()
	lastIndex := len(txs) - 1

	var balance int64
	for i, tx := range txs {
		balance += tx.Value

		if tx.BundleHash != hash {
			findings = append(findings, fmt.Sprintf("Transaction %d has invalid bundle hash.", i))
		}
		if tx.CurrentIndex != i {
			findings = append(findings, fmt.Sprintf(
				"Transaction %d has invalid current index value (expected %d, actual %d).",
				i, i, tx.CurrentIndex))
		}
		if tx.LastIndex != lastIndex {
			findings = append(findings, fmt.Sprintf(
				"Transaction %d has invalid last index value (expected %d, actual %d).",
				i, lastIndex, tx.LastIndex))
		}
	}
	if balance != 0 {
		findings = append(findings, fmt.Sprintf("Bundle has invalid balance (expected 0, actual %d).", balance))
	}

	// Signatures are meaningless if the bundle is otherwise broken.
	if len(findings) > 0 {
		return findings
	}

	var queue [][]*bundle.Transaction
	for _, group := range v.bundle.GroupTransactions() {
		if group[0].Value >= 0 {
			continue
		}

		ok := true
		for _, tx := range group[1:] {
			if tx.Value != 0 {
				findings = append(findings, fmt.Sprintf(
					"Transaction %d has invalid amount (expected 0, actual %d).",
					tx.CurrentIndex, tx.Value))
				ok = false
			}
		}
		if ok {
			queue = append(queue, group)
		}
	}

	return append(findings, v.signatureErrors(queue)...)
}

// signatureErrors checks every group with the supported sponge. If any
// fails, the bundle is still accepted when every group passes with the
// legacy sponge.
func (v *Validator) signatureErrors(groups [][]*bundle.Transaction) []string {
	var findings []string
	for _, group := range groups {
		if msg := groupSignatureError(group, v.supported); msg != "" {
			findings = append(findings, msg)
		}
	}
	if len(findings) == 0 || v.legacy == nil {
		return findings
	}

	for _, group := range groups {
		if groupSignatureError(group, v.legacy) != "" {
			return findings
		}
	}

	log.Info("bundle signatures validated with legacy sponge", "bundle", v.bundle.Hash())
	v.acceptedLegacy = true
	return nil
}

func groupSignatureError(group []*bundle.Transaction, f sponge.Factory) string {
	head := group[0]
	fragments := make([]types.Fragment, len(group))
	for i, tx := range group {
		fragments[i] = tx.SignatureMessageFragment
	}

	if signing.ValidateSignatureFragments(fragments, head.BundleHash, head.Address.Hash(), f) {
		return ""
	}
	return fmt.Sprintf("Transaction %d has invalid signature (using %d fragments).", head.CurrentIndex, len(fragments))
}
