// Package bundle defines ledger transactions and the bundles that group
// them.
//
// A bundle is an ordered set of transactions that share one bundle hash.
// Outputs carry positive values, inputs negative values followed by
// zero-value transactions holding the rest of their signature, and the
// values of a valid bundle sum to zero.
package bundle

import (
	"github.com/suffix-labs/iota-ternary/pkg/sponge"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// Transaction is one entry of a bundle.
//
// Trunk, branch, attachment timestamps and nonce are filled by proof of
// work, which happens outside this module; they serialize as '9' when unset.
type Transaction struct {
	// Hash is the Curl hash of the serialized transaction. Empty until
	// computed or parsed.
	Hash types.TransactionHash

	SignatureMessageFragment types.Fragment
	Address                  types.Address
	Value                    int64
	Timestamp                int64
	CurrentIndex             int
	LastIndex                int
	BundleHash               types.BundleHash

	TrunkTransactionHash          types.TransactionHash
	BranchTransactionHash         types.TransactionHash
	AttachmentTimestamp           int64
	AttachmentTimestampLowerBound int64
	AttachmentTimestampUpperBound int64
	Nonce                         types.Nonce

	Tag types.Tag
	// LegacyTag is the tag hashed into the essence. It starts equal to Tag
	// and is only changed to avoid an insecure bundle hash.
	LegacyTag types.Tag
}

// IsTail reports whether t is the first transaction of its bundle.
func (t *Transaction) IsTail() bool {
	return t.CurrentIndex == 0
}

// EffectiveLegacyTag returns LegacyTag, or Tag when no legacy tag is set.
func (t *Transaction) EffectiveLegacyTag() types.Tag {
	if t.LegacyTag != "" {
		return t.LegacyTag
	}
	return t.Tag
}

// EssenceTrits returns the 486 trits that feed the bundle hash: address,
// value, legacy tag, timestamp, current index and last index.
func (t *Transaction) EssenceTrits() trinary.Trits {
	out := make(trinary.Trits, 0, EssenceLength)
	out = append(out, hashTrits(types.Hash(t.Address.Trytes))...)
	out = append(out, trinary.TritsFromInt(t.Value, valueTrits)...)
	out = append(out, tagTrits(t.EffectiveLegacyTag())...)
	out = append(out, trinary.TritsFromInt(t.Timestamp, timestampTrits)...)
	out = append(out, trinary.TritsFromInt(int64(t.CurrentIndex), timestampTrits)...)
	out = append(out, trinary.TritsFromInt(int64(t.LastIndex), timestampTrits)...)
	return out
}

// ComputeHash returns the Curl hash of the serialized transaction.
func (t *Transaction) ComputeHash() types.TransactionHash {
	trits := trinary.MustTrytesToTrits(trinary.Trytes(t.Trytes()))
	out, err := sponge.Sum(func() sponge.Sponge { return sponge.NewCurl() }, trits)
	if err != nil {
		// Serialized transactions always have a fixed, valid length.
		panic(err)
	}
	return types.HashFromTrits(out)
}

// Clone returns a copy of t.
func (t *Transaction) Clone() *Transaction {
	c := *t
	return &c
}
