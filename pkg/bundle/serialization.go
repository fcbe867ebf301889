// Package bundle serialization implements the 2673-tryte transaction format.
//
//	Field                        Offset (trytes)   Encoding
//	signature_message_fragment   0     .. 2187     trytes
//	address                      2187  .. 2268     trytes
//	value                        2268  .. 2295     81 trits, signed
//	legacy_tag                   2295  .. 2322     trytes
//	timestamp                    2322  .. 2331     27 trits
//	current_index                2331  .. 2340     27 trits
//	last_index                   2340  .. 2349     27 trits
//	bundle_hash                  2349  .. 2430     trytes
//	trunk_transaction_hash       2430  .. 2511     trytes
//	branch_transaction_hash      2511  .. 2592     trytes
//	tag                          2592  .. 2619     trytes
//	attachment_timestamp         2619  .. 2628     27 trits
//	attachment_timestamp_lower   2628  .. 2637     27 trits
//	attachment_timestamp_upper   2637  .. 2646     27 trits
//	nonce                        2646  .. 2673     trytes
//
// Integers are little-endian balanced ternary.
package bundle

import (
	"fmt"
	"strings"

	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

const (
	valueTrits     = 81
	timestampTrits = 27

	// EssenceLength is the number of trits each transaction contributes to
	// the bundle hash.
	EssenceLength = 486

	// TransactionTrits is the serialized transaction length in trits.
	TransactionTrits = types.TransactionTrytesLength * trinary.TritsPerTryte
)

// field offsets in trytes
const (
	offAddress         = 2187
	offValue           = 2268
	offLegacyTag       = 2295
	offTimestamp       = 2322
	offCurrentIndex    = 2331
	offLastIndex       = 2340
	offBundleHash      = 2349
	offTrunk           = 2430
	offBranch          = 2511
	offTag             = 2592
	offAttachment      = 2619
	offAttachmentLower = 2628
	offAttachmentUpper = 2637
	offNonce           = 2646
	offEnd             = types.TransactionTrytesLength
)

// Trytes serializes t. Unset hashes, tags and nonce become '9'.
func (t *Transaction) Trytes() types.TransactionTrytes {
	var sb strings.Builder
	sb.Grow(types.TransactionTrytesLength)

	sb.WriteString(fixed(string(t.SignatureMessageFragment), types.FragmentLength))
	sb.WriteString(fixed(string(t.Address.Trytes), types.HashLength))
	sb.WriteString(intTrytes(t.Value, valueTrits))
	sb.WriteString(fixed(string(t.EffectiveLegacyTag()), types.TagLength))
	sb.WriteString(intTrytes(t.Timestamp, timestampTrits))
	sb.WriteString(intTrytes(int64(t.CurrentIndex), timestampTrits))
	sb.WriteString(intTrytes(int64(t.LastIndex), timestampTrits))
	sb.WriteString(fixed(string(t.BundleHash), types.HashLength))
	sb.WriteString(fixed(string(t.TrunkTransactionHash), types.HashLength))
	sb.WriteString(fixed(string(t.BranchTransactionHash), types.HashLength))
	sb.WriteString(fixed(string(t.Tag), types.TagLength))
	sb.WriteString(intTrytes(t.AttachmentTimestamp, timestampTrits))
	sb.WriteString(intTrytes(t.AttachmentTimestampLowerBound, timestampTrits))
	sb.WriteString(intTrytes(t.AttachmentTimestampUpperBound, timestampTrits))
	sb.WriteString(fixed(string(t.Nonce), types.NonceLength))

	return types.TransactionTrytes(sb.String())
}

// ParseTransaction decodes 2673 trytes and computes the transaction hash.
func ParseTransaction(trytes types.TransactionTrytes) (*Transaction, error) {
	s := string(trytes)
	if len(s) != types.TransactionTrytesLength {
		return nil, &ParseError{
			Message: fmt.Sprintf("transaction has %d trytes, expected %d", len(s), types.TransactionTrytesLength),
			Cause:   types.ErrInvalidLength,
		}
	}
	if err := trinary.ValidTrytes(s); err != nil {
		return nil, &ParseError{Message: "invalid transaction trytes", Cause: err}
	}

	value, err := decodeInt(s[offValue:offLegacyTag])
	if err != nil {
		return nil, &ParseError{Message: "invalid value", Cause: err}
	}

	tx := &Transaction{
		SignatureMessageFragment:      types.Fragment(s[:offAddress]),
		Address:                       types.Address{Trytes: trinary.Trytes(s[offAddress:offValue])},
		Value:                         value,
		LegacyTag:                     types.Tag(s[offLegacyTag:offTimestamp]),
		Timestamp:                     smallInt(s[offTimestamp:offCurrentIndex]),
		CurrentIndex:                  int(smallInt(s[offCurrentIndex:offLastIndex])),
		LastIndex:                     int(smallInt(s[offLastIndex:offBundleHash])),
		BundleHash:                    types.BundleHash(s[offBundleHash:offTrunk]),
		TrunkTransactionHash:          types.TransactionHash(s[offTrunk:offBranch]),
		BranchTransactionHash:         types.TransactionHash(s[offBranch:offTag]),
		Tag:                           types.Tag(s[offTag:offAttachment]),
		AttachmentTimestamp:           smallInt(s[offAttachment:offAttachmentLower]),
		AttachmentTimestampLowerBound: smallInt(s[offAttachmentLower:offAttachmentUpper]),
		AttachmentTimestampUpperBound: smallInt(s[offAttachmentUpper:offNonce]),
		Nonce:                         types.Nonce(s[offNonce:offEnd]),
	}
	tx.Hash = tx.ComputeHash()
	return tx, nil
}

func fixed(s string, n int) string {
	return string(trinary.Pad(trinary.Trytes(s), n))
}

func hashTrits(h types.Hash) trinary.Trits {
	return trinary.MustTrytesToTrits(trinary.Pad(trinary.Trytes(h), types.HashLength))
}

func tagTrits(t types.Tag) trinary.Trits {
	return trinary.MustTrytesToTrits(trinary.Pad(trinary.Trytes(t), types.TagLength))
}

func intTrytes(n int64, trits int) string {
	return string(trinary.TritsToTrytes(trinary.TritsFromInt(n, trits)))
}

// smallInt decodes a 27-trit field, which always fits in an int64.
func smallInt(s string) int64 {
	return trinary.IntFromTrits(trinary.MustTrytesToTrits(trinary.Trytes(s)))
}

// decodeInt decodes the 81-trit value field, which can exceed int64.
func decodeInt(s string) (int64, error) {
	n := trinary.BigIntFromTrits(trinary.MustTrytesToTrits(trinary.Trytes(s)))
	if !n.IsInt64() {
		return 0, fmt.Errorf("value %s overflows int64", n)
	}
	return n.Int64(), nil
}
