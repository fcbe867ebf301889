package bundle

import (
	"fmt"
	"sort"

	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// MessageDrop decodes message fragments strictly and silently skips groups
// that fail to decode.
const MessageDrop trinary.ErrorPolicy = -1

// ParseMessagePolicy accepts "drop" in addition to the trinary policies.
func ParseMessagePolicy(s string) (trinary.ErrorPolicy, error) {
	if s == "drop" {
		return MessageDrop, nil
	}
	return trinary.ParseErrorPolicy(s)
}

// Bundle is a set of transactions, ordered by current index, that share a
// bundle hash. It is read-only; use ProposedBundle to build one.
type Bundle struct {
	Transactions []*Transaction
}

// NewBundle sorts txs by current index.
func NewBundle(txs []*Transaction) *Bundle {
	sorted := append([]*Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CurrentIndex < sorted[j].CurrentIndex
	})
	return &Bundle{Transactions: sorted}
}

// ParseBundle decodes every transaction and sorts them by current index.
func ParseBundle(trytes []types.TransactionTrytes) (*Bundle, error) {
	txs := make([]*Transaction, 0, len(trytes))
	for i, t := range trytes {
		tx, err := ParseTransaction(t)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return NewBundle(txs), nil
}

func (b *Bundle) Len() int { return len(b.Transactions) }

// Tail returns the transaction at index 0, or nil for an empty bundle.
func (b *Bundle) Tail() *Transaction {
	if len(b.Transactions) == 0 {
		return nil
	}
	return b.Transactions[0]
}

// Hash returns the tail's bundle hash, or the empty hash for an empty bundle.
func (b *Bundle) Hash() types.BundleHash {
	if tail := b.Tail(); tail != nil {
		return tail.BundleHash
	}
	return ""
}

// GroupTransactions splits the bundle into runs of consecutive transactions
// sharing an address. An input and its signature continuation form one
// group, as do the pieces of a long message.
func (b *Bundle) GroupTransactions() [][]*Transaction {
	var groups [][]*Transaction
	var current []*Transaction

	for _, tx := range b.Transactions {
		if len(current) > 0 && current[len(current)-1].Address.Trytes != tx.Address.Trytes {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, tx)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// Messages decodes the fragments of every group that is not an input.
//
// Groups whose fragments are all '9' are skipped. With MessageDrop, groups
// that do not decode are skipped too; other policies are passed to
// trinary.DecodeString, and a strict decode failure is returned.
func (b *Bundle) Messages(policy trinary.ErrorPolicy) ([]string, error) {
	decodePolicy := policy
	if policy == MessageDrop {
		decodePolicy = trinary.Strict
	}

	var messages []string
	for _, group := range b.GroupTransactions() {
		if group[0].Value < 0 {
			continue
		}

		var raw trinary.Trytes
		for _, tx := range group {
			raw += trinary.Trytes(tx.SignatureMessageFragment)
		}
		if types.Fragment(raw).IsEmpty() {
			continue
		}

		msg, err := trinary.DecodeString(raw, decodePolicy)
		if err != nil {
			if policy == MessageDrop {
				continue
			}
			return nil, fmt.Errorf("failed to decode message at transaction %d: %w", group[0].CurrentIndex, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// TryteStrings serializes the transactions. With headFirst the last index
// comes first and the tail last, which is the order nodes expect for
// attachment; otherwise transactions are in index order.
func (b *Bundle) TryteStrings(headFirst bool) []types.TransactionTrytes {
	out := make([]types.TransactionTrytes, len(b.Transactions))
	for i, tx := range b.Transactions {
		if headFirst {
			out[len(out)-1-i] = tx.Trytes()
		} else {
			out[i] = tx.Trytes()
		}
	}
	return out
}
