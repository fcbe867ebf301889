package bundle

import (
	"time"

	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// Phase is the lifecycle stage of a proposed bundle. It only moves forward.
type Phase int

const (
	// PhaseOpen accepts new transactions and inputs.
	PhaseOpen Phase = iota
	// PhaseFinalized has a bundle hash; only signature fragments may change.
	PhaseFinalized
	// PhaseSigned has every local input signed.
	PhaseSigned
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseFinalized:
		return "finalized"
	case PhaseSigned:
		return "signed"
	default:
		return "unknown"
	}
}

// ProposedTransaction is a transaction under construction together with
// the message it should carry.
type ProposedTransaction struct {
	Transaction

	// Message is copied into the signature/message fragment on
	// finalization. Inputs leave it empty.
	Message trinary.Trytes
}

// NewProposedTransaction timestamps the transaction with the current time.
func NewProposedTransaction(addr types.Address, value int64, tag types.Tag, message trinary.Trytes) *ProposedTransaction {
	return &ProposedTransaction{
		Transaction: Transaction{
			Address:   addr,
			Value:     value,
			Tag:       tag,
			Timestamp: time.Now().Unix(),
		},
		Message: message,
	}
}

// IncrementLegacyTag adds one to the legacy tag, read as a little-endian
// balanced-ternary number. Finalization uses it to move to a new bundle
// hash without touching the user-visible tag.
func (t *ProposedTransaction) IncrementLegacyTag() {
	next := trinary.AddTrits(tagTrits(t.EffectiveLegacyTag()), trinary.Trits{1})
	t.LegacyTag = types.Tag(trinary.TritsToTrytes(next))
}

// ProposedBundle is a bundle being built by the roles pipeline.
type ProposedBundle struct {
	Transactions []*ProposedTransaction

	// ChangeAddress receives unspent input value on finalization.
	ChangeAddress *types.Address

	// Timestamp, when non-zero, overrides the timestamp of every
	// transaction added to the bundle.
	Timestamp int64

	Phase Phase
}

func (b *ProposedBundle) Len() int { return len(b.Transactions) }

// Balance is the sum of all transaction values. Negative means unspent
// inputs, positive means insufficient inputs.
func (b *ProposedBundle) Balance() int64 {
	var sum int64
	for _, tx := range b.Transactions {
		sum += tx.Value
	}
	return sum
}

// Tag returns the last non-empty tag in the bundle, or an empty tag.
func (b *ProposedBundle) Tag() types.Tag {
	for i := len(b.Transactions) - 1; i >= 0; i-- {
		if tag := b.Transactions[i].Tag; tag != "" && !tag.IsEmpty() {
			return tag
		}
	}
	return types.Tag(trinary.Pad("", types.TagLength))
}

// Hash returns the bundle hash once the bundle is finalized.
func (b *ProposedBundle) Hash() types.BundleHash {
	if b.Phase == PhaseOpen || len(b.Transactions) == 0 {
		return ""
	}
	return b.Transactions[0].BundleHash
}

// AsBundle copies the transactions into a read-only Bundle.
func (b *ProposedBundle) AsBundle() *Bundle {
	txs := make([]*Transaction, len(b.Transactions))
	for i, tx := range b.Transactions {
		txs[i] = tx.Transaction.Clone()
	}
	return NewBundle(txs)
}

// Clone returns a deep copy of b, for handing a finalized bundle to
// several co-signers.
func (b *ProposedBundle) Clone() *ProposedBundle {
	c := *b
	c.Transactions = make([]*ProposedTransaction, len(b.Transactions))
	for i, tx := range b.Transactions {
		cp := *tx
		c.Transactions[i] = &cp
	}
	if b.ChangeAddress != nil {
		addr := *b.ChangeAddress
		c.ChangeAddress = &addr
	}
	return &c
}
