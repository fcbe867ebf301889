package roles

import (
	"fmt"

	"github.com/suffix-labs/iota-ternary/pkg/bundle"
	"github.com/suffix-labs/iota-ternary/pkg/log"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// Constructor adds transactions and inputs to a proposed bundle.
//
// The Constructor role:
//   - Adds outputs, splitting long messages over several transactions
//   - Adds inputs, reserving one transaction per signature fragment
//   - Adds a single multisig input
//   - Records the change address
//
// Every operation fails once the bundle has left the open phase.
type Constructor struct {
	bundle *bundle.ProposedBundle
}

// NewConstructor creates a new Constructor from an existing proposed bundle.
//
// The bundle should have been created by the Creator role.
func NewConstructor(b *bundle.ProposedBundle) *Constructor {
	return &Constructor{bundle: b}
}

// AddTransaction adds an output to the bundle.
//
// A message longer than one fragment is split into fragment-sized pieces;
// every piece after the first goes into a value-0 transaction with the
// same address, tag and timestamp. tx itself is not modified.
//
// Returns an error if:
//   - The bundle is already finalized
//   - The value is negative (use AddInputs for spends)
func (c *Constructor) AddTransaction(tx *bundle.ProposedTransaction) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if tx.Value < 0 {
		return &bundle.ProposalError{
			Code:    bundle.ErrInvalidInput,
			Message: fmt.Sprintf("transaction has negative value %d; use AddInputs to add inputs", tx.Value),
		}
	}

	timestamp := tx.Timestamp
	if c.bundle.Timestamp != 0 {
		timestamp = c.bundle.Timestamp
	}

	message := tx.Message
	first := *tx
	first.Timestamp = timestamp
	first.Message = head(message)
	c.bundle.Transactions = append(c.bundle.Transactions, &first)

	for rest := tail(message); rest != ""; rest = tail(rest) {
		c.bundle.Transactions = append(c.bundle.Transactions, &bundle.ProposedTransaction{
			Transaction: bundle.Transaction{
				Address:   tx.Address,
				Tag:       tx.Tag,
				Timestamp: timestamp,
			},
			Message: head(rest),
		})
	}

	return nil
}

// AddInputs adds addresses to spend.
//
// Each address must carry a balance, a key index and a security level. The
// full balance is spent; the Finalizer sends any surplus to the change
// address. An input with security level n occupies n transactions: one
// holding the negative value and n-1 value-0 transactions that will hold
// the rest of the signature.
func (c *Constructor) AddInputs(inputs []types.Address) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	for _, addr := range inputs {
		if addr.Balance == nil {
			return &bundle.ProposalError{
				Code:    bundle.ErrMissingBalance,
				Message: fmt.Sprintf("address %s has no balance; use WithBalance to set it", addr.Trytes),
			}
		}
		if addr.KeyIndex == nil {
			return &bundle.ProposalError{
				Code:    bundle.ErrMissingKeyIndex,
				Message: fmt.Sprintf("address %s has no key index; use WithKeyIndex to set it", addr.Trytes),
			}
		}
		if addr.SecurityLevel == nil || *addr.SecurityLevel < 1 {
			return &bundle.ProposalError{
				Code:    bundle.ErrMissingSecurityLevel,
				Message: fmt.Sprintf("address %s has no security level; use WithSecurityLevel to set it", addr.Trytes),
			}
		}
	}

	for _, addr := range inputs {
		c.addInput(addr, *addr.SecurityLevel)
	}
	return nil
}

// AddMultisigInput adds the single input of a multisig bundle.
//
// The address must carry a balance. Its security level is the sum of the
// security levels of its digests, so it reserves one transaction for each
// signature fragment of every co-signer.
func (c *Constructor) AddMultisigInput(input types.MultisigAddress) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	for _, tx := range c.bundle.Transactions {
		if tx.Value < 0 {
			return &bundle.ProposalError{
				Code:    bundle.ErrInvalidInput,
				Message: "multisig bundles can only have one input",
			}
		}
	}
	if input.Balance == nil {
		return &bundle.ProposalError{
			Code:    bundle.ErrMissingBalance,
			Message: fmt.Sprintf("multisig address %s has no balance; use WithBalance to set it", input.Trytes),
		}
	}

	security := 0
	for _, d := range input.Digests {
		security += d.SecurityLevel()
	}
	if security < 1 {
		return &bundle.ProposalError{
			Code:    bundle.ErrMissingSecurityLevel,
			Message: fmt.Sprintf("multisig address %s has no digests", input.Trytes),
		}
	}

	c.addInput(input.Address, security)
	return nil
}

// SendUnspentInputsTo sets the change address.
func (c *Constructor) SendUnspentInputsTo(addr types.Address) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.bundle.ChangeAddress = &addr
	return nil
}

// Finish returns the proposed bundle.
//
// The bundle is ready to be passed to the Finalizer.
func (c *Constructor) Finish() *bundle.ProposedBundle {
	return c.bundle
}

func (c *Constructor) addInput(addr types.Address, security int) {
	tag := c.bundle.Tag()
	timestamp := c.bundle.Timestamp

	for i := 0; i < security; i++ {
		tx := bundle.NewProposedTransaction(addr, 0, tag, "")
		if i == 0 {
			tx.Value = -*addr.Balance
		}
		if timestamp != 0 {
			tx.Timestamp = timestamp
		}
		c.bundle.Transactions = append(c.bundle.Transactions, tx)
	}

	log.Debug("added bundle input", "address", addr.Trytes, "value", -*addr.Balance, "security_level", security)
}

func (c *Constructor) checkOpen() error {
	if c.bundle.Phase != bundle.PhaseOpen {
		return &bundle.ProposalError{
			Code:    bundle.ErrAlreadyFinalized,
			Message: fmt.Sprintf("bundle is %s", c.bundle.Phase),
		}
	}
	return nil
}

func head(m trinary.Trytes) trinary.Trytes {
	if len(m) > types.FragmentLength {
		return m[:types.FragmentLength]
	}
	return m
}

func tail(m trinary.Trytes) trinary.Trytes {
	if len(m) > types.FragmentLength {
		return m[types.FragmentLength:]
	}
	return ""
}
