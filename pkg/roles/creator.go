// Package roles implements the bundle role pattern.
//
// Roles separate bundle construction into distinct responsibilities:
//   - Creator: Initializes an empty proposed bundle
//   - Constructor: Adds outputs, inputs and the change address
//   - Finalizer: Adds change, computes a secure bundle hash
//   - Signer: Writes signature fragments for inputs
//   - Combiner: Merges copies signed in parallel by multisig co-signers
//   - Extractor: Produces the final bundle and its tryte strings
//   - Validator: Checks a bundle received from the network
//
// Each role can be executed by different parties or at different times,
// enabling collaborative bundle construction. The proposed bundle moves
// through the phases open, finalized and signed, and never goes back.
package roles

import (
	"github.com/suffix-labs/iota-ternary/pkg/bundle"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// Creator initializes a base proposed bundle with no transactions.
//
// The Creator role sets up the bundle-wide settings that every
// transaction shares. It doesn't add any transactions - those are added
// by the Constructor role.
type Creator struct {
	timestamp     int64          // Overrides every transaction timestamp when non-zero
	changeAddress *types.Address // Receives unspent input value
}

// NewCreator creates a new Creator.
func NewCreator() *Creator {
	return &Creator{}
}

// WithTimestamp fixes the timestamp of every transaction added later.
//
// Without it each transaction is stamped with the time it was proposed.
func (c *Creator) WithTimestamp(ts int64) *Creator {
	c.timestamp = ts
	return c
}

// WithChangeAddress sets the address that receives unspent inputs.
func (c *Creator) WithChangeAddress(addr types.Address) *Creator {
	c.changeAddress = &addr
	return c
}

// Create creates the base proposed bundle.
//
// The bundle is open, so the Constructor can add anything to it.
func (c *Creator) Create() *bundle.ProposedBundle {
	return &bundle.ProposedBundle{
		Transactions:  []*bundle.ProposedTransaction{},
		ChangeAddress: c.changeAddress,
		Timestamp:     c.timestamp,
		Phase:         bundle.PhaseOpen,
	}
}
