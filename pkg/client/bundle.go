package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/suffix-labs/iota-ternary/pkg/bundle"
	"github.com/suffix-labs/iota-ternary/pkg/log"
	"github.com/suffix-labs/iota-ternary/pkg/roles"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// InvalidBundleError is returned by GetBundle when the fetched bundle does
// not validate.
type InvalidBundleError struct {
	Hash     types.BundleHash
	Findings []string
}

func (e *InvalidBundleError) Error() string {
	return fmt.Sprintf("bundle %s is invalid: %s", e.Hash, strings.Join(e.Findings, " "))
}

// GetBundle fetches the bundle whose tail transaction is tail, following
// trunk links until the last index, and validates it.
func (c *Client) GetBundle(ctx context.Context, tail types.TransactionHash, opts ...roles.ValidatorOption) (*bundle.Bundle, error) {
	txs, err := c.traverseBundle(ctx, tail)
	if err != nil {
		return nil, err
	}

	b := bundle.NewBundle(txs)
	v, err := roles.NewValidator(b, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate bundle")
	}
	if !v.IsValid() {
		return nil, &InvalidBundleError{Hash: b.Hash(), Findings: v.Errors()}
	}
	return b, nil
}

func (c *Client) traverseBundle(ctx context.Context, tail types.TransactionHash) ([]*bundle.Transaction, error) {
	var (
		txs    []*bundle.Transaction
		target types.BundleHash
		next   = tail
	)

	for {
		trytes, err := c.GetTrytes(ctx, []types.TransactionHash{next})
		if err != nil {
			return nil, err
		}
		if strings.Trim(string(trytes[0]), "9") == "" {
			return nil, errors.Errorf("transaction %s is not visible to the node", next)
		}

		tx, err := bundle.ParseTransaction(trytes[0])
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse transaction %s", next)
		}

		if target == "" {
			if !tx.IsTail() {
				return nil, errors.Errorf("transaction %s is not a tail transaction (current index %d)", next, tx.CurrentIndex)
			}
			target = tx.BundleHash
		} else if tx.BundleHash != target {
			// The trunk left the bundle before the last index.
			log.Warn("bundle ended early", "bundle", target, "transactions", len(txs))
			return txs, nil
		}

		txs = append(txs, tx)
		if tx.CurrentIndex >= tx.LastIndex {
			return txs, nil
		}
		next = tx.TrunkTransactionHash
	}
}
