// Package address derives ledger addresses from seeds and digests.
package address

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/suffix-labs/iota-ternary/pkg/metrics"
	"github.com/suffix-labs/iota-ternary/pkg/signing"
	"github.com/suffix-labs/iota-ternary/pkg/sponge"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// DefaultSecurityLevel is used when callers do not choose one.
const DefaultSecurityLevel = 2

// FromDigest hashes a digest into an address with a fresh Kerl sponge.
//
// The address inherits the digest's key index and security level.
func FromDigest(d types.Digest) (types.Address, error) {
	trits, err := trinary.TrytesToTrits(d.Trytes)
	if err != nil {
		return types.Address{}, fmt.Errorf("failed to decode digest: %w", err)
	}
	out, err := sponge.Sum(func() sponge.Sponge { return sponge.NewKerl() }, trits)
	if err != nil {
		return types.Address{}, fmt.Errorf("failed to hash digest: %w", err)
	}

	addr := types.AddressFromTrits(out)
	if d.KeyIndex != nil {
		addr = addr.WithKeyIndex(*d.KeyIndex)
	}
	return addr.WithSecurityLevel(d.SecurityLevel()), nil
}

// Generator derives addresses for one seed at a fixed security level.
type Generator struct {
	keys          *signing.KeyGenerator
	securityLevel int
	checksum      bool
}

// NewGenerator validates the security level and returns a generator. When
// checksum is true every address carries its checksum.
func NewGenerator(seed types.Seed, securityLevel int, checksum bool) (*Generator, error) {
	if securityLevel < 1 {
		return nil, fmt.Errorf("security level must be at least 1, got %d", securityLevel)
	}
	return &Generator{
		keys:          signing.NewKeyGenerator(seed),
		securityLevel: securityLevel,
		checksum:      checksum,
	}, nil
}

// SecurityLevel is the level every generated address uses.
func (g *Generator) SecurityLevel() int {
	return g.securityLevel
}

// GetAddresses derives count addresses starting at start, moving by step.
// A negative step stops early at index 0.
func (g *Generator) GetAddresses(start, count, step int) ([]types.Address, error) {
	if err := checkRange(start, count, step); err != nil {
		return nil, err
	}

	it, err := g.CreateIterator(start, step)
	if err != nil {
		return nil, err
	}
	out := make([]types.Address, 0, count)
	for len(out) < count {
		addr, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, addr)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAddressesContext is GetAddresses with indices derived by up to
// concurrency goroutines. Results keep index order. onProgress, if set, is
// called once per finished address from the worker goroutine.
func (g *Generator) GetAddressesContext(ctx context.Context, start, count, step, concurrency int, onProgress func()) ([]types.Address, error) {
	if err := checkRange(start, count, step); err != nil {
		return nil, err
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", concurrency)
	}

	indices := make([]int, 0, count)
	for i, idx := 0, start; i < count && idx >= 0; i, idx = i+1, idx+step {
		indices = append(indices, idx)
	}
	out := make([]types.Address, len(indices))

	eg, egCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)

loop:
	for i, index := range indices {
		i, index := i, index
		select {
		case <-egCtx.Done():
			break loop
		case sem <- struct{}{}:
		}

		eg.Go(func() error {
			defer func() { <-sem }()
			if err := egCtx.Err(); err != nil {
				return err
			}

			addr, err := g.addressAt(index)
			if err != nil {
				return fmt.Errorf("failed to derive address %d: %w", index, err)
			}
			out[i] = addr

			if onProgress != nil {
				onProgress()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateIterator returns a lazy, restartable address iterator.
func (g *Generator) CreateIterator(start, step int) (*Iterator, error) {
	keys, err := g.keys.CreateIterator(start, step, g.securityLevel)
	if err != nil {
		return nil, err
	}
	return &Iterator{keys: keys, checksum: g.checksum}, nil
}

func (g *Generator) addressAt(index int) (types.Address, error) {
	key, err := g.keys.GetKey(index, g.securityLevel)
	if err != nil {
		return types.Address{}, err
	}
	return addressFromKey(key, g.checksum)
}

func addressFromKey(key *signing.PrivateKey, checksum bool) (types.Address, error) {
	d, err := key.Digest()
	if err != nil {
		return types.Address{}, fmt.Errorf("failed to compute digest: %w", err)
	}
	addr, err := FromDigest(d)
	if err != nil {
		return types.Address{}, err
	}
	if checksum {
		addr = addr.WithValidChecksum()
	}
	metrics.AddressesGenerated.WithLabelValues(strconv.Itoa(key.SecurityLevel)).Inc()
	return addr, nil
}

func checkRange(start, count, step int) error {
	if start < 0 {
		return fmt.Errorf("start must not be negative, got %d", start)
	}
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}
	if step == 0 {
		return fmt.Errorf("step must not be zero")
	}
	return nil
}

// Iterator yields addresses one key index at a time.
type Iterator struct {
	keys     *signing.KeyIterator
	checksum bool
	err      error
}

// Next derives the address at the current index and advances.
func (it *Iterator) Next() (types.Address, bool) {
	if it.err != nil {
		return types.Address{}, false
	}
	key, ok := it.keys.Next()
	if !ok {
		it.err = it.keys.Err()
		return types.Address{}, false
	}
	addr, err := addressFromKey(key, it.checksum)
	if err != nil {
		it.err = err
		return types.Address{}, false
	}
	return addr, true
}

// Reset restarts the iterator at its start index.
func (it *Iterator) Reset() {
	it.keys.Reset()
	it.err = nil
}

// Current is the index the next call to Next will derive.
func (it *Iterator) Current() int {
	return it.keys.Current()
}

// Err reports the failure that stopped the iterator, if any.
func (it *Iterator) Err() error {
	return it.err
}
