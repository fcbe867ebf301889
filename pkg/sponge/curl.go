package sponge

import "github.com/suffix-labs/iota-ternary/pkg/trinary"

const (
	// StateLength is the size of Curl's internal state: three hash lengths.
	StateLength = 3 * HashLength
	// NumberOfRounds is the number of substitution rounds per transform.
	NumberOfRounds = 81
)

var truthTable = [9]int8{1, 0, -1, 1, -1, 0, -1, 1, 0}

// transformIndex[i] and transformIndex[i+1] are the two state positions
// combined into output position i. The walk advances by 364 modulo 729 and
// returns to 0 after StateLength steps.
var transformIndex = func() [StateLength + 1]int {
	var idx [StateLength + 1]int
	for i := 0; i < StateLength; i++ {
		if idx[i] < 365 {
			idx[i+1] = idx[i] + 364
		} else {
			idx[i+1] = idx[i] - 365
		}
	}
	return idx
}()

// Curl is the permutation sponge.
//
// Only the first HashLength trits of the state are visible; absorb
// overwrites them and squeeze reads them, each followed by a transform.
type Curl struct {
	state   [StateLength]int8
	scratch [StateLength]int8
}

// NewCurl returns a Curl sponge with zeroed state.
func NewCurl() *Curl {
	return &Curl{}
}

// Reset zeroes the state.
func (c *Curl) Reset() {
	c.state = [StateLength]int8{}
}

// Absorb copies each block of in[offset:offset+length] over the visible
// state and transforms.
func (c *Curl) Absorb(in trinary.Trits, offset, length int) error {
	if err := checkRange(len(in), offset, length); err != nil {
		return err
	}
	for end := offset + length; offset < end; offset += HashLength {
		n := min(HashLength, end-offset)
		copy(c.state[:n], in[offset:offset+n])
		c.transform()
	}
	return nil
}

// Squeeze copies the visible state into out[offset:offset+length] one block
// at a time, transforming after each block.
func (c *Curl) Squeeze(out trinary.Trits, offset, length int) error {
	if err := checkRange(len(out), offset, length); err != nil {
		return err
	}
	for end := offset + length; offset < end; offset += HashLength {
		n := min(HashLength, end-offset)
		copy(out[offset:offset+n], c.state[:n])
		c.transform()
	}
	return nil
}

func (c *Curl) transform() {
	for round := 0; round < NumberOfRounds; round++ {
		c.scratch = c.state
		for pos := 0; pos < StateLength; pos++ {
			a := c.scratch[transformIndex[pos]]
			b := c.scratch[transformIndex[pos+1]]
			c.state[pos] = truthTable[a+3*b+4]
		}
	}
}
